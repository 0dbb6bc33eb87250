package commands

import (
	"context"
	"errors"
)

var (
	errMissingService = errors.New("commands: service not configured")
	errMissingSession = errors.New("commands: session id is required")
)

// Telemetry allows commands to emit structured events.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

func requireSession(id string) error {
	if id == "" {
		return errMissingSession
	}
	return nil
}

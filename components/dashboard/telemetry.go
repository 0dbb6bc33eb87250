package dashboard

import (
	"context"
	"log/slog"
)

// Telemetry event names emitted by the service.
const (
	EventQuerySubmitted   = "dashboard.query.submitted"
	EventQueryCompleted   = "dashboard.query.completed"
	EventQueryFailed      = "dashboard.query.failed"
	EventFiltersChanged   = "dashboard.filters.changed"
	EventTableUpdated     = "dashboard.table.updated"
	EventUploadCompleted  = "dashboard.upload.completed"
	EventUploadFailed     = "dashboard.upload.failed"
	EventMappingCompleted = "dashboard.mapping.completed"
)

// Telemetry records dashboard events for observability.
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

func normalizeLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}

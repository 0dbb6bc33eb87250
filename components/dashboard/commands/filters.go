package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// SetFilterInput changes one filter selection.
type SetFilterInput struct {
	SessionID string `json:"session_id"`
	Field     string `json:"field"`
	Value     any    `json:"value"`
}

// ClearFiltersInput clears one filter, or every filter when Field is empty.
type ClearFiltersInput struct {
	SessionID string `json:"session_id"`
	Field     string `json:"field,omitempty"`
}

type filterService interface {
	SetFilter(ctx context.Context, sessionID, field string, value any) error
	ClearFilters(ctx context.Context, sessionID, field string) error
}

// SetFilterCommand wraps Service.SetFilter.
type SetFilterCommand struct {
	service   filterService
	telemetry Telemetry
}

// NewSetFilterCommand creates the command.
func NewSetFilterCommand(service filterService, telemetry Telemetry) *SetFilterCommand {
	return &SetFilterCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetFilterInput] = (*SetFilterCommand)(nil)

// Execute applies the selection and recomputes the session view.
func (c *SetFilterCommand) Execute(ctx context.Context, msg SetFilterInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := requireSession(msg.SessionID); err != nil {
		return err
	}
	if msg.Field == "" {
		return errors.New("set filter command requires field")
	}
	if err := c.service.SetFilter(ctx, msg.SessionID, msg.Field, msg.Value); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.set_filter", map[string]any{
		"session": msg.SessionID,
		"field":   msg.Field,
	})
	return nil
}

// ClearFiltersCommand wraps Service.ClearFilters.
type ClearFiltersCommand struct {
	service   filterService
	telemetry Telemetry
}

// NewClearFiltersCommand creates the command.
func NewClearFiltersCommand(service filterService, telemetry Telemetry) *ClearFiltersCommand {
	return &ClearFiltersCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ClearFiltersInput] = (*ClearFiltersCommand)(nil)

// Execute removes the selection(s).
func (c *ClearFiltersCommand) Execute(ctx context.Context, msg ClearFiltersInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := requireSession(msg.SessionID); err != nil {
		return err
	}
	if err := c.service.ClearFilters(ctx, msg.SessionID, msg.Field); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.clear_filters", map[string]any{
		"session": msg.SessionID,
		"field":   msg.Field,
	})
	return nil
}

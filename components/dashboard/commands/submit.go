package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
)

// SubmitQueryInput runs a natural-language query in a session.
type SubmitQueryInput struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type submitService interface {
	Submit(ctx context.Context, sessionID, text string) error
}

// SubmitQueryCommand wraps Service.Submit.
type SubmitQueryCommand struct {
	service   submitService
	telemetry Telemetry
}

// NewSubmitQueryCommand creates the command.
func NewSubmitQueryCommand(service submitService, telemetry Telemetry) *SubmitQueryCommand {
	return &SubmitQueryCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SubmitQueryInput] = (*SubmitQueryCommand)(nil)

// Execute submits the query. Blank queries are rejected by the controller
// without reaching the query backend.
func (c *SubmitQueryCommand) Execute(ctx context.Context, msg SubmitQueryInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := requireSession(msg.SessionID); err != nil {
		return err
	}
	if err := c.service.Submit(ctx, msg.SessionID, msg.Query); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.submit", map[string]any{
		"session": msg.SessionID,
	})
	return nil
}

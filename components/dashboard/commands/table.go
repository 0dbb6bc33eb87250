package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-querydash/components/dashboard"
)

// UpdateTableInput changes search, sort or page of a session table.
type UpdateTableInput struct {
	SessionID string                `json:"session_id"`
	Update    dashboard.TableUpdate `json:"update"`
}

type tableService interface {
	UpdateTable(ctx context.Context, sessionID string, update dashboard.TableUpdate) (dashboard.TablePage, error)
}

// UpdateTableCommand wraps Service.UpdateTable. The resulting page is read
// back through queries.TablePageQuery.
type UpdateTableCommand struct {
	service   tableService
	telemetry Telemetry
}

// NewUpdateTableCommand creates the command.
func NewUpdateTableCommand(service tableService, telemetry Telemetry) *UpdateTableCommand {
	return &UpdateTableCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateTableInput] = (*UpdateTableCommand)(nil)

// Execute applies the table update.
func (c *UpdateTableCommand) Execute(ctx context.Context, msg UpdateTableInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := requireSession(msg.SessionID); err != nil {
		return err
	}
	page, err := c.service.UpdateTable(ctx, msg.SessionID, msg.Update)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.update_table", map[string]any{
		"session": msg.SessionID,
		"table":   page.ID,
		"page":    page.Page,
	})
	return nil
}

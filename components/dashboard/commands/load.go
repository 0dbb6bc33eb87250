package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// LoadSpecificationInput installs a manually supplied specification.
type LoadSpecificationInput struct {
	SessionID     string `json:"session_id"`
	Specification []byte `json:"specification"`
}

// PreviewDatasetInput loads raw dataset rows into a session.
type PreviewDatasetInput struct {
	SessionID string `json:"session_id"`
	DatasetID string `json:"dataset_id"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

type loadService interface {
	LoadSpecification(ctx context.Context, sessionID string, raw []byte) error
	PreviewDataset(ctx context.Context, sessionID, datasetID string, page, pageSize int) error
}

// LoadSpecificationCommand wraps Service.LoadSpecification.
type LoadSpecificationCommand struct {
	service   loadService
	telemetry Telemetry
}

// NewLoadSpecificationCommand creates the command.
func NewLoadSpecificationCommand(service loadService, telemetry Telemetry) *LoadSpecificationCommand {
	return &LoadSpecificationCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoadSpecificationInput] = (*LoadSpecificationCommand)(nil)

// Execute validates and installs the specification.
func (c *LoadSpecificationCommand) Execute(ctx context.Context, msg LoadSpecificationInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := requireSession(msg.SessionID); err != nil {
		return err
	}
	if len(msg.Specification) == 0 {
		return errors.New("load command requires a specification")
	}
	if err := c.service.LoadSpecification(ctx, msg.SessionID, msg.Specification); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.load", map[string]any{
		"session": msg.SessionID,
		"bytes":   len(msg.Specification),
	})
	return nil
}

// PreviewDatasetCommand wraps Service.PreviewDataset.
type PreviewDatasetCommand struct {
	service   loadService
	telemetry Telemetry
}

// NewPreviewDatasetCommand creates the command.
func NewPreviewDatasetCommand(service loadService, telemetry Telemetry) *PreviewDatasetCommand {
	return &PreviewDatasetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[PreviewDatasetInput] = (*PreviewDatasetCommand)(nil)

// Execute loads a preview page; page defaults to 1 and page size to 50.
func (c *PreviewDatasetCommand) Execute(ctx context.Context, msg PreviewDatasetInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := requireSession(msg.SessionID); err != nil {
		return err
	}
	if msg.DatasetID == "" {
		return errors.New("preview command requires dataset id")
	}
	if msg.Page <= 0 {
		msg.Page = 1
	}
	if msg.PageSize <= 0 {
		msg.PageSize = 50
	}
	if err := c.service.PreviewDataset(ctx, msg.SessionID, msg.DatasetID, msg.Page, msg.PageSize); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.preview", map[string]any{
		"session": msg.SessionID,
		"dataset": msg.DatasetID,
	})
	return nil
}

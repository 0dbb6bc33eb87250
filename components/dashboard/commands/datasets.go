package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-querydash/components/dashboard"
)

// UploadDatasetsInput uploads one or more files.
type UploadDatasetsInput struct {
	Files    []dashboard.UploadFile
	Metadata dashboard.DatasetMetadata
}

// DeleteDatasetsInput removes datasets by id.
type DeleteDatasetsInput struct {
	IDs []string `json:"ids"`
}

// GenerateMappingInput triggers relationship mapping generation.
type GenerateMappingInput struct{}

type datasetService interface {
	UploadDatasets(ctx context.Context, files []dashboard.UploadFile, meta dashboard.DatasetMetadata) []dashboard.UploadTask
	DeleteDatasets(ctx context.Context, ids ...string) error
	GenerateMapping(ctx context.Context) (dashboard.Mapping, error)
}

// UploadDatasetsCommand wraps Service.UploadDatasets. Per-file outcomes are
// read back through queries.UploadStatusQuery; Execute only fails when
// every file failed.
type UploadDatasetsCommand struct {
	service   datasetService
	telemetry Telemetry
}

// NewUploadDatasetsCommand creates the command.
func NewUploadDatasetsCommand(service datasetService, telemetry Telemetry) *UploadDatasetsCommand {
	return &UploadDatasetsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UploadDatasetsInput] = (*UploadDatasetsCommand)(nil)

// Execute uploads the files.
func (c *UploadDatasetsCommand) Execute(ctx context.Context, msg UploadDatasetsInput) error {
	if c.service == nil {
		return errMissingService
	}
	if len(msg.Files) == 0 {
		return errors.New("upload command requires at least one file")
	}
	tasks := c.service.UploadDatasets(ctx, msg.Files, msg.Metadata)
	failed := 0
	for _, task := range tasks {
		if task.Status == dashboard.UploadFailed {
			failed++
		}
	}
	c.telemetry.Record(ctx, "dashboard.command.upload", map[string]any{
		"files":  len(tasks),
		"failed": failed,
	})
	if failed == len(tasks) {
		return dashboard.UploadError(msg.Files[0].Name, errors.New(tasks[0].Error))
	}
	return nil
}

// DeleteDatasetsCommand wraps Service.DeleteDatasets.
type DeleteDatasetsCommand struct {
	service   datasetService
	telemetry Telemetry
}

// NewDeleteDatasetsCommand creates the command.
func NewDeleteDatasetsCommand(service datasetService, telemetry Telemetry) *DeleteDatasetsCommand {
	return &DeleteDatasetsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteDatasetsInput] = (*DeleteDatasetsCommand)(nil)

// Execute deletes the datasets in order.
func (c *DeleteDatasetsCommand) Execute(ctx context.Context, msg DeleteDatasetsInput) error {
	if c.service == nil {
		return errMissingService
	}
	if len(msg.IDs) == 0 {
		return errors.New("delete command requires dataset ids")
	}
	if err := c.service.DeleteDatasets(ctx, msg.IDs...); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.delete_datasets", map[string]any{
		"count": len(msg.IDs),
	})
	return nil
}

// GenerateMappingCommand wraps Service.GenerateMapping.
type GenerateMappingCommand struct {
	service   datasetService
	telemetry Telemetry
}

// NewGenerateMappingCommand creates the command.
func NewGenerateMappingCommand(service datasetService, telemetry Telemetry) *GenerateMappingCommand {
	return &GenerateMappingCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[GenerateMappingInput] = (*GenerateMappingCommand)(nil)

// Execute generates the mapping and waits for it to become ready.
func (c *GenerateMappingCommand) Execute(ctx context.Context, _ GenerateMappingInput) error {
	if c.service == nil {
		return errMissingService
	}
	mapping, err := c.service.GenerateMapping(ctx)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.generate_mapping", map[string]any{
		"relationships": len(mapping.Relationships),
	})
	return nil
}

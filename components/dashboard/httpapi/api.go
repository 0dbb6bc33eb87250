package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-querydash/components/dashboard"
	"github.com/goliatone/go-querydash/components/dashboard/commands"
	"github.com/goliatone/go-querydash/components/dashboard/queries"
)

var errCommandNotConfigured = errors.New("httpapi: command not configured")

// Executor is the write side shared by the net/http and go-router transports.
type Executor interface {
	Submit(ctx context.Context, input commands.SubmitQueryInput) error
	SetFilter(ctx context.Context, input commands.SetFilterInput) error
	ClearFilters(ctx context.Context, input commands.ClearFiltersInput) error
	UpdateTable(ctx context.Context, input commands.UpdateTableInput) error
	Load(ctx context.Context, input commands.LoadSpecificationInput) error
	Preview(ctx context.Context, input commands.PreviewDatasetInput) error
	Upload(ctx context.Context, input commands.UploadDatasetsInput) error
	DeleteDatasets(ctx context.Context, input commands.DeleteDatasetsInput) error
	GenerateMapping(ctx context.Context, input commands.GenerateMappingInput) error
}

// CommandExecutor adapts go-command commanders to Executor.
type CommandExecutor struct {
	SubmitCommander          gocommand.Commander[commands.SubmitQueryInput]
	SetFilterCommander       gocommand.Commander[commands.SetFilterInput]
	ClearFiltersCommander    gocommand.Commander[commands.ClearFiltersInput]
	UpdateTableCommander     gocommand.Commander[commands.UpdateTableInput]
	LoadCommander            gocommand.Commander[commands.LoadSpecificationInput]
	PreviewCommander         gocommand.Commander[commands.PreviewDatasetInput]
	UploadCommander          gocommand.Commander[commands.UploadDatasetsInput]
	DeleteDatasetsCommander  gocommand.Commander[commands.DeleteDatasetsInput]
	GenerateMappingCommander gocommand.Commander[commands.GenerateMappingInput]
}

// NewCommandExecutor wires every command against one service.
func NewCommandExecutor(service *dashboard.Service, telemetry commands.Telemetry) *CommandExecutor {
	return &CommandExecutor{
		SubmitCommander:          commands.NewSubmitQueryCommand(service, telemetry),
		SetFilterCommander:       commands.NewSetFilterCommand(service, telemetry),
		ClearFiltersCommander:    commands.NewClearFiltersCommand(service, telemetry),
		UpdateTableCommander:     commands.NewUpdateTableCommand(service, telemetry),
		LoadCommander:            commands.NewLoadSpecificationCommand(service, telemetry),
		PreviewCommander:         commands.NewPreviewDatasetCommand(service, telemetry),
		UploadCommander:          commands.NewUploadDatasetsCommand(service, telemetry),
		DeleteDatasetsCommander:  commands.NewDeleteDatasetsCommand(service, telemetry),
		GenerateMappingCommander: commands.NewGenerateMappingCommand(service, telemetry),
	}
}

var _ Executor = (*CommandExecutor)(nil)

func execute[T any](ctx context.Context, cmd gocommand.Commander[T], msg T) error {
	if cmd == nil {
		return errCommandNotConfigured
	}
	return cmd.Execute(ctx, msg)
}

func (e *CommandExecutor) Submit(ctx context.Context, input commands.SubmitQueryInput) error {
	return execute(ctx, e.SubmitCommander, input)
}

func (e *CommandExecutor) SetFilter(ctx context.Context, input commands.SetFilterInput) error {
	return execute(ctx, e.SetFilterCommander, input)
}

func (e *CommandExecutor) ClearFilters(ctx context.Context, input commands.ClearFiltersInput) error {
	return execute(ctx, e.ClearFiltersCommander, input)
}

func (e *CommandExecutor) UpdateTable(ctx context.Context, input commands.UpdateTableInput) error {
	return execute(ctx, e.UpdateTableCommander, input)
}

func (e *CommandExecutor) Load(ctx context.Context, input commands.LoadSpecificationInput) error {
	return execute(ctx, e.LoadCommander, input)
}

func (e *CommandExecutor) Preview(ctx context.Context, input commands.PreviewDatasetInput) error {
	return execute(ctx, e.PreviewCommander, input)
}

func (e *CommandExecutor) Upload(ctx context.Context, input commands.UploadDatasetsInput) error {
	return execute(ctx, e.UploadCommander, input)
}

func (e *CommandExecutor) DeleteDatasets(ctx context.Context, input commands.DeleteDatasetsInput) error {
	return execute(ctx, e.DeleteDatasetsCommander, input)
}

func (e *CommandExecutor) GenerateMapping(ctx context.Context, input commands.GenerateMappingInput) error {
	return execute(ctx, e.GenerateMappingCommander, input)
}

// Reader is the read side shared by both transports.
type Reader interface {
	View(ctx context.Context, input queries.ViewInput) (dashboard.DashboardView, error)
	TablePage(ctx context.Context, input queries.TablePageInput) (dashboard.TablePage, error)
	Chart(ctx context.Context, input queries.ChartInput) (dashboard.RenderableChart, error)
	Datasets(ctx context.Context, params dashboard.ListParams) (dashboard.DatasetPage, error)
	Schema(ctx context.Context, input queries.SchemaInput) (dashboard.DatasetSchema, error)
	Uploads(ctx context.Context, input queries.UploadStatusInput) ([]dashboard.UploadTask, error)
}

// QueryReader adapts go-command queriers to Reader.
type QueryReader struct {
	ViewQuerier     gocommand.Querier[queries.ViewInput, dashboard.DashboardView]
	TableQuerier    gocommand.Querier[queries.TablePageInput, dashboard.TablePage]
	ChartQuerier    gocommand.Querier[queries.ChartInput, dashboard.RenderableChart]
	DatasetsQuerier gocommand.Querier[dashboard.ListParams, dashboard.DatasetPage]
	SchemaQuerier   gocommand.Querier[queries.SchemaInput, dashboard.DatasetSchema]
	UploadsQuerier  gocommand.Querier[queries.UploadStatusInput, []dashboard.UploadTask]
}

// NewQueryReader wires every query against one service.
func NewQueryReader(service *dashboard.Service) *QueryReader {
	return &QueryReader{
		ViewQuerier:     queries.NewDashboardViewQuery(service),
		TableQuerier:    queries.NewTablePageQuery(service),
		ChartQuerier:    queries.NewChartQuery(service),
		DatasetsQuerier: queries.NewDatasetListQuery(service),
		SchemaQuerier:   queries.NewDatasetSchemaQuery(service),
		UploadsQuerier:  queries.NewUploadStatusQuery(service),
	}
}

var _ Reader = (*QueryReader)(nil)

func query[T, R any](ctx context.Context, q gocommand.Querier[T, R], msg T) (R, error) {
	if q == nil {
		var zero R
		return zero, errCommandNotConfigured
	}
	return q.Query(ctx, msg)
}

func (r *QueryReader) View(ctx context.Context, input queries.ViewInput) (dashboard.DashboardView, error) {
	return query(ctx, r.ViewQuerier, input)
}

func (r *QueryReader) TablePage(ctx context.Context, input queries.TablePageInput) (dashboard.TablePage, error) {
	return query(ctx, r.TableQuerier, input)
}

func (r *QueryReader) Chart(ctx context.Context, input queries.ChartInput) (dashboard.RenderableChart, error) {
	return query(ctx, r.ChartQuerier, input)
}

func (r *QueryReader) Datasets(ctx context.Context, params dashboard.ListParams) (dashboard.DatasetPage, error) {
	return query(ctx, r.DatasetsQuerier, params)
}

func (r *QueryReader) Schema(ctx context.Context, input queries.SchemaInput) (dashboard.DatasetSchema, error) {
	return query(ctx, r.SchemaQuerier, input)
}

func (r *QueryReader) Uploads(ctx context.Context, input queries.UploadStatusInput) ([]dashboard.UploadTask, error) {
	return query(ctx, r.UploadsQuerier, input)
}

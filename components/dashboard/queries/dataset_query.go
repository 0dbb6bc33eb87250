package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-querydash/components/dashboard"
)

// SchemaInput identifies a dataset.
type SchemaInput struct {
	DatasetID string
}

// UploadStatusInput selects one upload, or all of them when ID is empty.
type UploadStatusInput struct {
	ID string
}

type datasetService interface {
	ListDatasets(ctx context.Context, params dashboard.ListParams) (dashboard.DatasetPage, error)
	DatasetSchema(ctx context.Context, id string) (dashboard.DatasetSchema, error)
}

type uploadSource interface {
	Uploads() *dashboard.UploadTracker
}

// DatasetListQuery pages through the dataset catalogue.
type DatasetListQuery struct {
	service datasetService
}

// NewDatasetListQuery builds the query.
func NewDatasetListQuery(service datasetService) *DatasetListQuery {
	return &DatasetListQuery{service: service}
}

var _ gocommand.Querier[dashboard.ListParams, dashboard.DatasetPage] = (*DatasetListQuery)(nil)

// Query lists datasets.
func (q *DatasetListQuery) Query(ctx context.Context, params dashboard.ListParams) (dashboard.DatasetPage, error) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	return q.service.ListDatasets(ctx, params)
}

// DatasetSchemaQuery fetches the column schema of a dataset.
type DatasetSchemaQuery struct {
	service datasetService
}

// NewDatasetSchemaQuery builds the query.
func NewDatasetSchemaQuery(service datasetService) *DatasetSchemaQuery {
	return &DatasetSchemaQuery{service: service}
}

var _ gocommand.Querier[SchemaInput, dashboard.DatasetSchema] = (*DatasetSchemaQuery)(nil)

// Query fetches the schema.
func (q *DatasetSchemaQuery) Query(ctx context.Context, input SchemaInput) (dashboard.DatasetSchema, error) {
	return q.service.DatasetSchema(ctx, input.DatasetID)
}

// UploadStatusQuery reads tracked upload tasks.
type UploadStatusQuery struct {
	source uploadSource
}

// NewUploadStatusQuery builds the query.
func NewUploadStatusQuery(source uploadSource) *UploadStatusQuery {
	return &UploadStatusQuery{source: source}
}

var _ gocommand.Querier[UploadStatusInput, []dashboard.UploadTask] = (*UploadStatusQuery)(nil)

// Query returns the matching tasks; an unknown id yields an empty slice.
func (q *UploadStatusQuery) Query(_ context.Context, input UploadStatusInput) ([]dashboard.UploadTask, error) {
	tracker := q.source.Uploads()
	if input.ID == "" {
		return tracker.Tasks(), nil
	}
	if task, ok := tracker.Task(input.ID); ok {
		return []dashboard.UploadTask{task}, nil
	}
	return []dashboard.UploadTask{}, nil
}

package dashboard

import (
	"context"
	"io"
	"time"
)

// Dataset describes an uploaded dataset.
type Dataset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	FileName    string    `json:"file_name,omitempty"`
	FileSize    int64     `json:"file_size,omitempty"`
	RowCount    int       `json:"row_count,omitempty"`
	ColumnCount int       `json:"column_count,omitempty"`
	Status      string    `json:"status,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// DatasetPage is one page of a dataset listing.
type DatasetPage struct {
	Items    []Dataset `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// ListParams narrows a dataset listing.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
}

// DatasetColumn describes one column of a dataset schema.
type DatasetColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

// DatasetSchema is the column layout of a dataset.
type DatasetSchema struct {
	DatasetID string          `json:"dataset_id"`
	Columns   []DatasetColumn `json:"columns"`
}

// DatasetPreview is a page of raw dataset rows.
type DatasetPreview struct {
	Columns  []string `json:"columns"`
	Rows     []Record `json:"data"`
	Total    int      `json:"total_rows"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

// DatasetMetadata accompanies an upload.
type DatasetMetadata struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UploadFile is a file handed to the dataset store.
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// ProgressFunc receives upload progress in percent (0-100).
type ProgressFunc func(percent int)

// DatasetStore is the dataset catalogue backing previews and uploads.
type DatasetStore interface {
	List(ctx context.Context, params ListParams) (DatasetPage, error)
	Upload(ctx context.Context, file UploadFile, meta DatasetMetadata, onProgress ProgressFunc) (Dataset, error)
	Delete(ctx context.Context, id string) error
	Schema(ctx context.Context, id string) (DatasetSchema, error)
}

// DatasetPreviewer returns raw rows for a dataset.
type DatasetPreviewer interface {
	Preview(ctx context.Context, id string, page, pageSize int) (DatasetPreview, error)
}

// PreviewSpecification wraps preview rows in a specification so they flow
// through the same filters, cards and tables as query results.
func PreviewSpecification(name string, preview DatasetPreview) Specification {
	spec := Specification{
		Title: name,
		Data:  preview.Rows,
	}
	if len(preview.Rows) > 0 && len(preview.Columns) > 0 {
		spec.fieldOrder = preview.Columns
	}
	return spec
}

package queryclient

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	dashboard "github.com/goliatone/go-querydash/components/dashboard"
)

// MockData seeds deterministic backend responses for tests or local demos.
type MockData struct {
	// Specifications maps lower-cased query text to a response; Default
	// answers anything else.
	Specifications map[string]dashboard.Specification
	Default        dashboard.Specification
	Datasets       []dashboard.Dataset
	Previews       map[string]dashboard.DatasetPreview
	Relationships  []dashboard.Relationship
	// MappingReads is how many GetMapping calls report "generating" after a
	// generation request.
	MappingReads int
}

// MockClient implements Client using in-memory fixtures.
type MockClient struct {
	mu       sync.RWMutex
	data     MockData
	datasets map[string]dashboard.Dataset
	nextID   int
	pending  int
	mapping  dashboard.Mapping
	now      func() time.Time
}

// NewMockClient builds a mock backend from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	c := &MockClient{
		data:     data,
		datasets: map[string]dashboard.Dataset{},
		now:      time.Now,
	}
	for _, ds := range data.Datasets {
		c.datasets[ds.ID] = ds
		c.nextID++
	}
	return c
}

// SubmitQuery returns the fixture registered for the query text.
func (c *MockClient) SubmitQuery(ctx context.Context, text string) (dashboard.Specification, error) {
	if err := ctx.Err(); err != nil {
		return dashboard.Specification{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if spec, ok := c.data.Specifications[strings.ToLower(strings.TrimSpace(text))]; ok {
		return cloneSpecification(spec), nil
	}
	return cloneSpecification(c.data.Default), nil
}

// List pages through the datasets, filtering by name when Search is set.
func (c *MockClient) List(_ context.Context, params dashboard.ListParams) (dashboard.DatasetPage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]dashboard.Dataset, 0, len(c.datasets))
	search := strings.ToLower(params.Search)
	for _, ds := range c.datasets {
		if search != "" && !strings.Contains(strings.ToLower(ds.Name), search) {
			continue
		}
		items = append(items, ds)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	page, size := params.Page, params.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	total := len(items)
	start := min((page-1)*size, total)
	end := min(start+size, total)
	return dashboard.DatasetPage{Items: items[start:end], Total: total, Page: page, PageSize: size}, nil
}

// Upload drains the reader, reporting progress in quarters.
func (c *MockClient) Upload(ctx context.Context, file dashboard.UploadFile, meta dashboard.DatasetMetadata, onProgress dashboard.ProgressFunc) (dashboard.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return dashboard.Dataset{}, err
	}
	var size int64
	if file.Reader != nil {
		n, err := io.Copy(io.Discard, file.Reader)
		if err != nil {
			return dashboard.Dataset{}, err
		}
		size = n
	}
	if onProgress != nil {
		for _, p := range []int{25, 50, 75, 100} {
			onProgress(p)
		}
	}
	name := meta.Name
	if name == "" {
		name = file.Name
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	ds := dashboard.Dataset{
		ID:          fmt.Sprintf("ds-%d", c.nextID),
		Name:        name,
		Description: meta.Description,
		FileName:    file.Name,
		FileSize:    size,
		Status:      "ready",
		Tags:        append([]string(nil), meta.Tags...),
		CreatedAt:   c.now(),
	}
	c.datasets[ds.ID] = ds
	return ds, nil
}

// Delete removes a dataset.
func (c *MockClient) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.datasets[id]; !ok {
		return dashboard.ServerError(404, "Dataset not found")
	}
	delete(c.datasets, id)
	return nil
}

// Schema derives columns from the preview fixture, if any.
func (c *MockClient) Schema(_ context.Context, id string) (dashboard.DatasetSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.datasets[id]; !ok {
		return dashboard.DatasetSchema{}, dashboard.ServerError(404, "Dataset not found")
	}
	schema := dashboard.DatasetSchema{DatasetID: id}
	preview := c.data.Previews[id]
	for _, column := range preview.Columns {
		schema.Columns = append(schema.Columns, dashboard.DatasetColumn{Name: column, Type: columnType(preview.Rows, column)})
	}
	return schema, nil
}

// Preview pages through the preview fixture rows.
func (c *MockClient) Preview(_ context.Context, id string, page, pageSize int) (dashboard.DatasetPreview, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	preview, ok := c.data.Previews[id]
	if !ok {
		return dashboard.DatasetPreview{}, dashboard.ServerError(404, "Dataset not found")
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	total := len(preview.Rows)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	rows := make([]dashboard.Record, 0, end-start)
	for _, row := range preview.Rows[start:end] {
		rows = append(rows, cloneRecord(row))
	}
	return dashboard.DatasetPreview{
		Columns:  append([]string(nil), preview.Columns...),
		Rows:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GenerateMapping starts a simulated generation.
func (c *MockClient) GenerateMapping(context.Context) (dashboard.MappingJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = c.data.MappingReads
	if c.pending == 0 {
		c.mapping = c.readyMapping()
		return dashboard.MappingJob{Status: "completed"}, nil
	}
	c.mapping = dashboard.Mapping{Status: dashboard.MappingGenerating, UpdatedAt: c.now()}
	return dashboard.MappingJob{Status: "started", Message: "Mapping generation started"}, nil
}

// GetMapping reports generating until MappingReads calls have been made.
func (c *MockClient) GetMapping(context.Context) (dashboard.Mapping, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mapping.Status == "" {
		return dashboard.Mapping{}, dashboard.ServerError(404, "No mapping found for your organization")
	}
	if c.mapping.Status == dashboard.MappingGenerating {
		if c.pending > 0 {
			c.pending--
			return c.mapping, nil
		}
		c.mapping = c.readyMapping()
	}
	return c.mapping, nil
}

func (c *MockClient) readyMapping() dashboard.Mapping {
	return dashboard.Mapping{
		Status:        dashboard.MappingReady,
		Relationships: append([]dashboard.Relationship(nil), c.data.Relationships...),
		UpdatedAt:     c.now(),
	}
}

func columnType(rows []dashboard.Record, column string) string {
	for _, row := range rows {
		switch row[column].(type) {
		case nil:
			continue
		case float64, float32, int, int64:
			return "number"
		case bool:
			return "boolean"
		default:
			return "string"
		}
	}
	return "string"
}

func cloneRecord(record dashboard.Record) dashboard.Record {
	out := make(dashboard.Record, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out
}

func cloneSpecification(spec dashboard.Specification) dashboard.Specification {
	out := spec
	out.Data = make([]dashboard.Record, len(spec.Data))
	for i, row := range spec.Data {
		out.Data[i] = cloneRecord(row)
	}
	return out
}

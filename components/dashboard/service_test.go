package dashboard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	lastTemplate string
	lastPayload  map[string]any
	err          error
}

func (r *stubRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	r.lastTemplate = name
	if payload, ok := data.(map[string]any); ok {
		r.lastPayload = payload
	}
	if len(out) > 0 && out[0] != nil {
		out[0].Write([]byte("<html></html>"))
	}
	return "<html></html>", r.err
}

type stubChartRenderer struct{}

func (stubChartRenderer) RenderChart(_ context.Context, chart RenderableChart) (string, error) {
	return "<div id=\"" + chart.ID + "\"></div>", nil
}

type testTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (t *testTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func newTestService(opts Options) *Service {
	if opts.NewID == nil {
		opts.NewID = func() string { return "session-1" }
	}
	return NewService(opts)
}

func TestServiceSessionLifecycle(t *testing.T) {
	telemetry := &testTelemetry{}
	service := newTestService(Options{
		Queries:   &stubQueryService{spec: salesSpecification()},
		Telemetry: telemetry,
	})
	ctx := context.Background()

	session, err := service.NewSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session-1", session.ID())

	require.NoError(t, service.Submit(ctx, "session-1", "sales"))
	require.NoError(t, service.SetFilter(ctx, "session-1", "region", "East"))
	view, err := service.View(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 7, view.FilteredRows)

	require.NoError(t, service.ClearFilters(ctx, "session-1", "region"))
	page, err := service.TablePage(ctx, "session-1", "table")
	require.NoError(t, err)
	assert.Equal(t, 23, page.TotalFiltered)

	chart, err := service.Chart(ctx, "session-1", "by-region")
	require.NoError(t, err)
	assert.Len(t, chart.Slices, 3)

	assert.Contains(t, telemetry.events, EventQueryCompleted)
	assert.Contains(t, telemetry.events, EventFiltersChanged)

	require.NoError(t, service.CloseSession(ctx, "session-1"))
	_, err = service.View(ctx, "session-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceRequiresQueryService(t *testing.T) {
	service := newTestService(Options{})
	_, err := service.NewSession(context.Background())
	require.NoError(t, err)
	assert.Error(t, service.Submit(context.Background(), "session-1", "sales"))
}

func TestServiceLoadSpecification(t *testing.T) {
	service := newTestService(Options{})
	ctx := context.Background()
	_, err := service.NewSession(ctx)
	require.NoError(t, err)

	err = service.LoadSpecification(ctx, "session-1", []byte(`{"charts": []}`))
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, KindValidation, qe.Kind)

	require.NoError(t, service.LoadSpecification(ctx, "session-1", []byte(`{"data": [{"name": "A", "votes": 4}]}`)))
	view, err := service.View(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, StateReady, view.State)
	assert.Len(t, view.Cards, 2)
}

func TestServicePreviewDataset(t *testing.T) {
	store := &fakeDatasetStore{preview: DatasetPreview{
		Columns: []string{"city", "population"},
		Rows:    []Record{{"city": "Lisbon", "population": 545000.0}, {"city": "Porto", "population": 232000.0}},
		Total:   2,
	}}
	service := newTestService(Options{Datasets: store})
	ctx := context.Background()
	_, err := service.NewSession(ctx)
	require.NoError(t, err)

	require.NoError(t, service.PreviewDataset(ctx, "session-1", "ds-1", 1, 50))
	view, err := service.View(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "ds-1", view.Title)
	assert.Equal(t, 2, view.TotalRows)
	require.Len(t, view.Cards, 2)
	assert.Equal(t, "card-population", view.Cards[1].ID)
}

func TestServiceDatasetOperations(t *testing.T) {
	store := &fakeDatasetStore{
		fail: map[string]error{"locked": errors.New("in use")},
		page: DatasetPage{Items: []Dataset{{ID: "a"}}, Total: 1},
	}
	notes := &recordingNotifier{}
	service := newTestService(Options{Datasets: store, Notifier: notes})
	ctx := context.Background()

	page, err := service.ListDatasets(ctx, ListParams{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)

	require.NoError(t, service.DeleteDatasets(ctx, "a", "b"))
	assert.Equal(t, []string{"a", "b"}, store.deleted)
	assert.Error(t, service.DeleteDatasets(ctx, "locked"))
	assert.Equal(t, []string{"Datasets Deleted", "Delete Failed"}, notes.titles())

	tasks := service.UploadDatasets(ctx, []UploadFile{{Name: "x.csv"}}, DatasetMetadata{})
	require.Len(t, tasks, 1)
	assert.Equal(t, UploadComplete, tasks[0].Status)
	assert.Len(t, service.Uploads().Tasks(), 1)
}

func TestServiceDatasetSchemaSharesConcurrentLookups(t *testing.T) {
	release := make(chan struct{})
	store := &fakeDatasetStore{schemaFn: func(id string) (DatasetSchema, error) {
		<-release
		return DatasetSchema{DatasetID: id, Columns: []DatasetColumn{{Name: "a", Type: "int"}}}, nil
	}}
	service := newTestService(Options{Datasets: store})

	var wg sync.WaitGroup
	results := make([]DatasetSchema, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = service.DatasetSchema(context.Background(), "ds-1")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, schema := range results {
		assert.Equal(t, "ds-1", schema.DatasetID)
	}
	assert.LessOrEqual(t, store.schemas, 4)
	assert.GreaterOrEqual(t, store.schemas, 1)
}

func TestServiceGenerateMapping(t *testing.T) {
	notes := &recordingNotifier{}
	source := &fakeMappingService{statuses: []Mapping{{Status: MappingReady}}}
	service := newTestService(Options{Mappings: source, Notifier: notes, Poll: fastPoll()})

	_, err := service.GenerateMapping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Mapping Generated"}, notes.titles())

	pending := newTestService(Options{
		Mappings: &fakeMappingService{statuses: []Mapping{{Status: MappingGenerating}}},
		Notifier: notes,
		Poll:     fastPoll(),
	})
	_, err = pending.GenerateMapping(context.Background())
	assert.ErrorIs(t, err, ErrMappingPending)
	assert.Equal(t, "Mapping Generation Started", notes.titles()[1])
}

func TestServiceRenderHTML(t *testing.T) {
	renderer := &stubRenderer{}
	service := newTestService(Options{Renderer: renderer, Charts: stubChartRenderer{}})
	ctx := context.Background()
	controller, err := service.NewSession(ctx)
	require.NoError(t, err)
	controller.Load(ctx, salesSpecification())

	var buf bytes.Buffer
	require.NoError(t, service.RenderHTML(ctx, "session-1", &buf))
	assert.Equal(t, DashboardTemplate, renderer.lastTemplate)
	assert.Equal(t, "<html></html>", buf.String())

	charts, ok := renderer.lastPayload["charts"].([]chartSnapshot)
	require.True(t, ok)
	require.Len(t, charts, 1)
	assert.Contains(t, charts[0].HTML, "by-region")

	tables, ok := renderer.lastPayload["tables"].([]tableSnapshot)
	require.True(t, ok)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"Region", "Sales"}, tables[0].Headers)
	assert.Len(t, tables[0].Rows, 10)

	assert.ErrorIs(t, newTestService(Options{}).RenderHTML(ctx, "session-1", &buf), errMissingRenderer)
}

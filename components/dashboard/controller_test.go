package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQueryService struct {
	calls atomic.Int32
	spec  Specification
	err   error
	fn    func(ctx context.Context, text string) (Specification, error)
}

func (s *stubQueryService) SubmitQuery(ctx context.Context, text string) (Specification, error) {
	s.calls.Add(1)
	if s.fn != nil {
		return s.fn(ctx, text)
	}
	return s.spec, s.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.notes))
	for _, note := range n.notes {
		out = append(out, note.Title)
	}
	return out
}

type recordingHook struct {
	mu     sync.Mutex
	events []ViewEvent
}

func (h *recordingHook) ViewUpdated(_ context.Context, event ViewEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func salesSpecification() Specification {
	rows := make([]Record, 0, 23)
	regions := []string{"North", "South", "East"}
	for i := 0; i < 23; i++ {
		rows = append(rows, Record{
			"name":   "order",
			"region": regions[i%3],
			"sales":  float64(i + 1),
		})
	}
	return Specification{
		Title:   "Sales",
		Filters: []FilterDefinition{{Field: "region", Type: FilterDropdown}},
		Cards:   []CardDefinition{{ID: "total", Title: "Total Sales", ValueField: "sales", Aggregation: AggregateSum, Format: "number"}},
		Charts:  []ChartDefinition{{ID: "by-region", Type: ChartPie, CategoryField: "region", Field: "sales"}},
		Table: &TableDefinition{Columns: []TableColumn{
			{Field: "region", Header: "Region", Sortable: true},
			{Field: "sales", Header: "Sales", Sortable: true},
		}},
		Data: rows,
	}
}

func TestControllerRejectsBlankQuery(t *testing.T) {
	queries := &stubQueryService{}
	notes := &recordingNotifier{}
	controller := NewController(ControllerOptions{ID: "s1", Queries: queries, Notifier: notes})

	err := controller.Submit(context.Background(), "   \n\t")
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, KindValidation, qe.Kind)
	assert.Equal(t, "Query Required", qe.Title)
	assert.Equal(t, int32(0), queries.calls.Load())
	assert.Equal(t, StateIdle, controller.State())
	assert.Equal(t, []string{"Query Required"}, notes.titles())
}

func TestControllerSubmitInstallsFixedSpecification(t *testing.T) {
	queries := &stubQueryService{spec: salesSpecification()}
	notes := &recordingNotifier{}
	hook := &recordingHook{}
	controller := NewController(ControllerOptions{ID: "s1", Queries: queries, Notifier: notes, Hooks: []ViewHook{hook}})

	require.NoError(t, controller.Submit(context.Background(), "sales by region"))
	assert.Equal(t, StateReady, controller.State())
	assert.Contains(t, notes.titles(), "Dashboard Generated")

	view := controller.View()
	assert.Equal(t, "sales by region", view.Query)
	assert.Equal(t, 23, view.TotalRows)
	assert.Equal(t, 23, view.FilteredRows)
	require.Len(t, view.Cards, 1)
	assert.Equal(t, 276.0, view.Cards[0].Value)
	require.Len(t, view.Filters, 1)
	assert.Equal(t, []string{"East", "North", "South"}, view.Filters[0].Options)
	require.Len(t, view.Tables, 1)
	assert.Equal(t, 3, view.Tables[0].TotalPages)

	require.Len(t, hook.events, 2)
	assert.Equal(t, "submitting", hook.events[0].Reason)
	assert.Equal(t, "submitted", hook.events[1].Reason)
	assert.Less(t, hook.events[0].Version, hook.events[1].Version)
}

func TestControllerSubmitFailureClearsState(t *testing.T) {
	queries := &stubQueryService{spec: salesSpecification()}
	controller := NewController(ControllerOptions{ID: "s1", Queries: queries})
	require.NoError(t, controller.Submit(context.Background(), "first"))

	queries.err = ServerError(500, "model unavailable")
	err := controller.Submit(context.Background(), "second")
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, KindServer, qe.Kind)
	assert.Equal(t, "model unavailable", qe.Detail)
	assert.Equal(t, StateError, controller.State())

	_, loaded := controller.Specification()
	assert.False(t, loaded)
	view := controller.View()
	require.NotNil(t, view.Error)
	assert.Empty(t, view.Cards)
}

func TestControllerSubmitTimeout(t *testing.T) {
	queries := &stubQueryService{fn: func(ctx context.Context, _ string) (Specification, error) {
		<-ctx.Done()
		return Specification{}, ctx.Err()
	}}
	controller := NewController(ControllerOptions{Queries: queries, Timeout: 20 * time.Millisecond})

	err := controller.Submit(context.Background(), "slow query")
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, KindTimeout, qe.Kind)
	assert.Equal(t, "Request Timeout", qe.Title)
}

func TestControllerDiscardsStaleResponses(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	queries := &stubQueryService{fn: func(ctx context.Context, text string) (Specification, error) {
		if text == "slow" {
			close(started)
			<-release
			return Specification{Title: "slow", Data: []Record{{"a": 1.0}}}, nil
		}
		return Specification{Title: "fast", Data: []Record{{"a": 2.0}}}, nil
	}}
	controller := NewController(ControllerOptions{Queries: queries})

	slow := controller.SubmitAsync(context.Background(), "slow")
	<-started
	require.NoError(t, controller.Submit(context.Background(), "fast"))
	close(release)

	assert.ErrorIs(t, <-slow, ErrStaleResponse)
	spec, loaded := controller.Specification()
	require.True(t, loaded)
	assert.Equal(t, "fast", spec.Title)
}

func TestControllerFiltersRecomputeViews(t *testing.T) {
	controller := NewController(ControllerOptions{})
	ctx := context.Background()

	assert.ErrorIs(t, controller.SetFilter(ctx, "region", "North"), ErrNoSpecification)

	controller.Load(ctx, salesSpecification())
	require.NoError(t, controller.SetFilter(ctx, "region", "North"))
	view := controller.View()
	assert.Equal(t, 8, view.FilteredRows)
	assert.Equal(t, 1, view.Tables[0].TotalPages)
	assert.Len(t, view.Filters[0].Options, 3, "options come from the unfiltered data")

	err := controller.SetFilter(ctx, "ghost", "x")
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, KindValidation, qe.Kind)

	require.NoError(t, controller.ClearFilters(ctx))
	assert.Equal(t, 23, controller.View().FilteredRows)

	require.NoError(t, controller.SetFilter(ctx, "region", nil))
	assert.Equal(t, AllOption, controller.Selection()["region"])
}

func TestControllerResubmitResetsFiltersAndTables(t *testing.T) {
	queries := &stubQueryService{spec: salesSpecification()}
	controller := NewController(ControllerOptions{Queries: queries})
	ctx := context.Background()
	require.NoError(t, controller.Submit(ctx, "first"))
	require.NoError(t, controller.SetFilter(ctx, "region", "South"))
	page := 2
	_, err := controller.UpdateTable(ctx, TableUpdate{TableID: "table", Page: &page})
	require.NoError(t, err)

	require.NoError(t, controller.Submit(ctx, "second"))
	assert.Empty(t, controller.Selection())
	current, err := controller.TablePage("table")
	require.NoError(t, err)
	assert.Equal(t, 1, current.Page)
	assert.Equal(t, 23, current.TotalFiltered)
}

func TestControllerUpdateTable(t *testing.T) {
	controller := NewController(ControllerOptions{})
	ctx := context.Background()
	controller.Load(ctx, salesSpecification())

	page := 3
	result, err := controller.UpdateTable(ctx, TableUpdate{TableID: "table", Page: &page})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Page)
	assert.Len(t, result.Rows, 3)

	result, err = controller.UpdateTable(ctx, TableUpdate{TableID: "table", SortBy: "sales"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 1.0, result.Rows[0]["sales"])

	result, err = controller.UpdateTable(ctx, TableUpdate{TableID: "table", SortBy: "sales"})
	require.NoError(t, err)
	assert.Equal(t, 23.0, result.Rows[0]["sales"])

	search := "east"
	result, err = controller.UpdateTable(ctx, TableUpdate{TableID: "table", Search: &search})
	require.NoError(t, err)
	assert.Equal(t, 7, result.TotalFiltered)

	_, err = controller.UpdateTable(ctx, TableUpdate{TableID: "missing"})
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestControllerChart(t *testing.T) {
	controller := NewController(ControllerOptions{})
	controller.Load(context.Background(), salesSpecification())

	chart, err := controller.Chart("by-region")
	require.NoError(t, err)
	require.Len(t, chart.Slices, 3)
	assert.Equal(t, "North", chart.Slices[0].Name)

	_, err = controller.Chart("nope")
	assert.ErrorIs(t, err, ErrChartNotFound)
}

func TestControllerLoadJSONValidates(t *testing.T) {
	controller := NewController(ControllerOptions{Validator: NewSpecificationValidator()})
	ctx := context.Background()

	err := controller.LoadJSON(ctx, []byte(`{"title": "missing data"}`))
	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, KindValidation, qe.Kind)
	assert.Equal(t, StateIdle, controller.State())

	require.NoError(t, controller.LoadJSON(ctx, []byte(`{"data": [{"name": "A", "score": 3}]}`)))
	assert.Equal(t, StateReady, controller.State())
	view := controller.View()
	require.NotEmpty(t, view.Cards)
	assert.Equal(t, "Total Records", view.Cards[0].Title)
}

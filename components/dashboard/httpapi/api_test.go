package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-querydash/components/dashboard"
	"github.com/goliatone/go-querydash/components/dashboard/commands"
	"github.com/goliatone/go-querydash/components/dashboard/queries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryFunc func(ctx context.Context, text string) (dashboard.Specification, error)

func (f queryFunc) SubmitQuery(ctx context.Context, text string) (dashboard.Specification, error) {
	return f(ctx, text)
}

func salesSpecification() dashboard.Specification {
	regions := []string{"North", "South", "East"}
	rows := make([]dashboard.Record, 0, 23)
	for i := 0; i < 23; i++ {
		rows = append(rows, dashboard.Record{"region": regions[i%3], "sales": float64(i + 1)})
	}
	return dashboard.Specification{
		Title:   "Sales",
		Filters: []dashboard.FilterDefinition{{Field: "region", Type: dashboard.FilterDropdown}},
		Charts:  []dashboard.ChartDefinition{{ID: "by-region", Type: dashboard.ChartPie, CategoryField: "region", Field: "sales"}},
		Table: &dashboard.TableDefinition{Columns: []dashboard.TableColumn{
			{Field: "region", Header: "Region", Sortable: true},
			{Field: "sales", Header: "Sales", Sortable: true},
		}},
		Data: rows,
	}
}

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	service := dashboard.NewService(dashboard.Options{
		Queries: queryFunc(func(context.Context, string) (dashboard.Specification, error) {
			return salesSpecification(), nil
		}),
		NewID: func() string { return "s1" },
	})
	return &Handlers{
		API:      NewCommandExecutor(service, nil),
		Reads:    NewQueryReader(service),
		Sessions: service,
	}
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) dashboard.DashboardView {
	t.Helper()
	var view dashboard.DashboardView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func TestSessionFlow(t *testing.T) {
	mux := newTestHandlers(t).Routes()

	rec := do(t, mux, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "s1", decodeView(t, rec).Session)

	rec = do(t, mux, http.MethodPost, "/api/sessions/s1/query", `{"query":"sales by region"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.Equal(t, 23, view.TotalRows)
	assert.Equal(t, 23, view.FilteredRows)

	rec = do(t, mux, http.MethodPost, "/api/sessions/s1/tables/table", `{"page":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page dashboard.TablePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Rows, 3)

	rec = do(t, mux, http.MethodPost, "/api/sessions/s1/filters", `{"field":"region","value":"North"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 8, decodeView(t, rec).FilteredRows)

	rec = do(t, mux, http.MethodGet, "/api/sessions/s1/charts/by-region", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var chart dashboard.RenderableChart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chart))
	assert.Len(t, chart.Slices, 1)

	rec = do(t, mux, http.MethodDelete, "/api/sessions/s1/filters/region", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 23, decodeView(t, rec).FilteredRows)

	rec = do(t, mux, http.MethodDelete, "/api/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, mux, http.MethodGet, "/api/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBlankQueryIsBadRequest(t *testing.T) {
	mux := newTestHandlers(t).Routes()
	do(t, mux, http.MethodPost, "/api/sessions", "")

	rec := do(t, mux, http.MethodPost, "/api/sessions/s1/query", `{"query":"  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Query Required", body.Error)
	require.NotNil(t, body.Detail)
	assert.Equal(t, dashboard.KindValidation, body.Detail.Kind)
}

func TestMalformedJSONIsBadRequest(t *testing.T) {
	mux := newTestHandlers(t).Routes()
	do(t, mux, http.MethodPost, "/api/sessions", "")
	rec := do(t, mux, http.MethodPost, "/api/sessions/s1/filters", `{"field":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{dashboard.ErrSessionNotFound, http.StatusNotFound},
		{dashboard.ErrChartNotFound, http.StatusNotFound},
		{dashboard.ErrNoSpecification, http.StatusConflict},
		{dashboard.ErrStaleResponse, http.StatusConflict},
		{errCommandNotConfigured, http.StatusNotImplemented},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{dashboard.ServerError(503, "down"), http.StatusBadGateway},
		{dashboard.ServerError(422, "bad sql"), 422},
	}
	for _, tc := range cases {
		status, _ := StatusFor(tc.err)
		if status != tc.status {
			t.Fatalf("expected %d for %v, got %d", tc.status, tc.err, status)
		}
	}
}

func TestCommandExecutorRequiresCommanders(t *testing.T) {
	executor := &CommandExecutor{}
	if err := executor.Submit(context.Background(), commands.SubmitQueryInput{}); err != errCommandNotConfigured {
		t.Fatalf("expected not configured error, got %v", err)
	}
	reader := &QueryReader{}
	if _, err := reader.View(context.Background(), queries.ViewInput{}); err != errCommandNotConfigured {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

type stubExecutor struct {
	Executor
	upload commands.UploadDatasetsInput
	names  []string
}

func (s *stubExecutor) Upload(_ context.Context, input commands.UploadDatasetsInput) error {
	s.upload = input
	for _, file := range input.Files {
		s.names = append(s.names, file.Name)
	}
	return nil
}

type stubReader struct {
	Reader
	tasks []dashboard.UploadTask
}

func (s *stubReader) Uploads(context.Context, queries.UploadStatusInput) ([]dashboard.UploadTask, error) {
	return s.tasks, nil
}

func TestHandleUploadParsesMultipart(t *testing.T) {
	executor := &stubExecutor{}
	reader := &stubReader{tasks: []dashboard.UploadTask{{FileName: "a.csv", Status: dashboard.UploadComplete}}}
	api := &Handlers{API: executor, Reads: reader}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, name := range []string{"a.csv", "b.csv"} {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("region,sales\nNorth,1\n"))
	}
	require.NoError(t, writer.WriteField("name", "Sales"))
	require.NoError(t, writer.WriteField("tags", "q1, emea ,"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	api.HandleUpload(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"a.csv", "b.csv"}, executor.names)
	assert.Equal(t, "Sales", executor.upload.Metadata.Name)
	assert.Equal(t, []string{"q1", "emea"}, executor.upload.Metadata.Tags)
}

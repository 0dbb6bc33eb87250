package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-querydash/components/dashboard"
	"github.com/goliatone/go-querydash/components/dashboard/commands"
	"github.com/goliatone/go-querydash/components/dashboard/queries"
)

// DefaultMaxUploadBytes bounds multipart uploads.
const DefaultMaxUploadBytes = 64 << 20

// SessionManager creates and drops dashboard sessions.
type SessionManager interface {
	NewSession(ctx context.Context) (*dashboard.Controller, error)
	CloseSession(ctx context.Context, id string) error
}

// SnapshotRenderer writes the HTML snapshot of a session.
type SnapshotRenderer interface {
	RenderHTML(ctx context.Context, sessionID string, out io.Writer) error
}

// Handlers exposes the dashboard over net/http.
type Handlers struct {
	API       Executor
	Reads     Reader
	Sessions  SessionManager
	Snapshots SnapshotRenderer
	Charts    dashboard.ChartRenderer
	Broadcast *dashboard.BroadcastHook
	MaxUpload int64
}

// Routes mounts every endpoint under /api.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleView)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleCloseSession)
	mux.HandleFunc("POST /api/sessions/{id}/query", h.HandleSubmit)
	mux.HandleFunc("POST /api/sessions/{id}/specification", h.HandleLoad)
	mux.HandleFunc("POST /api/sessions/{id}/filters", h.HandleSetFilter)
	mux.HandleFunc("DELETE /api/sessions/{id}/filters", h.HandleClearFilters)
	mux.HandleFunc("DELETE /api/sessions/{id}/filters/{field}", h.HandleClearFilters)
	mux.HandleFunc("GET /api/sessions/{id}/tables/{table}", h.HandleTablePage)
	mux.HandleFunc("POST /api/sessions/{id}/tables/{table}", h.HandleUpdateTable)
	mux.HandleFunc("GET /api/sessions/{id}/charts/{chart}", h.HandleChart)
	mux.HandleFunc("GET /api/sessions/{id}/html", h.HandleHTML)
	mux.HandleFunc("POST /api/sessions/{id}/preview/{dataset}", h.HandlePreview)
	mux.HandleFunc("GET /api/datasets", h.HandleListDatasets)
	mux.HandleFunc("POST /api/datasets/upload", h.HandleUpload)
	mux.HandleFunc("DELETE /api/datasets", h.HandleDeleteDatasets)
	mux.HandleFunc("GET /api/datasets/{dataset}/schema", h.HandleSchema)
	mux.HandleFunc("GET /api/uploads", h.HandleUploads)
	mux.HandleFunc("POST /api/mappings", h.HandleGenerateMapping)
	if h.Broadcast != nil {
		mux.HandleFunc("GET /api/ws", h.Broadcast.ServeWebSocket)
		mux.HandleFunc("GET /api/events", h.Broadcast.ServeSSE)
	}
	return mux
}

func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		writeError(w, errCommandNotConfigured)
		return
	}
	controller, err := h.Sessions.NewSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, controller.View())
}

func (h *Handlers) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		writeError(w, errCommandNotConfigured)
		return
	}
	if err := h.Sessions.CloseSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleView(w http.ResponseWriter, r *http.Request) {
	h.respondView(w, r, http.StatusOK)
}

func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload commands.SubmitQueryInput
	if !decode(w, r, &payload) {
		return
	}
	payload.SessionID = r.PathValue("id")
	if err := h.API.Submit(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	h.respondView(w, r, http.StatusOK)
}

func (h *Handlers) HandleLoad(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, dashboard.ValidationError("Invalid Request", err.Error(), err))
		return
	}
	input := commands.LoadSpecificationInput{SessionID: r.PathValue("id"), Specification: raw}
	if err := h.API.Load(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	h.respondView(w, r, http.StatusOK)
}

func (h *Handlers) HandleSetFilter(w http.ResponseWriter, r *http.Request) {
	var payload commands.SetFilterInput
	if !decode(w, r, &payload) {
		return
	}
	payload.SessionID = r.PathValue("id")
	if err := h.API.SetFilter(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	h.respondView(w, r, http.StatusOK)
}

func (h *Handlers) HandleClearFilters(w http.ResponseWriter, r *http.Request) {
	input := commands.ClearFiltersInput{SessionID: r.PathValue("id"), Field: r.PathValue("field")}
	if err := h.API.ClearFilters(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	h.respondView(w, r, http.StatusOK)
}

func (h *Handlers) HandleTablePage(w http.ResponseWriter, r *http.Request) {
	page, err := h.Reads.TablePage(r.Context(), queries.TablePageInput{
		SessionID: r.PathValue("id"),
		TableID:   r.PathValue("table"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) HandleUpdateTable(w http.ResponseWriter, r *http.Request) {
	var update dashboard.TableUpdate
	if !decode(w, r, &update) {
		return
	}
	update.TableID = r.PathValue("table")
	input := commands.UpdateTableInput{SessionID: r.PathValue("id"), Update: update}
	if err := h.API.UpdateTable(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	h.HandleTablePage(w, r)
}

// HandleChart returns the shaped chart as JSON, or as standalone HTML when
// format=html and a chart renderer is configured.
func (h *Handlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.Reads.Chart(r.Context(), queries.ChartInput{
		SessionID: r.PathValue("id"),
		ChartID:   r.PathValue("chart"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("format") != "html" || h.Charts == nil {
		writeJSON(w, http.StatusOK, chart)
		return
	}
	html, err := h.Charts.RenderChart(r.Context(), chart)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (h *Handlers) HandleHTML(w http.ResponseWriter, r *http.Request) {
	if h.Snapshots == nil {
		writeError(w, errCommandNotConfigured)
		return
	}
	var buf bytes.Buffer
	if err := h.Snapshots.RenderHTML(r.Context(), r.PathValue("id"), &buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	input := commands.PreviewDatasetInput{
		SessionID: r.PathValue("id"),
		DatasetID: r.PathValue("dataset"),
		Page:      intParam(r, "page"),
		PageSize:  intParam(r, "page_size"),
	}
	if err := h.API.Preview(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	h.respondView(w, r, http.StatusOK)
}

func (h *Handlers) HandleListDatasets(w http.ResponseWriter, r *http.Request) {
	page, err := h.Reads.Datasets(r.Context(), dashboard.ListParams{
		Page:     intParam(r, "page"),
		PageSize: intParam(r, "page_size"),
		Search:   r.URL.Query().Get("search"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleUpload accepts a multipart form with one or more "files" parts and
// optional name, description and comma separated tags fields.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxUpload
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, dashboard.ValidationError("Invalid Upload", err.Error(), err))
		return
	}
	headers := r.MultipartForm.File["files"]
	files := make([]dashboard.UploadFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeError(w, dashboard.UploadError(header.Filename, err))
			return
		}
		defer file.Close()
		files = append(files, dashboard.UploadFile{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      file,
		})
	}
	input := commands.UploadDatasetsInput{
		Files: files,
		Metadata: dashboard.DatasetMetadata{
			Name:        r.FormValue("name"),
			Description: r.FormValue("description"),
			Tags:        splitTags(r.FormValue("tags")),
		},
	}
	if err := h.API.Upload(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	tasks, err := h.Reads.Uploads(r.Context(), queries.UploadStatusInput{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, tasks)
}

func (h *Handlers) HandleDeleteDatasets(w http.ResponseWriter, r *http.Request) {
	var payload commands.DeleteDatasetsInput
	if !decode(w, r, &payload) {
		return
	}
	if err := h.API.DeleteDatasets(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.Reads.Schema(r.Context(), queries.SchemaInput{DatasetID: r.PathValue("dataset")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (h *Handlers) HandleUploads(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Reads.Uploads(r.Context(), queries.UploadStatusInput{ID: r.URL.Query().Get("id")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) HandleGenerateMapping(w http.ResponseWriter, r *http.Request) {
	err := h.API.GenerateMapping(r.Context(), commands.GenerateMappingInput{})
	if errors.Is(err, dashboard.ErrMappingPending) {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "generating"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(dashboard.MappingReady)})
}

func (h *Handlers) respondView(w http.ResponseWriter, r *http.Request, status int) {
	view, err := h.Reads.View(r.Context(), queries.ViewInput{SessionID: r.PathValue("id")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, view)
}

func decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, dashboard.ValidationError("Invalid Request", err.Error(), err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := StatusFor(err)
	writeJSON(w, status, body)
}

func intParam(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(tag); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

package queryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	dashboard "github.com/goliatone/go-querydash/components/dashboard"
)

// DefaultTimeout matches the query backend's own request budget.
const DefaultTimeout = 30 * time.Second

// HTTPConfig configures the HTTP backend client.
type HTTPConfig struct {
	BaseURL    string        `validate:"required,url"`
	APIKey     string        `validate:"omitempty"`
	Timeout    time.Duration `validate:"gte=0"`
	HTTPClient *http.Client  `validate:"-"`
}

// HTTPClient talks to the query execution service, the dataset store and the
// mapping endpoints over REST.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	newID   func() string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewHTTPClient validates the config and builds a client.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("queryclient: invalid config: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpClient,
		newID:   uuid.NewString,
	}, nil
}

// SubmitQuery implements dashboard.QueryService.
func (c *HTTPClient) SubmitQuery(ctx context.Context, text string) (dashboard.Specification, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/query/submit", queryRequest{Query: text}, &raw); err != nil {
		return dashboard.Specification{}, err
	}
	var spec dashboard.Specification
	if err := json.Unmarshal(unwrapData(raw), &spec); err != nil {
		return dashboard.Specification{}, fmt.Errorf("queryclient: decode specification: %w", err)
	}
	return spec, nil
}

// List implements dashboard.DatasetStore.
func (c *HTTPClient) List(ctx context.Context, params dashboard.ListParams) (dashboard.DatasetPage, error) {
	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}
	path := "/datasets"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp datasetPageResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return dashboard.DatasetPage{}, err
	}
	return resp.toPage(), nil
}

// Delete implements dashboard.DatasetStore.
func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/datasets/"+url.PathEscape(id), nil, nil)
}

// BulkDelete removes several datasets in one call.
func (c *HTTPClient) BulkDelete(ctx context.Context, ids []string) error {
	return c.doJSON(ctx, http.MethodPost, "/datasets/bulk-delete", bulkDeleteRequest{IDs: ids}, nil)
}

// Schema implements dashboard.DatasetStore.
func (c *HTTPClient) Schema(ctx context.Context, id string) (dashboard.DatasetSchema, error) {
	var schema dashboard.DatasetSchema
	if err := c.doJSON(ctx, http.MethodGet, "/datasets/"+url.PathEscape(id)+"/schema", nil, &schema); err != nil {
		return dashboard.DatasetSchema{}, err
	}
	if schema.DatasetID == "" {
		schema.DatasetID = id
	}
	return schema, nil
}

// Preview implements dashboard.DatasetPreviewer.
func (c *HTTPClient) Preview(ctx context.Context, id string, page, pageSize int) (dashboard.DatasetPreview, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	var preview dashboard.DatasetPreview
	path := "/datasets/" + url.PathEscape(id) + "/preview?" + query.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &preview); err != nil {
		return dashboard.DatasetPreview{}, err
	}
	return preview, nil
}

// GenerateMapping implements dashboard.MappingService.
func (c *HTTPClient) GenerateMapping(ctx context.Context) (dashboard.MappingJob, error) {
	var job dashboard.MappingJob
	if err := c.doJSON(ctx, http.MethodPost, "/mappings/generate", nil, &job); err != nil {
		return dashboard.MappingJob{}, err
	}
	return job, nil
}

// GetMapping implements dashboard.MappingService.
func (c *HTTPClient) GetMapping(ctx context.Context) (dashboard.Mapping, error) {
	var resp mappingResponse
	if err := c.doJSON(ctx, http.MethodGet, "/mappings", nil, &resp); err != nil {
		return dashboard.Mapping{}, err
	}
	return resp.toMapping(), nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, payload any, target any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("queryclient: encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, target)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("queryclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.newID())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *HTTPClient) send(req *http.Request, target any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("queryclient: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return remoteError(resp)
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("queryclient: decode response: %w", err)
	}
	return nil
}

// remoteError prefers the backend's {"detail": "..."} message.
func remoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Detail any `json:"detail"`
	}
	detail := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Detail != nil {
		switch d := envelope.Detail.(type) {
		case string:
			detail = d
		default:
			encoded, _ := json.Marshal(d)
			detail = string(encoded)
		}
	}
	return dashboard.ServerError(resp.StatusCode, detail)
}

// unwrapData strips a {"data": {...}} envelope. A specification's own
// "data" member is an array, so it is left alone.
func unwrapData(raw json.RawMessage) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}
	inner, ok := envelope["data"]
	if !ok {
		return raw
	}
	if trimmed := bytes.TrimSpace(inner); len(trimmed) > 0 && trimmed[0] == '{' {
		return inner
	}
	return raw
}

type queryRequest struct {
	Query string `json:"query"`
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// flexibleID accepts numeric or string identifiers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = flexibleID(n.String())
	return nil
}

type datasetResponse struct {
	ID          flexibleID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	FileName    string     `json:"file_name"`
	FileSize    int64      `json:"file_size"`
	RowCount    int        `json:"row_count"`
	ColumnCount int        `json:"column_count"`
	Status      string     `json:"status"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (d datasetResponse) toDataset() dashboard.Dataset {
	return dashboard.Dataset{
		ID:          string(d.ID),
		Name:        d.Name,
		Description: d.Description,
		FileName:    d.FileName,
		FileSize:    d.FileSize,
		RowCount:    d.RowCount,
		ColumnCount: d.ColumnCount,
		Status:      d.Status,
		Tags:        d.Tags,
		CreatedAt:   d.CreatedAt,
	}
}

type datasetPageResponse struct {
	Items    []datasetResponse `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func (r datasetPageResponse) toPage() dashboard.DatasetPage {
	items := make([]dashboard.Dataset, len(r.Items))
	for i, item := range r.Items {
		items[i] = item.toDataset()
	}
	return dashboard.DatasetPage{Items: items, Total: r.Total, Page: r.Page, PageSize: r.PageSize}
}

type mappingResponse struct {
	Status        dashboard.MappingStatus  `json:"status"`
	Relationships []dashboard.Relationship `json:"relationships"`
	MappingData   *struct {
		Relationships []dashboard.Relationship `json:"relationships"`
	} `json:"mapping_data"`
	ErrorMessage string    `json:"error_message"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r mappingResponse) toMapping() dashboard.Mapping {
	relationships := r.Relationships
	if len(relationships) == 0 && r.MappingData != nil {
		relationships = r.MappingData.Relationships
	}
	return dashboard.Mapping{
		Status:        r.Status,
		Relationships: relationships,
		ErrorMessage:  r.ErrorMessage,
		UpdatedAt:     r.UpdatedAt,
	}
}

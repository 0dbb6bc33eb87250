package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is a single data row keyed by field name.
type Record map[string]any

// FilterType enumerates supported filter widgets.
type FilterType string

const (
	FilterDropdown    FilterType = "dropdown"
	FilterMultiSelect FilterType = "multi-select"
	FilterSearch      FilterType = "search"
	FilterDateRange   FilterType = "date-range"
)

// Aggregation enumerates card reductions.
type Aggregation string

const (
	AggregateSum   Aggregation = "sum"
	AggregateAvg   Aggregation = "avg"
	AggregateCount Aggregation = "count"
	AggregateMin   Aggregation = "min"
	AggregateMax   Aggregation = "max"
)

// ChartType enumerates chart kinds the shaper understands.
type ChartType string

const (
	ChartBar          ChartType = "bar"
	ChartLine         ChartType = "line"
	ChartPie          ChartType = "pie"
	ChartScatter      ChartType = "scatter"
	ChartHeatmap      ChartType = "heatmap"
	ChartDualAxisLine ChartType = "dual-axis-line"
)

// Specification is the backend-authored dashboard description plus its data.
type Specification struct {
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Template    string             `json:"template,omitempty"`
	Data        []Record           `json:"data"`
	Filters     []FilterDefinition `json:"filters,omitempty"`
	Cards       []CardDefinition   `json:"cards,omitempty"`
	Charts      []ChartDefinition  `json:"charts,omitempty"`
	Table       *TableDefinition   `json:"table,omitempty"`
	Tables      []TableDefinition  `json:"tables,omitempty"`

	fieldOrder []string
	issues     []string
}

// FilterDefinition describes a filter control. Data/TargetField carry
// nested option sources some backends emit.
type FilterDefinition struct {
	Field       string     `json:"field"`
	Type        FilterType `json:"type"`
	Label       string     `json:"label,omitempty"`
	Options     []string   `json:"options,omitempty"`
	TargetField string     `json:"target_field,omitempty"`
	Data        []Record   `json:"data,omitempty"`
}

// CardDefinition describes a summary metric card.
type CardDefinition struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	ValueField  string       `json:"valueField"`
	Aggregation Aggregation  `json:"aggregation"`
	Format      string       `json:"format,omitempty"`
	Variant     string       `json:"variant,omitempty"`
	Trend       string       `json:"trend,omitempty"`
	Change      *float64     `json:"change,omitempty"`
	Tooltip     *CardTooltip `json:"tooltip,omitempty"`
}

// CardTooltip accepts either a plain string or a {title, content} object.
type CardTooltip struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// UnmarshalJSON decodes the string or object tooltip forms.
func (t *CardTooltip) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		t.Title = ""
		t.Content = text
		return nil
	}
	type alias CardTooltip
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*t = CardTooltip(decoded)
	return nil
}

// Series maps one data field to a rendered channel.
type Series struct {
	Name  string `json:"name"`
	Field string `json:"field"`
	Type  string `json:"type,omitempty"`
}

// ChartTooltip toggles chart hover tooltips.
type ChartTooltip struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// ChartDefinition describes a chart. A non-empty Data overrides the
// dashboard dataset for this chart only and bypasses filtering.
type ChartDefinition struct {
	ID            string        `json:"id"`
	Type          ChartType     `json:"type"`
	Title         string        `json:"title,omitempty"`
	XAxis         string        `json:"xAxis,omitempty"`
	YAxis         string        `json:"yAxis,omitempty"`
	CategoryField string        `json:"categoryField,omitempty"`
	Field         string        `json:"field,omitempty"`
	Series        []Series      `json:"series,omitempty"`
	Data          []Record      `json:"data,omitempty"`
	Tooltip       *ChartTooltip `json:"tooltip,omitempty"`

	fieldOrder []string
}

// UnmarshalJSON keeps the key order of the first chart-local row.
func (c *ChartDefinition) UnmarshalJSON(data []byte) error {
	type alias ChartDefinition
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = ChartDefinition(decoded)
	var raw struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err == nil && len(raw.Data) > 0 {
		c.fieldOrder = objectKeys(raw.Data[0])
	}
	return nil
}

// TooltipEnabled defaults to true when unset.
func (c ChartDefinition) TooltipEnabled() bool {
	if c.Tooltip == nil || c.Tooltip.Enabled == nil {
		return true
	}
	return *c.Tooltip.Enabled
}

// TableColumn describes a table column.
type TableColumn struct {
	Field    string `json:"field"`
	Header   string `json:"header,omitempty"`
	Label    string `json:"label,omitempty"`
	Sortable bool   `json:"sortable,omitempty"`
	Format   string `json:"format,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Title resolves the display header.
func (c TableColumn) Title() string {
	if c.Header != "" {
		return c.Header
	}
	if c.Label != "" {
		return c.Label
	}
	return Humanize(c.Field)
}

// DisplayFormat prefers Type over Format, matching backend payloads.
func (c TableColumn) DisplayFormat() string {
	if c.Type != "" {
		return c.Type
	}
	if c.Format != "" {
		return c.Format
	}
	return "text"
}

// TableSearch toggles client-side search.
type TableSearch struct {
	Enabled     *bool  `json:"enabled,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// TablePagination toggles client-side pagination.
type TablePagination struct {
	Enabled  *bool `json:"enabled,omitempty"`
	PageSize int   `json:"pageSize,omitempty"`
}

// TableDefinition describes a table view.
type TableDefinition struct {
	ID         string           `json:"id,omitempty"`
	Title      string           `json:"title,omitempty"`
	Columns    []TableColumn    `json:"columns"`
	Search     *TableSearch     `json:"search,omitempty"`
	Pagination *TablePagination `json:"pagination,omitempty"`
}

// DefaultPageSize applies when a table omits pagination.pageSize.
const DefaultPageSize = 10

// SearchEnabled defaults to true.
func (t TableDefinition) SearchEnabled() bool {
	if t.Search == nil || t.Search.Enabled == nil {
		return true
	}
	return *t.Search.Enabled
}

// PaginationEnabled defaults to true.
func (t TableDefinition) PaginationEnabled() bool {
	if t.Pagination == nil || t.Pagination.Enabled == nil {
		return true
	}
	return *t.Pagination.Enabled
}

// PageSize returns the configured page size or DefaultPageSize.
func (t TableDefinition) PageSize() int {
	if t.Pagination == nil || t.Pagination.PageSize <= 0 {
		return DefaultPageSize
	}
	return t.Pagination.PageSize
}

// AllTables returns the single table (when present) followed by Tables,
// each with a stable id.
func (s Specification) AllTables() []TableDefinition {
	out := make([]TableDefinition, 0, len(s.Tables)+1)
	if s.Table != nil {
		table := *s.Table
		if table.ID == "" {
			table.ID = "table"
		}
		out = append(out, table)
	}
	for idx, table := range s.Tables {
		if table.ID == "" {
			table.ID = fmt.Sprintf("table-%d", idx+1)
		}
		out = append(out, table)
	}
	return out
}

// DecodeIssues lists sections that could not be decoded.
func (s Specification) DecodeIssues() []string {
	return append([]string(nil), s.issues...)
}

// FieldOrder returns the sample record's fields in their decoded order,
// falling back to sorted keys.
func (s Specification) FieldOrder() []string {
	if len(s.Data) == 0 {
		return nil
	}
	return orderedFields(s.Data[0], s.fieldOrder)
}

// UnmarshalJSON decodes each section independently so a malformed section
// is recorded instead of failing the whole document.
func (s *Specification) UnmarshalJSON(data []byte) error {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return err
	}
	*s = Specification{}
	decode := func(key string, target any) {
		raw, ok := sections[key]
		if !ok || isJSONNull(raw) {
			return
		}
		if err := json.Unmarshal(raw, target); err != nil {
			s.issues = append(s.issues, fmt.Sprintf("%s: %v", key, err))
		}
	}
	decode("title", &s.Title)
	decode("description", &s.Description)
	decode("template", &s.Template)
	decode("data", &s.Data)
	decode("filters", &s.Filters)
	decode("cards", &s.Cards)
	decode("charts", &s.Charts)
	decode("table", &s.Table)
	decode("tables", &s.Tables)

	if raw, ok := sections["data"]; ok {
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err == nil && len(rows) > 0 {
			s.fieldOrder = objectKeys(rows[0])
		}
	}
	return nil
}

// DecodeSpecification parses a raw specification document.
func DecodeSpecification(data []byte) (Specification, error) {
	var spec Specification
	if err := json.Unmarshal(data, &spec); err != nil {
		return Specification{}, fmt.Errorf("dashboard: decode specification: %w", err)
	}
	return spec, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil
		}
	}
	return keys
}

// orderedFields reconciles a hinted order with the record's actual keys.
func orderedFields(record Record, hint []string) []string {
	if len(record) == 0 {
		return nil
	}
	if len(hint) == len(record) {
		matched := true
		for _, key := range hint {
			if _, ok := record[key]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return append([]string(nil), hint...)
		}
	}
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

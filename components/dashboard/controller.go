package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// State is the lifecycle of a dashboard session.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateReady      State = "ready"
	StateError      State = "error"
)

// DefaultQueryTimeout bounds a single query submission. Backends can take
// minutes to build a dashboard.
const DefaultQueryTimeout = 5 * time.Minute

// QueryService turns natural-language text into a dashboard specification.
type QueryService interface {
	SubmitQuery(ctx context.Context, text string) (Specification, error)
}

// ControllerOptions wires a controller's collaborators.
type ControllerOptions struct {
	ID        string
	Queries   QueryService
	Fixer     *Fixer
	Shaper    *ChartShaper
	Validator *SpecificationValidator
	Notifier  Notifier
	Telemetry Telemetry
	Hooks     []ViewHook
	Logger    *slog.Logger
	Timeout   time.Duration
	Now       func() time.Time
}

// Controller owns one dashboard session: the corrected specification, the
// filter selection, the filtered rows and per-table state. All mutations are
// serialized by mu; views are computed from a consistent snapshot.
type Controller struct {
	id        string
	queries   QueryService
	fixer     *Fixer
	filters   FilterEngine
	shaper    *ChartShaper
	validator *SpecificationValidator
	notifier  Notifier
	telemetry Telemetry
	hooks     []ViewHook
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time

	mu        sync.Mutex
	seq       uint64
	version   uint64
	state     State
	err       *QueryError
	query     string
	spec      Specification
	loaded    bool
	selection FilterSelection
	filtered  []Record
	tables    map[string]*TableState
}

// NewController builds a controller in the Idle state.
func NewController(opts ControllerOptions) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	logger := normalizeLogger(opts.Logger)
	fixer := opts.Fixer
	if fixer == nil {
		fixer = NewFixer(nil, logger)
	}
	shaper := opts.Shaper
	if shaper == nil {
		shaper = NewChartShaper(nil, ShapeConfig{
			HeatmapCeiling: fixer.Reconciler().Policy().HeatmapCeiling,
			Logger:         logger,
		})
	}
	return &Controller{
		id:        opts.ID,
		queries:   opts.Queries,
		fixer:     fixer,
		filters:   NewFilterEngine(now),
		shaper:    shaper,
		validator: opts.Validator,
		notifier:  normalizeNotifier(opts.Notifier),
		telemetry: normalizeTelemetry(opts.Telemetry),
		hooks:     opts.Hooks,
		logger:    logger.With(slog.String("session", opts.ID)),
		timeout:   timeout,
		now:       now,
		state:     StateIdle,
		selection: FilterSelection{},
		tables:    map[string]*TableState{},
	}
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.id
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Specification returns the corrected specification, if one is loaded.
func (c *Controller) Specification() (Specification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spec, c.loaded
}

// Submit runs a query. Blank text is rejected without calling the query
// service or changing state. A response that arrives after a newer
// submission was issued is discarded with ErrStaleResponse.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		qe := Classify(ErrEmptyQuery)
		c.notifier.Notify(ctx, qe.Notification())
		return qe
	}
	if c.queries == nil {
		return errors.New("dashboard: query service is not configured")
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state = StateSubmitting
	c.err = nil
	c.query = text
	event := c.eventLocked("submitting")
	c.mu.Unlock()
	c.publish(ctx, event)
	c.telemetry.Record(ctx, EventQuerySubmitted, map[string]any{"session": c.id, "seq": seq})

	started := c.now()
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	spec, err := c.queries.SubmitQuery(callCtx, text)
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	cancel()
	elapsed := c.now().Sub(started)

	var fixed Specification
	if err == nil {
		fixed = c.fixer.Fix(spec)
	}

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug("dashboard: discarding stale response", slog.Uint64("seq", seq))
		return ErrStaleResponse
	}
	if err != nil {
		qe := Classify(err)
		if timedOut && qe.Kind != KindTimeout {
			qe = Classify(fmt.Errorf("%w: %v", context.DeadlineExceeded, err))
		}
		c.state = StateError
		c.err = qe
		c.clearLocked()
		event := c.eventLocked("error")
		c.mu.Unlock()

		c.logger.Error("dashboard: query failed",
			slog.Uint64("seq", seq),
			slog.String("kind", string(qe.Kind)),
			slog.String("detail", qe.Detail))
		c.publish(ctx, event)
		c.notifier.Notify(ctx, qe.Notification())
		c.telemetry.Record(ctx, EventQueryFailed, map[string]any{
			"session":     c.id,
			"kind":        string(qe.Kind),
			"duration_ms": elapsed.Milliseconds(),
		})
		return qe
	}
	c.installLocked(fixed)
	event = c.eventLocked("submitted")
	rows := len(fixed.Data)
	c.mu.Unlock()

	c.logger.Info("dashboard: query completed",
		slog.Uint64("seq", seq),
		slog.Int("rows", rows),
		slog.Duration("duration", elapsed))
	c.publish(ctx, event)
	c.notifier.Notify(ctx, Notification{
		Title:       "Dashboard Generated",
		Description: "Your custom dashboard has been created successfully.",
		Severity:    SeveritySuccess,
	})
	c.telemetry.Record(ctx, EventQueryCompleted, map[string]any{
		"session":     c.id,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	return nil
}

// SubmitAsync runs Submit in a goroutine and reports its result.
func (c *Controller) SubmitAsync(ctx context.Context, text string) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- c.Submit(ctx, text)
	}()
	return done
}

// Load installs a specification without calling the query service (for
// dataset previews). Any in-flight submission becomes stale.
func (c *Controller) Load(ctx context.Context, spec Specification) {
	fixed := c.fixer.Fix(spec)
	c.mu.Lock()
	c.seq++
	c.installLocked(fixed)
	event := c.eventLocked("loaded")
	c.mu.Unlock()
	c.publish(ctx, event)
}

// LoadJSON validates and installs a manually supplied specification.
// Malformed input is a validation error and leaves state untouched.
func (c *Controller) LoadJSON(ctx context.Context, raw []byte) error {
	if c.validator != nil {
		if err := c.validator.Validate(raw); err != nil {
			return ValidationError("Invalid Specification", err.Error(), err)
		}
	}
	spec, err := DecodeSpecification(raw)
	if err != nil {
		return ValidationError("Invalid Specification", err.Error(), err)
	}
	c.Load(ctx, spec)
	return nil
}

// SetFilter updates one filter's selection and recomputes the view.
func (c *Controller) SetFilter(ctx context.Context, field string, value any) error {
	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return ErrNoSpecification
	}
	def, ok := c.filterLocked(field)
	if !ok {
		c.mu.Unlock()
		return ValidationError("Unknown Filter", fmt.Sprintf("no filter is defined for %q", field), nil)
	}
	normalized, err := normalizeSelection(def, value)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.selection[field] = normalized
	c.recomputeLocked()
	event := c.eventLocked("filters")
	c.mu.Unlock()

	c.publish(ctx, event)
	c.telemetry.Record(ctx, EventFiltersChanged, map[string]any{"session": c.id, "field": field, "rows": event.Rows})
	return nil
}

// ClearFilter removes one filter's selection. An empty field clears all.
func (c *Controller) ClearFilter(ctx context.Context, field string) error {
	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return ErrNoSpecification
	}
	if field == "" {
		c.selection = FilterSelection{}
	} else {
		delete(c.selection, field)
	}
	c.recomputeLocked()
	event := c.eventLocked("filters")
	c.mu.Unlock()

	c.publish(ctx, event)
	c.telemetry.Record(ctx, EventFiltersChanged, map[string]any{"session": c.id, "field": field, "cleared": true})
	return nil
}

// ClearFilters removes every filter selection.
func (c *Controller) ClearFilters(ctx context.Context) error {
	return c.ClearFilter(ctx, "")
}

// Selection returns a copy of the current filter selection.
func (c *Controller) Selection() FilterSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Clone()
}

// TableUpdate changes one table's interactive state. Nil fields are left
// alone; updates apply in the order search, sort, page.
type TableUpdate struct {
	TableID string  `json:"table_id"`
	Search  *string `json:"search,omitempty"`
	SortBy  string  `json:"sort_by,omitempty"`
	Page    *int    `json:"page,omitempty"`
}

// UpdateTable applies a TableUpdate and returns the resulting page.
func (c *Controller) UpdateTable(ctx context.Context, update TableUpdate) (TablePage, error) {
	c.mu.Lock()
	def, state, err := c.tableLocked(update.TableID)
	if err != nil {
		c.mu.Unlock()
		return TablePage{}, err
	}
	if update.Search != nil {
		state.SetSearch(*update.Search)
	}
	if update.SortBy != "" {
		state.ToggleSort(def.Columns, update.SortBy)
	}
	if update.Page != nil {
		current := ViewTable(c.filtered, def.Columns, state.Query(def))
		state.GoToPage(*update.Page, current.TotalPages)
	}
	page := c.tablePageLocked(def, state)
	event := c.eventLocked("table")
	c.mu.Unlock()

	c.publish(ctx, event)
	c.telemetry.Record(ctx, EventTableUpdated, map[string]any{"session": c.id, "table": def.ID, "page": page.Page})
	return page, nil
}

// TablePage returns the current page of a table.
func (c *Controller) TablePage(tableID string) (TablePage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	def, state, err := c.tableLocked(tableID)
	if err != nil {
		return TablePage{}, err
	}
	return c.tablePageLocked(def, state), nil
}

// Chart shapes a single chart against the current filtered rows.
func (c *Controller) Chart(chartID string) (RenderableChart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return RenderableChart{}, ErrNoSpecification
	}
	for _, chart := range c.spec.Charts {
		if chart.ID == chartID {
			return c.shaper.Shape(chart, c.filtered), nil
		}
	}
	return RenderableChart{}, ErrChartNotFound
}

// FilterView is a filter definition with its options and current selection.
type FilterView struct {
	Field    string     `json:"field"`
	Type     FilterType `json:"type"`
	Label    string     `json:"label"`
	Options  []string   `json:"options,omitempty"`
	Selected any        `json:"selected,omitempty"`
}

// DashboardView is a consistent snapshot of every derived view.
type DashboardView struct {
	Session      string            `json:"session"`
	State        State             `json:"state"`
	Version      uint64            `json:"version"`
	Query        string            `json:"query,omitempty"`
	Error        *QueryError       `json:"error,omitempty"`
	Title        string            `json:"title,omitempty"`
	Description  string            `json:"description,omitempty"`
	Template     string            `json:"template,omitempty"`
	TotalRows    int               `json:"totalRows"`
	FilteredRows int               `json:"filteredRows"`
	Filters      []FilterView      `json:"filters"`
	Cards        []CardView        `json:"cards"`
	Charts       []RenderableChart `json:"charts"`
	Tables       []TablePage       `json:"tables"`
}

// View computes the full dashboard from the current state.
func (c *Controller) View() DashboardView {
	c.mu.Lock()
	defer c.mu.Unlock()
	view := DashboardView{
		Session: c.id,
		State:   c.state,
		Version: c.version,
		Query:   c.query,
		Error:   c.err,
		Filters: []FilterView{},
		Cards:   []CardView{},
		Charts:  []RenderableChart{},
		Tables:  []TablePage{},
	}
	if !c.loaded {
		return view
	}
	view.Title = c.spec.Title
	view.Description = c.spec.Description
	view.Template = c.spec.Template
	view.TotalRows = len(c.spec.Data)
	view.FilteredRows = len(c.filtered)

	for _, def := range c.spec.Filters {
		fv := FilterView{Field: def.Field, Type: def.Type, Label: def.Label, Selected: c.selection[def.Field]}
		if fv.Label == "" {
			fv.Label = Humanize(def.Field)
		}
		if def.Type == FilterDropdown || def.Type == FilterMultiSelect {
			fv.Options = FilterOptions(def, c.spec.Data)
		}
		view.Filters = append(view.Filters, fv)
	}
	view.Cards = RenderCards(c.spec.Cards, c.filtered)
	for _, chart := range c.spec.Charts {
		view.Charts = append(view.Charts, c.shaper.Shape(chart, c.filtered))
	}
	for _, def := range c.spec.AllTables() {
		view.Tables = append(view.Tables, c.tablePageLocked(def, c.tableStateLocked(def.ID)))
	}
	return view
}

func (c *Controller) installLocked(spec Specification) {
	c.spec = spec
	c.loaded = true
	c.state = StateReady
	c.err = nil
	c.selection = FilterSelection{}
	c.tables = map[string]*TableState{}
	c.filtered = append([]Record(nil), spec.Data...)
}

func (c *Controller) clearLocked() {
	c.spec = Specification{}
	c.loaded = false
	c.selection = FilterSelection{}
	c.tables = map[string]*TableState{}
	c.filtered = nil
}

func (c *Controller) recomputeLocked() {
	c.filtered = c.filters.Apply(c.spec.Data, c.spec.Filters, c.selection)
	for _, state := range c.tables {
		state.Page = 1
	}
}

func (c *Controller) filterLocked(field string) (FilterDefinition, bool) {
	for _, def := range c.spec.Filters {
		if def.Field == field {
			return def, true
		}
	}
	return FilterDefinition{}, false
}

func (c *Controller) tableLocked(tableID string) (TableDefinition, *TableState, error) {
	if !c.loaded {
		return TableDefinition{}, nil, ErrNoSpecification
	}
	for _, def := range c.spec.AllTables() {
		if def.ID == tableID {
			return def, c.tableStateLocked(def.ID), nil
		}
	}
	return TableDefinition{}, nil, ErrTableNotFound
}

func (c *Controller) tableStateLocked(id string) *TableState {
	state, ok := c.tables[id]
	if !ok {
		state = NewTableState()
		c.tables[id] = state
	}
	return state
}

func (c *Controller) tablePageLocked(def TableDefinition, state *TableState) TablePage {
	page := ViewTable(c.filtered, def.Columns, state.Query(def))
	page.ID = def.ID
	page.Title = def.Title
	state.Page = page.Page
	return page
}

func (c *Controller) eventLocked(reason string) ViewEvent {
	c.version++
	return ViewEvent{
		Kind:    ViewEventUpdated,
		Session: c.id,
		Version: c.version,
		Reason:  reason,
		State:   c.state,
		Rows:    len(c.filtered),
		At:      c.now().UTC(),
	}
}

func (c *Controller) publish(ctx context.Context, event ViewEvent) {
	for _, hook := range c.hooks {
		if hook == nil {
			continue
		}
		if err := hook.ViewUpdated(ctx, event); err != nil {
			c.logger.Warn("dashboard: view hook failed", slog.String("error", err.Error()))
		}
	}
}

// normalizeSelection coerces a raw selection value into the form the
// filter engine expects for the filter's type.
func normalizeSelection(def FilterDefinition, value any) (any, error) {
	switch def.Type {
	case FilterMultiSelect:
		return stringSliceValue(value), nil
	case FilterDateRange:
		window, ok := ParseDateRange(value)
		if !ok {
			return nil, ValidationError("Invalid Date Range", fmt.Sprintf("filter %q expects {from, to}", def.Field), nil)
		}
		return window, nil
	default:
		if value == nil {
			if def.Type == FilterDropdown {
				return AllOption, nil
			}
			return "", nil
		}
		return stringValue(value), nil
	}
}

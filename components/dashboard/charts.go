package dashboard

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
)

// RenderableChart is the data a chart needs, independent of how it is drawn.
type RenderableChart struct {
	ID             string         `json:"id"`
	Type           ChartType      `json:"type"`
	Title          string         `json:"title,omitempty"`
	XAxis          string         `json:"xAxis,omitempty"`
	YAxis          string         `json:"yAxis,omitempty"`
	Local          bool           `json:"local"`
	TooltipEnabled bool           `json:"tooltipEnabled"`
	Rows           []Record       `json:"rows,omitempty"`
	Channels       []ChartChannel `json:"channels,omitempty"`
	Slices         []PieSlice     `json:"slices,omitempty"`
	Cells          []HeatCell     `json:"cells,omitempty"`
}

// Empty reports whether there is nothing to draw.
func (c RenderableChart) Empty() bool {
	return len(c.Rows) == 0 && len(c.Slices) == 0 && len(c.Cells) == 0
}

// ChartChannel is one series plotted against the shared x axis.
type ChartChannel struct {
	Name   string       `json:"name"`
	Field  string       `json:"field"`
	Type   string       `json:"type,omitempty"`
	Points []ChartPoint `json:"points"`
}

// ChartPoint is a single x/value pair. Missing values are skipped, not zeroed.
type ChartPoint struct {
	Label string  `json:"label"`
	X     any     `json:"x"`
	Value float64 `json:"value"`
}

// PieSlice is one grouped category.
type PieSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// HeatCell is one normalized heatmap value.
type HeatCell struct {
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Intensity float64 `json:"intensity"`
}

// ShapeConfig carries shaper parameters.
type ShapeConfig struct {
	// HeatmapCeiling divides heatmap values; zero derives it from the data max.
	HeatmapCeiling float64
	Logger         *slog.Logger
}

// ShapeFunc turns rows into a renderable chart for one chart type. rows
// has already been resolved (chart-local or filtered) and cleaned.
type ShapeFunc func(chart ChartDefinition, rows []Record, cfg ShapeConfig) RenderableChart

// ShaperHook lets packages register chart shapers during init().
type ShaperHook func(reg *ShaperRegistry) error

var (
	globalShaperHookMu sync.Mutex
	globalShaperHooks  []ShaperHook
)

// RegisterShaperHook registers a hook executed against new registries.
func RegisterShaperHook(h ShaperHook) {
	globalShaperHookMu.Lock()
	defer globalShaperHookMu.Unlock()
	globalShaperHooks = append(globalShaperHooks, h)
}

// ShaperRegistry maps chart types to shape functions.
type ShaperRegistry struct {
	mu      sync.RWMutex
	shapers map[ChartType]ShapeFunc
}

// NewShaperRegistry builds a registry with the built-in chart types and
// applies registered hooks.
func NewShaperRegistry() *ShaperRegistry {
	reg := &ShaperRegistry{shapers: map[ChartType]ShapeFunc{}}
	reg.registerDefaults()
	_ = reg.ApplyHooks()
	return reg
}

func (r *ShaperRegistry) registerDefaults() {
	_ = r.Register(ChartPie, shapePie)
	_ = r.Register(ChartBar, shapeCartesian)
	_ = r.Register(ChartLine, shapeCartesian)
	_ = r.Register(ChartScatter, shapeCartesian)
	_ = r.Register(ChartDualAxisLine, shapeCartesian)
	_ = r.Register(ChartHeatmap, shapeHeatmap)
}

// ApplyHooks executes registered shaper hooks.
func (r *ShaperRegistry) ApplyHooks() error {
	globalShaperHookMu.Lock()
	defer globalShaperHookMu.Unlock()
	for _, hook := range globalShaperHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// Register associates a shape function with a chart type.
func (r *ShaperRegistry) Register(chartType ChartType, fn ShapeFunc) error {
	if chartType == "" {
		return fmt.Errorf("dashboard: chart type is required")
	}
	if fn == nil {
		return fmt.Errorf("dashboard: shaper for %s cannot be nil", chartType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shapers[ChartType(strings.ToLower(string(chartType)))] = fn
	return nil
}

// Shaper fetches the shape function for a chart type.
func (r *ShaperRegistry) Shaper(chartType ChartType) (ShapeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.shapers[ChartType(strings.ToLower(string(chartType)))]
	return fn, ok
}

// ChartShaper resolves a chart's input rows and dispatches to its shaper.
type ChartShaper struct {
	registry *ShaperRegistry
	cfg      ShapeConfig
}

// NewChartShaper builds a shaper. A nil registry uses the built-in types.
func NewChartShaper(registry *ShaperRegistry, cfg ShapeConfig) *ChartShaper {
	if registry == nil {
		registry = NewShaperRegistry()
	}
	cfg.Logger = normalizeLogger(cfg.Logger)
	return &ChartShaper{registry: registry, cfg: cfg}
}

// ShapeForChart uses the package defaults.
func ShapeForChart(chart ChartDefinition, filtered []Record) RenderableChart {
	return NewChartShaper(nil, ShapeConfig{}).Shape(chart, filtered)
}

// Shape prepares chart data. Chart-local data is used verbatim and is not
// affected by filters; otherwise sparse rows of filtered are dropped first.
func (s *ChartShaper) Shape(chart ChartDefinition, filtered []Record) RenderableChart {
	local := len(chart.Data) > 0
	rows := chart.Data
	if !local {
		rows = dropEmptyRows(filtered)
	}
	fn, ok := s.registry.Shaper(chart.Type)
	if !ok {
		s.cfg.Logger.Warn("dashboard: unsupported chart type",
			slog.String("chart", chart.ID),
			slog.String("type", string(chart.Type)))
		out := baseChart(chart)
		out.Local = local
		return out
	}
	out := fn(chart, rows, s.cfg)
	out.Local = local
	return out
}

func baseChart(chart ChartDefinition) RenderableChart {
	return RenderableChart{
		ID:             chart.ID,
		Type:           chart.Type,
		Title:          chart.Title,
		XAxis:          chart.XAxis,
		YAxis:          chart.YAxis,
		TooltipEnabled: chart.TooltipEnabled(),
	}
}

// dropEmptyRows removes rows whose every value is null or empty.
func dropEmptyRows(rows []Record) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		for _, v := range row {
			if !isBlank(v) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func shapePie(chart ChartDefinition, rows []Record, cfg ShapeConfig) RenderableChart {
	out := baseChart(chart)
	category := chart.CategoryField
	if category == "" {
		category = chart.XAxis
	}
	valueField := chart.Field
	if valueField == "" {
		valueField = chart.YAxis
	}
	if category == "" || valueField == "" {
		normalizeLogger(cfg.Logger).Warn("dashboard: pie chart has no category or value field",
			slog.String("chart", chart.ID))
		return out
	}

	totals := map[string]float64{}
	order := []string{}
	for _, row := range rows {
		label, value := row[category], row[valueField]
		if label == nil || value == nil {
			continue
		}
		name := stringValue(label)
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] += float64Value(value)
	}
	for _, name := range order {
		if totals[name] > 0 {
			out.Slices = append(out.Slices, PieSlice{Name: name, Value: totals[name]})
		}
	}
	return out
}

// shapeCartesian serves bar, line, scatter and dual-axis-line charts.
func shapeCartesian(chart ChartDefinition, rows []Record, _ ShapeConfig) RenderableChart {
	out := baseChart(chart)
	out.Rows = make([]Record, 0, len(rows))
	for _, row := range rows {
		if chart.XAxis != "" && row[chart.XAxis] == nil {
			continue
		}
		if chart.YAxis != "" && row[chart.YAxis] == nil {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	for _, series := range chartSeries(chart) {
		channel := ChartChannel{Name: series.Name, Field: series.Field, Type: series.Type}
		for _, row := range out.Rows {
			value, ok := numberValue(row[series.Field])
			if !ok {
				continue
			}
			x := row[chart.XAxis]
			channel.Points = append(channel.Points, ChartPoint{Label: stringValue(x), X: x, Value: value})
		}
		out.Channels = append(out.Channels, channel)
	}
	return out
}

// shapeHeatmap normalizes the first series into [0,1].
func shapeHeatmap(chart ChartDefinition, rows []Record, cfg ShapeConfig) RenderableChart {
	out := baseChart(chart)
	series := chartSeries(chart)
	if len(series) == 0 {
		normalizeLogger(cfg.Logger).Warn("dashboard: heatmap has no series", slog.String("chart", chart.ID))
		return out
	}
	field := series[0].Field
	values := make([]float64, len(rows))
	peak := 0.0
	for idx, row := range rows {
		values[idx] = float64Value(row[field])
		if values[idx] > peak {
			peak = values[idx]
		}
	}
	ceiling := cfg.HeatmapCeiling
	if ceiling <= 0 {
		ceiling = peak
	}
	if ceiling <= 0 {
		ceiling = 1
	}
	for idx, row := range rows {
		intensity := math.Max(0, math.Min(1, values[idx]/ceiling))
		out.Cells = append(out.Cells, HeatCell{
			Label:     stringValue(row[chart.XAxis]),
			Value:     values[idx],
			Intensity: intensity,
		})
	}
	return out
}

// chartSeries returns the chart's series, or an implicit one for yAxis.
func chartSeries(chart ChartDefinition) []Series {
	if len(chart.Series) > 0 {
		out := make([]Series, len(chart.Series))
		for idx, s := range chart.Series {
			if s.Name == "" {
				s.Name = Humanize(s.Field)
			}
			out[idx] = s
		}
		return out
	}
	if chart.YAxis != "" {
		return []Series{{Name: Humanize(chart.YAxis), Field: chart.YAxis}}
	}
	if chart.Field != "" {
		return []Series{{Name: Humanize(chart.Field), Field: chart.Field}}
	}
	return nil
}

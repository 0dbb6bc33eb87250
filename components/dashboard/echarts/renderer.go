// Package echarts renders shaped dashboard charts as go-echarts HTML.
package echarts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/goliatone/go-querydash/components/dashboard"
)

const defaultChartHeight = "360px"

var sharedCache = NewCache(5 * time.Minute)

var _ dashboard.ChartRenderer = (*Renderer)(nil)

// Renderer turns dashboard.RenderableChart values into ECharts markup.
type Renderer struct {
	cache      RenderCache
	theme      string
	height     string
	assetsHost string
}

// Option customizes renderer behavior.
type Option func(*Renderer)

// WithCache injects a render cache. A nil cache disables caching.
func WithCache(cache RenderCache) Option {
	return func(r *Renderer) {
		r.cache = cache
	}
}

// WithTheme sets the chart theme (defaults to Westeros).
func WithTheme(theme string) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// WithHeight overrides the chart height.
func WithHeight(height string) Option {
	return func(r *Renderer) {
		r.height = height
	}
}

// WithAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithAssetsHost(host string) Option {
	return func(r *Renderer) {
		r.assetsHost = ensureTrailingSlash(host)
	}
}

// NewRenderer builds a chart renderer.
func NewRenderer(options ...Option) *Renderer {
	r := &Renderer{
		cache:      sharedCache,
		theme:      types.ThemeWesteros,
		height:     defaultChartHeight,
		assetsHost: AssetsHostFromEnv(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// RenderChart renders one chart, reusing cached markup for identical data.
func (r *Renderer) RenderChart(ctx context.Context, chart dashboard.RenderableChart) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	render := func() (string, error) {
		return r.render(chart)
	}
	if r.cache == nil {
		return render()
	}
	return r.cache.GetOrRender(chartKey(chart, r.theme), render)
}

func (r *Renderer) render(chart dashboard.RenderableChart) (string, error) {
	switch chart.Type {
	case dashboard.ChartBar:
		return r.renderBar(chart)
	case dashboard.ChartLine:
		return r.renderLine(chart, false)
	case dashboard.ChartDualAxisLine:
		return r.renderLine(chart, true)
	case dashboard.ChartPie:
		return r.renderPie(chart)
	case dashboard.ChartScatter:
		return r.renderScatter(chart)
	case dashboard.ChartHeatmap:
		return r.renderHeatmap(chart)
	default:
		return "", fmt.Errorf("echarts: unsupported chart type: %s", chart.Type)
	}
}

func (r *Renderer) renderBar(chart dashboard.RenderableChart) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(r.globalOptions(chart)...)
	bar.SetXAxis(axisLabels(chart))
	for _, channel := range chart.Channels {
		bar.AddSeries(channel.Name, toBarData(channel.Points))
	}
	return renderChart(bar)
}

func (r *Renderer) renderLine(chart dashboard.RenderableChart, dualAxis bool) (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(r.globalOptions(chart)...)
	line.SetXAxis(axisLabels(chart))
	if dualAxis && len(chart.Channels) > 1 {
		line.ExtendYAxis(opts.YAxis{Name: chart.Channels[1].Name})
	}
	for idx, channel := range chart.Channels {
		axis := 0
		if dualAxis && idx > 0 {
			axis = 1
		}
		line.AddSeries(channel.Name, toLineData(channel.Points),
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), YAxisIndex: axis}))
	}
	return renderChart(line)
}

func (r *Renderer) renderPie(chart dashboard.RenderableChart) (string, error) {
	pie := charts.NewPie()
	pie.SetGlobalOptions(r.globalOptions(chart)...)
	data := make([]opts.PieData, len(chart.Slices))
	for idx, slice := range chart.Slices {
		name := slice.Name
		if name == "" {
			name = fmt.Sprintf("Slice %d", idx+1)
		}
		data[idx] = opts.PieData{Name: name, Value: slice.Value}
	}
	pie.AddSeries(seriesName(chart), data)
	return renderChart(pie)
}

func (r *Renderer) renderScatter(chart dashboard.RenderableChart) (string, error) {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(r.globalOptions(chart)...)
	for _, channel := range chart.Channels {
		data := make([]opts.ScatterData, len(channel.Points))
		for idx, point := range channel.Points {
			x, ok := numericX(point.X)
			if !ok {
				x = float64(idx + 1)
			}
			data[idx] = opts.ScatterData{Name: point.Label, Value: []float64{x, point.Value}}
		}
		scatter.AddSeries(channel.Name, data)
	}
	return renderChart(scatter)
}

func (r *Renderer) renderHeatmap(chart dashboard.RenderableChart) (string, error) {
	heat := charts.NewHeatMap()
	global := append(r.globalOptions(chart),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: []string{seriesName(chart)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: []string{"#e0f3f8", "#4575b4"}},
		}),
	)
	heat.SetGlobalOptions(global...)
	labels := make([]string, len(chart.Cells))
	data := make([]opts.HeatMapData, len(chart.Cells))
	for idx, cell := range chart.Cells {
		labels[idx] = cell.Label
		data[idx] = opts.HeatMapData{Name: cell.Label, Value: []any{idx, 0, cell.Intensity}}
	}
	heat.SetXAxis(labels)
	heat.AddSeries(seriesName(chart), data)
	return renderChart(heat)
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) globalOptions(chart dashboard.RenderableChart) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:   r.theme,
		Width:   "100%",
		Height:  r.height,
		ChartID: chartID(chart.ID),
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: chart.Title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(chart.TooltipEnabled)}),
		charts.WithToolboxOpts(opts.Toolbox{Show: opts.Bool(true)}),
	}
}

// axisLabels collects x labels across channels in first-seen order.
func axisLabels(chart dashboard.RenderableChart) []string {
	seen := map[string]bool{}
	labels := []string{}
	for _, channel := range chart.Channels {
		for _, point := range channel.Points {
			if seen[point.Label] {
				continue
			}
			seen[point.Label] = true
			labels = append(labels, point.Label)
		}
	}
	return labels
}

func seriesName(chart dashboard.RenderableChart) string {
	if len(chart.Channels) > 0 && chart.Channels[0].Name != "" {
		return chart.Channels[0].Name
	}
	if chart.Title != "" {
		return chart.Title
	}
	return chart.ID
}

func numericX(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

func toBarData(points []dashboard.ChartPoint) []opts.BarData {
	data := make([]opts.BarData, len(points))
	for i, point := range points {
		data[i] = opts.BarData{
			Name:  point.Label,
			Value: point.Value,
		}
	}
	return data
}

func toLineData(points []dashboard.ChartPoint) []opts.LineData {
	data := make([]opts.LineData, len(points))
	for i, point := range points {
		data[i] = opts.LineData{
			Name:  point.Label,
			Value: point.Value,
		}
	}
	return data
}

// chartID keeps ids usable as JavaScript identifiers in the generated markup.
func chartID(id string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, id)
}

package echarts

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-querydash/components/dashboard"
)

type countingCache struct {
	calls int32
	html  string
}

func (c *countingCache) GetOrRender(_ string, render func() (string, error)) (string, error) {
	if c.html != "" {
		return c.html, nil
	}
	atomic.AddInt32(&c.calls, 1)
	html, err := render()
	if err == nil {
		c.html = html
	}
	return html, err
}

func shaped(chart dashboard.ChartDefinition, rows []dashboard.Record) dashboard.RenderableChart {
	return dashboard.ShapeForChart(chart, rows)
}

var salesRows = []dashboard.Record{
	{"region": "North", "sales": 10.0, "units": 3.0},
	{"region": "South", "sales": 20.0, "units": 5.0},
	{"region": "East", "sales": 0.0, "units": 1.0},
}

func TestRendererChartTypes(t *testing.T) {
	t.Parallel()
	renderer := NewRenderer(WithCache(nil))
	definitions := []dashboard.ChartDefinition{
		{ID: "bar", Type: dashboard.ChartBar, Title: "Sales", XAxis: "region", YAxis: "sales"},
		{ID: "line", Type: dashboard.ChartLine, XAxis: "region", YAxis: "sales"},
		{ID: "dual", Type: dashboard.ChartDualAxisLine, XAxis: "region", Series: []dashboard.Series{{Field: "sales"}, {Field: "units"}}},
		{ID: "pie", Type: dashboard.ChartPie, CategoryField: "region", Field: "sales"},
		{ID: "scatter", Type: dashboard.ChartScatter, XAxis: "units", YAxis: "sales"},
		{ID: "heat", Type: dashboard.ChartHeatmap, XAxis: "region", YAxis: "sales"},
	}
	for _, def := range definitions {
		html, err := renderer.RenderChart(context.Background(), shaped(def, salesRows))
		require.NoError(t, err, def.ID)
		assert.Contains(t, html, "echarts", def.ID)
	}
}

func TestRendererRejectsUnknownType(t *testing.T) {
	t.Parallel()
	_, err := NewRenderer(WithCache(nil)).RenderChart(context.Background(), dashboard.RenderableChart{ID: "x", Type: "radar"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestRendererUsesCache(t *testing.T) {
	t.Parallel()
	cache := &countingCache{}
	renderer := NewRenderer(WithCache(cache), WithTheme(string(types.ThemeWalden)))
	chart := shaped(dashboard.ChartDefinition{ID: "bar", Type: dashboard.ChartBar, XAxis: "region", YAxis: "sales"}, salesRows)

	_, err := renderer.RenderChart(context.Background(), chart)
	require.NoError(t, err)
	_, err = renderer.RenderChart(context.Background(), chart)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&cache.calls))
}

func TestRendererHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRenderer().RenderChart(ctx, dashboard.RenderableChart{ID: "bar", Type: dashboard.ChartBar})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAxisLabelsFirstSeenOrder(t *testing.T) {
	t.Parallel()
	chart := dashboard.RenderableChart{Channels: []dashboard.ChartChannel{
		{Points: []dashboard.ChartPoint{{Label: "b"}, {Label: "a"}}},
		{Points: []dashboard.ChartPoint{{Label: "a"}, {Label: "c"}}},
	}}
	assert.Equal(t, []string{"b", "a", "c"}, axisLabels(chart))
}

func TestAssetsHostFromEnv(t *testing.T) {
	t.Setenv("QUERYDASH_ECHARTS_ASSETS", "https://cdn.example.com/echarts")
	if got := AssetsHostFromEnv(); got != "https://cdn.example.com/echarts/" {
		t.Fatalf("expected env host with trailing slash, got %q", got)
	}
	t.Setenv("QUERYDASH_ECHARTS_ASSETS", "")
	if got := AssetsHostFromEnv(); got != DefaultAssetsHost {
		t.Fatalf("expected default host, got %q", got)
	}
}

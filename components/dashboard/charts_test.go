package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapePieDropsNonPositiveGroups(t *testing.T) {
	chart := ChartDefinition{ID: "pie", Type: ChartPie, CategoryField: "genre", Field: "sales"}
	rows := []Record{
		{"genre": "Drama", "sales": 10.0},
		{"genre": "Comedy", "sales": 0.0},
		{"genre": "Drama", "sales": 5.0},
		{"genre": "Horror", "sales": 3.0},
		{"genre": nil, "sales": 7.0},
		{"genre": "Comedy", "sales": 0.0},
	}
	out := ShapeForChart(chart, rows)
	require.Equal(t, []PieSlice{{Name: "Drama", Value: 15}, {Name: "Horror", Value: 3}}, out.Slices)
	for _, slice := range out.Slices {
		assert.NotEqual(t, "Comedy", slice.Name)
	}
}

func TestShapeCartesianSkipsMissingAxesAndValues(t *testing.T) {
	chart := ChartDefinition{
		ID:    "bar",
		Type:  ChartBar,
		XAxis: "region",
		Series: []Series{
			{Field: "sales"},
			{Name: "Units", Field: "units"},
		},
	}
	rows := []Record{
		{"region": "North", "sales": 10.0, "units": 1.0},
		{"region": nil, "sales": 20.0, "units": 2.0},
		{"region": "South", "sales": "n/a", "units": 3.0},
	}
	out := ShapeForChart(chart, rows)
	require.Len(t, out.Rows, 2)
	require.Len(t, out.Channels, 2)
	assert.Equal(t, "Sales", out.Channels[0].Name)
	assert.Equal(t, []ChartPoint{{Label: "North", X: "North", Value: 10}}, out.Channels[0].Points)
	assert.Len(t, out.Channels[1].Points, 2)
	assert.True(t, out.TooltipEnabled)
}

func TestShapeUsesLocalDataVerbatim(t *testing.T) {
	chart := ChartDefinition{
		ID:    "line",
		Type:  ChartLine,
		XAxis: "month",
		YAxis: "total",
		Data:  []Record{{"month": "Jan", "total": 4.0}, {"month": "Feb", "total": 6.0}},
	}
	out := ShapeForChart(chart, []Record{{"month": "Mar", "total": 1.0}})
	assert.True(t, out.Local)
	require.Len(t, out.Channels, 1)
	assert.Len(t, out.Channels[0].Points, 2)
	assert.Equal(t, "Jan", out.Channels[0].Points[0].Label)
}

func TestShapeDropsEmptyRowsFromFilteredData(t *testing.T) {
	chart := ChartDefinition{ID: "scatter", Type: ChartScatter, YAxis: "score"}
	rows := []Record{{"score": 1.0}, {"score": nil, "name": ""}, {"score": 2.0}}
	out := ShapeForChart(chart, rows)
	assert.Len(t, out.Rows, 2)
}

func TestShapeHeatmapNormalizesIntensity(t *testing.T) {
	chart := ChartDefinition{ID: "heat", Type: ChartHeatmap, XAxis: "day", YAxis: "load"}
	rows := []Record{{"day": "Mon", "load": 5.0}, {"day": "Tue", "load": 10.0}, {"day": "Wed", "load": -2.0}}

	out := ShapeForChart(chart, rows)
	require.Len(t, out.Cells, 3)
	assert.Equal(t, 0.5, out.Cells[0].Intensity)
	assert.Equal(t, 1.0, out.Cells[1].Intensity)
	assert.Equal(t, 0.0, out.Cells[2].Intensity)

	fixed := NewChartShaper(nil, ShapeConfig{HeatmapCeiling: 5}).Shape(chart, rows)
	assert.Equal(t, 1.0, fixed.Cells[1].Intensity, "values above the ceiling clamp to 1")
	assert.Equal(t, 10.0, fixed.Cells[1].Value)
}

func TestShapeUnknownTypeReturnsBaseChart(t *testing.T) {
	out := ShapeForChart(ChartDefinition{ID: "x", Type: "radar", Title: "Radar"}, []Record{{"a": 1}})
	assert.Equal(t, "Radar", out.Title)
	assert.True(t, out.Empty())
}

func TestShaperRegistryHooks(t *testing.T) {
	reg := NewShaperRegistry()
	require.NoError(t, reg.Register("Funnel", func(chart ChartDefinition, rows []Record, _ ShapeConfig) RenderableChart {
		return RenderableChart{ID: chart.ID, Rows: rows}
	}))
	_, ok := reg.Shaper("funnel")
	assert.True(t, ok)
	assert.Error(t, reg.Register("", nil))

	out := NewChartShaper(reg, ShapeConfig{}).Shape(ChartDefinition{ID: "f", Type: "funnel"}, []Record{{"a": 1}})
	assert.Len(t, out.Rows, 1)
}

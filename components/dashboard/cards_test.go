package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValue(t *testing.T) {
	cases := []struct {
		value  float64
		format string
		want   string
	}{
		{1234.4, "currency", "$1,234"},
		{-1234.4, "currency", "-$1,234"},
		{12.34, "percentage", "12.3%"},
		{1234.567, "decimal", "1,234.57"},
		{2, "decimal", "2.00"},
		{1234567, "number", "1,234,567"},
		{0.1234, "", "0.123"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatValue(tc.value, tc.format), "format %q value %v", tc.format, tc.value)
	}
}

func TestRenderCards(t *testing.T) {
	rows := []Record{{"name": "A", "rating": 8.0}, {"name": "B", "rating": 6.0}}
	cards := []CardDefinition{
		{ID: "count", Title: "Rated Records", ValueField: "rating", Aggregation: AggregateCount, Format: "number"},
		{ID: "avg", Title: "Average Rating", ValueField: "rating", Aggregation: AggregateAvg, Format: "decimal", Variant: "primary"},
	}
	views := RenderCards(cards, rows)
	require.Len(t, views, 2)
	assert.Equal(t, 2.0, views[0].Value)
	assert.Equal(t, "2", views[0].Display)
	assert.Equal(t, "7.00", views[1].Display)
	assert.Equal(t, "primary", views[1].Variant)
}

func TestRenderCardsEmptyRows(t *testing.T) {
	views := RenderCards([]CardDefinition{{ID: "sum", ValueField: "x", Aggregation: AggregateSum, Format: "currency"}}, nil)
	require.Len(t, views, 1)
	assert.Equal(t, "$0", views[0].Display)
}

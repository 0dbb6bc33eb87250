package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSpecificationKeepsFieldOrder(t *testing.T) {
	spec, err := DecodeSpecification([]byte(`{"data": [{"zeta": 1, "alpha": "a", "mid": 2}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, spec.FieldOrder())

	built := Specification{Data: []Record{{"zeta": 1, "alpha": "a"}}}
	assert.Equal(t, []string{"alpha", "zeta"}, built.FieldOrder())
}

func TestDecodeSpecificationIsLenient(t *testing.T) {
	spec, err := DecodeSpecification([]byte(`{"title": "T", "cards": "oops", "data": [{"a": 1}]}`))
	require.NoError(t, err)
	assert.Equal(t, "T", spec.Title)
	assert.Len(t, spec.Data, 1)
	require.Len(t, spec.DecodeIssues(), 1)
	assert.Contains(t, spec.DecodeIssues()[0], "cards")

	fixed := NewFixer(nil, nil).Fix(spec)
	assert.Empty(t, fixed.Cards, "malformed specifications are not reconciled")

	_, err = DecodeSpecification([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestCardTooltipForms(t *testing.T) {
	spec, err := DecodeSpecification([]byte(`{"data": [], "cards": [
		{"id": "a", "tooltip": "plain"},
		{"id": "b", "tooltip": {"title": "T", "content": "C"}}
	]}`))
	require.NoError(t, err)
	require.Len(t, spec.Cards, 2)
	assert.Equal(t, "plain", spec.Cards[0].Tooltip.Content)
	assert.Equal(t, CardTooltip{Title: "T", Content: "C"}, *spec.Cards[1].Tooltip)
}

func TestTableDefinitionAccessors(t *testing.T) {
	disabled := false
	def := TableDefinition{
		Search:     &TableSearch{Enabled: &disabled},
		Pagination: &TablePagination{PageSize: 25},
	}
	assert.False(t, def.SearchEnabled())
	assert.True(t, def.PaginationEnabled())
	assert.Equal(t, 25, def.PageSize())

	column := TableColumn{Field: "unit_price"}
	assert.Equal(t, "Unit Price", column.Title())
	assert.Equal(t, "text", column.DisplayFormat())
}

func TestAllTablesAssignsIDs(t *testing.T) {
	spec := Specification{
		Table:  &TableDefinition{},
		Tables: []TableDefinition{{}, {ID: "custom"}},
	}
	tables := spec.AllTables()
	require.Len(t, tables, 3)
	assert.Equal(t, "table", tables[0].ID)
	assert.Equal(t, "table-1", tables[1].ID)
	assert.Equal(t, "custom", tables[2].ID)
}

func TestChartTooltipDefaultsToEnabled(t *testing.T) {
	off := false
	assert.True(t, ChartDefinition{}.TooltipEnabled())
	assert.False(t, ChartDefinition{Tooltip: &ChartTooltip{Enabled: &off}}.TooltipEnabled())
}

package dashboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedRows(n int) []Record {
	rows := make([]Record, n)
	for i := range rows {
		rows[i] = Record{"id": float64(i + 1), "name": fmt.Sprintf("row-%02d", i+1)}
	}
	return rows
}

var tableColumns = []TableColumn{
	{Field: "id", Header: "ID", Sortable: true},
	{Field: "name", Header: "Name", Sortable: true},
	{Field: "note", Header: "Note"},
}

func TestViewTablePaginatesTwentyThreeRows(t *testing.T) {
	rows := numberedRows(23)
	page := ViewTable(rows, tableColumns, TableQuery{Page: 3, PageSize: 10, Paginated: true})
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 3, page.Page)
	require.Len(t, page.Rows, 3)
	assert.Equal(t, 21.0, page.Rows[0]["id"])

	seen := 0
	for p := 1; p <= page.TotalPages; p++ {
		seen += len(ViewTable(rows, tableColumns, TableQuery{Page: p, PageSize: 10, Paginated: true}).Rows)
	}
	assert.Equal(t, 23, seen)
}

func TestViewTableClampsPage(t *testing.T) {
	page := ViewTable(numberedRows(5), tableColumns, TableQuery{Page: 9, PageSize: 2, Paginated: true})
	assert.Equal(t, 3, page.Page)
	assert.Len(t, page.Rows, 1)

	empty := ViewTable(nil, tableColumns, TableQuery{Page: 4, PageSize: 10, Paginated: true})
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Empty(t, empty.Rows)
}

func TestViewTableWithoutPagination(t *testing.T) {
	page := ViewTable(numberedRows(12), tableColumns, TableQuery{Page: 2, PageSize: 5})
	assert.Len(t, page.Rows, 12)
	assert.Equal(t, 1, page.TotalPages)
}

func TestViewTableSearchThenSort(t *testing.T) {
	rows := []Record{
		{"name": "Beta", "city": "Lisbon"},
		{"name": "alpha", "city": "Porto"},
		{"name": "Gamma", "city": "lisbon"},
	}
	columns := []TableColumn{{Field: "name", Sortable: true}, {Field: "city"}}
	page := ViewTable(rows, columns, TableQuery{
		Search:     "LISB",
		Searchable: true,
		Sort:       &SortState{Key: "name", Direction: SortDesc},
	})
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "Gamma", page.Rows[0]["name"])
	assert.Equal(t, "Beta", page.Rows[1]["name"])
}

func TestViewTableSortIsStableWithNullsLast(t *testing.T) {
	rows := []Record{
		{"k": 2.0, "tag": "a"},
		{"k": nil, "tag": "b"},
		{"k": 1.0, "tag": "c"},
		{"k": 2.0, "tag": "d"},
		{"k": nil, "tag": "e"},
	}
	columns := []TableColumn{{Field: "k", Sortable: true}}
	tags := func(page TablePage) []string {
		out := []string{}
		for _, row := range page.Rows {
			out = append(out, row["tag"].(string))
		}
		return out
	}

	asc := ViewTable(rows, columns, TableQuery{Sort: &SortState{Key: "k", Direction: SortAsc}})
	assert.Equal(t, []string{"c", "a", "d", "b", "e"}, tags(asc))

	desc := ViewTable(rows, columns, TableQuery{Sort: &SortState{Key: "k", Direction: SortDesc}})
	assert.Equal(t, []string{"a", "d", "c", "b", "e"}, tags(desc))
	assert.Equal(t, "a", rows[0]["tag"], "input order must be preserved")
}

func TestViewTableIgnoresNonSortableColumns(t *testing.T) {
	rows := []Record{{"note": "b"}, {"note": "a"}}
	page := ViewTable(rows, tableColumns, TableQuery{Sort: &SortState{Key: "note", Direction: SortAsc}})
	assert.Equal(t, "b", page.Rows[0]["note"])
}

func TestTableStateToggleSort(t *testing.T) {
	state := NewTableState()
	state.Page = 4

	require.True(t, state.ToggleSort(tableColumns, "name"))
	assert.Equal(t, SortState{Key: "name", Direction: SortAsc}, *state.Sort)
	assert.Equal(t, 1, state.Page)

	state.ToggleSort(tableColumns, "name")
	assert.Equal(t, SortDesc, state.Sort.Direction)

	state.ToggleSort(tableColumns, "id")
	assert.Equal(t, SortState{Key: "id", Direction: SortAsc}, *state.Sort)

	assert.False(t, state.ToggleSort(tableColumns, "note"))
	assert.Equal(t, "id", state.Sort.Key)
}

func TestTableStateSearchResetsPage(t *testing.T) {
	state := NewTableState()
	state.GoToPage(3, 5)
	state.SetSearch("x")
	assert.Equal(t, 1, state.Page)

	state.GoToPage(7, 5)
	assert.Equal(t, 5, state.Page)
	state.GoToPage(-1, 5)
	assert.Equal(t, 1, state.Page)
}

func TestTableDefinitionDefaults(t *testing.T) {
	def := TableDefinition{}
	q := NewTableState().Query(def)
	assert.True(t, q.Searchable)
	assert.True(t, q.Paginated)
	assert.Equal(t, DefaultPageSize, q.PageSize)
}

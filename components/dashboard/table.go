package dashboard

import (
	"sort"
	"strings"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortState is the active sort of one table.
type SortState struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// TableQuery is the search, sort and page request for one table.
type TableQuery struct {
	Search     string
	Sort       *SortState
	Page       int
	PageSize   int
	Searchable bool
	Paginated  bool
}

// TablePage is one page of a table view.
type TablePage struct {
	ID            string        `json:"id"`
	Title         string        `json:"title,omitempty"`
	Columns       []TableColumn `json:"columns"`
	Rows          []Record      `json:"rows"`
	TotalFiltered int           `json:"totalFiltered"`
	TotalPages    int           `json:"totalPages"`
	Page          int           `json:"page"`
	PageSize      int           `json:"pageSize"`
	Search        string        `json:"search,omitempty"`
	Sort          *SortState    `json:"sort,omitempty"`
}

// ViewTable runs search, then sort, then pagination over rows.
func ViewTable(rows []Record, columns []TableColumn, q TableQuery) TablePage {
	working := rows
	if q.Searchable {
		working = searchRows(working, q.Search)
	}
	if q.Sort != nil && sortable(columns, q.Sort.Key) {
		working = sortRows(working, *q.Sort)
	}

	total := len(working)
	page := TablePage{
		Columns:       columns,
		TotalFiltered: total,
		Search:        q.Search,
		Sort:          q.Sort,
	}
	if !q.Paginated {
		page.Rows = working
		page.Page = 1
		page.TotalPages = 1
		page.PageSize = total
		return page
	}

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	current := clampPage(q.Page, pages)
	start := (current - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	page.Rows = working[start:end]
	page.Page = current
	page.TotalPages = pages
	page.PageSize = size
	return page
}

func clampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

func sortable(columns []TableColumn, key string) bool {
	for _, column := range columns {
		if column.Field == key {
			return column.Sortable
		}
	}
	return false
}

// searchRows keeps rows where any value contains term, ignoring case.
func searchRows(rows []Record, term string) []Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rows
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		for _, v := range row {
			if v != nil && strings.Contains(strings.ToLower(stringValue(v)), term) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// sortRows returns a stably sorted copy. Nulls always sort last.
func sortRows(rows []Record, state SortState) []Record {
	out := append([]Record(nil), rows...)
	desc := state.Direction == SortDesc
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i][state.Key], out[j][state.Key]
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		}
		cmp := compareValues(a, b)
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return out
}

func compareValues(a, b any) int {
	if isNumber(a) && isNumber(b) {
		x, y := float64Value(a), float64Value(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(stringValue(a)), strings.ToLower(stringValue(b)))
}

// TableState is the interactive state of one table instance.
type TableState struct {
	Search string
	Sort   *SortState
	Page   int
}

// NewTableState starts on page 1 with no search or sort.
func NewTableState() *TableState {
	return &TableState{Page: 1}
}

// ToggleSort sorts by key, flipping direction when key is already active.
// Non-sortable columns are ignored. The page resets to 1.
func (s *TableState) ToggleSort(columns []TableColumn, key string) bool {
	if !sortable(columns, key) {
		return false
	}
	if s.Sort != nil && s.Sort.Key == key {
		next := SortAsc
		if s.Sort.Direction == SortAsc {
			next = SortDesc
		}
		s.Sort = &SortState{Key: key, Direction: next}
	} else {
		s.Sort = &SortState{Key: key, Direction: SortAsc}
	}
	s.Page = 1
	return true
}

// SetSearch updates the search term and resets the page.
func (s *TableState) SetSearch(term string) {
	if term == s.Search {
		return
	}
	s.Search = term
	s.Page = 1
}

// GoToPage clamps page into [1, totalPages].
func (s *TableState) GoToPage(page, totalPages int) {
	s.Page = clampPage(page, totalPages)
}

// Query builds a TableQuery for a table definition.
func (s *TableState) Query(def TableDefinition) TableQuery {
	var sortState *SortState
	if s.Sort != nil {
		copied := *s.Sort
		sortState = &copied
	}
	return TableQuery{
		Search:     s.Search,
		Sort:       sortState,
		Page:       s.Page,
		PageSize:   def.PageSize(),
		Searchable: def.SearchEnabled(),
		Paginated:  def.PaginationEnabled(),
	}
}

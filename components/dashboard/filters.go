package dashboard

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// AllOption is the dropdown sentinel meaning "no constraint".
const AllOption = "all"

// FilterSelection maps a filter field to its current value: a string for
// dropdown and search, []string for multi-select, DateRange for date-range.
type FilterSelection map[string]any

// Clone returns a shallow copy.
func (s FilterSelection) Clone() FilterSelection {
	out := make(FilterSelection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// DateRange is an inclusive date window. A nil From disables the filter and
// a nil To means "through now".
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// FilterEngine applies filter selections to a base dataset.
type FilterEngine struct {
	now func() time.Time
}

// NewFilterEngine builds an engine. A nil clock uses time.Now.
func NewFilterEngine(now func() time.Time) FilterEngine {
	if now == nil {
		now = time.Now
	}
	return FilterEngine{now: now}
}

// ApplyFilters is FilterEngine.Apply with the wall clock.
func ApplyFilters(base []Record, defs []FilterDefinition, selection FilterSelection) []Record {
	return NewFilterEngine(nil).Apply(base, defs, selection)
}

// Apply returns the rows of base that satisfy every active filter, in base
// order. base is never modified.
func (e FilterEngine) Apply(base []Record, defs []FilterDefinition, selection FilterSelection) []Record {
	predicates := make([]func(Record) bool, 0, len(defs))
	for _, def := range defs {
		value, ok := selection[def.Field]
		if !ok {
			continue
		}
		if pred := e.predicate(def, value); pred != nil {
			predicates = append(predicates, pred)
		}
	}
	out := make([]Record, 0, len(base))
	for _, row := range base {
		keep := true
		for _, pred := range predicates {
			if !pred(row) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

// predicate returns nil when the selection places no constraint.
func (e FilterEngine) predicate(def FilterDefinition, value any) func(Record) bool {
	field := def.Field
	switch def.Type {
	case FilterDropdown:
		want, ok := value.(string)
		if !ok || want == AllOption {
			return nil
		}
		return func(row Record) bool {
			v, present := row[field]
			return present && v != nil && stringValue(v) == want
		}
	case FilterMultiSelect:
		selected := stringSliceValue(value)
		if len(selected) == 0 {
			return nil
		}
		set := make(map[string]struct{}, len(selected))
		for _, s := range selected {
			set[s] = struct{}{}
		}
		return func(row Record) bool {
			v, present := row[field]
			if !present || v == nil {
				return false
			}
			_, ok := set[stringValue(v)]
			return ok
		}
	case FilterSearch:
		term, _ := value.(string)
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return nil
		}
		return func(row Record) bool {
			v, present := row[field]
			if !present || v == nil {
				return false
			}
			return strings.Contains(strings.ToLower(stringValue(v)), term)
		}
	case FilterDateRange:
		window, ok := ParseDateRange(value)
		if !ok || window.From == nil {
			return nil
		}
		from := *window.From
		to := e.now()
		if window.To != nil {
			to = *window.To
		}
		return func(row Record) bool {
			when, ok := parseDate(row[field])
			if !ok {
				return false
			}
			return !when.Before(from) && !when.After(to)
		}
	default:
		return nil
	}
}

// FilterOptions returns the choices for a dropdown or multi-select filter:
// the definition's options, or the distinct non-empty values of base sorted.
func FilterOptions(def FilterDefinition, base []Record) []string {
	if len(def.Options) > 0 {
		return append([]string(nil), def.Options...)
	}
	seen := map[string]bool{}
	out := []string{}
	for _, row := range base {
		v, ok := row[def.Field]
		if !ok || isBlank(v) {
			continue
		}
		text := stringValue(v)
		if seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
	}
	sort.Strings(out)
	return out
}

// ParseDateRange accepts a DateRange, *DateRange or a {from, to} map as
// decoded from JSON.
func ParseDateRange(value any) (DateRange, bool) {
	switch v := value.(type) {
	case DateRange:
		return v, true
	case *DateRange:
		if v == nil {
			return DateRange{}, false
		}
		return *v, true
	case map[string]any:
		var out DateRange
		if from, ok := parseDate(v["from"]); ok {
			out.From = &from
		}
		if to, ok := parseDate(v["to"]); ok {
			out.To = &to
		}
		return out, true
	case json.RawMessage:
		var raw map[string]any
		if err := json.Unmarshal(v, &raw); err != nil {
			return DateRange{}, false
		}
		return ParseDateRange(raw)
	default:
		return DateRange{}, false
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}

// parseDate accepts time values, common date strings and epoch milliseconds.
func parseDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case nil, bool:
		return time.Time{}, false
	default:
		if ms, ok := numberValue(v); ok {
			return time.UnixMilli(int64(ms)).UTC(), true
		}
		return time.Time{}, false
	}
}

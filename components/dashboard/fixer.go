package dashboard

import (
	"log/slog"
	"strings"
)

// Fixer repairs field references in a specification against its data and
// fills in default cards and table columns. Fix never fails: unresolvable
// references are logged and left in place.
type Fixer struct {
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewFixer builds a fixer. A nil policy uses DefaultFieldPolicy.
func NewFixer(policy *FieldPolicy, logger *slog.Logger) *Fixer {
	return &Fixer{
		reconciler: NewReconciler(normalizePolicy(policy)),
		logger:     normalizeLogger(logger),
	}
}

// Reconciler exposes the underlying reconciler.
func (f *Fixer) Reconciler() *Reconciler {
	return f.reconciler
}

// Fix returns a corrected copy of spec. The input is not modified and
// running Fix on its own output yields the same output.
func (f *Fixer) Fix(spec Specification) Specification {
	if issues := spec.DecodeIssues(); len(issues) > 0 {
		f.logger.Warn("dashboard: specification has malformed sections, skipping reconciliation",
			slog.Any("issues", issues))
		return spec
	}
	if len(spec.Data) == 0 {
		return spec
	}

	fs := NewFieldSpace(spec.Data[0], spec.fieldOrder)
	out := spec
	out.Cards = f.fixCards(spec.Cards, fs)
	out.Charts = f.fixCharts(spec.Charts, fs)
	if spec.Table != nil {
		table := f.fixTable(*spec.Table, fs)
		out.Table = &table
	}
	if spec.Tables != nil {
		out.Tables = make([]TableDefinition, len(spec.Tables))
		for idx, table := range spec.Tables {
			out.Tables[idx] = f.fixTable(table, fs)
		}
	}
	out.Filters = f.fixFilters(spec.Filters, fs)
	return out
}

func (f *Fixer) fixCards(cards []CardDefinition, fs FieldSpace) []CardDefinition {
	if len(cards) == 0 {
		return f.defaultCards(fs)
	}
	countField := f.reconciler.CountField(fs)
	numeric := f.reconciler.NumericFields(fs)
	out := make([]CardDefinition, len(cards))
	for idx, card := range cards {
		out[idx] = card
		if card.ValueField != "" && fs.Has(card.ValueField) {
			continue
		}
		if match := foldMatch(fs, card.ValueField); match != "" {
			out[idx].ValueField = match
		} else if len(numeric) > 0 {
			out[idx].ValueField = numeric[0]
		} else {
			out[idx].ValueField = countField
			out[idx].Aggregation = AggregateCount
		}
		f.mismatch("card", card.ID, card.ValueField, out[idx].ValueField)
	}
	return out
}

func (f *Fixer) defaultCards(fs FieldSpace) []CardDefinition {
	policy := f.reconciler.Policy()
	countField := f.reconciler.CountField(fs)
	cards := []CardDefinition{{
		ID:          "card-count",
		Title:       "Total Records",
		ValueField:  countField,
		Aggregation: AggregateCount,
		Format:      "number",
	}}

	numeric := f.reconciler.NumericFields(fs)
	selected := make([]string, 0, policy.MaxNumericCards)
	taken := map[string]bool{}
	pick := func(field string) {
		if len(selected) >= policy.MaxNumericCards || taken[field] {
			return
		}
		taken[field] = true
		selected = append(selected, field)
	}
	for _, rule := range policy.CardRules {
		for _, field := range numeric {
			if rule.matches(field) {
				pick(field)
			}
		}
	}
	for _, field := range numeric {
		pick(field)
	}

	for _, field := range selected {
		rule := policy.ruleFor(field)
		title := Humanize(field)
		if rule.TitlePrefix != "" {
			title = rule.TitlePrefix + " " + title
		}
		cards = append(cards, CardDefinition{
			ID:          "card-" + strings.ToLower(normalizeFieldName(field)),
			Title:       title,
			ValueField:  field,
			Aggregation: rule.Aggregation,
			Format:      rule.Format,
		})
	}
	return cards
}

func (f *Fixer) fixCharts(charts []ChartDefinition, base FieldSpace) []ChartDefinition {
	if charts == nil {
		return nil
	}
	out := make([]ChartDefinition, len(charts))
	for idx, chart := range charts {
		fs := base
		if len(chart.Data) > 0 {
			fs = NewFieldSpace(chart.Data[0], chart.fieldOrder)
		}
		fixed := chart
		fixed.XAxis = f.resolved("chart", chart.ID, chart.XAxis, fs, f.reconciler.ResolveAxis)
		fixed.YAxis = f.resolved("chart", chart.ID, chart.YAxis, fs, f.reconciler.ResolveValue)
		fixed.CategoryField = f.resolved("chart", chart.ID, chart.CategoryField, fs, f.reconciler.ResolveCategory)
		fixed.Field = f.resolved("chart", chart.ID, chart.Field, fs, f.reconciler.ResolveValue)
		if chart.Series != nil {
			fixed.Series = make([]Series, len(chart.Series))
			for sIdx, series := range chart.Series {
				fixed.Series[sIdx] = series
				fixed.Series[sIdx].Field = f.resolved("chart", chart.ID, series.Field, fs, f.reconciler.ResolveValue)
			}
		}
		out[idx] = fixed
	}
	return out
}

func (f *Fixer) fixTable(table TableDefinition, fs FieldSpace) TableDefinition {
	columns := make([]TableColumn, 0, len(table.Columns))
	for _, column := range table.Columns {
		if fs.Has(column.Field) {
			columns = append(columns, column)
			continue
		}
		f.mismatch("table", table.ID, column.Field, "")
	}
	if len(columns) == 0 {
		limit := f.reconciler.Policy().DefaultTableColumns
		for _, field := range fs.Fields {
			if len(columns) >= limit {
				break
			}
			format := "text"
			if isNumber(fs.Sample[field]) {
				format = "number"
			}
			columns = append(columns, TableColumn{
				Field:    field,
				Header:   Humanize(field),
				Sortable: true,
				Format:   format,
			})
		}
	}
	table.Columns = columns
	return table
}

func (f *Fixer) fixFilters(filters []FilterDefinition, fs FieldSpace) []FilterDefinition {
	if filters == nil {
		return nil
	}
	policy := f.reconciler.Policy()
	out := make([]FilterDefinition, len(filters))
	for idx, filter := range filters {
		fixed := filter
		if len(filter.Data) > 0 {
			if fixed.TargetField == "" {
				fixed.TargetField = filter.Field
			}
			fixed.Options = nestedOptions(fixed, policy.MaxFilterOptions)
		}
		if filter.Field == "" || !fs.Has(filter.Field) {
			replacement := foldMatch(fs, filter.Field)
			if replacement == "" {
				if candidates := f.reconciler.StringFields(fs); len(candidates) > 0 {
					replacement = candidates[0]
				}
			}
			if replacement != "" {
				fixed.Field = replacement
			}
			f.mismatch("filter", filter.Label, filter.Field, replacement)
		}
		out[idx] = fixed
	}
	return out
}

// nestedOptions extracts distinct option values from a filter's own data.
// TargetField pins the nested key so a later field substitution does not
// change where options are read from.
func nestedOptions(filter FilterDefinition, limit int) []string {
	key := filter.TargetField
	if key == "" {
		key = filter.Field
	}
	seen := map[string]bool{}
	options := make([]string, 0, limit)
	for _, entry := range filter.Data {
		value, ok := entry[key]
		if !ok || isBlank(value) {
			continue
		}
		text := stringValue(value)
		if seen[text] {
			continue
		}
		seen[text] = true
		options = append(options, text)
		if len(options) >= limit {
			break
		}
	}
	return options
}

type resolveFunc func(FieldSpace, string) (string, bool)

func (f *Fixer) resolved(component, id, field string, fs FieldSpace, resolve resolveFunc) string {
	if field == "" {
		return field
	}
	out, changed := resolve(fs, field)
	if changed || !fs.Has(out) {
		replacement := ""
		if changed {
			replacement = out
		}
		f.mismatch(component, id, field, replacement)
	}
	return out
}

func (f *Fixer) mismatch(component, id, field, replacement string) {
	if replacement == "" {
		f.logger.Warn("dashboard: unresolved field reference",
			slog.String("component", component),
			slog.String("id", id),
			slog.String("field", field))
		return
	}
	f.logger.Warn("dashboard: field reference substituted",
		slog.String("component", component),
		slog.String("id", id),
		slog.String("field", field),
		slog.String("replacement", replacement))
}

func foldMatch(fs FieldSpace, field string) string {
	if field == "" {
		return ""
	}
	want := normalizeFieldName(field)
	for _, available := range fs.Fields {
		if normalizeFieldName(available) == want {
			return available
		}
	}
	return ""
}

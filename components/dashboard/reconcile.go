package dashboard

// FieldSpace is the set of fields a specification fragment can reference,
// taken from one sample record.
type FieldSpace struct {
	Fields []string
	Sample Record
}

// NewFieldSpace builds a field space from a sample record. order hints the
// field order; it is ignored when it does not match the sample's keys.
func NewFieldSpace(sample Record, order []string) FieldSpace {
	return FieldSpace{
		Fields: orderedFields(sample, order),
		Sample: sample,
	}
}

// Has reports whether field exists in the sample record.
func (fs FieldSpace) Has(field string) bool {
	if fs.Sample == nil {
		return false
	}
	_, ok := fs.Sample[field]
	return ok
}

// Empty reports whether there is nothing to reconcile against.
func (fs FieldSpace) Empty() bool {
	return len(fs.Fields) == 0
}

// Reconciler resolves field references against a field space.
type Reconciler struct {
	policy FieldPolicy
}

// NewReconciler builds a reconciler using the given policy.
func NewReconciler(policy FieldPolicy) *Reconciler {
	return &Reconciler{policy: normalizePolicy(&policy)}
}

// Policy returns the heuristics in use.
func (r *Reconciler) Policy() FieldPolicy {
	return r.policy
}

// NumericFields lists number-typed fields that are not excluded by name.
func (r *Reconciler) NumericFields(fs FieldSpace) []string {
	out := make([]string, 0, len(fs.Fields))
	for _, field := range fs.Fields {
		if r.policy.excluded(field) {
			continue
		}
		if isNumber(fs.Sample[field]) {
			out = append(out, field)
		}
	}
	return out
}

// ValueFields lists numeric fields usable as chart values.
func (r *Reconciler) ValueFields(fs FieldSpace) []string {
	out := make([]string, 0, len(fs.Fields))
	for _, field := range fs.Fields {
		if r.policy.valueExcluded(field) {
			continue
		}
		if isNumber(fs.Sample[field]) {
			out = append(out, field)
		}
	}
	return out
}

// StringFields lists string-typed fields.
func (r *Reconciler) StringFields(fs FieldSpace) []string {
	out := make([]string, 0, len(fs.Fields))
	for _, field := range fs.Fields {
		if isString(fs.Sample[field]) {
			out = append(out, field)
		}
	}
	return out
}

// AxisFields lists x-axis candidates: string fields, then numeric fields
// whose name is an accepted axis name (year, id).
func (r *Reconciler) AxisFields(fs FieldSpace) []string {
	out := r.StringFields(fs)
	for _, field := range fs.Fields {
		if isNumber(fs.Sample[field]) && containsFold(r.policy.AxisNumericNames, field) {
			out = append(out, field)
		}
	}
	return out
}

// CountField picks the field used by the synthesized count card.
func (r *Reconciler) CountField(fs FieldSpace) string {
	for _, field := range fs.Fields {
		if r.policy.labelHint(field) || containsFold(r.policy.ExcludedNames, field) || isString(fs.Sample[field]) {
			return field
		}
	}
	if len(fs.Fields) > 0 {
		return fs.Fields[0]
	}
	return ""
}

// ResolveAxis resolves an x-axis reference.
func (r *Reconciler) ResolveAxis(fs FieldSpace, field string) (string, bool) {
	return r.resolve(fs, field, r.AxisFields(fs))
}

// ResolveCategory resolves a category or label reference.
func (r *Reconciler) ResolveCategory(fs FieldSpace, field string) (string, bool) {
	return r.resolve(fs, field, r.StringFields(fs))
}

// ResolveValue resolves a numeric value reference.
func (r *Reconciler) ResolveValue(fs FieldSpace, field string) (string, bool) {
	return r.resolve(fs, field, r.ValueFields(fs))
}

// resolve keeps present fields, then tries a case and separator
// insensitive match, then the first candidate. An empty reference or a
// missing candidate leaves the reference untouched.
func (r *Reconciler) resolve(fs FieldSpace, field string, candidates []string) (string, bool) {
	if field == "" || fs.Empty() || fs.Has(field) {
		return field, false
	}
	want := normalizeFieldName(field)
	for _, available := range fs.Fields {
		if normalizeFieldName(available) == want {
			return available, true
		}
	}
	if len(candidates) == 0 {
		return field, false
	}
	return candidates[0], true
}

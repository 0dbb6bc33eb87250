package dashboard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	policyVersionV1 = "1"
	// PolicyVersion is the current field policy file format version.
	PolicyVersion = policyVersionV1
)

// CardRule maps field-name keywords to a default card aggregation.
type CardRule struct {
	Keywords    []string    `json:"keywords" yaml:"keywords"`
	Aggregation Aggregation `json:"aggregation" yaml:"aggregation"`
	Format      string      `json:"format,omitempty" yaml:"format,omitempty"`
	TitlePrefix string      `json:"title_prefix,omitempty" yaml:"title_prefix,omitempty"`
}

func (r CardRule) matches(field string) bool {
	lower := strings.ToLower(field)
	for _, keyword := range r.Keywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// FieldPolicy holds the naming heuristics used by the reconciler and fixer.
type FieldPolicy struct {
	Version             string     `json:"version" yaml:"version"`
	ExcludedNames       []string   `json:"excluded_names" yaml:"excluded_names"`
	ExcludedPrefixes    []string   `json:"excluded_prefixes" yaml:"excluded_prefixes"`
	LabelHints          []string   `json:"label_hints" yaml:"label_hints"`
	MaxNumericCards     int        `json:"max_numeric_cards" yaml:"max_numeric_cards"`
	CardRules           []CardRule `json:"card_rules" yaml:"card_rules"`
	DefaultRule         CardRule   `json:"default_rule" yaml:"default_rule"`
	AxisNumericNames    []string   `json:"axis_numeric_names" yaml:"axis_numeric_names"`
	ValueExcludedNames  []string   `json:"value_excluded_names" yaml:"value_excluded_names"`
	MaxFilterOptions    int        `json:"max_filter_options" yaml:"max_filter_options"`
	DefaultTableColumns int        `json:"default_table_columns" yaml:"default_table_columns"`
	// HeatmapCeiling normalizes heatmap intensities. Zero derives it from the data max.
	HeatmapCeiling float64 `json:"heatmap_ceiling" yaml:"heatmap_ceiling"`
	Source         string  `json:"-" yaml:"-"`
}

// DefaultFieldPolicy returns the built-in heuristics.
func DefaultFieldPolicy() FieldPolicy {
	return FieldPolicy{
		Version:          PolicyVersion,
		ExcludedNames:    []string{"id"},
		ExcludedPrefixes: []string{"unnamed"},
		LabelHints:       []string{"name", "title"},
		MaxNumericCards:  3,
		CardRules: []CardRule{
			{Keywords: []string{"rating", "score"}, Aggregation: AggregateAvg, Format: "decimal", TitlePrefix: "Average"},
			{Keywords: []string{"votes", "count"}, Aggregation: AggregateSum, Format: "number", TitlePrefix: "Total"},
			{Keywords: []string{"year"}, Aggregation: AggregateAvg, Format: "number", TitlePrefix: "Average"},
		},
		DefaultRule:         CardRule{Aggregation: AggregateSum, Format: "number", TitlePrefix: "Total"},
		AxisNumericNames:    []string{"year", "id"},
		ValueExcludedNames:  []string{"year", "id"},
		MaxFilterOptions:    20,
		DefaultTableColumns: 5,
	}
}

// ReadFieldPolicy loads a policy file from disk.
func ReadFieldPolicy(path string) (FieldPolicy, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return FieldPolicy{}, fmt.Errorf("dashboard: open policy %s: %w", path, err)
	}
	defer f.Close()
	policy, err := DecodeFieldPolicy(f)
	if err != nil {
		return FieldPolicy{}, fmt.Errorf("dashboard: decode policy %s: %w", path, err)
	}
	policy.Source = path
	return policy, nil
}

// DecodeFieldPolicy reads a YAML (or JSON) policy. Omitted sections keep
// their defaults.
func DecodeFieldPolicy(r io.Reader) (FieldPolicy, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var policy FieldPolicy
	if err := decoder.Decode(&policy); err != nil {
		if errors.Is(err, io.EOF) {
			return FieldPolicy{}, fmt.Errorf("dashboard: policy is empty")
		}
		return FieldPolicy{}, fmt.Errorf("dashboard: parse policy: %w", err)
	}
	policy.applyDefaults()
	if err := policy.Validate(); err != nil {
		return FieldPolicy{}, err
	}
	return policy, nil
}

// EncodeFieldPolicy writes the policy as YAML.
func EncodeFieldPolicy(w io.Writer, policy FieldPolicy) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(policy); err != nil {
		return fmt.Errorf("dashboard: write policy: %w", err)
	}
	return encoder.Close()
}

// Validate ensures the policy is usable.
func (p FieldPolicy) Validate() error {
	if p.Version != policyVersionV1 {
		return fmt.Errorf("dashboard: unsupported policy version %q", p.Version)
	}
	if p.MaxNumericCards < 0 {
		return fmt.Errorf("dashboard: max_numeric_cards must not be negative")
	}
	if p.MaxFilterOptions <= 0 {
		return fmt.Errorf("dashboard: max_filter_options must be positive")
	}
	if p.DefaultTableColumns <= 0 {
		return fmt.Errorf("dashboard: default_table_columns must be positive")
	}
	if p.HeatmapCeiling < 0 {
		return fmt.Errorf("dashboard: heatmap_ceiling must not be negative")
	}
	for idx, rule := range p.CardRules {
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("dashboard: card rule %d has no keywords", idx)
		}
		if !ValidAggregation(rule.Aggregation) {
			return fmt.Errorf("dashboard: card rule %d has unsupported aggregation %q", idx, rule.Aggregation)
		}
	}
	if !ValidAggregation(p.DefaultRule.Aggregation) {
		return fmt.Errorf("dashboard: default rule has unsupported aggregation %q", p.DefaultRule.Aggregation)
	}
	return nil
}

func (p *FieldPolicy) applyDefaults() {
	defaults := DefaultFieldPolicy()
	if p.Version == "" {
		p.Version = defaults.Version
	}
	if p.ExcludedNames == nil {
		p.ExcludedNames = defaults.ExcludedNames
	}
	if p.ExcludedPrefixes == nil {
		p.ExcludedPrefixes = defaults.ExcludedPrefixes
	}
	if p.LabelHints == nil {
		p.LabelHints = defaults.LabelHints
	}
	if p.CardRules == nil {
		p.CardRules = defaults.CardRules
	}
	if p.MaxNumericCards == 0 {
		p.MaxNumericCards = defaults.MaxNumericCards
	}
	if p.DefaultRule.Aggregation == "" {
		p.DefaultRule = defaults.DefaultRule
	}
	if p.AxisNumericNames == nil {
		p.AxisNumericNames = defaults.AxisNumericNames
	}
	if p.ValueExcludedNames == nil {
		p.ValueExcludedNames = defaults.ValueExcludedNames
	}
	if p.MaxFilterOptions == 0 {
		p.MaxFilterOptions = defaults.MaxFilterOptions
	}
	if p.DefaultTableColumns == 0 {
		p.DefaultTableColumns = defaults.DefaultTableColumns
	}
}

func normalizePolicy(p *FieldPolicy) FieldPolicy {
	if p == nil {
		return DefaultFieldPolicy()
	}
	out := *p
	out.applyDefaults()
	return out
}

// excluded reports fields never used as numeric card or value candidates.
func (p FieldPolicy) excluded(field string) bool {
	lower := strings.ToLower(field)
	for _, name := range p.ExcludedNames {
		if lower == strings.ToLower(name) {
			return true
		}
	}
	for _, prefix := range p.ExcludedPrefixes {
		if prefix != "" && strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func (p FieldPolicy) valueExcluded(field string) bool {
	if p.excluded(field) {
		return true
	}
	return containsFold(p.ValueExcludedNames, field)
}

func (p FieldPolicy) labelHint(field string) bool {
	lower := strings.ToLower(field)
	for _, hint := range p.LabelHints {
		if hint != "" && strings.Contains(lower, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}

// ruleFor returns the card rule for a numeric field.
func (p FieldPolicy) ruleFor(field string) CardRule {
	for _, rule := range p.CardRules {
		if rule.matches(field) {
			return rule
		}
	}
	return p.DefaultRule
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

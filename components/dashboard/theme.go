package dashboard

import (
	"sort"
	"strings"
)

// Theme styles HTML snapshots. It is optional; without one the templates
// fall back to their built-in styles.
type Theme struct {
	Name   string
	Tokens map[string]string
	Assets ThemeAssets
}

// ThemeAssets provides asset paths plus an optional prefix/resolver.
type ThemeAssets struct {
	Values   map[string]string
	Prefix   string
	Resolver func(string) string
}

// AssetURL resolves the final URL for a named asset (logo, favicon, stylesheet).
func (assets ThemeAssets) AssetURL(name string) string {
	if len(assets.Values) == 0 {
		return ""
	}
	path := assets.Values[name]
	if path == "" {
		return ""
	}
	if assets.Resolver != nil {
		if resolved := assets.Resolver(path); resolved != "" {
			return resolved
		}
	}
	if assets.Prefix != "" {
		return strings.TrimRight(assets.Prefix, "/") + "/" + strings.TrimLeft(path, "/")
	}
	return path
}

// Resolved returns a map of asset keys to resolved URLs.
func (assets ThemeAssets) Resolved() map[string]string {
	if len(assets.Values) == 0 {
		return nil
	}
	out := make(map[string]string, len(assets.Values))
	for key := range assets.Values {
		if url := assets.AssetURL(key); url != "" {
			out[key] = url
		}
	}
	return out
}

// CSSVariables normalizes token keys into CSS variable names.
func (t *Theme) CSSVariables() map[string]string {
	if t == nil || len(t.Tokens) == 0 {
		return nil
	}
	vars := make(map[string]string, len(t.Tokens))
	for key, value := range t.Tokens {
		name := normalizeCSSVariable(key)
		if name == "" || value == "" {
			continue
		}
		vars[name] = value
	}
	return vars
}

// CSSVariablesInline renders the variables as a style attribute value,
// sorted by name so snapshots are stable.
func (t *Theme) CSSVariablesInline() string {
	vars := t.CSSVariables()
	if len(vars) == 0 {
		return ""
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	var builder strings.Builder
	for _, name := range names {
		builder.WriteString(name)
		builder.WriteString(": ")
		builder.WriteString(vars[name])
		builder.WriteString("; ")
	}
	return strings.TrimSpace(builder.String())
}

// snapshot flattens the theme for templates.
func (t *Theme) snapshot() map[string]any {
	if t == nil {
		return map[string]any{}
	}
	return map[string]any{
		"name":   t.Name,
		"style":  t.CSSVariablesInline(),
		"assets": t.Assets.Resolved(),
	}
}

func normalizeCSSVariable(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "--") {
		return name
	}
	return "--" + name
}

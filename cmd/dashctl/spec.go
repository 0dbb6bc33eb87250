package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/goliatone/go-querydash/components/dashboard"
	"github.com/goliatone/go-querydash/components/dashboard/echarts"
)

const cliSession = "cli"

type fixCmd struct {
	Input    string `arg:"" optional:"" default:"-" help:"Specification JSON file (- for stdin)."`
	Policy   string `type:"path" help:"Field policy YAML used by the fixer."`
	Out      string `short:"o" default:"-" help:"Output file (- for stdout)."`
	Validate bool   `help:"Validate the input against the specification schema first."`
}

func (cmd *fixCmd) Run(g *Globals) error {
	logger := g.logger(os.Stderr)
	raw, err := readAll(cmd.Input)
	if err != nil {
		return err
	}
	if cmd.Validate {
		if err := dashboard.NewSpecificationValidator().Validate(raw); err != nil {
			return err
		}
	}
	var spec dashboard.Specification
	if err := json.Unmarshal(raw, &spec); err != nil {
		return fmt.Errorf("dashctl: decode specification: %w", err)
	}
	policy, err := loadPolicy(cmd.Policy)
	if err != nil {
		return err
	}
	fixed := dashboard.NewFixer(&policy, logger).Fix(spec)
	return writeJSON(cmd.Out, fixed)
}

type viewCmd struct {
	Input  string   `arg:"" optional:"" default:"-" help:"Specification JSON file (- for stdin)."`
	Policy string   `type:"path" help:"Field policy YAML used by the fixer."`
	Filter []string `short:"f" help:"Filter selection as field=value (JSON values allowed, repeatable)."`
	Out    string   `short:"o" default:"-" help:"Output file (- for stdout)."`
}

func (cmd *viewCmd) Run(g *Globals) error {
	ctx := context.Background()
	service, err := loadedService(ctx, g, cmd.Input, cmd.Policy, cmd.Filter, dashboard.Options{})
	if err != nil {
		return err
	}
	view, err := service.View(ctx, cliSession)
	if err != nil {
		return err
	}
	return writeJSON(cmd.Out, view)
}

type exportCmd struct {
	Input      string   `arg:"" optional:"" default:"-" help:"Specification JSON file (- for stdin)."`
	Policy     string   `type:"path" help:"Field policy YAML used by the fixer."`
	Filter     []string `short:"f" help:"Filter selection as field=value (JSON values allowed, repeatable)."`
	Chart      string   `help:"Export only this chart id."`
	Templates  string   `type:"existingdir" help:"Directory overriding the embedded snapshot templates."`
	Theme      string   `help:"ECharts theme name."`
	AssetsHost string   `name:"assets-host" env:"QUERYDASH_ECHARTS_ASSETS" help:"Host serving the ECharts JavaScript assets."`
	Out        string   `short:"o" default:"-" help:"Output file (- for stdout)."`
}

func (cmd *exportCmd) Run(g *Globals) error {
	ctx := context.Background()
	charts := cmd.chartRenderer()
	opts := dashboard.Options{Charts: charts}
	if cmd.Chart == "" {
		renderer, err := dashboard.NewTemplateRenderer(templatesFS(cmd.Templates))
		if err != nil {
			return fmt.Errorf("dashctl: load templates: %w", err)
		}
		opts.Renderer = renderer
	}
	service, err := loadedService(ctx, g, cmd.Input, cmd.Policy, cmd.Filter, opts)
	if err != nil {
		return err
	}

	out, err := createOutput(cmd.Out)
	if err != nil {
		return err
	}
	defer out.Close()

	if cmd.Chart != "" {
		chart, err := service.Chart(ctx, cliSession, cmd.Chart)
		if err != nil {
			return err
		}
		html, err := charts.RenderChart(ctx, chart)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, html)
		return err
	}
	return service.RenderHTML(ctx, cliSession, out)
}

func (cmd *exportCmd) chartRenderer() *echarts.Renderer {
	var options []echarts.Option
	if cmd.Theme != "" {
		options = append(options, echarts.WithTheme(cmd.Theme))
	}
	if cmd.AssetsHost != "" {
		options = append(options, echarts.WithAssetsHost(cmd.AssetsHost))
	}
	return echarts.NewRenderer(options...)
}

type policyCmd struct {
	Check string `type:"existingfile" help:"Validate this policy file instead of printing the defaults."`
	Out   string `short:"o" default:"-" help:"Output file (- for stdout)."`
}

func (cmd *policyCmd) Run(g *Globals) error {
	logger := g.logger(os.Stderr)
	if cmd.Check != "" {
		policy, err := dashboard.ReadFieldPolicy(cmd.Check)
		if err != nil {
			return err
		}
		logger.Info("policy ok",
			slog.String("source", policy.Source),
			slog.Int("card_rules", len(policy.CardRules)))
		return nil
	}
	out, err := createOutput(cmd.Out)
	if err != nil {
		return err
	}
	defer out.Close()
	return dashboard.EncodeFieldPolicy(out, dashboard.DefaultFieldPolicy())
}

// loadedService builds a single-session service with the specification
// installed and the filters applied.
func loadedService(ctx context.Context, g *Globals, input, policyPath string, filters []string, opts dashboard.Options) (*dashboard.Service, error) {
	raw, err := readAll(input)
	if err != nil {
		return nil, err
	}
	selections, err := parseFilters(filters)
	if err != nil {
		return nil, err
	}
	policy, err := loadPolicy(policyPath)
	if err != nil {
		return nil, err
	}
	opts.Policy = &policy
	opts.Logger = g.logger(os.Stderr)
	opts.NewID = func() string { return cliSession }

	service := dashboard.NewService(opts)
	if _, err := service.NewSession(ctx); err != nil {
		return nil, err
	}
	if err := service.LoadSpecification(ctx, cliSession, raw); err != nil {
		return nil, err
	}
	for _, sel := range selections {
		if err := service.SetFilter(ctx, cliSession, sel.field, sel.value); err != nil {
			return nil, fmt.Errorf("dashctl: filter %s: %w", sel.field, err)
		}
	}
	return service, nil
}

type filterSelection struct {
	field string
	value any
}

// parseFilters reads field=value pairs. Values that look like JSON arrays or
// objects are decoded so multi-select and date range filters can be set.
func parseFilters(values []string) ([]filterSelection, error) {
	out := make([]filterSelection, 0, len(values))
	for _, raw := range values {
		field, value, ok := strings.Cut(raw, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("dashctl: filter %q must be field=value", raw)
		}
		sel := filterSelection{field: field, value: value}
		trimmed := strings.TrimSpace(value)
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
			var decoded any
			if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
				return nil, fmt.Errorf("dashctl: filter %s: %w", field, err)
			}
			sel.value = decoded
		}
		out = append(out, sel)
	}
	return out, nil
}

func templatesFS(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	return os.DirFS(dir)
}

func loadPolicy(path string) (dashboard.FieldPolicy, error) {
	if path == "" {
		return dashboard.DefaultFieldPolicy(), nil
	}
	return dashboard.ReadFieldPolicy(path)
}

func readAll(path string) ([]byte, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("dashctl: read %s: %w", path, err)
	}
	return raw, nil
}

func writeJSON(path string, value any) error {
	out, err := createOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

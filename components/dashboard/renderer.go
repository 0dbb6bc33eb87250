package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// DashboardTemplate is the page template used by RenderHTML.
const DashboardTemplate = "dashboard"

var errMissingRenderer = errors.New("dashboard: renderer not configured")

// Renderer describes the template renderer contract needed by the service.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// ChartRenderer turns a shaped chart into an HTML fragment.
type ChartRenderer interface {
	RenderChart(ctx context.Context, chart RenderableChart) (string, error)
}

// RenderHTML writes a static snapshot of a session's dashboard.
func (s *Service) RenderHTML(ctx context.Context, sessionID string, out io.Writer) error {
	if s.opts.Renderer == nil {
		return errMissingRenderer
	}
	view, err := s.View(ctx, sessionID)
	if err != nil {
		return err
	}
	charts := make([]chartSnapshot, 0, len(view.Charts))
	for _, chart := range view.Charts {
		snap := chartSnapshot{ID: chart.ID, Type: string(chart.Type), Title: chart.Title}
		if s.opts.Charts != nil && !chart.Empty() {
			html, err := s.opts.Charts.RenderChart(ctx, chart)
			if err != nil {
				s.opts.Logger.Warn("dashboard: chart render failed",
					slog.String("chart", chart.ID),
					slog.String("error", err.Error()))
			}
			snap.HTML = html
		}
		charts = append(charts, snap)
	}
	if _, err := s.opts.Renderer.Render(DashboardTemplate, map[string]any{
		"view":   view,
		"charts": charts,
		"tables": tableSnapshots(view.Tables),
		"theme":  s.opts.Theme.snapshot(),
	}, out); err != nil {
		return fmt.Errorf("dashboard: render %s: %w", DashboardTemplate, err)
	}
	return nil
}

type chartSnapshot struct {
	ID    string
	Type  string
	Title string
	HTML  string
}

// tableSnapshot flattens a table page into display strings for templates.
type tableSnapshot struct {
	ID            string
	Title         string
	Headers       []string
	Rows          [][]string
	Page          int
	TotalPages    int
	TotalFiltered int
}

func tableSnapshots(pages []TablePage) []tableSnapshot {
	out := make([]tableSnapshot, 0, len(pages))
	for _, page := range pages {
		snap := tableSnapshot{
			ID:            page.ID,
			Title:         page.Title,
			Page:          page.Page,
			TotalPages:    page.TotalPages,
			TotalFiltered: page.TotalFiltered,
		}
		for _, col := range page.Columns {
			snap.Headers = append(snap.Headers, col.Title())
		}
		for _, row := range page.Rows {
			cells := make([]string, 0, len(page.Columns))
			for _, col := range page.Columns {
				cells = append(cells, stringValue(row[col.Field]))
			}
			snap.Rows = append(snap.Rows, cells)
		}
		out = append(out, snap)
	}
	return out
}

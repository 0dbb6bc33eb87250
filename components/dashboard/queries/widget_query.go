package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-querydash/components/dashboard"
)

// TablePageInput identifies one table of a session.
type TablePageInput struct {
	SessionID string
	TableID   string
}

// ChartInput identifies one chart of a session.
type ChartInput struct {
	SessionID string
	ChartID   string
}

type widgetService interface {
	TablePage(ctx context.Context, sessionID, tableID string) (dashboard.TablePage, error)
	Chart(ctx context.Context, sessionID, chartID string) (dashboard.RenderableChart, error)
}

// TablePageQuery returns the current page of a session table.
type TablePageQuery struct {
	service widgetService
}

// NewTablePageQuery builds the query.
func NewTablePageQuery(service widgetService) *TablePageQuery {
	return &TablePageQuery{service: service}
}

var _ gocommand.Querier[TablePageInput, dashboard.TablePage] = (*TablePageQuery)(nil)

// Query returns the page for the current search, sort and page state.
func (q *TablePageQuery) Query(ctx context.Context, input TablePageInput) (dashboard.TablePage, error) {
	return q.service.TablePage(ctx, input.SessionID, input.TableID)
}

// ChartQuery shapes one chart against the session's filtered rows.
type ChartQuery struct {
	service widgetService
}

// NewChartQuery builds the query.
func NewChartQuery(service widgetService) *ChartQuery {
	return &ChartQuery{service: service}
}

var _ gocommand.Querier[ChartInput, dashboard.RenderableChart] = (*ChartQuery)(nil)

// Query shapes the chart.
func (q *ChartQuery) Query(ctx context.Context, input ChartInput) (dashboard.RenderableChart, error) {
	return q.service.Chart(ctx, input.SessionID, input.ChartID)
}

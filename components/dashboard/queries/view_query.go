package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-querydash/components/dashboard"
)

// ViewInput identifies a dashboard session.
type ViewInput struct {
	SessionID string
}

type viewService interface {
	View(ctx context.Context, sessionID string) (dashboard.DashboardView, error)
}

// DashboardViewQuery returns the full view of a session.
type DashboardViewQuery struct {
	service viewService
}

// NewDashboardViewQuery builds the query.
func NewDashboardViewQuery(service viewService) *DashboardViewQuery {
	return &DashboardViewQuery{service: service}
}

var _ gocommand.Querier[ViewInput, dashboard.DashboardView] = (*DashboardViewQuery)(nil)

// Query resolves the view for the session.
func (q *DashboardViewQuery) Query(ctx context.Context, input ViewInput) (dashboard.DashboardView, error) {
	return q.service.View(ctx, input.SessionID)
}

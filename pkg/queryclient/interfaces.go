package queryclient

import (
	dashboard "github.com/goliatone/go-querydash/components/dashboard"
)

// Client is a convenience union of every backend the dashboard consumes.
type Client interface {
	dashboard.QueryService
	dashboard.DatasetStore
	dashboard.DatasetPreviewer
	dashboard.MappingService
}

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)
)

// Package dashboard re-exports the query dashboard engine for applications
// that do not want to import the components tree directly.
package dashboard

import (
	core "github.com/goliatone/go-querydash/components/dashboard"
	"github.com/goliatone/go-querydash/components/dashboard/echarts"
	"github.com/goliatone/go-querydash/pkg/queryclient"
)

// Service exposes the underlying components/dashboard.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// Specification is the dashboard document returned by the query backend.
type Specification = core.Specification

// DashboardView is a computed snapshot of one session.
type DashboardView = core.DashboardView

// FieldPolicy tunes the configuration fixer heuristics.
type FieldPolicy = core.FieldPolicy

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// NewHTTPService wires a service against a remote backend, with server-side
// chart export and the embedded snapshot templates.
func NewHTTPService(cfg queryclient.HTTPConfig, opts Options) (*Service, error) {
	client, err := queryclient.NewHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	return newWiredService(client, opts)
}

// NewMockService wires a service against in-memory fixtures.
func NewMockService(data queryclient.MockData, opts Options) (*Service, error) {
	return newWiredService(queryclient.NewMockClient(data), opts)
}

func newWiredService(client queryclient.Client, opts Options) (*Service, error) {
	if opts.Queries == nil {
		opts.Queries = client
	}
	if opts.Datasets == nil {
		opts.Datasets = client
	}
	if opts.Mappings == nil {
		opts.Mappings = client
	}
	if opts.Charts == nil {
		opts.Charts = echarts.NewRenderer()
	}
	if opts.Renderer == nil {
		renderer, err := core.NewTemplateRenderer(nil)
		if err != nil {
			return nil, err
		}
		opts.Renderer = renderer
	}
	return core.NewService(opts), nil
}

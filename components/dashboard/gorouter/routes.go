package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-querydash/components/dashboard"
	"github.com/goliatone/go-querydash/components/dashboard/commands"
	"github.com/goliatone/go-querydash/components/dashboard/httpapi"
	"github.com/goliatone/go-querydash/components/dashboard/queries"
)

// Config wires go-router with the dashboard service, API and hooks.
type Config[T any] struct {
	Router    router.Router[T]
	Sessions  httpapi.SessionManager
	Snapshots httpapi.SnapshotRenderer
	API       httpapi.Executor
	Reads     httpapi.Reader
	Charts    dashboard.ChartRenderer
	Broadcast *dashboard.BroadcastHook
	BasePath  string
	Routes    RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	Sessions  string
	Session   string
	Query     string
	Filters   string
	Filter    string
	Table     string
	Chart     string
	HTML      string
	Uploads   string
	WebSocket string
}

// Register mounts dashboard routes (JSON API, HTML snapshot, chart export,
// WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil || cfg.Reads == nil {
		return errors.New("gorouter: api executor and reader are required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/api"
	}
	group := cfg.Router.Group(base)

	if cfg.Sessions != nil {
		group.Post(routes.Sessions, router.WrapHandler(func(ctx router.Context) error {
			controller, err := cfg.Sessions.NewSession(ctx.Context())
			if err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusCreated, controller.View())
		}))
	}

	group.Get(routes.Session, router.WrapHandler(func(ctx router.Context) error {
		return respondView(ctx, cfg.Reads, http.StatusOK)
	}))

	group.Post(routes.Query, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.SubmitQueryInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, invalidBody(err))
		}
		payload.SessionID = ctx.Param("id")
		if err := cfg.API.Submit(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return respondView(ctx, cfg.Reads, http.StatusOK)
	}))

	group.Post(routes.Filters, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.SetFilterInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, invalidBody(err))
		}
		payload.SessionID = ctx.Param("id")
		if err := cfg.API.SetFilter(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return respondView(ctx, cfg.Reads, http.StatusOK)
	}))

	clearFilters := router.WrapHandler(func(ctx router.Context) error {
		input := commands.ClearFiltersInput{SessionID: ctx.Param("id"), Field: ctx.Param("field")}
		if err := cfg.API.ClearFilters(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return respondView(ctx, cfg.Reads, http.StatusOK)
	})
	group.Delete(routes.Filters, clearFilters)
	group.Delete(routes.Filter, clearFilters)

	group.Get(routes.Table, router.WrapHandler(func(ctx router.Context) error {
		return respondTable(ctx, cfg.Reads)
	}))

	group.Post(routes.Table, router.WrapHandler(func(ctx router.Context) error {
		var update dashboard.TableUpdate
		if err := json.Unmarshal(ctx.Body(), &update); err != nil {
			return respondError(ctx, invalidBody(err))
		}
		update.TableID = ctx.Param("table")
		input := commands.UpdateTableInput{SessionID: ctx.Param("id"), Update: update}
		if err := cfg.API.UpdateTable(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return respondTable(ctx, cfg.Reads)
	}))

	group.Get(routes.Chart, router.WrapHandler(func(ctx router.Context) error {
		chart, err := cfg.Reads.Chart(ctx.Context(), queries.ChartInput{
			SessionID: ctx.Param("id"),
			ChartID:   ctx.Param("chart"),
		})
		if err != nil {
			return respondError(ctx, err)
		}
		if ctx.Query("format") != "html" || cfg.Charts == nil {
			return ctx.JSON(http.StatusOK, chart)
		}
		html, err := cfg.Charts.RenderChart(ctx.Context(), chart)
		if err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send([]byte(html))
	}))

	if cfg.Snapshots != nil {
		group.Get(routes.HTML, router.WrapHandler(func(ctx router.Context) error {
			var buf bytes.Buffer
			if err := cfg.Snapshots.RenderHTML(ctx.Context(), ctx.Param("id"), &buf); err != nil {
				return respondError(ctx, err)
			}
			ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
			return ctx.Send(buf.Bytes())
		}))
	}

	group.Get(routes.Uploads, router.WrapHandler(func(ctx router.Context) error {
		tasks, err := cfg.Reads.Uploads(ctx.Context(), queries.UploadStatusInput{ID: ctx.Query("id")})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, tasks)
	}))

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}
	return nil
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func respondView(ctx router.Context, reads httpapi.Reader, status int) error {
	view, err := reads.View(ctx.Context(), queries.ViewInput{SessionID: ctx.Param("id")})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(status, view)
}

func respondTable(ctx router.Context, reads httpapi.Reader) error {
	page, err := reads.TablePage(ctx.Context(), queries.TablePageInput{
		SessionID: ctx.Param("id"),
		TableID:   ctx.Param("table"),
	})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, page)
}

func respondError(ctx router.Context, err error) error {
	status, body := httpapi.StatusFor(err)
	return ctx.JSON(status, body)
}

func invalidBody(err error) error {
	return dashboard.ValidationError("Invalid Request", err.Error(), err)
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Sessions == "" {
		routes.Sessions = "/sessions"
	}
	if routes.Session == "" {
		routes.Session = "/sessions/:id"
	}
	if routes.Query == "" {
		routes.Query = "/sessions/:id/query"
	}
	if routes.Filters == "" {
		routes.Filters = "/sessions/:id/filters"
	}
	if routes.Filter == "" {
		routes.Filter = "/sessions/:id/filters/:field"
	}
	if routes.Table == "" {
		routes.Table = "/sessions/:id/tables/:table"
	}
	if routes.Chart == "" {
		routes.Chart = "/sessions/:id/charts/:chart"
	}
	if routes.HTML == "" {
		routes.HTML = "/sessions/:id/html"
	}
	if routes.Uploads == "" {
		routes.Uploads = "/uploads"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	return routes
}

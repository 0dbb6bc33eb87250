package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-querydash/components/dashboard"
	"github.com/goliatone/go-querydash/components/dashboard/echarts"
	"github.com/goliatone/go-querydash/components/dashboard/gorouter"
	"github.com/goliatone/go-querydash/components/dashboard/httpapi"
	querydash "github.com/goliatone/go-querydash/pkg/dashboard"
	"github.com/goliatone/go-querydash/pkg/metrics"
	"github.com/goliatone/go-querydash/pkg/queryclient"
)

const shutdownTimeout = 10 * time.Second

type serveCmd struct {
	Listen        string        `default:":8080" env:"QUERYDASH_LISTEN" help:"Address for the dashboard API." validate:"required"`
	MetricsListen string        `name:"metrics-listen" default:":9090" env:"QUERYDASH_METRICS_LISTEN" help:"Address for Prometheus metrics (empty disables)."`
	Backend       string        `env:"QUERYDASH_BACKEND_URL" help:"Base URL of the query backend." validate:"required_without=Mock,omitempty,url"`
	APIKey        string        `name:"api-key" env:"QUERYDASH_API_KEY" help:"Bearer token for the query backend."`
	Timeout       time.Duration `default:"30s" env:"QUERYDASH_QUERY_TIMEOUT" help:"Per-query timeout." validate:"gt=0"`
	Concurrency   int           `default:"4" env:"QUERYDASH_UPLOAD_CONCURRENCY" help:"Concurrent dataset uploads." validate:"gte=1,lte=32"`
	Policy        string        `type:"path" env:"QUERYDASH_POLICY" help:"Field policy YAML used by the fixer."`
	BasePath      string        `name:"base-path" default:"/api" env:"QUERYDASH_BASE_PATH" help:"Route prefix for the API." validate:"startswith=/"`
	Mock          bool          `env:"QUERYDASH_MOCK" help:"Serve in-memory fixtures instead of a backend."`
	Fixtures      string        `type:"existingfile" env:"QUERYDASH_FIXTURES" help:"JSON fixtures for --mock."`
}

func (cmd *serveCmd) validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cmd); err != nil {
		return fmt.Errorf("dashctl: invalid serve config: %w", err)
	}
	return nil
}

func (cmd *serveCmd) Run(g *Globals) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	logger := g.logger(os.Stderr)
	policy, err := loadPolicy(cmd.Policy)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	telemetry := metrics.NewPrometheusTelemetry(registry)
	hook := dashboard.NewBroadcastHook()
	charts := echarts.NewRenderer()

	service, err := cmd.service(dashboard.Options{
		Policy:            &policy,
		Charts:            charts,
		Notifier:          dashboard.MultiNotifier{dashboard.LogNotifier{Logger: logger}, hook},
		Telemetry:         telemetry,
		Hooks:             []dashboard.ViewHook{hook},
		Logger:            logger,
		QueryTimeout:      cmd.Timeout,
		UploadConcurrency: cmd.Concurrency,
	})
	if err != nil {
		return err
	}

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:    server.Router(),
		Sessions:  service,
		Snapshots: service,
		API:       httpapi.NewCommandExecutor(service, telemetry),
		Reads:     httpapi.NewQueryReader(service),
		Charts:    charts,
		Broadcast: hook,
		BasePath:  cmd.BasePath,
	}); err != nil {
		return fmt.Errorf("dashctl: register routes: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("dashboard api listening",
			slog.String("addr", cmd.Listen),
			slog.String("base_path", cmd.BasePath),
			slog.Bool("mock", cmd.Mock))
		return server.Serve(cmd.Listen)
	})

	var metricsServer *http.Server
	if cmd.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		metricsServer = &http.Server{Addr: cmd.MetricsListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		group.Go(func() error {
			logger.Info("metrics listening", slog.String("addr", cmd.MetricsListen))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func (cmd *serveCmd) service(opts dashboard.Options) (*dashboard.Service, error) {
	if !cmd.Mock {
		return querydash.NewHTTPService(queryclient.HTTPConfig{
			BaseURL: cmd.Backend,
			APIKey:  cmd.APIKey,
			Timeout: cmd.Timeout,
		}, opts)
	}
	data, err := loadFixtures(cmd.Fixtures)
	if err != nil {
		return nil, err
	}
	return querydash.NewMockService(data, opts)
}

// fixtures is the on-disk shape of --fixtures.
type fixtures struct {
	Specifications map[string]dashboard.Specification  `json:"specifications"`
	Default        *dashboard.Specification            `json:"default"`
	Datasets       []dashboard.Dataset                 `json:"datasets"`
	Previews       map[string]dashboard.DatasetPreview `json:"previews"`
	Relationships  []dashboard.Relationship            `json:"relationships"`
	MappingReads   int                                 `json:"mapping_reads"`
}

func loadFixtures(path string) (queryclient.MockData, error) {
	if path == "" {
		return demoFixtures(), nil
	}
	raw, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return queryclient.MockData{}, fmt.Errorf("dashctl: read fixtures: %w", err)
	}
	var doc fixtures
	if err := json.Unmarshal(raw, &doc); err != nil {
		return queryclient.MockData{}, fmt.Errorf("dashctl: decode fixtures: %w", err)
	}
	data := queryclient.MockData{
		Specifications: doc.Specifications,
		Datasets:       doc.Datasets,
		Previews:       doc.Previews,
		Relationships:  doc.Relationships,
		MappingReads:   doc.MappingReads,
	}
	if doc.Default != nil {
		data.Default = *doc.Default
	} else {
		data.Default = demoFixtures().Default
	}
	return data, nil
}

func demoFixtures() queryclient.MockData {
	regions := []string{"North", "South", "East", "West"}
	products := []string{"Widget", "Gadget", "Gizmo"}
	rows := make([]dashboard.Record, 0, 48)
	for i := 0; i < 48; i++ {
		rows = append(rows, dashboard.Record{
			"order_id": i + 1,
			"region":   regions[i%len(regions)],
			"product":  products[i%len(products)],
			"month":    fmt.Sprintf("2024-%02d", i%12+1),
			"sales":    float64(100 + (i*37)%400),
			"units":    1 + i%9,
		})
	}
	return queryclient.MockData{
		Default: dashboard.Specification{
			Title:       "Sales Overview",
			Description: "Demo orders by region and product.",
			Filters: []dashboard.FilterDefinition{
				{Field: "region", Label: "Region", Type: dashboard.FilterDropdown},
				{Field: "product", Label: "Product", Type: dashboard.FilterMultiSelect},
			},
			Charts: []dashboard.ChartDefinition{
				{ID: "sales-by-region", Type: dashboard.ChartBar, Title: "Sales by Region", XAxis: "region", YAxis: "sales"},
				{ID: "sales-by-month", Type: dashboard.ChartLine, Title: "Sales by Month", XAxis: "month", YAxis: "sales"},
				{ID: "product-share", Type: dashboard.ChartPie, Title: "Product Share", CategoryField: "product", Field: "sales"},
			},
			Data: rows,
		},
	}
}

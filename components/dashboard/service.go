package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	errMissingQueryService = errors.New("dashboard: query service not configured")
	errMissingDatasetStore = errors.New("dashboard: dataset store not configured")
	errMissingPreviewer    = errors.New("dashboard: dataset previews not supported by store")
)

// Options configures the dashboard Service. Every collaborator is provided
// via interface so applications can swap implementations.
type Options struct {
	Queries           QueryService
	Datasets          DatasetStore
	Mappings          MappingService
	Sessions          SessionStore
	Policy            *FieldPolicy
	Shapers           *ShaperRegistry
	Validator         *SpecificationValidator
	Renderer          Renderer
	Theme             *Theme
	Charts            ChartRenderer
	Notifier          Notifier
	Telemetry         Telemetry
	Hooks             []ViewHook
	Logger            *slog.Logger
	QueryTimeout      time.Duration
	UploadConcurrency int
	Poll              PollOptions
	NewID             func() string
	Now               func() time.Time
}

// Service owns dashboard sessions and the dataset/mapping side flows.
type Service struct {
	opts    Options
	fixer   *Fixer
	shaper  *ChartShaper
	uploads *UploadTracker
	schemas singleflight.Group
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	opts.Logger = normalizeLogger(opts.Logger)
	opts.Notifier = normalizeNotifier(opts.Notifier)
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	if opts.Sessions == nil {
		opts.Sessions = NewInMemorySessionStore()
	}
	if opts.Validator == nil {
		opts.Validator = NewSpecificationValidator()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	policy := normalizePolicy(opts.Policy)
	opts.Policy = &policy
	return &Service{
		opts:  opts,
		fixer: NewFixer(&policy, opts.Logger),
		shaper: NewChartShaper(opts.Shapers, ShapeConfig{
			HeatmapCeiling: policy.HeatmapCeiling,
			Logger:         opts.Logger,
		}),
		uploads: NewUploadTracker(opts.Now),
	}
}

// Fixer returns the configuration fixer shared by all sessions.
func (s *Service) Fixer() *Fixer {
	return s.fixer
}

// Shaper returns the chart shaper shared by all sessions.
func (s *Service) Shaper() *ChartShaper {
	return s.shaper
}

// Uploads returns the upload tracker.
func (s *Service) Uploads() *UploadTracker {
	return s.uploads
}

// NewSession creates and stores a controller with a fresh id.
func (s *Service) NewSession(ctx context.Context) (*Controller, error) {
	controller := NewController(ControllerOptions{
		ID:        s.opts.NewID(),
		Queries:   s.opts.Queries,
		Fixer:     s.fixer,
		Shaper:    s.shaper,
		Validator: s.opts.Validator,
		Notifier:  s.opts.Notifier,
		Telemetry: s.opts.Telemetry,
		Hooks:     s.opts.Hooks,
		Logger:    s.opts.Logger,
		Timeout:   s.opts.QueryTimeout,
		Now:       s.opts.Now,
	})
	if err := s.opts.Sessions.Put(ctx, controller); err != nil {
		return nil, err
	}
	return controller, nil
}

// Session looks up a controller by id.
func (s *Service) Session(ctx context.Context, id string) (*Controller, error) {
	controller, ok := s.opts.Sessions.Get(ctx, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return controller, nil
}

// CloseSession drops a session.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	return s.opts.Sessions.Delete(ctx, id)
}

// Submit runs a query in a session.
func (s *Service) Submit(ctx context.Context, sessionID, text string) error {
	if s.opts.Queries == nil {
		return errMissingQueryService
	}
	controller, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	return controller.Submit(ctx, text)
}

// LoadSpecification installs manually supplied JSON into a session.
func (s *Service) LoadSpecification(ctx context.Context, sessionID string, raw []byte) error {
	controller, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	return controller.LoadJSON(ctx, raw)
}

// SetFilter changes one filter selection in a session.
func (s *Service) SetFilter(ctx context.Context, sessionID, field string, value any) error {
	controller, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	return controller.SetFilter(ctx, field, value)
}

// ClearFilters clears one filter, or all of them when field is empty.
func (s *Service) ClearFilters(ctx context.Context, sessionID, field string) error {
	controller, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	return controller.ClearFilter(ctx, field)
}

// UpdateTable applies search, sort or paging to a session table.
func (s *Service) UpdateTable(ctx context.Context, sessionID string, update TableUpdate) (TablePage, error) {
	controller, err := s.Session(ctx, sessionID)
	if err != nil {
		return TablePage{}, err
	}
	return controller.UpdateTable(ctx, update)
}

// View returns a session's full dashboard view.
func (s *Service) View(ctx context.Context, sessionID string) (DashboardView, error) {
	controller, err := s.Session(ctx, sessionID)
	if err != nil {
		return DashboardView{}, err
	}
	return controller.View(), nil
}

// TablePage returns the current page of one session table.
func (s *Service) TablePage(ctx context.Context, sessionID, tableID string) (TablePage, error) {
	controller, err := s.Session(ctx, sessionID)
	if err != nil {
		return TablePage{}, err
	}
	return controller.TablePage(tableID)
}

// Chart shapes one session chart.
func (s *Service) Chart(ctx context.Context, sessionID, chartID string) (RenderableChart, error) {
	controller, err := s.Session(ctx, sessionID)
	if err != nil {
		return RenderableChart{}, err
	}
	return controller.Chart(chartID)
}

// PreviewDataset loads a page of raw dataset rows into a session.
func (s *Service) PreviewDataset(ctx context.Context, sessionID, datasetID string, page, pageSize int) error {
	previewer, ok := s.opts.Datasets.(DatasetPreviewer)
	if !ok {
		return errMissingPreviewer
	}
	controller, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	preview, err := previewer.Preview(ctx, datasetID, page, pageSize)
	if err != nil {
		return fmt.Errorf("dashboard: preview dataset %s: %w", datasetID, err)
	}
	controller.Load(ctx, PreviewSpecification(datasetID, preview))
	return nil
}

// ListDatasets pages through the dataset catalogue.
func (s *Service) ListDatasets(ctx context.Context, params ListParams) (DatasetPage, error) {
	if s.opts.Datasets == nil {
		return DatasetPage{}, errMissingDatasetStore
	}
	return s.opts.Datasets.List(ctx, params)
}

// DeleteDatasets removes datasets one by one and reports the first failure.
func (s *Service) DeleteDatasets(ctx context.Context, ids ...string) error {
	if s.opts.Datasets == nil {
		return errMissingDatasetStore
	}
	for _, id := range ids {
		if err := s.opts.Datasets.Delete(ctx, id); err != nil {
			s.opts.Notifier.Notify(ctx, Notification{
				Title:       "Delete Failed",
				Description: fmt.Sprintf("Could not delete dataset %s.", id),
				Severity:    SeverityError,
			})
			return fmt.Errorf("dashboard: delete dataset %s: %w", id, err)
		}
	}
	s.opts.Notifier.Notify(ctx, Notification{
		Title:       "Datasets Deleted",
		Description: fmt.Sprintf("%d dataset(s) deleted.", len(ids)),
		Severity:    SeveritySuccess,
	})
	return nil
}

// DatasetSchema fetches a schema; concurrent lookups for one id share a call.
func (s *Service) DatasetSchema(ctx context.Context, id string) (DatasetSchema, error) {
	if s.opts.Datasets == nil {
		return DatasetSchema{}, errMissingDatasetStore
	}
	value, err, _ := s.schemas.Do(id, func() (any, error) {
		return s.opts.Datasets.Schema(ctx, id)
	})
	if err != nil {
		return DatasetSchema{}, err
	}
	return value.(DatasetSchema), nil
}

// UploadDatasets uploads files concurrently, tracking each independently.
func (s *Service) UploadDatasets(ctx context.Context, files []UploadFile, meta DatasetMetadata) []UploadTask {
	uploader := &BatchUploader{
		Store:       s.opts.Datasets,
		Tracker:     s.uploads,
		Notifier:    s.opts.Notifier,
		Telemetry:   s.opts.Telemetry,
		Logger:      s.opts.Logger,
		Concurrency: s.opts.UploadConcurrency,
	}
	return uploader.Upload(ctx, files, meta)
}

// GenerateMapping triggers mapping generation and polls for the result.
func (s *Service) GenerateMapping(ctx context.Context) (Mapping, error) {
	mapping, err := PollMapping(ctx, s.opts.Mappings, s.opts.Poll)
	if err != nil {
		note := Notification{Title: "Mapping Failed", Description: err.Error(), Severity: SeverityError}
		if errors.Is(err, ErrMappingPending) {
			note = Notification{
				Title:       "Mapping Generation Started",
				Description: "Your organization mapping is being generated. This may take a few moments.",
				Severity:    SeverityInfo,
			}
		}
		s.opts.Notifier.Notify(ctx, note)
		return mapping, err
	}
	s.opts.Notifier.Notify(ctx, Notification{
		Title:       "Mapping Generated",
		Description: "Your organization mapping has been successfully generated.",
		Severity:    SeveritySuccess,
	})
	s.opts.Telemetry.Record(ctx, EventMappingCompleted, map[string]any{"relationships": len(mapping.Relationships)})
	return mapping, nil
}

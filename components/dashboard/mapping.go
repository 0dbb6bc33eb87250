package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMappingPending is returned when polling gives up while the mapping
	// is still being generated.
	ErrMappingPending = errors.New("dashboard: mapping generation still in progress")
	// ErrMappingFailed is returned when the backend reports a failed mapping.
	ErrMappingFailed = errors.New("dashboard: mapping generation failed")
)

// MappingStatus is the state of an organization mapping.
type MappingStatus string

const (
	MappingGenerating MappingStatus = "generating"
	MappingReady      MappingStatus = "ready"
	MappingError      MappingStatus = "error"
)

// MappingJob is the response to a generation request: "started" or "completed".
type MappingJob struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Relationship links columns across datasets.
type Relationship struct {
	ID               string  `json:"id"`
	FromTable        string  `json:"from_table"`
	FromColumn       string  `json:"from_column"`
	ToTable          string  `json:"to_table"`
	ToColumn         string  `json:"to_column"`
	Confidence       float64 `json:"confidence"`
	RelationshipType string  `json:"relationship_type,omitempty"`
	Status           string  `json:"status,omitempty"`
}

// Mapping is the generated relationship map for an organization.
type Mapping struct {
	Status        MappingStatus  `json:"status"`
	Relationships []Relationship `json:"relationships,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at,omitempty"`
}

// MappingService triggers and reads mapping generation.
type MappingService interface {
	GenerateMapping(ctx context.Context) (MappingJob, error)
	GetMapping(ctx context.Context) (Mapping, error)
}

// PollOptions bounds the mapping poll loop.
type PollOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultPollOptions waits 2s, 4s, 8s... capped at 30s, for up to 8 reads.
func DefaultPollOptions() PollOptions {
	return PollOptions{
		MaxAttempts:  8,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
	}
}

func (o PollOptions) withDefaults() PollOptions {
	defaults := DefaultPollOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaults.MaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = defaults.InitialDelay
	}
	if o.MaxDelay < o.InitialDelay {
		o.MaxDelay = o.InitialDelay
	}
	if o.Multiplier < 1 {
		o.Multiplier = defaults.Multiplier
	}
	return o
}

// PollMapping triggers generation and reads the mapping until it leaves the
// generating state, backing off exponentially between reads.
func PollMapping(ctx context.Context, source MappingService, opts PollOptions) (Mapping, error) {
	if source == nil {
		return Mapping{}, errors.New("dashboard: mapping service is not configured")
	}
	opts = opts.withDefaults()

	job, err := source.GenerateMapping(ctx)
	if err != nil {
		return Mapping{}, fmt.Errorf("dashboard: generate mapping: %w", err)
	}

	delay := opts.InitialDelay
	if job.Status == "completed" {
		delay = 0
	}
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Mapping{}, ctx.Err()
			case <-timer.C:
			}
		}
		mapping, err := source.GetMapping(ctx)
		if err != nil {
			return Mapping{}, fmt.Errorf("dashboard: read mapping: %w", err)
		}
		switch mapping.Status {
		case MappingGenerating:
		case MappingError:
			return mapping, fmt.Errorf("%w: %s", ErrMappingFailed, mapping.ErrorMessage)
		default:
			return mapping, nil
		}
		if delay == 0 {
			delay = opts.InitialDelay
		} else {
			delay = time.Duration(float64(delay) * opts.Multiplier)
		}
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}
	return Mapping{}, ErrMappingPending
}

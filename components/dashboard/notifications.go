package dashboard

import (
	"context"
	"log/slog"
)

// Severity is the tone of a user-facing notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a fire-and-forget toast message.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Notifier receives user-facing messages. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, note Notification)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) {}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the notification at a level matching its severity.
func (n LogNotifier) Notify(ctx context.Context, note Notification) {
	level := slog.LevelInfo
	switch note.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	normalizeLogger(n.Logger).Log(ctx, level, note.Title,
		slog.String("description", note.Description),
		slog.String("severity", string(note.Severity)))
}

// MultiNotifier fans a notification out to several sinks.
type MultiNotifier []Notifier

// Notify forwards to every non-nil sink.
func (m MultiNotifier) Notify(ctx context.Context, note Notification) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, note)
		}
	}
}

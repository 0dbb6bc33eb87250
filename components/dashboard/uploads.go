package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// UploadStatus is the lifecycle of one upload.
type UploadStatus string

const (
	UploadUploading  UploadStatus = "uploading"
	UploadProcessing UploadStatus = "processing"
	UploadComplete   UploadStatus = "complete"
	UploadFailed     UploadStatus = "error"
)

// UploadTask tracks one file upload.
type UploadTask struct {
	ID        string       `json:"id"`
	FileName  string       `json:"file_name"`
	Size      int64        `json:"size"`
	Progress  int          `json:"progress"`
	Status    UploadStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	DatasetID string       `json:"dataset_id,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// Finished reports whether the task reached a terminal status.
func (t UploadTask) Finished() bool {
	return t.Status == UploadComplete || t.Status == UploadFailed
}

// UploadTracker keeps per-upload progress keyed by "<filename>-<unix ms>".
// Each upload writes only to its own key.
type UploadTracker struct {
	mu    sync.RWMutex
	tasks map[string]*UploadTask
	order []string
	now   func() time.Time
}

// NewUploadTracker builds a tracker. A nil clock uses time.Now.
func NewUploadTracker(now func() time.Time) *UploadTracker {
	if now == nil {
		now = time.Now
	}
	return &UploadTracker{tasks: map[string]*UploadTask{}, now: now}
}

// Start registers a new upload and returns its id.
func (t *UploadTracker) Start(file UploadFile) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	started := t.now()
	stamp := started.UnixMilli()
	id := fmt.Sprintf("%s-%d", file.Name, stamp)
	for {
		if _, exists := t.tasks[id]; !exists {
			break
		}
		stamp++
		id = fmt.Sprintf("%s-%d", file.Name, stamp)
	}
	t.tasks[id] = &UploadTask{
		ID:        id,
		FileName:  file.Name,
		Size:      file.Size,
		Status:    UploadUploading,
		StartedAt: started,
	}
	t.order = append(t.order, id)
	return id
}

// Progress records upload progress. Reaching 100 moves the task to
// processing until the store responds.
func (t *UploadTracker) Progress(id string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.update(id, func(task *UploadTask) {
		if task.Finished() {
			return
		}
		task.Progress = percent
		if percent == 100 {
			task.Status = UploadProcessing
		}
	})
}

// Complete marks the upload as stored.
func (t *UploadTracker) Complete(id, datasetID string) {
	t.update(id, func(task *UploadTask) {
		task.Progress = 100
		task.Status = UploadComplete
		task.DatasetID = datasetID
	})
}

// Fail records an upload error.
func (t *UploadTracker) Fail(id string, err error) {
	t.update(id, func(task *UploadTask) {
		task.Status = UploadFailed
		if err != nil {
			task.Error = err.Error()
		}
	})
}

func (t *UploadTracker) update(id string, fn func(*UploadTask)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[id]; ok {
		fn(task)
	}
}

// Task returns a copy of one task.
func (t *UploadTracker) Task(id string) (UploadTask, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	task, ok := t.tasks[id]
	if !ok {
		return UploadTask{}, false
	}
	return *task, true
}

// Tasks returns copies of all tasks in start order.
func (t *UploadTracker) Tasks() []UploadTask {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]UploadTask, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.tasks[id])
	}
	return out
}

// ClearFinished drops completed and failed tasks.
func (t *UploadTracker) ClearFinished() {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.order[:0]
	for _, id := range t.order {
		if t.tasks[id].Finished() {
			delete(t.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

// BatchUploader uploads several files concurrently. A failing file never
// cancels its siblings.
type BatchUploader struct {
	Store     DatasetStore
	Tracker   *UploadTracker
	Notifier  Notifier
	Telemetry Telemetry
	Logger    *slog.Logger
	// Concurrency caps parallel uploads; zero means 3.
	Concurrency int
}

// Upload sends files and returns their final task states in input order.
func (b *BatchUploader) Upload(ctx context.Context, files []UploadFile, meta DatasetMetadata) []UploadTask {
	tracker := b.Tracker
	if tracker == nil {
		tracker = NewUploadTracker(nil)
	}
	notifier := normalizeNotifier(b.Notifier)
	telemetry := normalizeTelemetry(b.Telemetry)
	logger := normalizeLogger(b.Logger)
	limit := b.Concurrency
	if limit <= 0 {
		limit = 3
	}

	ids := make([]string, len(files))
	for idx, file := range files {
		ids[idx] = tracker.Start(file)
	}

	var group errgroup.Group
	group.SetLimit(limit)
	for idx, file := range files {
		id := ids[idx]
		group.Go(func() error {
			fileMeta := meta
			if fileMeta.Name == "" || len(files) > 1 {
				fileMeta.Name = file.Name
			}
			if b.Store == nil {
				err := UploadError(file.Name, fmt.Errorf("dataset store is not configured"))
				tracker.Fail(id, err)
				return nil
			}
			dataset, err := b.Store.Upload(ctx, file, fileMeta, func(percent int) {
				tracker.Progress(id, percent)
			})
			if err != nil {
				uploadErr := UploadError(file.Name, err)
				tracker.Fail(id, uploadErr)
				logger.Warn("dashboard: upload failed", slog.String("file", file.Name), slog.String("error", err.Error()))
				notifier.Notify(ctx, uploadErr.Notification())
				telemetry.Record(ctx, EventUploadFailed, map[string]any{"file": file.Name})
				return nil
			}
			tracker.Complete(id, dataset.ID)
			notifier.Notify(ctx, Notification{
				Title:       "Upload Complete",
				Description: fmt.Sprintf("%s uploaded successfully.", file.Name),
				Severity:    SeveritySuccess,
			})
			telemetry.Record(ctx, EventUploadCompleted, map[string]any{"file": file.Name, "dataset_id": dataset.ID})
			return nil
		})
	}
	_ = group.Wait()

	out := make([]UploadTask, len(ids))
	for idx, id := range ids {
		out[idx], _ = tracker.Task(id)
	}
	return out
}

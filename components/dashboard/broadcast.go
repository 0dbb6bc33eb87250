package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event kinds carried by ViewEvent.
const (
	ViewEventUpdated      = "view"
	ViewEventNotification = "notification"
)

// ViewEvent announces that a session's derived view changed.
type ViewEvent struct {
	Kind         string        `json:"kind"`
	Session      string        `json:"session,omitempty"`
	Version      uint64        `json:"version,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	State        State         `json:"state,omitempty"`
	Rows         int           `json:"rows"`
	Notification *Notification `json:"notification,omitempty"`
	At           time.Time     `json:"at"`
}

// ViewHook is notified after every recompute of a session's view.
type ViewHook interface {
	ViewUpdated(ctx context.Context, event ViewEvent) error
}

// BroadcastHook fans out view events and notifications to in-process
// subscribers. Slow subscribers miss events rather than block publishers.
type BroadcastHook struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

type subscriber struct {
	session string
	ch      chan ViewEvent
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{
		subs: make(map[int]subscriber),
	}
}

// ViewUpdated satisfies ViewHook.
func (h *BroadcastHook) ViewUpdated(_ context.Context, event ViewEvent) error {
	h.publish(event)
	return nil
}

// Notify satisfies Notifier so toasts reach connected clients too.
func (h *BroadcastHook) Notify(_ context.Context, note Notification) {
	h.publish(ViewEvent{
		Kind:         ViewEventNotification,
		Notification: &note,
		At:           time.Now().UTC(),
	})
}

func (h *BroadcastHook) publish(event ViewEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.session != "" && event.Session != "" && sub.session != event.Session {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel of all events and a cancel func.
func (h *BroadcastHook) Subscribe() (<-chan ViewEvent, func()) {
	return h.SubscribeSession("")
}

// SubscribeSession only delivers events for session (plus notifications).
// An empty session receives everything.
func (h *BroadcastHook) SubscribeSession(session string) (<-chan ViewEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan ViewEvent, 16)
	h.subs[id] = subscriber{session: session, ch: ch}
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams events as JSON. The
// optional "session" query parameter narrows the stream.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer conn.Close()

	events, cancel := h.SubscribeSession(r.URL.Query().Get("session"))
	defer cancel()

	// Reading processes control frames; a failed read means the client left.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams events as Server-Sent Events.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := h.SubscribeSession(r.URL.Query().Get("session"))
	defer cancel()

	encoder := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if _, err := w.Write([]byte("event: " + event.Kind + "\ndata: ")); err != nil {
				return
			}
			if err := encoder.Encode(event); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

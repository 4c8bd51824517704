// Package sse streams review progress events over Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/sdra/pkg/observability"
)

// Broker is an observability.Observer that fans events out to connected
// SSE clients. Slow clients drop events instead of blocking the review.
type Broker struct {
	mu      sync.RWMutex
	clients map[chan observability.Event]struct{}
	seq     atomic.Uint64
}

// NewBroker creates a broker with no clients.
func NewBroker() *Broker {
	return &Broker{clients: make(map[chan observability.Event]struct{})}
}

// OnEvent forwards event to every client.
func (b *Broker) OnEvent(ctx context.Context, event observability.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- event:
		default:
			// Drop if client is slow
		}
	}
}

// Clients returns the number of connected clients.
func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

type wireEvent struct {
	Type      string         `json:"type"`
	Level     string         `json:"level"`
	Timestamp string         `json:"timestamp"`
	Source    string         `json:"source"`
	Data      map[string]any `json:"data,omitempty"`
}

// ServeHTTP handles SSE connections. The optional "types" query parameter
// is a comma-separated list of event types or type prefixes ending in ".".
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	var filters []string
	if types := r.URL.Query().Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filters = append(filters, t)
			}
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan observability.Event, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			if !matches(filters, string(event.Type)) {
				continue
			}
			data, err := json.Marshal(wireEvent{
				Type:      string(event.Type),
				Level:     event.Level.String(),
				Timestamp: event.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
				Source:    event.Source,
				Data:      event.Data,
			})
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %d\n", b.seq.Add(1))
			_, _ = fmt.Fprintf(w, "event: %s\n", event.Type)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func matches(filters []string, typ string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f == typ || (strings.HasSuffix(f, ".") && strings.HasPrefix(typ, f)) {
			return true
		}
	}
	return false
}

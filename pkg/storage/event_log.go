package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/sdra/pkg/domain"
)

// EventsFile is the audit log file name inside the log directory.
const EventsFile = "events.jsonl"

// ErrChainBroken is returned by Verify when an entry's hash does not match.
var ErrChainBroken = errors.New("audit chain broken")

// EventLog is an append-only, hash-chained JSON Lines audit log.
type EventLog struct {
	mu          sync.Mutex
	dir         string
	path        string
	lastHash    string
	retryConfig retry.Config
	now         func() time.Time
}

// NewEventLog opens the log in dir and resumes the chain from its last
// entry. The directory is created on first write.
func NewEventLog(dir string) (*EventLog, error) {
	l := &EventLog{
		dir:  dir,
		path: filepath.Join(dir, EventsFile),
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
		now: time.Now,
	}

	events, err := l.Load()
	if err != nil {
		return nil, err
	}
	if n := len(events); n > 0 {
		l.lastHash = events[n-1].Hash
	}
	return l, nil
}

// Path is the log file location.
func (l *EventLog) Path() string {
	return l.path
}

// Log implements domain.AuditLogger.
func (l *EventLog) Log(action, actor string, metadata map[string]any) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate event id: %w", err)
	}
	return l.Append(&domain.Event{
		ID:        id.String(),
		Timestamp: l.now().UTC(),
		Action:    action,
		Actor:     actor,
		Metadata:  metadata,
	})
}

// Append chains event to the previous entry and writes it.
func (l *EventLog) Append(event *domain.Event) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	event.PrevHash = l.lastHash
	event.Hash = event.CalculateHash()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// G301: Use 0700 for directories
	if err := os.MkdirAll(l.dir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// #nosec G304 -- Path is fixed at construction
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open events file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close events file: %w", cerr)
		}
	}()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	l.lastHash = event.Hash
	return nil
}

// Load returns every entry in order. Malformed lines are skipped. A
// missing file is an empty log.
func (l *EventLog) Load() ([]domain.Event, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return []domain.Event{}, nil
	}

	retryer := retry.New[[]byte](l.retryConfig)
	data, err := retryer.Do(context.Background(), func(ctx context.Context) ([]byte, error) {
		// #nosec G304 -- Path is fixed at construction
		return os.ReadFile(l.path)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}

	var events []domain.Event
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e domain.Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Verify recomputes every hash and checks each link to its predecessor.
func (l *EventLog) Verify() error {
	events, err := l.Load()
	if err != nil {
		return err
	}

	prev := ""
	for i := range events {
		e := events[i]
		if e.PrevHash != prev {
			return fmt.Errorf("%w: event %d (%s) does not link to its predecessor", ErrChainBroken, i, e.ID)
		}
		if e.CalculateHash() != e.Hash {
			return fmt.Errorf("%w: event %d (%s) hash mismatch", ErrChainBroken, i, e.ID)
		}
		prev = e.Hash
	}
	return nil
}

package domain

import (
	"errors"
	"testing"
	"time"
)

func TestEventCalculateHashDeterminism(t *testing.T) {
	event := &Event{
		ID:        "e1",
		Action:    "review.started",
		Actor:     "sdra",
		Timestamp: time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC),
		PrevHash:  "prev",
		Metadata:  map[string]any{"b": 2, "a": 1},
	}

	first := event.CalculateHash()
	second := event.CalculateHash()
	if first != second {
		t.Fatalf("expected deterministic hash: %s vs %s", first, second)
	}

	event.ID = "e2"
	if first == event.CalculateHash() {
		t.Fatalf("hash should change when ID changes")
	}
}

func TestEventCalculateHash_MetadataOrderIndependent(t *testing.T) {
	ts := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	a := &Event{ID: "e", Timestamp: ts, Metadata: map[string]any{"x": 1, "y": "z"}}
	b := &Event{ID: "e", Timestamp: ts, Metadata: map[string]any{"y": "z", "x": 1}}
	if a.CalculateHash() != b.CalculateHash() {
		t.Fatal("metadata insertion order must not change the hash")
	}
}

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		err    error
		target error
		msg    string
	}{
		{&ConfigError{Field: "models", Reason: "empty"}, ErrConfig, "models: empty"},
		{&ValidationError{Reason: "requirements missing"}, ErrValidation, "requirements missing"},
		{&StateError{Operation: "refine", Requires: "requirements are parsed"}, ErrState, "cannot refine before requirements are parsed"},
		{&NotFoundError{Kind: "prompt", Name: "v1/x.md"}, ErrNotFound, `prompt "v1/x.md" not found`},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.target) {
			t.Errorf("%T should match %v", tt.err, tt.target)
		}
		if tt.err.Error() != tt.msg {
			t.Errorf("got %q, want %q", tt.err.Error(), tt.msg)
		}
	}
}

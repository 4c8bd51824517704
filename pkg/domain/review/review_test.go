package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/felixgeelhaar/sdra/pkg/domain"
)

func TestModelOutput_String(t *testing.T) {
	ok := Success("openai:gpt-4o", `{"a":1}`)
	if !ok.OK() || ok.String() != `{"a":1}` {
		t.Errorf("unexpected success output: %+v", ok)
	}

	bad := Failure("gemini:flash", fmt.Errorf("timeout"))
	if bad.OK() {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(bad.String(), "[model error] gemini:flash:") {
		t.Errorf("String() = %q", bad.String())
	}
}

func TestSuccessfulTexts(t *testing.T) {
	outs := []ModelOutput{Success("a", "1"), Failure("b", fmt.Errorf("x")), Success("c", "3")}
	got := SuccessfulTexts(outs)
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Errorf("SuccessfulTexts = %v", got)
	}
}

func TestDocument_Variants(t *testing.T) {
	if !EmptyDocument().IsEmptyObject() {
		t.Error("EmptyDocument should be {}")
	}

	d := ParseDocument(` {"threats":[1]} `)
	if d.Kind() != DocumentJSON {
		t.Fatalf("Kind = %s", d.Kind())
	}
	if d.Text() != `{"threats":[1]}` {
		t.Errorf("Text = %q", d.Text())
	}

	raw := ParseDocument("not json")
	if raw.Kind() != DocumentRaw || raw.Text() != "not json" {
		t.Errorf("raw doc = %+v", raw)
	}

	scalar := ParseDocument("42")
	if scalar.Kind() != DocumentRaw {
		t.Errorf("scalar JSON should stay raw, got %s", scalar.Kind())
	}

	failed := MergeFailed(fmt.Errorf("arbiter down"))
	if !failed.Failed() {
		t.Fatal("expected failure sentinel")
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(failed.Text()), &payload); err != nil {
		t.Fatalf("failure text is not JSON: %v", err)
	}
	if payload["error"] != "merge_failed" || payload["cause"] != "arbiter down" {
		t.Errorf("payload = %v", payload)
	}
}

func TestDocument_Pretty(t *testing.T) {
	d := ParseDocument(`{"a":[1,2]}`)
	if !strings.Contains(d.Pretty(), "\n  \"a\"") {
		t.Errorf("Pretty() = %q", d.Pretty())
	}
}

func TestSuggestionList(t *testing.T) {
	if !NoChanges().None() || NoChanges().Text() != "None" {
		t.Error("NoChanges sentinel is wrong")
	}

	raw := json.RawMessage(`[{"category":"stride","location":"api","issue":"i","rationale":"r","suggested_change":"c"}, 7]`)
	l := NewSuggestionList(raw)
	if l.None() {
		t.Fatal("list should not be None")
	}
	if l.Len() != 2 {
		t.Errorf("Len = %d, want 2", l.Len())
	}
	if len(l.Items) != 1 || l.Items[0].Category != CategorySTRIDE {
		t.Errorf("Items = %+v", l.Items)
	}
	if l.Text() != string(raw) {
		t.Errorf("Text should be the raw array")
	}
}

func TestSession_Ordering(t *testing.T) {
	s := NewSession("docs")
	if s.ID == "" {
		t.Fatal("expected session ID")
	}

	if err := s.SetPhase1("x"); !errors.Is(err, domain.ErrState) {
		t.Errorf("SetPhase1 before requirements: got %v", err)
	}
	if err := s.SetRequirements("   "); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank requirements: got %v", err)
	}
	if err := s.SetRequirements("design"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPhase2("y"); !errors.Is(err, domain.ErrState) {
		t.Errorf("SetPhase2 before phase 1: got %v", err)
	}
	if err := s.SetPhase1("p1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFinalReport("r"); !errors.Is(err, domain.ErrState) {
		t.Errorf("SetFinalReport before phase 2: got %v", err)
	}
	if err := s.SetPhase2("p2"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFinalReport("r"); err != nil {
		t.Fatal(err)
	}
}

func TestRefineMachine_Converges(t *testing.T) {
	m, err := NewRefineMachine(2)
	if err != nil {
		t.Fatal(err)
	}
	if m.Current() != StateRound || m.Round() != 1 {
		t.Fatalf("initial state = %s round %d", m.Current(), m.Round())
	}
	if err := m.Converge(); err != nil {
		t.Fatal(err)
	}
	if !m.Done() || m.Current() != StateConverged {
		t.Errorf("state = %s", m.Current())
	}
	if err := m.Converge(); err == nil {
		t.Error("expected error after terminal state")
	}
}

func TestRefineMachine_ExhaustsBudget(t *testing.T) {
	m, err := NewRefineMachine(2)
	if err != nil {
		t.Fatal(err)
	}

	more, err := m.Advance()
	if err != nil || !more {
		t.Fatalf("first Advance = %v, %v", more, err)
	}
	if m.Round() != 2 || m.Current() != StateRound {
		t.Fatalf("after first advance: %s round %d", m.Current(), m.Round())
	}

	more, err = m.Advance()
	if err != nil || more {
		t.Fatalf("second Advance = %v, %v", more, err)
	}
	if m.Current() != StateExhausted {
		t.Errorf("state = %s, want %s", m.Current(), StateExhausted)
	}
}

func TestRefineMachine_ClampsBudget(t *testing.T) {
	m, err := NewRefineMachine(0)
	if err != nil {
		t.Fatal(err)
	}
	if m.MaxRounds() != 1 {
		t.Errorf("MaxRounds = %d", m.MaxRounds())
	}
	more, err := m.Advance()
	if err != nil || more {
		t.Fatalf("Advance = %v, %v", more, err)
	}
	if m.Current() != StateExhausted {
		t.Errorf("state = %s", m.Current())
	}
}

package review

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Refinement states. Converged and exhausted are terminal.
const (
	StateRound     = "round"
	StateConverged = "converged"
	StateExhausted = "exhausted"
)

// Refinement events.
const (
	EventNoChanges   = "no_changes"
	EventSuggestions = "suggestions"
	EventBudgetSpent = "budget_spent"
)

// DefaultMaxRounds is the round budget when none is configured.
const DefaultMaxRounds = 2

type roundBudget struct {
	max     int
	current int
}

func (b *roundBudget) remaining() int {
	return b.max - b.current
}

// RefineContext carries the round budget into statekit guards.
type RefineContext struct {
	budget *roundBudget
}

// RefineMachine tracks one refinement loop: Round(n) until the evaluator
// reports no changes or the round budget is spent.
type RefineMachine struct {
	interpreter *statekit.Interpreter[RefineContext]
	budget      *roundBudget
}

// NewRefineMachine starts in Round(1). maxRounds below 1 is treated as 1.
func NewRefineMachine(maxRounds int) (*RefineMachine, error) {
	if maxRounds < 1 {
		maxRounds = 1
	}
	budget := &roundBudget{max: maxRounds, current: 1}

	builder := statekit.NewMachine[RefineContext]("refine-machine").
		WithInitial(statekit.StateID(StateRound)).
		WithContext(RefineContext{budget: budget}).
		WithGuard("roundsRemaining", func(ctx RefineContext, e statekit.Event) bool {
			return ctx.budget.remaining() > 0
		})

	builder.State(StateRound).
		On(EventNoChanges).Target(StateConverged).
		On(EventSuggestions).Target(StateRound).Guard("roundsRemaining").
		On(EventBudgetSpent).Target(StateExhausted).
		Done()

	builder.State(StateConverged).Done()
	builder.State(StateExhausted).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build refine machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &RefineMachine{interpreter: interpreter, budget: budget}, nil
}

// Round is the 1-based index of the current round.
func (m *RefineMachine) Round() int {
	return m.budget.current
}

// MaxRounds is the configured budget.
func (m *RefineMachine) MaxRounds() int {
	return m.budget.max
}

func (m *RefineMachine) Current() string {
	return string(m.interpreter.State().Value)
}

// Done reports whether a terminal state has been reached.
func (m *RefineMachine) Done() bool {
	s := m.Current()
	return s == StateConverged || s == StateExhausted
}

// Converge records that the evaluator returned no changes.
func (m *RefineMachine) Converge() error {
	if m.Done() {
		return fmt.Errorf("refinement already finished in state %q", m.Current())
	}
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(EventNoChanges)})
	if m.Current() != StateConverged {
		return fmt.Errorf("the event '%s' is not allowed in state '%s'", EventNoChanges, m.Current())
	}
	return nil
}

// Advance records that suggestions were returned. It moves to the next
// round and reports true, or moves to exhausted and reports false when the
// budget is spent.
func (m *RefineMachine) Advance() (bool, error) {
	if m.Done() {
		return false, fmt.Errorf("refinement already finished in state %q", m.Current())
	}
	if m.budget.remaining() > 0 {
		m.interpreter.Send(statekit.Event{Type: statekit.EventType(EventSuggestions)})
		m.budget.current++
		return true, nil
	}
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(EventBudgetSpent)})
	if m.Current() != StateExhausted {
		return false, fmt.Errorf("the event '%s' is not allowed in state '%s'", EventBudgetSpent, m.Current())
	}
	return false, nil
}

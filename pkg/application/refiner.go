package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
	"github.com/felixgeelhaar/sdra/pkg/domain/review"
	"github.com/felixgeelhaar/sdra/pkg/observability"
)

// Refinement events.
const (
	EventRoundStarted observability.EventType = "refine.round.started"
	EventConverged    observability.EventType = "refine.converged"
	EventExhausted    observability.EventType = "refine.exhausted"
)

// suggestionsHeader introduces the suggestions appended to the next round.
const suggestionsHeader = "\n\nPlease incorporate the following suggestions from the previous review round:\n"

// RefineRequest is one phase of the review.
type RefineRequest struct {
	// Phase names the artifacts, e.g. "phase1".
	Phase        string
	SystemPrompt string
	UserPrompt   string
	Models       []ai.Provider
}

// Refiner drives fan-out, merge and evaluation for a bounded number of
// rounds.
type Refiner struct {
	fanout    *FanOut
	merger    *Merger
	evaluator *Evaluator
	sink      domain.ArtifactSink
	observer  observability.Observer
	logger    *slog.Logger
	maxRounds int
}

// NewRefiner wires the loop. sink, obs and logger may be nil.
func NewRefiner(fanout *FanOut, merger *Merger, evaluator *Evaluator, sink domain.ArtifactSink, obs observability.Observer, logger *slog.Logger, maxRounds int) *Refiner {
	if obs == nil {
		obs = observability.NoOpObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxRounds < 1 {
		maxRounds = review.DefaultMaxRounds
	}
	return &Refiner{
		fanout:    fanout,
		merger:    merger,
		evaluator: evaluator,
		sink:      sink,
		observer:  obs,
		logger:    logger,
		maxRounds: maxRounds,
	}
}

// MaxRounds is the round budget.
func (r *Refiner) MaxRounds() int {
	return r.maxRounds
}

// Refine returns the most recent merged output. Running out of rounds is
// not an error; the last merge is returned as is. Errors are limited to
// precondition and configuration failures and caller cancellation. A
// cancelled round is discarded and the output of the last complete round,
// empty in round 1, comes back with the context error.
func (r *Refiner) Refine(ctx context.Context, session *review.Session, req RefineRequest) (string, error) {
	if session == nil || !session.HasRequirements() {
		return "", &domain.StateError{Operation: "refine " + req.Phase, Requires: "requirements are parsed"}
	}

	fsm, err := review.NewRefineMachine(r.maxRounds)
	if err != nil {
		return "", err
	}

	prompt := req.UserPrompt
	// last is the merge of the most recent fully evaluated round.
	var last string

	for {
		round := fsm.Round()
		if err := ctx.Err(); err != nil {
			return last, err
		}

		observability.Emit(ctx, r.observer, EventRoundStarted, observability.LevelInfo, "refiner", map[string]any{
			"phase":      req.Phase,
			"round":      round,
			"max_rounds": fsm.MaxRounds(),
		})

		conv := ai.Conversation{
			ai.Text(ai.RoleSystem, req.SystemPrompt),
			ai.Text(ai.RoleUser, prompt),
		}

		outputs, err := r.fanout.CallAll(ctx, conv, req.Models)
		if err != nil {
			return "", err
		}
		// Cancelled calls come back as ordinary failures.
		if err := ctx.Err(); err != nil {
			return last, err
		}

		merged := r.merger.Merge(ctx, review.SuccessfulTexts(outputs))
		r.record(fmt.Sprintf("%s_round_%d_merged.json", req.Phase, round), merged.Pretty())

		suggestions, err := r.evaluator.Evaluate(ctx, session.Requirements, merged.Text())
		if err != nil {
			return "", err
		}
		if err := ctx.Err(); err != nil {
			return last, err
		}

		if suggestions.None() {
			if err := fsm.Converge(); err != nil {
				return "", err
			}
			observability.Emit(ctx, r.observer, EventConverged, observability.LevelInfo, "refiner", map[string]any{
				"phase": req.Phase,
				"round": round,
			})
			return merged.Text(), nil
		}

		last = merged.Text()
		more, err := fsm.Advance()
		if err != nil {
			return "", err
		}
		if !more {
			observability.Emit(ctx, r.observer, EventExhausted, observability.LevelWarning, "refiner", map[string]any{
				"phase":       req.Phase,
				"rounds":      round,
				"suggestions": suggestions.Len(),
			})
			return merged.Text(), nil
		}

		// Each round starts from the original prompt; earlier suggestions are dropped.
		prompt = req.UserPrompt + SuggestionsBlock(suggestions)
	}
}

// SuggestionsBlock is the fixed text appended to a user prompt.
func SuggestionsBlock(s review.SuggestionList) string {
	return suggestionsHeader + s.Text()
}

func (r *Refiner) record(name, content string) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Record(name, content); err != nil {
		r.logger.Warn("failed to record artifact", "name", name, "error", err)
	}
}

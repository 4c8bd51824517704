package application

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
	"github.com/felixgeelhaar/sdra/pkg/domain/review"
	"github.com/felixgeelhaar/sdra/pkg/observability"
)

// Fan-out events.
const (
	EventCallStarted   observability.EventType = "fanout.call.started"
	EventCallCompleted observability.EventType = "fanout.call.completed"
	EventCallFailed    observability.EventType = "fanout.call.failed"
)

// FanOut sends one conversation to several models at once.
type FanOut struct {
	observer observability.Observer
}

// NewFanOut creates a FanOut. obs may be nil.
func NewFanOut(obs observability.Observer) *FanOut {
	if obs == nil {
		obs = observability.NoOpObserver{}
	}
	return &FanOut{observer: obs}
}

// CallAll calls every model concurrently and waits for all of them. The
// result has one entry per model, in the same order. A failing model
// yields a tagged failure entry and never affects its siblings; the only
// error returned is a ConfigError for an empty model list.
//
// The group has no derived context, so one failure never cancels the
// other calls. Cancelling ctx still reaches every call.
func (f *FanOut) CallAll(ctx context.Context, conv ai.Conversation, models []ai.Provider) ([]review.ModelOutput, error) {
	if len(models) == 0 {
		return nil, &domain.ConfigError{Field: "models", Reason: "at least one model is required"}
	}

	results := make([]review.ModelOutput, len(models))
	var g errgroup.Group

	for i, model := range models {
		g.Go(func() error {
			results[i] = f.call(ctx, conv, model)
			return nil
		})
	}

	_ = g.Wait()
	return results, nil
}

func (f *FanOut) call(ctx context.Context, conv ai.Conversation, model ai.Provider) (out review.ModelOutput) {
	id := model.ID()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = review.Failure(id, &ai.ProviderError{Model: id, Err: fmt.Errorf("panic: %v", r)})
			f.emitFailure(ctx, id, out.Err, start)
		}
	}()

	observability.Emit(ctx, f.observer, EventCallStarted, observability.LevelVerbose, "fanout", map[string]any{
		"model": id,
	})

	text, err := ai.Call(ctx, model, conv)
	if err != nil {
		f.emitFailure(ctx, id, err, start)
		return review.Failure(id, err)
	}

	observability.Emit(ctx, f.observer, EventCallCompleted, observability.LevelInfo, "fanout", map[string]any{
		"model":       id,
		"duration_ms": time.Since(start).Milliseconds(),
		"chars":       len(text),
	})
	return review.Success(id, text)
}

func (f *FanOut) emitFailure(ctx context.Context, id string, err error, start time.Time) {
	observability.Emit(ctx, f.observer, EventCallFailed, observability.LevelWarning, "fanout", map[string]any{
		"model":       id,
		"error":       err.Error(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
	"github.com/felixgeelhaar/sdra/pkg/domain/review"
	"github.com/felixgeelhaar/sdra/pkg/observability"
)

// EventMergeFailed is emitted when the arbitration model fails.
const EventMergeFailed observability.EventType = "merge.failed"

const mergeSystemPrompt = "You merge JSON documents produced by several reviewers into one document. Return strict JSON only."

const mergeInstructions = `You are given %d JSON documents that share one schema. Merge them into a single JSON document that is a deduplicated superset of all of them.

Rules:
1. Preserve the schema and key names exactly as they appear in the inputs.
2. For array fields, take the union of all entries and remove duplicates. When two entries describe the same thing, keep the richer (longer, more detailed) one.
3. For objects under the same key, prefer the more complete non-null value.
4. Preserve stable identifiers (id, name, key) when present. Otherwise deduplicate by normalized name plus content similarity.
5. Never invent fields that are absent from every input.
6. If an input is not valid JSON, integrate its content on a best-effort semantic basis.
7. Output strict JSON only. No prose, no markdown, no code fences.

`

// Merger asks an arbitration model to union several outputs.
type Merger struct {
	arbiter  ai.Provider
	observer observability.Observer
}

// NewMerger creates a Merger. obs may be nil.
func NewMerger(arbiter ai.Provider, obs observability.Observer) *Merger {
	if obs == nil {
		obs = observability.NoOpObserver{}
	}
	return &Merger{arbiter: arbiter, observer: obs}
}

// Merge never fails: zero outputs give the empty-object document and an
// arbitration failure gives the MergeFailed sentinel.
func (m *Merger) Merge(ctx context.Context, outputs []string) review.Document {
	if len(outputs) == 0 {
		return review.EmptyDocument()
	}

	conv := ai.Conversation{
		ai.Text(ai.RoleSystem, mergeSystemPrompt),
		ai.Text(ai.RoleUser, buildMergePrompt(outputs)),
	}

	text, err := ai.CallWith(ctx, m.arbiter, ai.CompletionRequest{
		Messages:    conv,
		Temperature: ai.Float(0),
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("arbitration model %s returned an empty response", m.arbiter.ID())
	}
	if err != nil {
		observability.Emit(ctx, m.observer, EventMergeFailed, observability.LevelError, "merger", map[string]any{
			"arbiter": m.arbiter.ID(),
			"error":   err.Error(),
			"inputs":  len(outputs),
		})
		return review.MergeFailed(err)
	}

	return review.ParseDocument(extractJSONPayload(text))
}

func buildMergePrompt(outputs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, mergeInstructions, len(outputs))
	for i, out := range outputs {
		fmt.Fprintf(&b, "document #%d:\n%s\n\n", i+1, strings.TrimSpace(out))
	}
	return b.String()
}

package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
	"github.com/felixgeelhaar/sdra/pkg/domain/review"
	"github.com/felixgeelhaar/sdra/pkg/observability"
)

// Evaluator events.
const (
	EventEvaluateFailed  observability.EventType = "evaluate.failed"
	EventSchemaMismatch  observability.EventType = "evaluate.schema_mismatch"
	EventSuggestionsSeen observability.EventType = "evaluate.suggestions"
)

// noChangesSentinel is the exact reply meaning "nothing to improve".
const noChangesSentinel = "None"

// wrapperKeys are the object fields unwrapped to a suggestion array, in
// lookup order.
var wrapperKeys = []string{"suggestions", "improvements", "items"}

const suggestionSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["category", "location", "issue", "rationale", "suggested_change"],
    "properties": {
      "category": {"type": "string", "enum": ["trust_boundary", "dfd", "stride"]},
      "location": {"type": "string"},
      "issue": {"type": "string"},
      "rationale": {"type": "string"},
      "suggested_change": {"type": "string"}
    }
  }
}`

var suggestionSchemaLoader = gojsonschema.NewStringLoader(suggestionSchemaJSON)

const evaluateSystemPrompt = "You are a principal security architect reviewing a threat model for completeness and correctness."

const evaluateTemplate = `Critique the merged security analysis below against the original requirements.

If the analysis is complete and correct, reply with exactly: None

Otherwise reply with a strict JSON array and nothing else. Each element must have exactly these fields:
[
  {
    "category": "trust_boundary" | "dfd" | "stride",
    "location": "<where in the analysis the change applies>",
    "issue": "<what is missing or wrong>",
    "rationale": "<why it matters, citing the requirements>",
    "suggested_change": "<the concrete change to make>"
  }
]

No prose, no markdown, no code fences.

=== ORIGINAL REQUIREMENTS ===
%s

=== MERGED ANALYSIS ===
%s
`

// Evaluator asks an arbitration model for improvements to a merged output.
type Evaluator struct {
	arbiter  ai.Provider
	observer observability.Observer
}

// NewEvaluator creates an Evaluator. obs may be nil.
func NewEvaluator(arbiter ai.Provider, obs observability.Observer) *Evaluator {
	if obs == nil {
		obs = observability.NoOpObserver{}
	}
	return &Evaluator{arbiter: arbiter, observer: obs}
}

// Evaluate returns NoChanges or a suggestion list. Only missing inputs are
// reported as errors; a failed or unreadable critique means NoChanges.
func (e *Evaluator) Evaluate(ctx context.Context, requirements, merged string) (review.SuggestionList, error) {
	if strings.TrimSpace(requirements) == "" {
		return review.SuggestionList{}, &domain.ValidationError{Field: "requirements", Reason: "requirements text is required for evaluation"}
	}
	if strings.TrimSpace(merged) == "" {
		return review.SuggestionList{}, &domain.ValidationError{Field: "merged_output", Reason: "merged output is required for evaluation"}
	}

	conv := ai.Conversation{
		ai.Text(ai.RoleSystem, evaluateSystemPrompt),
		ai.Text(ai.RoleUser, fmt.Sprintf(evaluateTemplate, requirements, merged)),
	}

	text, err := ai.CallWith(ctx, e.arbiter, ai.CompletionRequest{
		Messages:    conv,
		Temperature: ai.Float(0),
	})
	if err != nil {
		observability.Emit(ctx, e.observer, EventEvaluateFailed, observability.LevelError, "evaluator", map[string]any{
			"arbiter": e.arbiter.ID(),
			"error":   err.Error(),
		})
		return review.NoChanges(), nil
	}

	list := normalizeSuggestions(text)
	if !list.None() {
		e.checkSchema(ctx, list)
		observability.Emit(ctx, e.observer, EventSuggestionsSeen, observability.LevelInfo, "evaluator", map[string]any{
			"count": list.Len(),
		})
	}
	return list, nil
}

// checkSchema reports non-conforming suggestions. They are kept.
func (e *Evaluator) checkSchema(ctx context.Context, list review.SuggestionList) {
	result, err := gojsonschema.Validate(suggestionSchemaLoader, gojsonschema.NewBytesLoader(list.Raw))
	if err != nil {
		observability.Emit(ctx, e.observer, EventSchemaMismatch, observability.LevelWarning, "evaluator", map[string]any{
			"error": err.Error(),
		})
		return
	}
	if result.Valid() {
		return
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	observability.Emit(ctx, e.observer, EventSchemaMismatch, observability.LevelWarning, "evaluator", map[string]any{
		"issues": issues,
	})
}

// normalizeSuggestions maps a critique reply to a SuggestionList:
//
//  1. exactly "None" is NoChanges
//  2. an object with a suggestions, improvements or items array yields that array
//  3. any other object is NoChanges
//  4. an array is used as is
//  5. any other JSON value is NoChanges
//  6. invalid JSON falls back to the leftmost balanced [...] span that
//     parses, otherwise NoChanges
//
// An empty array from any of these rules is NoChanges.
func normalizeSuggestions(text string) review.SuggestionList {
	trimmed := strings.TrimSpace(text)
	if trimmed == noChangesSentinel {
		return review.NoChanges()
	}

	data := []byte(trimmed)
	if json.Valid(data) {
		switch firstByte(data) {
		case '{':
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(data, &obj); err != nil {
				return review.NoChanges()
			}
			for _, key := range wrapperKeys {
				if raw, ok := obj[key]; ok && firstByte(raw) == '[' {
					return arrayList(bytes.TrimSpace(raw))
				}
			}
			return review.NoChanges()
		case '[':
			return arrayList(data)
		default:
			return review.NoChanges()
		}
	}

	if match := embeddedArray(trimmed); match != "" {
		return arrayList([]byte(match))
	}
	return review.NoChanges()
}

// arrayList wraps a suggestion array. An empty array has nothing to
// incorporate and is NoChanges, like the sentinel.
func arrayList(raw []byte) review.SuggestionList {
	list := review.NewSuggestionList(json.RawMessage(raw))
	if list.Len() == 0 {
		return review.NoChanges()
	}
	return list
}

func firstByte(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

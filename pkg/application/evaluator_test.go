package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/sdra/pkg/ai"
	"github.com/felixgeelhaar/sdra/pkg/application"
	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/domain/review"
	"github.com/felixgeelhaar/sdra/pkg/observability"
)

const validSuggestion = `{"category":"stride","location":"API gateway","issue":"no spoofing analysis","rationale":"requirement 4 exposes a public API","suggested_change":"add spoofing threats for the gateway"}`

func TestEvaluator_None(t *testing.T) {
	arbiter := &ai.MockProvider{Model: "arb", Responses: []string{"None"}}

	list, err := application.NewEvaluator(arbiter, nil).Evaluate(context.Background(), "reqs", `{"a":1}`)
	require.NoError(t, err)
	assert.True(t, list.None())
}

func TestEvaluator_UnwrapsSuggestions(t *testing.T) {
	arbiter := &ai.MockProvider{Model: "arb", Responses: []string{`{"suggestions":[` + validSuggestion + `]}`}}

	list, err := application.NewEvaluator(arbiter, nil).Evaluate(context.Background(), "reqs", `{"a":1}`)
	require.NoError(t, err)
	require.False(t, list.None())
	assert.Equal(t, 1, list.Len())
	require.Len(t, list.Items, 1)
	assert.Equal(t, review.CategorySTRIDE, list.Items[0].Category)
	assert.Equal(t, "add spoofing threats for the gateway", list.Items[0].SuggestedChange)
}

func TestEvaluator_EmptyArrayIsNoChanges(t *testing.T) {
	for _, reply := range []string{"[]", `{"suggestions":[]}`, "Nothing to add: []"} {
		arbiter := &ai.MockProvider{Model: "arb", Responses: []string{reply}}

		list, err := application.NewEvaluator(arbiter, nil).Evaluate(context.Background(), "reqs", `{"a":1}`)
		require.NoError(t, err)
		assert.True(t, list.None(), "reply %q", reply)
	}
}

func TestEvaluator_ArrayFollowedByBracketedProse(t *testing.T) {
	arbiter := &ai.MockProvider{Model: "arb", Responses: []string{"Here: [" + validSuggestion + "] and see [ref 1]."}}

	list, err := application.NewEvaluator(arbiter, nil).Evaluate(context.Background(), "reqs", `{"a":1}`)
	require.NoError(t, err)
	require.False(t, list.None())
	assert.Equal(t, 1, list.Len())
}

func TestEvaluator_GarbageIsNoChanges(t *testing.T) {
	arbiter := &ai.MockProvider{Model: "arb", Responses: []string{"Looks mostly fine to me!"}}

	list, err := application.NewEvaluator(arbiter, nil).Evaluate(context.Background(), "reqs", `{"a":1}`)
	require.NoError(t, err)
	assert.True(t, list.None())
}

func TestEvaluator_CallFailureIsNoChanges(t *testing.T) {
	obs := observability.NewChannelObserver(8)
	arbiter := &ai.MockProvider{Model: "arb", Err: errors.New("timeout")}

	list, err := application.NewEvaluator(arbiter, obs).Evaluate(context.Background(), "reqs", `{"a":1}`)
	require.NoError(t, err)
	assert.True(t, list.None())

	obs.Close()
	ev := <-obs.Events()
	assert.Equal(t, application.EventEvaluateFailed, ev.Type)
}

func TestEvaluator_SchemaMismatchKeepsItems(t *testing.T) {
	obs := observability.NewChannelObserver(8)
	arbiter := &ai.MockProvider{Model: "arb", Responses: []string{`[{"category":"other","issue":"x"}]`}}

	list, err := application.NewEvaluator(arbiter, obs).Evaluate(context.Background(), "reqs", `{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())

	obs.Close()
	var mismatches int
	for ev := range obs.Events() {
		if ev.Type == application.EventSchemaMismatch {
			mismatches++
		}
	}
	assert.Equal(t, 1, mismatches)
}

func TestEvaluator_PromptEmbedsInputs(t *testing.T) {
	arbiter := &ai.MockProvider{Model: "arb", Responses: []string{"None"}}

	_, err := application.NewEvaluator(arbiter, nil).Evaluate(context.Background(), "THE REQUIREMENTS", `{"merged":true}`)
	require.NoError(t, err)

	req := arbiter.Requests()[0]
	prompt := userText(req)
	assert.Contains(t, prompt, "THE REQUIREMENTS")
	assert.Contains(t, prompt, `{"merged":true}`)
	assert.Contains(t, prompt, "reply with exactly: None")
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.0, *req.Temperature)
}

func TestEvaluator_RequiresInputs(t *testing.T) {
	arbiter := &ai.MockProvider{Model: "arb", Responses: []string{"None"}}
	e := application.NewEvaluator(arbiter, nil)

	_, err := e.Evaluate(context.Background(), "", `{}`)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "requirements", verr.Field)

	_, err = e.Evaluate(context.Background(), "reqs", "  ")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "merged_output", verr.Field)

	assert.Zero(t, arbiter.Calls())
}

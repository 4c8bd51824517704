package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/sdra/pkg/ai"
	"github.com/felixgeelhaar/sdra/pkg/application"
	"github.com/felixgeelhaar/sdra/pkg/domain"
	domainai "github.com/felixgeelhaar/sdra/pkg/domain/ai"
	"github.com/felixgeelhaar/sdra/pkg/observability"
)

var testConv = domainai.Conversation{
	domainai.Text(domainai.RoleSystem, "sys"),
	domainai.Text(domainai.RoleUser, "analyze"),
}

func TestFanOut_PreservesOrderUnderPartialFailure(t *testing.T) {
	models := []domainai.Provider{
		&ai.MockProvider{Model: "a", Responses: []string{"out-a"}},
		&ai.MockProvider{Model: "b", Err: errors.New("boom")},
		&ai.MockProvider{Model: "c", Responses: []string{"out-c"}},
	}

	outputs, err := application.NewFanOut(nil).CallAll(context.Background(), testConv, models)
	require.NoError(t, err)
	require.Len(t, outputs, 3)

	assert.Equal(t, "mock:a", outputs[0].Model)
	assert.True(t, outputs[0].OK())
	assert.Equal(t, "out-a", outputs[0].Text)

	assert.Equal(t, "mock:b", outputs[1].Model)
	assert.False(t, outputs[1].OK())
	var perr *domainai.ProviderError
	assert.ErrorAs(t, outputs[1].Err, &perr)
	assert.Contains(t, outputs[1].String(), "[model error] mock:b")

	assert.Equal(t, "out-c", outputs[2].Text)
}

func TestFanOut_EmptyModels(t *testing.T) {
	_, err := application.NewFanOut(nil).CallAll(context.Background(), testConv, nil)

	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "models", cfgErr.Field)
}

func TestFanOut_RunsConcurrently(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	wait := func(domainai.CompletionRequest) (string, error) {
		started <- struct{}{}
		<-release
		return "done", nil
	}
	models := []domainai.Provider{
		&ai.MockProvider{Model: "a", Handler: wait},
		&ai.MockProvider{Model: "b", Handler: wait},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = application.NewFanOut(nil).CallAll(context.Background(), testConv, models)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("calls did not start concurrently")
		}
	}
	close(release)
	<-done
}

func TestFanOut_FailureDoesNotCancelSiblings(t *testing.T) {
	slow := &ai.MockProvider{Model: "slow", Handler: func(domainai.CompletionRequest) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return "late", nil
	}}
	models := []domainai.Provider{
		&ai.MockProvider{Model: "fast", Err: errors.New("fail fast")},
		slow,
	}

	outputs, err := application.NewFanOut(nil).CallAll(context.Background(), testConv, models)
	require.NoError(t, err)
	assert.False(t, outputs[0].OK())
	assert.True(t, outputs[1].OK())
	assert.Equal(t, "late", outputs[1].Text)
}

func TestFanOut_RecoversPanics(t *testing.T) {
	models := []domainai.Provider{
		&ai.MockProvider{Model: "p", Handler: func(domainai.CompletionRequest) (string, error) {
			panic("kaboom")
		}},
	}

	outputs, err := application.NewFanOut(nil).CallAll(context.Background(), testConv, models)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.False(t, outputs[0].OK())
	assert.Contains(t, outputs[0].Err.Error(), "kaboom")
}

func TestFanOut_CancelledContextReachesAllCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	models := []domainai.Provider{
		&ai.MockProvider{Model: "a", Responses: []string{"x"}},
		&ai.MockProvider{Model: "b", Responses: []string{"y"}},
	}
	outputs, err := application.NewFanOut(nil).CallAll(ctx, testConv, models)
	require.NoError(t, err)
	for _, out := range outputs {
		assert.ErrorIs(t, out.Err, context.Canceled)
	}
}

func TestFanOut_EmitsEvents(t *testing.T) {
	obs := observability.NewChannelObserver(16)
	models := []domainai.Provider{
		&ai.MockProvider{Model: "a", Responses: []string{"x"}},
		&ai.MockProvider{Model: "b", Err: errors.New("nope")},
	}

	_, err := application.NewFanOut(obs).CallAll(context.Background(), testConv, models)
	require.NoError(t, err)
	obs.Close()

	counts := map[observability.EventType]int{}
	for ev := range obs.Events() {
		counts[ev.Type]++
	}
	assert.Equal(t, 2, counts[application.EventCallStarted])
	assert.Equal(t, 1, counts[application.EventCallCompleted])
	assert.Equal(t, 1, counts[application.EventCallFailed])
}

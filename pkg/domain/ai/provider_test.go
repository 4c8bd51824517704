package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/felixgeelhaar/sdra/pkg/domain"
)

// mockProvider implements the Provider interface for testing.
type mockProvider struct {
	id       string
	response *CompletionResponse
	err      error
	got      CompletionRequest
}

func (m *mockProvider) ID() string { return m.id }
func (m *mockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.got = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func TestCall_Success(t *testing.T) {
	p := &mockProvider{id: "openai:test", response: &CompletionResponse{Text: "hi"}}
	conv := Conversation{Text(RoleSystem, "be brief"), Text(RoleUser, "hello")}

	got, err := Call(context.Background(), p, conv)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
	if len(p.got.Messages) != 2 {
		t.Errorf("expected 2 messages forwarded, got %d", len(p.got.Messages))
	}
}

func TestCall_WrapsErrorAsProviderError(t *testing.T) {
	p := &mockProvider{id: "anthropic:claude", err: fmt.Errorf("boom")}

	_, err := Call(context.Background(), p, Conversation{Text(RoleUser, "q")})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if pe.Model != "anthropic:claude" {
		t.Errorf("Model = %q", pe.Model)
	}
}

func TestCall_NilResponse(t *testing.T) {
	p := &mockProvider{id: "x:y"}
	if _, err := Call(context.Background(), p, nil); err == nil {
		t.Fatal("expected error for nil response")
	}
}

func TestMessage_PlainText(t *testing.T) {
	m := Message{Role: RoleUser, Content: []ContentBlock{TextBlock("a"), Image("data:image/png;base64,AA"), TextBlock("b")}}
	if got := m.PlainText(); got != "a\nb" {
		t.Errorf("PlainText() = %q, want %q", got, "a\nb")
	}
	if !m.HasImages() {
		t.Error("expected HasImages")
	}
}

func TestNewModelHandle(t *testing.T) {
	tests := []struct {
		name    string
		kind    ProviderKind
		model   string
		key     string
		wantErr bool
	}{
		{"valid", KindOpenAI, "gpt-4o", "sk-1234567890", false},
		{"empty name", KindOpenAI, "  ", "sk-1234567890", true},
		{"short key", KindAnthropic, "claude", "short", true},
		{"unknown kind", ProviderKind("ollama"), "llama3", "sk-1234567890", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewModelHandle(tt.kind, tt.model, tt.key, "")
			if tt.wantErr {
				if !errors.Is(err, domain.ErrConfig) {
					t.Fatalf("expected config error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.ID() != string(tt.kind)+":"+tt.model {
				t.Errorf("ID() = %q", h.ID())
			}
		})
	}
}

func TestModelHandle_NeverPrintsKey(t *testing.T) {
	h, err := NewModelHandle(KindOpenAI, "gpt-4o", "sk-secret-abcdef", "")
	if err != nil {
		t.Fatal(err)
	}
	if h.ShortKey() != "sk-sec..." {
		t.Errorf("ShortKey() = %q", h.ShortKey())
	}
	if strings.Contains(h.String(), "secret-abcdef") {
		t.Errorf("String() leaked key: %s", h.String())
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("", 4); got != "<unset>" {
		t.Errorf("got %q", got)
	}
	if got := MaskKey("abc", 6); got != "abc..." {
		t.Errorf("got %q", got)
	}
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

const (
	anthropicBaseURL   = "https://api.anthropic.com"
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 1000
)

type AnthropicProvider struct {
	handle     ai.ModelHandle
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicProvider builds a provider for h. httpClient may be nil.
func NewAnthropicProvider(h ai.ModelHandle, httpClient *http.Client) *AnthropicProvider {
	baseURL := h.BaseURL()
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AnthropicProvider{
		handle:     h,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (p *AnthropicProvider) ID() string {
	return p.handle.ID()
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

// anthropicMessage content is a plain string for text-only turns and a
// block list when images are present.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// splitSystem pulls every system message out of conv. Their text is
// joined by newlines; the remaining user and assistant turns keep order.
func splitSystem(conv ai.Conversation) (string, []anthropicMessage) {
	var system []string
	msgs := make([]anthropicMessage, 0, len(conv))
	for _, m := range conv {
		switch m.Role {
		case ai.RoleSystem:
			system = append(system, m.PlainText())
		case ai.RoleUser, ai.RoleAssistant:
			msgs = append(msgs, anthropicMessage{Role: string(m.Role), Content: anthropicContent(m)})
		}
	}
	return strings.Join(system, "\n"), msgs
}

func anthropicContent(m ai.Message) any {
	if !m.HasImages() {
		return m.PlainText()
	}
	blocks := make([]anthropicBlock, 0, len(m.Content))
	for _, b := range m.Content {
		if b.Type != ai.BlockImage {
			blocks = append(blocks, anthropicBlock{Type: "text", Text: b.Text})
			continue
		}
		src := &anthropicImageSource{Type: "url", URL: b.ImageURL}
		if mediaType, data, ok := parseDataURL(b.ImageURL); ok {
			src = &anthropicImageSource{Type: "base64", MediaType: mediaType, Data: data}
		}
		blocks = append(blocks, anthropicBlock{Type: "image", Source: src})
	}
	return blocks
}

// parseDataURL splits "data:<media>;base64,<data>".
func parseDataURL(u string) (string, string, bool) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return "", "", false
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", false
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", "", false
	}
	return mediaType, data, true
}

func (p *AnthropicProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	system, msgs := splitSystem(req.Messages)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("Anthropic request has no user or assistant messages")
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       p.handle.Name(),
		System:      system,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.handle.APIKey())
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Anthropic API returned status: %s", resp.Status)
	}

	var anthroResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&anthroResp); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, c := range anthroResp.Content {
		if c.Type == "" || c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("Anthropic API returned no content")
	}

	return &ai.CompletionResponse{
		Text:  text.String(),
		Model: p.handle.Name(),
		Usage: ai.TokenUsage{
			InputTokens:  anthroResp.Usage.InputTokens,
			OutputTokens: anthroResp.Usage.OutputTokens,
		},
	}, nil
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

// OpenAIProvider speaks the OpenAI chat completions protocol. It also
// serves any OpenAI-compatible endpoint selected through the handle's
// base URL (Gemini, DeepSeek, Groq).
type OpenAIProvider struct {
	handle ai.ModelHandle
	label  string
	client openai.Client
}

// NewOpenAIProvider builds a provider for h. httpClient may be nil.
func NewOpenAIProvider(h ai.ModelHandle, httpClient *http.Client) *OpenAIProvider {
	return newChatCompletionsProvider(h, "OpenAI", h.BaseURL(), httpClient)
}

func newChatCompletionsProvider(h ai.ModelHandle, label, baseURL string, httpClient *http.Client) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(h.APIKey()),
		// Model calls are never retried.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAIProvider{
		handle: h,
		label:  label,
		client: openai.NewClient(opts...),
	}
}

func (p *OpenAIProvider) ID() string {
	return p.handle.ID()
}

func (p *OpenAIProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    p.handle.Name(),
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%s API returned status: %d %s", p.label, apiErr.StatusCode, http.StatusText(apiErr.StatusCode))
		}
		return nil, fmt.Errorf("%s API request failed: %w", p.label, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s API returned no choices", p.label)
	}

	return &ai.CompletionResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: p.handle.Name(),
		Usage: ai.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// toOpenAIMessages passes messages through unchanged apart from mapping
// image blocks to image content parts.
func toOpenAIMessages(conv ai.Conversation) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(conv))
	for _, m := range conv {
		switch m.Role {
		case ai.RoleSystem:
			out = append(out, openai.SystemMessage(m.PlainText()))
		case ai.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.PlainText()))
		default:
			if !m.HasImages() {
				out = append(out, openai.UserMessage(m.PlainText()))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.Content))
			for _, b := range m.Content {
				switch b.Type {
				case ai.BlockImage:
					parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: b.ImageURL}))
				default:
					parts = append(parts, openai.TextContentPart(b.Text))
				}
			}
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out
}

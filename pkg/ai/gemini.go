package ai

import (
	"net/http"

	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// NewGeminiProvider routes Gemini models through the OpenAI-compatible
// protocol. The handle's base URL overrides GeminiBaseURL when set.
func NewGeminiProvider(h ai.ModelHandle, httpClient *http.Client) *OpenAIProvider {
	baseURL := h.BaseURL()
	if baseURL == "" {
		baseURL = GeminiBaseURL
	}
	return newChatCompletionsProvider(h, "Gemini", baseURL, httpClient)
}

package llm

import openai "github.com/sashabaranov/go-openai"

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider creates a provider for OpenRouter, which exposes
// an OpenAI-compatible API in front of many vision models.
func NewOpenRouterProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAICompatibleProvider("openrouter", openRouterBaseURL, apiKey, model)
}

// NewOpenAICompatibleProvider creates a provider for any endpoint that
// implements the OpenAI Chat Completions API.
func NewOpenAICompatibleProvider(name, baseURL, apiKey, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   name,
	}
}

package generator

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultOpenAIBaseURL is Gemini's OpenAI compatible endpoint.
	DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultOpenAIModel   = "gemini-1.5-flash"
)

// OpenAIGenerator talks to any OpenAI compatible chat completions API.
type OpenAIGenerator struct {
	client openai.Client
	model  string
	name   string
}

func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	name := "openai"
	if strings.Contains(baseURL, "generativelanguage.googleapis.com") {
		name = "gemini"
	}

	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(baseURL)),
		model:  model,
		name:   name,
	}
}

func (g *OpenAIGenerator) Name() string { return g.name }

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", &GenerationError{Provider: g.name, Err: err}
	}

	var sb strings.Builder
	for _, choice := range resp.Choices {
		sb.WriteString(choice.Message.Content)
	}
	return result(sb.String())
}

func result(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoResult
	}
	return text, nil
}

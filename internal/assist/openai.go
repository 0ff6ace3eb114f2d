package assist

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI answers questions through an OpenAI-compatible chat API. When a
// capture image is supplied it is attached as a vision part so the model can
// read options the OCR pass mangled.
type OpenAI struct {
	api   *openai.Client
	model string
}

// NewOpenAI creates a provider. baseURL may be empty for the public API.
func NewOpenAI(baseURL, apiKey, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{api: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Answer(ctx context.Context, img []byte, question string, options []string) (string, error) {
	prompt := buildPrompt(question, options)

	var msg openai.ChatCompletionMessage
	if len(img) > 0 {
		msg = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
						Detail: openai.ImageURLDetailLow,
					},
				},
			},
		}
	} else {
		msg = openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	}

	resp, err := o.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: 0.1,
		MaxTokens:   64,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("assist reply", "provider", o.Name(), "raw", raw)
	return matchOption(raw, options)
}

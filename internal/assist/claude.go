package assist

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultClaudeModel is used when no model is configured.
const DefaultClaudeModel = "claude-3-5-haiku-latest"

const (
	claudeBaseURL    = "https://api.anthropic.com"
	claudeAPIVersion = "2023-06-01"
)

// Claude answers questions through the Anthropic messages API.
type Claude struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewClaude creates a provider. baseURL may be empty for the public API.
func NewClaude(baseURL, apiKey, model string) *Claude {
	if baseURL == "" {
		baseURL = claudeBaseURL
	}
	if model == "" {
		model = DefaultClaudeModel
	}
	return &Claude{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Claude) Name() string { return "claude" }

type claudeContent struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Claude) Answer(ctx context.Context, img []byte, question string, options []string) (string, error) {
	content := []claudeContent{{Type: "text", Text: buildPrompt(question, options)}}
	if len(img) > 0 {
		content = append(content, claudeContent{
			Type: "image",
			Source: &claudeSource{
				Type:      "base64",
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	body, err := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: 64,
		Messages:  []claudeMessage{{Role: "user", Content: content}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal claude request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build claude request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", claudeAPIVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("claude request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read claude response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Provider: c.Name(), Code: resp.StatusCode, Body: string(data)}
	}

	var parsed claudeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parse claude response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("claude api error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	for _, part := range parsed.Content {
		if part.Type == "text" && part.Text != "" {
			slog.Debug("assist reply", "provider", c.Name(), "raw", part.Text)
			return matchOption(part.Text, options)
		}
	}
	return "", fmt.Errorf("claude returned no text content")
}

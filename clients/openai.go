package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrEmptyCompletion is returned when the service answers without choices.
var ErrEmptyCompletion = errors.New("openai: empty completion")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAI calls the chat completions endpoint.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAI creates a chat completion client. baseURL is the API origin,
// e.g. https://api.openai.com.
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) *OpenAI {
	return &OpenAI{baseURL: baseURL, apiKey: apiKey, model: model, client: newHTTPClient(timeout)}
}

// Model returns the configured model identifier.
func (o *OpenAI) Model() string { return o.model }

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete sends messages and returns the content of the first choice.
func (o *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: o.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("openai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	var out chatResponse
	if err := doJSON(o.client, "openai", req, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

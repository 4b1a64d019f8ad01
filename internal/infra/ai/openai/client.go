package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/ai/prompt"
)

const maxTokens = 2048

// Client is the direct (non-RAG) generator: one OpenAI-compatible chat call
// with the full prompt and strict JSON output. The orchestrator uses it for
// the fallback path; the health monitor probes it like any other backend.
type Client struct {
	*openai.Client
	Model string
	id    string
}

func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, id: "direct"}
}

func (c *Client) ID() string { return c.id }

// Probe lists models as a cheap reachability check.
func (c *Client) Probe(ctx context.Context) error {
	if _, err := c.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %v", domai.ErrBackendDown, err)
	}
	return nil
}

func (c *Client) Generate(ctx context.Context, userPrompt string, opts domai.GenerateOptions) (string, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	temperature := float32(opts.Temperature)
	if opts.RepairPass {
		// The repair retry re-submits a malformed payload for correction;
		// sampling variety only hurts there.
		temperature = 0
	}
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	tokens := opts.MaxTokens
	if tokens <= 0 {
		tokens = maxTokens
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = tokens
	} else {
		req.MaxTokens = tokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return "", domai.ErrQuotaExceeded
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

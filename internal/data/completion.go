package data

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// CompletionConfig configures the OpenAI-compatible completion client
type CompletionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// completionRepo implements repo.CompletionRepo with go-openai
type completionRepo struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	hasKey  bool
}

// NewCompletionRepo creates a completion repository. Without an API key every
// call fails with repo.ErrMissingAPIKey and nothing is sent.
func NewCompletionRepo(cfg CompletionConfig) repo.CompletionRepo {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &completionRepo{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		hasKey:  cfg.APIKey != "",
	}
}

// Complete sends one chat completion and returns the first choice's content
func (r *completionRepo) Complete(ctx context.Context, messages []repo.ChatMessage) (string, error) {
	if !r.hasKey {
		return "", repo.ErrMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: 0.4,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyCompletionError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyCompletionError maps transport errors onto the retryable sentinels
func classifyCompletionError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", repo.ErrRateLimited, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", repo.ErrRateLimited, reqErr.Err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", repo.ErrCompletionTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", repo.ErrCompletionTimeout, err)
	}
	return fmt.Errorf("chat completion: %w", err)
}

package mcp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/devricklin/inbox-autopilot/internal/api"
)

// Client is the HTTP client for the approval API
type Client struct {
	client *resty.Client
}

// APIError is a non-2xx answer from the approval API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("approval api error (status %d): %s", e.Status, e.Message)
}

// NewClient creates an approval API client. token may be empty.
func NewClient(baseURL, token string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{client: c}
}

// ListMessages lists messages by status; an empty status means pending
func (c *Client) ListMessages(ctx context.Context, userID, status string, limit int) (*api.ListResult, error) {
	var result api.ListResult
	req := c.request(ctx, &result)
	if userID != "" {
		req.SetQueryParam("user_id", userID)
	}
	if status != "" {
		req.SetQueryParam("status", status)
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if err := check(req.Get("/api/messages")); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMessage gets one message with its latest response
func (c *Client) GetMessage(ctx context.Context, id string) (*api.Message, error) {
	var msg api.Message
	req := c.request(ctx, &msg).SetPathParam("id", id)
	if err := check(req.Get("/api/messages/{id}")); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Approve approves a pending message, optionally with edited text
func (c *Client) Approve(ctx context.Context, id, finalResponse string) (*api.Message, error) {
	var msg api.Message
	req := c.request(ctx, &msg).
		SetPathParam("id", id).
		SetBody(api.ApproveRequest{FinalResponse: finalResponse})
	if err := check(req.Post("/api/messages/{id}/approve")); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Reject rejects a pending message
func (c *Client) Reject(ctx context.Context, id string) (*api.Message, error) {
	return c.action(ctx, id, "reject")
}

// Regenerate asks for a new suggestion for a pending message
func (c *Client) Regenerate(ctx context.Context, id string) (*api.Message, error) {
	return c.action(ctx, id, "regenerate")
}

func (c *Client) action(ctx context.Context, id, action string) (*api.Message, error) {
	var msg api.Message
	req := c.request(ctx, &msg).SetPathParam("id", id)
	if err := check(req.Post("/api/messages/{id}/" + action)); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) request(ctx context.Context, result any) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&api.ErrorResult{})
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("approval api request failed: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if e, ok := resp.Error().(*api.ErrorResult); ok && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

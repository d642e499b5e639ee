package mcp

import (
	"context"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devricklin/inbox-autopilot/internal/api"
)

// Handler implements the MCP tools on top of the approval API client
type Handler struct {
	client *Client
}

// NewHandler creates a new MCP handler
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// MessageSummary is the tool view of a message
type MessageSummary struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	Kind       string  `json:"kind"`
	Sender     string  `json:"sender"`
	Content    string  `json:"content"`
	MediaType  string  `json:"media_type,omitempty"`
	Status     string  `json:"status"`
	Suggestion string  `json:"suggestion,omitempty"`
	Final      string  `json:"final_response,omitempty"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
	ErrorCode  string  `json:"error_code,omitempty"`
	Attempt    int     `json:"attempt,omitempty"`
	ReceivedAt string  `json:"received_at"`
}

func summarize(m *api.Message) MessageSummary {
	sender := m.SenderName
	if m.SenderUsername != "" {
		sender += " (@" + m.SenderUsername + ")"
	}
	s := MessageSummary{
		ID:         m.ID,
		UserID:     m.UserID,
		Kind:       m.Kind,
		Sender:     sender,
		Content:    m.Content,
		MediaType:  m.MediaType,
		Status:     m.Status,
		ReceivedAt: m.CreatedAt.Format(time.RFC3339),
	}
	if r := m.Response; r != nil {
		s.Suggestion = r.SuggestedResponse
		s.Final = r.FinalResponse
		s.Confidence = r.ConfidenceScore
		s.Reasoning = r.Reasoning
		s.ErrorCode = r.ErrorCode
		s.Attempt = r.Attempt
	}
	return s
}

// ListPendingInput filters the review queue
type ListPendingInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"Only messages for this account owner. All accounts if empty."`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of messages (default 20)"`
}

// ListPendingOutput contains the review queue
type ListPendingOutput struct {
	Messages []MessageSummary `json:"messages"`
	Count    int              `json:"count"`
	Error    string           `json:"error,omitempty"`
}

// ListPending lists pending messages
func (h *Handler) ListPending(ctx context.Context, req *mcpsdk.CallToolRequest, input ListPendingInput) (*mcpsdk.CallToolResult, ListPendingOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	result, err := h.client.ListMessages(ctx, input.UserID, "pending", limit)
	if err != nil {
		return nil, ListPendingOutput{Messages: []MessageSummary{}, Error: err.Error()}, nil
	}

	out := ListPendingOutput{Messages: make([]MessageSummary, 0, len(result.Messages))}
	for i := range result.Messages {
		out.Messages = append(out.Messages, summarize(&result.Messages[i]))
	}
	out.Count = len(out.Messages)
	return nil, out, nil
}

// MessageInput identifies one message
type MessageInput struct {
	MessageID string `json:"message_id" jsonschema:"The message id from inbox_list_pending"`
}

// ApproveInput approves one message
type ApproveInput struct {
	MessageID     string `json:"message_id" jsonschema:"The message id from inbox_list_pending"`
	FinalResponse string `json:"final_response,omitempty" jsonschema:"Edited reply text. The suggestion is sent as is if empty."`
}

// MessageOutput is the result of a single-message tool
type MessageOutput struct {
	Success bool            `json:"success"`
	Message *MessageSummary `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// GetMessage gets one message
func (h *Handler) GetMessage(ctx context.Context, req *mcpsdk.CallToolRequest, input MessageInput) (*mcpsdk.CallToolResult, MessageOutput, error) {
	if input.MessageID == "" {
		return nil, MessageOutput{Error: "message_id is required"}, nil
	}
	return nil, messageOutput(h.client.GetMessage(ctx, input.MessageID)), nil
}

// Approve approves and sends a reply
func (h *Handler) Approve(ctx context.Context, req *mcpsdk.CallToolRequest, input ApproveInput) (*mcpsdk.CallToolResult, MessageOutput, error) {
	if input.MessageID == "" {
		return nil, MessageOutput{Error: "message_id is required"}, nil
	}
	return nil, messageOutput(h.client.Approve(ctx, input.MessageID, input.FinalResponse)), nil
}

// Reject rejects a message
func (h *Handler) Reject(ctx context.Context, req *mcpsdk.CallToolRequest, input MessageInput) (*mcpsdk.CallToolResult, MessageOutput, error) {
	if input.MessageID == "" {
		return nil, MessageOutput{Error: "message_id is required"}, nil
	}
	return nil, messageOutput(h.client.Reject(ctx, input.MessageID)), nil
}

// Regenerate regenerates a suggestion
func (h *Handler) Regenerate(ctx context.Context, req *mcpsdk.CallToolRequest, input MessageInput) (*mcpsdk.CallToolResult, MessageOutput, error) {
	if input.MessageID == "" {
		return nil, MessageOutput{Error: "message_id is required"}, nil
	}
	return nil, messageOutput(h.client.Regenerate(ctx, input.MessageID)), nil
}

func messageOutput(m *api.Message, err error) MessageOutput {
	if err != nil {
		return MessageOutput{Error: err.Error()}
	}
	s := summarize(m)
	return MessageOutput{Success: true, Message: &s}
}

package api

import (
	"time"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
)

// Message is the JSON view of a stored message with its latest response
type Message struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	PlatformMessageID string    `json:"platform_message_id"`
	Kind              string    `json:"kind"`
	SenderName        string    `json:"sender_name"`
	SenderUsername    string    `json:"sender_username,omitempty"`
	SenderID          string    `json:"sender_id"`
	Content           string    `json:"content"`
	MediaType         string    `json:"media_type,omitempty"`
	MediaURL          string    `json:"media_url,omitempty"`
	PostID            string    `json:"post_id,omitempty"`
	ParentCommentID   string    `json:"parent_comment_id,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	ProcessedAt       time.Time `json:"processed_at"`
	Response          *Response `json:"response,omitempty"`
}

// Response is the JSON view of a response attempt
type Response struct {
	ID                string     `json:"id"`
	Attempt           int        `json:"attempt"`
	SuggestedResponse string     `json:"suggested_response"`
	FinalResponse     string     `json:"final_response,omitempty"`
	ConfidenceScore   float64    `json:"confidence_score"`
	Reasoning         string     `json:"reasoning,omitempty"`
	ErrorCode         string     `json:"error_code,omitempty"`
	WasEdited         bool       `json:"was_edited"`
	WasApproved       *bool      `json:"was_approved,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
}

// ListResult is returned by GET /api/messages
type ListResult struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count"`
}

// ApproveRequest is the body of POST /api/messages/:id/approve
type ApproveRequest struct {
	FinalResponse string `json:"final_response"`
}

// ErrorResult is the body of every non-2xx API response
type ErrorResult struct {
	Error string `json:"error"`
}

// FromDomain converts a message with its latest response
func FromDomain(item *domain.MessageWithResponse) Message {
	m := item.Message
	out := Message{
		ID:                m.ID,
		UserID:            m.UserID,
		PlatformMessageID: m.PlatformMessageID,
		Kind:              string(m.Kind),
		SenderName:        m.SenderName,
		SenderUsername:    m.SenderUsername,
		SenderID:          m.SenderID,
		Content:           m.Content,
		MediaType:         m.MediaType,
		MediaURL:          m.MediaURL,
		PostID:            m.PostID,
		ParentCommentID:   m.ParentCommentID,
		Status:            string(m.Status),
		CreatedAt:         m.CreatedAt,
		ProcessedAt:       m.ProcessedAt,
	}
	if r := item.Response; r != nil {
		out.Response = &Response{
			ID:                r.ID,
			Attempt:           r.Attempt,
			SuggestedResponse: r.SuggestedResponse,
			FinalResponse:     r.FinalResponse,
			ConfidenceScore:   r.ConfidenceScore,
			Reasoning:         r.Reasoning,
			ErrorCode:         string(r.ErrorCode),
			WasEdited:         r.WasEdited,
			WasApproved:       r.WasApproved,
			CreatedAt:         r.CreatedAt,
			ApprovedAt:        r.ApprovedAt,
		}
	}
	return out
}

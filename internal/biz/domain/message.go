package domain

import "time"

// MessageStatus is the approval state of a stored message
type MessageStatus string

const (
	StatusPending  MessageStatus = "pending"
	StatusApproved MessageStatus = "approved"
	StatusRejected MessageStatus = "rejected"
	StatusAutoSent MessageStatus = "auto_sent"
)

// Valid reports whether s is a known status
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusAutoSent:
		return true
	}
	return false
}

// Message is a persisted inbound message. (UserID, PlatformMessageID) is unique.
type Message struct {
	ID                string
	UserID            string
	PlatformMessageID string
	Kind              EventKind
	SenderName        string
	SenderUsername    string
	SenderID          string
	Content           string
	MediaType         string
	MediaURL          string
	PostID            string
	ParentCommentID   string
	Status            MessageStatus
	CreatedAt         time.Time
	ProcessedAt       time.Time
}

// IsPending checks if the message still awaits a human decision
func (m *Message) IsPending() bool {
	return m.Status == StatusPending
}

// ReplyTarget returns the id the outbound sender should address:
// the sender for DMs, the comment itself for comments.
func (m *Message) ReplyTarget() string {
	if m.Kind == EventKindComment {
		return m.PlatformMessageID
	}
	return m.SenderID
}

// NewMessage builds a message from an admitted event and the resolved sender
func NewMessage(id, userID string, ev *InboundEvent, sender SenderProfile, status MessageStatus, now time.Time) *Message {
	return &Message{
		ID:                id,
		UserID:            userID,
		PlatformMessageID: ev.PlatformMessageID,
		Kind:              ev.Kind,
		SenderName:        sender.Name,
		SenderUsername:    sender.Username,
		SenderID:          ev.SenderID,
		Content:           ev.Content,
		MediaType:         ev.MediaType,
		MediaURL:          ev.MediaURL,
		PostID:            ev.PostID,
		ParentCommentID:   ev.ParentCommentID,
		Status:            status,
		CreatedAt:         now,
		ProcessedAt:       now,
	}
}

// SameSender reports whether two sides identify the same human: equal
// non-empty sender ids, or equal non-empty usernames. Two sides with no
// overlapping identifier never match.
func SameSender(aID, aUsername, bID, bUsername string) bool {
	if aID != "" && bID != "" && aID == bID {
		return true
	}
	if aUsername != "" && bUsername != "" && aUsername == bUsername {
		return true
	}
	return false
}

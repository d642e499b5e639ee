package domain

import "time"

// EventKind is the kind of inbound event
type EventKind string

const (
	EventKindDM      EventKind = "dm"
	EventKindComment EventKind = "comment"
)

// SyntheticIDPrefix marks platform message ids generated locally for events
// that arrived without one.
const SyntheticIDPrefix = "synthetic:"

// InboundEvent is one normalized webhook event. Not persisted directly.
type InboundEvent struct {
	Kind              EventKind
	PlatformMessageID string
	SenderID          string
	SenderUsername    string
	AccountID         string // recipient / page / business account id
	Content           string
	MediaType         string
	MediaURL          string
	ParentCommentID   string
	PostID            string
	Timestamp         time.Time // platform-side event time, zero if absent
	ReceivedAt        time.Time
}

// HasSyntheticID reports whether the platform message id was generated locally
func (e *InboundEvent) HasSyntheticID() bool {
	return len(e.PlatformMessageID) >= len(SyntheticIDPrefix) &&
		e.PlatformMessageID[:len(SyntheticIDPrefix)] == SyntheticIDPrefix
}

// NeedsContentDedup reports whether the content-based fallback applies.
// DMs can reuse delivery ids across message and receipt events, and
// synthetic ids carry no cross-delivery identity at all.
func (e *InboundEvent) NeedsContentDedup() bool {
	return e.Kind == EventKindDM || e.HasSyntheticID()
}

// IsEmpty reports whether the event carries neither text nor media
func (e *InboundEvent) IsEmpty() bool {
	return e.Content == "" && e.MediaType == "" && e.MediaURL == ""
}

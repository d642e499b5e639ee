package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
)

// Delivery is one parsed webhook request
type Delivery struct {
	Object string
	Events []*domain.InboundEvent
}

type payload struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID        string          `json:"id"`
	Time      json.Number     `json:"time"`
	Messaging []messagingItem `json:"messaging"`
	Standby   []messagingItem `json:"standby"`
	Changes   []change        `json:"changes"`
}

type party struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type messagingItem struct {
	Sender      *party       `json:"sender"`
	Recipient   *party       `json:"recipient"`
	Timestamp   json.Number  `json:"timestamp"`
	Message     *messageBody `json:"message"`
	MessageEdit *messageBody `json:"message_edit"`
}

type messageBody struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text"`
	IsEcho      bool         `json:"is_echo"`
	IsDeleted   bool         `json:"is_deleted"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url"`
	} `json:"payload"`
}

type change struct {
	Field string       `json:"field"`
	Value *commentBody `json:"value"`
}

type commentBody struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	From     *party `json:"from"`
	ParentID string `json:"parent_id"`
	Media    *struct {
		ID               string `json:"id"`
		MediaProductType string `json:"media_product_type"`
	} `json:"media"`
}

// Parse normalizes a webhook body into inbound events. Echoes, receipts,
// reactions and events with neither text nor media are dropped. Events without
// a platform message id get a deterministic synthetic one.
func Parse(body []byte, receivedAt time.Time) (*Delivery, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}

	d := &Delivery{Object: p.Object}
	for i := range p.Entry {
		e := &p.Entry[i]
		for _, item := range e.Messaging {
			if ev := messagingEvent(e, item, receivedAt); ev != nil {
				d.Events = append(d.Events, ev)
			}
		}
		for _, item := range e.Standby {
			if ev := messagingEvent(e, item, receivedAt); ev != nil {
				d.Events = append(d.Events, ev)
			}
		}
		for _, c := range e.Changes {
			if ev := commentEvent(e, c, receivedAt); ev != nil {
				d.Events = append(d.Events, ev)
			}
		}
	}
	return d, nil
}

func messagingEvent(e *entry, item messagingItem, receivedAt time.Time) *domain.InboundEvent {
	msg := item.Message
	if msg == nil {
		msg = item.MessageEdit
	}
	if msg == nil || msg.IsEcho || msg.IsDeleted || item.Sender == nil {
		return nil
	}

	accountID := e.ID
	if item.Recipient != nil && item.Recipient.ID != "" {
		accountID = item.Recipient.ID
	}
	// The account's own outbound messages can arrive without is_echo
	if item.Sender.ID == accountID || item.Sender.ID == e.ID {
		return nil
	}

	ev := &domain.InboundEvent{
		Kind:              domain.EventKindDM,
		PlatformMessageID: msg.MID,
		SenderID:          item.Sender.ID,
		SenderUsername:    item.Sender.Username,
		AccountID:         accountID,
		Content:           strings.TrimSpace(msg.Text),
		Timestamp:         parseTime(item.Timestamp),
		ReceivedAt:        receivedAt,
	}
	if len(msg.Attachments) > 0 {
		ev.MediaType = msg.Attachments[0].Type
		ev.MediaURL = msg.Attachments[0].Payload.URL
	}
	return finish(ev)
}

func commentEvent(e *entry, c change, receivedAt time.Time) *domain.InboundEvent {
	if c.Field != "comments" && c.Field != "live_comments" {
		return nil
	}
	v := c.Value
	if v == nil || v.From == nil {
		return nil
	}
	if v.From.ID != "" && v.From.ID == e.ID {
		return nil
	}

	ev := &domain.InboundEvent{
		Kind:              domain.EventKindComment,
		PlatformMessageID: v.ID,
		SenderID:          v.From.ID,
		SenderUsername:    v.From.Username,
		AccountID:         e.ID,
		Content:           strings.TrimSpace(v.Text),
		ParentCommentID:   v.ParentID,
		Timestamp:         parseTime(e.Time),
		ReceivedAt:        receivedAt,
	}
	if v.Media != nil {
		ev.PostID = v.Media.ID
	}
	return finish(ev)
}

func finish(ev *domain.InboundEvent) *domain.InboundEvent {
	if ev.IsEmpty() {
		return nil
	}
	if ev.PlatformMessageID == "" {
		ev.PlatformMessageID = SyntheticID(ev)
	}
	return ev
}

// SyntheticID derives a stable id from the identifying fields of an event
func SyntheticID(ev *domain.InboundEvent) string {
	var ts string
	if !ev.Timestamp.IsZero() {
		ts = strconv.FormatInt(ev.Timestamp.UnixMilli(), 10)
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		ev.AccountID, ev.SenderID, ev.Content, ev.MediaType + ev.MediaURL, ts,
	}, "|")))
	return domain.SyntheticIDPrefix + hex.EncodeToString(sum[:])
}

// parseTime accepts unix seconds or milliseconds
func parseTime(n json.Number) time.Time {
	v, err := n.Int64()
	if err != nil || v <= 0 {
		return time.Time{}
	}
	if v < 1e12 {
		return time.Unix(v, 0)
	}
	return time.UnixMilli(v)
}

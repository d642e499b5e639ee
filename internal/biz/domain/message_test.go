package domain

import (
	"math"
	"testing"
	"time"
)

func TestSameSender(t *testing.T) {
	tests := []struct {
		name       string
		aID, aUser string
		bID, bUser string
		want       bool
	}{
		{"same id", "123", "", "123", "", true},
		{"same username different id namespaces", "app-1", "alice", "api-9", "alice", true},
		{"different id and username", "1", "alice", "2", "bob", false},
		{"no identifiers at all", "", "", "", "", false},
		{"identifiers on one side only", "1", "alice", "", "", false},
		{"empty ids do not match each other", "", "alice", "", "bob", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameSender(tt.aID, tt.aUser, tt.bID, tt.bUser); got != tt.want {
				t.Errorf("SameSender() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInboundEvent_NeedsContentDedup(t *testing.T) {
	dm := &InboundEvent{Kind: EventKindDM, PlatformMessageID: "mid.1"}
	if !dm.NeedsContentDedup() {
		t.Error("Expected DMs to use content dedup")
	}

	comment := &InboundEvent{Kind: EventKindComment, PlatformMessageID: "1789"}
	if comment.NeedsContentDedup() {
		t.Error("Expected comments with stable ids to skip content dedup")
	}

	synthetic := &InboundEvent{Kind: EventKindComment, PlatformMessageID: SyntheticIDPrefix + "abc"}
	if !synthetic.NeedsContentDedup() {
		t.Error("Expected synthetic ids to use content dedup")
	}
}

func TestMessage_ReplyTarget(t *testing.T) {
	dm := &Message{Kind: EventKindDM, SenderID: "s1", PlatformMessageID: "mid.1"}
	if dm.ReplyTarget() != "s1" {
		t.Errorf("Expected DM reply target to be the sender, got %s", dm.ReplyTarget())
	}

	c := &Message{Kind: EventKindComment, SenderID: "s1", PlatformMessageID: "c1"}
	if c.ReplyTarget() != "c1" {
		t.Errorf("Expected comment reply target to be the comment, got %s", c.ReplyTarget())
	}
}

func TestNewResponse_ClampsConfidence(t *testing.T) {
	now := time.Now()
	cases := map[float64]float64{-0.5: 0, 0.42: 0.42, 3: 1, math.NaN(): 0}
	for in, want := range cases {
		r := NewResponse("r", "m", 1, Generation{Suggestion: "hi", Confidence: in}, now)
		if r.ConfidenceScore != want {
			t.Errorf("NewResponse(confidence=%v) clamped to %v, want %v", in, r.ConfidenceScore, want)
		}
	}
}

func TestSenderProfile_DisplayName(t *testing.T) {
	if got := (SenderProfile{Name: "Alice"}).DisplayName(); got != "Alice" {
		t.Errorf("got %q", got)
	}
	if got := (SenderProfile{Username: "alice"}).DisplayName(); got != "@alice" {
		t.Errorf("got %q", got)
	}
	p := PlaceholderProfile("42")
	if p.Name != PlaceholderName || p.Username != "42" {
		t.Errorf("unexpected placeholder %+v", p)
	}
}

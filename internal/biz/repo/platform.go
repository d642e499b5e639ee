package repo

import (
	"context"
	"errors"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
)

// IdentityRepo looks up sender profiles on the platform's identity API
type IdentityRepo interface {
	LookupProfile(ctx context.Context, senderID, accessToken string) (*domain.SenderProfile, error)
}

// OutboundSender delivers replies to the platform's send API
type OutboundSender interface {
	// SendDM sends a direct message to recipientID from the account
	SendDM(ctx context.Context, account *domain.Account, recipientID, text string) error

	// ReplyComment replies to a comment
	ReplyComment(ctx context.Context, account *domain.Account, commentID, text string) error
}

// ChatMessage is one message of a completion request
type ChatMessage struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrMissingAPIKey is returned when no completion API key is configured
	ErrMissingAPIKey = errors.New("completion api key not configured")

	// ErrRateLimited is returned when the completion API rejects with a rate limit
	ErrRateLimited = errors.New("completion api rate limited")

	// ErrCompletionTimeout is returned when a completion call exceeds its deadline
	ErrCompletionTimeout = errors.New("completion api timeout")
)

// CompletionRepo calls the completion API and returns the raw content of the
// first choice
type CompletionRepo interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// DedupCache is the process-wide TTL cache of recently admitted platform
// message ids. It is an optimisation over the durable unique key.
type DedupCache interface {
	// Seen reports an unexpired entry for id
	Seen(id string) bool

	// Reserve atomically checks for an unexpired entry and, if none, writes one.
	// Returns false if id was already present.
	Reserve(id string) bool

	// Release removes id
	Release(id string)

	// Sweep drops expired entries and returns how many were removed
	Sweep() int
}

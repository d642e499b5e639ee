package repo

import (
	"context"
	"errors"
	"time"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
)

// ErrDuplicate is returned when the (user_id, platform_message_id) unique
// constraint rejects an insert. Callers treat it as a duplicate, not a failure.
var ErrDuplicate = errors.New("duplicate platform message")

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// MessageRepo is the message repository interface
// Responsible for durable messages and their response attempts
type MessageRepo interface {
	// ExistsByPlatformID checks the durable idempotency key
	ExistsByPlatformID(ctx context.Context, userID, platformMessageID string) (bool, error)

	// FindRecentByContent returns messages of the user created at or after
	// since with identical content and media type
	FindRecentByContent(ctx context.Context, userID, content, mediaType string, since time.Time) ([]*domain.Message, error)

	// CreateWithResponse inserts a message and its first response in one
	// transaction. Returns ErrDuplicate if the message already exists.
	CreateWithResponse(ctx context.Context, msg *domain.Message, resp *domain.Response) error

	// Get gets a message with its latest response attempt
	Get(ctx context.Context, id string) (*domain.MessageWithResponse, error)

	// ListByStatus lists messages (newest first) with their latest response.
	// Empty userID lists across all users.
	ListByStatus(ctx context.Context, userID string, status domain.MessageStatus, limit int) ([]*domain.MessageWithResponse, error)

	// UpdateStatus transitions a message from one status to another.
	// Returns ErrNotFound if the message is not in the expected status.
	UpdateStatus(ctx context.Context, id string, from, to domain.MessageStatus) error

	// AddResponse appends a new response attempt
	AddResponse(ctx context.Context, resp *domain.Response) error

	// FinalizeResponse records the human decision on a response attempt
	FinalizeResponse(ctx context.Context, responseID, finalText string, edited, approved bool, at time.Time) error
}

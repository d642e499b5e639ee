package repo

import (
	"context"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
)

// AccountRepo is the account repository interface
type AccountRepo interface {
	// GetByPlatformAccountID gets the account that owns a platform account id.
	// The recipient scope id is accepted as an alias.
	GetByPlatformAccountID(ctx context.Context, platformAccountID string) (*domain.Account, error)

	// GetByUserID gets an account by local user id
	GetByUserID(ctx context.Context, userID string) (*domain.Account, error)

	// FindByScopeID finds a known account by learned recipient scope id
	FindByScopeID(ctx context.Context, scopeID string) (*domain.Account, error)

	// FindByUsername finds a known account by display username
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)

	// UpdateScopeID stores a learned scope id. Returns whether a row changed.
	UpdateScopeID(ctx context.Context, userID, scopeID string) (bool, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *domain.Account) error

	// List lists all accounts
	List(ctx context.Context) ([]*domain.Account, error)
}

// CorrectionRepo stores human corrections of suggested replies
type CorrectionRepo interface {
	Add(ctx context.Context, c *domain.Correction) error

	// Recent returns up to limit most recent corrections, newest first
	Recent(ctx context.Context, userID string, limit int) ([]*domain.Correction, error)
}

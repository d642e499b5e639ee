package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// accountRepo implements repo.AccountRepo
type accountRepo struct {
	db *DB
}

// NewAccountRepo creates an account repository
func NewAccountRepo(db *DB) repo.AccountRepo {
	return &accountRepo{db: db}
}

const accountColumns = `user_id, platform_account_id, recipient_scope_id, display_username, access_token,
	mode, threshold, system_prompt, created_at, updated_at`

func (r *accountRepo) getOne(ctx context.Context, where string, args ...any) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+accountColumns+` FROM accounts WHERE `+where+` LIMIT 1`), args...)

	var (
		a                    domain.Account
		mode                 string
		createdAt, updatedAt int64
	)
	err := row.Scan(&a.UserID, &a.PlatformAccountID, &a.RecipientScopeID, &a.DisplayUsername, &a.AccessToken,
		&mode, &a.Threshold, &a.SystemPrompt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	a.Mode = domain.ParseMode(mode)
	a.CreatedAt = time.UnixMilli(createdAt)
	a.UpdatedAt = time.UnixMilli(updatedAt)
	return &a, nil
}

// GetByPlatformAccountID matches the platform account id or the learned scope id
func (r *accountRepo) GetByPlatformAccountID(ctx context.Context, platformAccountID string) (*domain.Account, error) {
	if platformAccountID == "" {
		return nil, repo.ErrNotFound
	}
	a, err := r.getOne(ctx, `platform_account_id = ?`, platformAccountID)
	if errors.Is(err, repo.ErrNotFound) {
		return r.getOne(ctx, `recipient_scope_id = ?`, platformAccountID)
	}
	return a, err
}

// GetByUserID gets an account by user id
func (r *accountRepo) GetByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	return r.getOne(ctx, `user_id = ?`, userID)
}

// FindByScopeID finds an account by learned scope id
func (r *accountRepo) FindByScopeID(ctx context.Context, scopeID string) (*domain.Account, error) {
	if scopeID == "" {
		return nil, repo.ErrNotFound
	}
	return r.getOne(ctx, `recipient_scope_id = ?`, scopeID)
}

// FindByUsername finds an account by display username
func (r *accountRepo) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	if username == "" {
		return nil, repo.ErrNotFound
	}
	return r.getOne(ctx, `display_username = ?`, username)
}

// UpdateScopeID writes the scope id only if it differs
func (r *accountRepo) UpdateScopeID(ctx context.Context, userID, scopeID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE accounts SET recipient_scope_id = ?, updated_at = ?
		WHERE user_id = ? AND recipient_scope_id <> ?
	`), scopeID, time.Now().UnixMilli(), userID, scopeID)
	if err != nil {
		return false, fmt.Errorf("failed to update scope id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update scope id: %w", err)
	}
	return n > 0, nil
}

// Save upserts an account by user id
func (r *accountRepo) Save(ctx context.Context, a *domain.Account) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			platform_account_id = excluded.platform_account_id,
			recipient_scope_id = excluded.recipient_scope_id,
			display_username = excluded.display_username,
			access_token = excluded.access_token,
			mode = excluded.mode,
			threshold = excluded.threshold,
			system_prompt = excluded.system_prompt,
			updated_at = excluded.updated_at
	`), a.UserID, a.PlatformAccountID, a.RecipientScopeID, a.DisplayUsername, a.AccessToken,
		string(a.Mode), a.Threshold, a.SystemPrompt, a.CreatedAt.UnixMilli(), a.UpdatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("platform account %s already registered: %w", a.PlatformAccountID, repo.ErrDuplicate)
		}
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// List lists all accounts
func (r *accountRepo) List(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var (
			a                    domain.Account
			mode                 string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&a.UserID, &a.PlatformAccountID, &a.RecipientScopeID, &a.DisplayUsername, &a.AccessToken,
			&mode, &a.Threshold, &a.SystemPrompt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Mode = domain.ParseMode(mode)
		a.CreatedAt = time.UnixMilli(createdAt)
		a.UpdatedAt = time.UnixMilli(updatedAt)
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

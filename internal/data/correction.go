package data

import (
	"context"
	"fmt"
	"time"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// correctionRepo implements repo.CorrectionRepo
type correctionRepo struct {
	db *DB
}

// NewCorrectionRepo creates a correction repository
func NewCorrectionRepo(db *DB) repo.CorrectionRepo {
	return &correctionRepo{db: db}
}

// Add stores a correction
func (r *correctionRepo) Add(ctx context.Context, c *domain.Correction) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO corrections (id, user_id, message_content, original_response, corrected_response, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), c.ID, c.UserID, c.MessageContent, c.OriginalResponse, c.CorrectedResponse, c.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to add correction: %w", err)
	}
	return nil
}

// Recent returns the newest corrections of a user
func (r *correctionRepo) Recent(ctx context.Context, userID string, limit int) ([]*domain.Correction, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT id, user_id, message_content, original_response, corrected_response, created_at
		FROM corrections
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer rows.Close()

	var result []*domain.Correction
	for rows.Next() {
		var (
			c         domain.Correction
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.MessageContent, &c.OriginalResponse, &c.CorrectedResponse, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		c.CreatedAt = time.UnixMilli(createdAt)
		result = append(result, &c)
	}
	return result, rows.Err()
}

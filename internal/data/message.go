package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// messageRepo implements repo.MessageRepo on sqlite or postgres
type messageRepo struct {
	db *DB
}

// NewMessageRepo creates a message repository
func NewMessageRepo(db *DB) repo.MessageRepo {
	return &messageRepo{db: db}
}

const messageColumns = `m.id, m.user_id, m.platform_message_id, m.kind, m.sender_name, m.sender_username,
	m.sender_id, m.content, m.media_type, m.media_url, m.post_id, m.parent_comment_id, m.status,
	m.created_at, m.processed_at`

const responseColumns = `r.id, r.message_id, r.attempt, r.suggested_response, r.final_response,
	r.confidence_score, r.reasoning, r.error_code, r.was_edited, r.was_approved, r.created_at, r.approved_at`

// ExistsByPlatformID checks the durable idempotency key
func (r *messageRepo) ExistsByPlatformID(ctx context.Context, userID, platformMessageID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT 1 FROM messages WHERE user_id = ? AND platform_message_id = ? LIMIT 1
	`), userID, platformMessageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check message: %w", err)
	}
	return true, nil
}

// FindRecentByContent returns candidates for the content fallback
func (r *messageRepo) FindRecentByContent(ctx context.Context, userID, content, mediaType string, since time.Time) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.user_id = ? AND m.content = ? AND m.media_type = ? AND m.created_at >= ?
		ORDER BY m.created_at DESC
	`), userID, content, mediaType, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CreateWithResponse inserts the message and its first response atomically
func (r *messageRepo) CreateWithResponse(ctx context.Context, msg *domain.Message, resp *domain.Response) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO messages (id, user_id, platform_message_id, kind, sender_name, sender_username,
			sender_id, content, media_type, media_url, post_id, parent_comment_id, status, created_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, platform_message_id) DO NOTHING
	`), msg.ID, msg.UserID, msg.PlatformMessageID, string(msg.Kind), msg.SenderName, msg.SenderUsername,
		msg.SenderID, msg.Content, msg.MediaType, msg.MediaURL, msg.PostID, msg.ParentCommentID,
		string(msg.Status), msg.CreatedAt.UnixMilli(), msg.ProcessedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repo.ErrDuplicate
	}

	if resp != nil {
		resp.MessageID = msg.ID
		if err := insertResponse(ctx, r.db, tx, resp); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertResponse(ctx context.Context, db *DB, ex execer, resp *domain.Response) error {
	var approvedAt sql.NullInt64
	if resp.ApprovedAt != nil {
		approvedAt = sql.NullInt64{Int64: resp.ApprovedAt.UnixMilli(), Valid: true}
	}
	var wasApproved sql.NullBool
	if resp.WasApproved != nil {
		wasApproved = sql.NullBool{Bool: *resp.WasApproved, Valid: true}
	}

	_, err := ex.ExecContext(ctx, db.Rebind(`
		INSERT INTO responses (id, message_id, attempt, suggested_response, final_response, confidence_score,
			reasoning, error_code, was_edited, was_approved, created_at, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), resp.ID, resp.MessageID, resp.Attempt, resp.SuggestedResponse, nullString(resp.FinalResponse),
		resp.ConfidenceScore, resp.Reasoning, string(resp.ErrorCode), resp.WasEdited, wasApproved,
		resp.CreatedAt.UnixMilli(), approvedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("failed to insert response: %w", err)
	}
	return nil
}

// Get gets a message with its latest response
func (r *messageRepo) Get(ctx context.Context, id string) (*domain.MessageWithResponse, error) {
	items, err := r.queryWithResponse(ctx, `WHERE m.id = ?`, []any{id}, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, repo.ErrNotFound
	}
	return items[0], nil
}

// ListByStatus lists messages with their latest response, newest first
func (r *messageRepo) ListByStatus(ctx context.Context, userID string, status domain.MessageStatus, limit int) ([]*domain.MessageWithResponse, error) {
	var (
		conds []string
		args  []any
	)
	if status != "" {
		conds = append(conds, "m.status = ?")
		args = append(args, string(status))
	}
	if userID != "" {
		conds = append(conds, "m.user_id = ?")
		args = append(args, userID)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	if limit <= 0 {
		limit = 50
	}
	return r.queryWithResponse(ctx, where, args, limit)
}

func (r *messageRepo) queryWithResponse(ctx context.Context, where string, args []any, limit int) ([]*domain.MessageWithResponse, error) {
	query := `
		SELECT ` + messageColumns + `, ` + responseColumns + `
		FROM messages m
		LEFT JOIN responses r ON r.message_id = m.id
			AND r.attempt = (SELECT MAX(attempt) FROM responses WHERE message_id = m.id)
		` + where + `
		ORDER BY m.created_at DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var result []*domain.MessageWithResponse
	for rows.Next() {
		item, err := scanMessageWithResponse(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// UpdateStatus performs a guarded status transition
func (r *messageRepo) UpdateStatus(ctx context.Context, id string, from, to domain.MessageStatus) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE messages SET status = ?, processed_at = ? WHERE id = ? AND status = ?
	`), string(to), time.Now().UnixMilli(), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// AddResponse appends a response attempt
func (r *messageRepo) AddResponse(ctx context.Context, resp *domain.Response) error {
	return insertResponse(ctx, r.db, r.db, resp)
}

// FinalizeResponse records the human decision on a response
func (r *messageRepo) FinalizeResponse(ctx context.Context, responseID, finalText string, edited, approved bool, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE responses SET final_response = ?, was_edited = ?, was_approved = ?, approved_at = ?
		WHERE id = ?
	`), nullString(finalText), edited, approved, at.UnixMilli(), responseID)
	if err != nil {
		return fmt.Errorf("failed to finalize response: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*domain.Message, error) {
	var (
		m                      domain.Message
		kind, status           string
		createdAt, processedAt int64
	)
	err := s.Scan(&m.ID, &m.UserID, &m.PlatformMessageID, &kind, &m.SenderName, &m.SenderUsername,
		&m.SenderID, &m.Content, &m.MediaType, &m.MediaURL, &m.PostID, &m.ParentCommentID, &status,
		&createdAt, &processedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	m.Kind = domain.EventKind(kind)
	m.Status = domain.MessageStatus(status)
	m.CreatedAt = time.UnixMilli(createdAt)
	m.ProcessedAt = time.UnixMilli(processedAt)
	return &m, nil
}

func scanMessageWithResponse(s scanner) (*domain.MessageWithResponse, error) {
	var (
		m                      domain.Message
		kind, status           string
		createdAt, processedAt int64

		rID, rMessageID, rSuggested, rReasoning, rErrorCode sql.NullString
		rFinal                                              sql.NullString
		rAttempt, rCreatedAt, rApprovedAt                   sql.NullInt64
		rConfidence                                         sql.NullFloat64
		rEdited, rApproved                                  sql.NullBool
	)
	err := s.Scan(&m.ID, &m.UserID, &m.PlatformMessageID, &kind, &m.SenderName, &m.SenderUsername,
		&m.SenderID, &m.Content, &m.MediaType, &m.MediaURL, &m.PostID, &m.ParentCommentID, &status,
		&createdAt, &processedAt,
		&rID, &rMessageID, &rAttempt, &rSuggested, &rFinal, &rConfidence, &rReasoning, &rErrorCode,
		&rEdited, &rApproved, &rCreatedAt, &rApprovedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	m.Kind = domain.EventKind(kind)
	m.Status = domain.MessageStatus(status)
	m.CreatedAt = time.UnixMilli(createdAt)
	m.ProcessedAt = time.UnixMilli(processedAt)

	item := &domain.MessageWithResponse{Message: &m}
	if rID.Valid {
		resp := &domain.Response{
			ID:                rID.String,
			MessageID:         rMessageID.String,
			Attempt:           int(rAttempt.Int64),
			SuggestedResponse: rSuggested.String,
			FinalResponse:     rFinal.String,
			ConfidenceScore:   rConfidence.Float64,
			Reasoning:         rReasoning.String,
			ErrorCode:         domain.ErrorCode(rErrorCode.String),
			WasEdited:         rEdited.Bool,
			CreatedAt:         time.UnixMilli(rCreatedAt.Int64),
		}
		if rApproved.Valid {
			v := rApproved.Bool
			resp.WasApproved = &v
		}
		if rApprovedAt.Valid {
			t := time.UnixMilli(rApprovedAt.Int64)
			resp.ApprovedAt = &t
		}
		item.Response = resp
	}
	return item, nil
}

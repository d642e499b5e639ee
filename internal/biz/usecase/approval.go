package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

var (
	// ErrNotPending is returned when a decision targets a message that is no longer pending
	ErrNotPending = errors.New("message is not pending")

	// ErrEmptyReply is returned when approving with nothing to send
	ErrEmptyReply = errors.New("reply text is empty")
)

// ApprovalUsecase is the human review workflow over pending messages
type ApprovalUsecase struct {
	messageRepo    repo.MessageRepo
	accountRepo    repo.AccountRepo
	correctionRepo repo.CorrectionRepo
	generator      *GeneratorUsecase
	router         *RouterUsecase
	newID          func() string
	now            func() time.Time
	log            *zap.Logger
}

// NewApprovalUsecase creates the approval usecase
func NewApprovalUsecase(
	messageRepo repo.MessageRepo,
	accountRepo repo.AccountRepo,
	correctionRepo repo.CorrectionRepo,
	generator *GeneratorUsecase,
	router *RouterUsecase,
	log *zap.Logger,
) *ApprovalUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &ApprovalUsecase{
		messageRepo:    messageRepo,
		accountRepo:    accountRepo,
		correctionRepo: correctionRepo,
		generator:      generator,
		router:         router,
		newID:          uuid.NewString,
		now:            time.Now,
		log:            log.Named("approval"),
	}
}

// ListPending lists messages awaiting review
func (uc *ApprovalUsecase) ListPending(ctx context.Context, userID string, limit int) ([]*domain.MessageWithResponse, error) {
	return uc.List(ctx, userID, domain.StatusPending, limit)
}

// List lists messages in a status
func (uc *ApprovalUsecase) List(ctx context.Context, userID string, status domain.MessageStatus, limit int) ([]*domain.MessageWithResponse, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return uc.messageRepo.ListByStatus(ctx, userID, status, limit)
}

// Get gets a message with its latest response
func (uc *ApprovalUsecase) Get(ctx context.Context, id string) (*domain.MessageWithResponse, error) {
	return uc.messageRepo.Get(ctx, id)
}

// Approve sends the reply and marks the message approved. An empty finalText
// sends the suggestion as is; an edited text is recorded as a correction.
func (uc *ApprovalUsecase) Approve(ctx context.Context, id, finalText string) (*domain.MessageWithResponse, error) {
	item, err := uc.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	suggestion := item.Response.SuggestedResponse

	text := strings.TrimSpace(finalText)
	if text == "" {
		text = suggestion
	}
	if text == "" {
		return nil, ErrEmptyReply
	}
	edited := text != suggestion

	account, err := uc.accountRepo.GetByUserID(ctx, item.Message.UserID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	// Claim the message first so concurrent approvals cannot both send
	if err := uc.transition(ctx, id, domain.StatusPending, domain.StatusApproved); err != nil {
		return nil, err
	}

	if err := uc.router.Send(ctx, account, item.Message, text); err != nil {
		if rerr := uc.messageRepo.UpdateStatus(ctx, id, domain.StatusApproved, domain.StatusPending); rerr != nil {
			uc.log.Error("failed to return message to pending", zap.String("message_id", id), zap.Error(rerr))
		}
		return nil, fmt.Errorf("send reply: %w", err)
	}

	now := uc.now()
	if err := uc.messageRepo.FinalizeResponse(ctx, item.Response.ID, text, edited, true, now); err != nil {
		uc.log.Error("failed to record approval", zap.String("message_id", id), zap.Error(err))
	}

	if edited && uc.correctionRepo != nil {
		err := uc.correctionRepo.Add(ctx, &domain.Correction{
			ID:                uc.newID(),
			UserID:            item.Message.UserID,
			MessageContent:    item.Message.Content,
			OriginalResponse:  suggestion,
			CorrectedResponse: text,
			CreatedAt:         now,
		})
		if err != nil {
			uc.log.Warn("failed to store correction", zap.String("message_id", id), zap.Error(err))
		}
	}

	uc.log.Info("message approved", zap.String("message_id", id), zap.Bool("edited", edited))
	return uc.messageRepo.Get(ctx, id)
}

// Reject marks a pending message rejected without sending anything
func (uc *ApprovalUsecase) Reject(ctx context.Context, id string) (*domain.MessageWithResponse, error) {
	item, err := uc.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.transition(ctx, id, domain.StatusPending, domain.StatusRejected); err != nil {
		return nil, err
	}
	if err := uc.messageRepo.FinalizeResponse(ctx, item.Response.ID, "", false, false, uc.now()); err != nil {
		uc.log.Error("failed to record rejection", zap.String("message_id", id), zap.Error(err))
	}

	uc.log.Info("message rejected", zap.String("message_id", id))
	return uc.messageRepo.Get(ctx, id)
}

// Regenerate adds a new response attempt for a pending message
func (uc *ApprovalUsecase) Regenerate(ctx context.Context, id string) (*domain.MessageWithResponse, error) {
	item, err := uc.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	account, err := uc.accountRepo.GetByUserID(ctx, item.Message.UserID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	msg := item.Message
	gen := uc.generator.Regenerate(ctx, GenerateRequest{
		Account: account,
		Sender: domain.SenderProfile{
			Name:     msg.SenderName,
			Username: msg.SenderUsername,
		},
		Kind:      msg.Kind,
		Content:   msg.Content,
		MediaType: msg.MediaType,
		ParentID:  msg.ParentCommentID,
	}, item.Response.SuggestedResponse)

	resp := domain.NewResponse(uc.newID(), msg.ID, item.Response.Attempt+1, gen, uc.now())
	if err := uc.messageRepo.AddResponse(ctx, resp); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("concurrent regeneration: %w", err)
		}
		return nil, err
	}

	uc.log.Info("response regenerated",
		zap.String("message_id", id),
		zap.Int("attempt", resp.Attempt),
		zap.String("error_code", string(resp.ErrorCode)))
	return uc.messageRepo.Get(ctx, id)
}

func (uc *ApprovalUsecase) pending(ctx context.Context, id string) (*domain.MessageWithResponse, error) {
	item, err := uc.messageRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.Message.IsPending() {
		return nil, ErrNotPending
	}
	if item.Response == nil {
		return nil, fmt.Errorf("message %s has no response", id)
	}
	return item, nil
}

func (uc *ApprovalUsecase) transition(ctx context.Context, id string, from, to domain.MessageStatus) error {
	err := uc.messageRepo.UpdateStatus(ctx, id, from, to)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotPending
	}
	return err
}

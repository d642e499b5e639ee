package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// RouterUsecase persists routed messages and performs the auto-send
type RouterUsecase struct {
	messageRepo repo.MessageRepo
	sender      repo.OutboundSender
	log         *zap.Logger
}

// NewRouterUsecase creates the router usecase
func NewRouterUsecase(messageRepo repo.MessageRepo, sender repo.OutboundSender, log *zap.Logger) *RouterUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &RouterUsecase{
		messageRepo: messageRepo,
		sender:      sender,
		log:         log.Named("router"),
	}
}

// Persist writes the message with its first response. repo.ErrDuplicate is
// returned untouched when another delivery won the insert; nothing is sent then.
// An auto_sent message whose send fails is downgraded to pending.
func (uc *RouterUsecase) Persist(ctx context.Context, account *domain.Account, msg *domain.Message, resp *domain.Response) (domain.MessageStatus, error) {
	if err := uc.messageRepo.CreateWithResponse(ctx, msg, resp); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return "", err
		}
		return "", fmt.Errorf("persist message: %w", err)
	}

	if msg.Status != domain.StatusAutoSent {
		return msg.Status, nil
	}

	if err := uc.Send(ctx, account, msg, resp.SuggestedResponse); err != nil {
		uc.log.Error("auto-send failed, queued for review",
			zap.String("message_id", msg.ID),
			zap.String("platform_message_id", msg.PlatformMessageID),
			zap.Error(err))
		if err := uc.messageRepo.UpdateStatus(ctx, msg.ID, domain.StatusAutoSent, domain.StatusPending); err != nil {
			uc.log.Error("failed to downgrade message", zap.String("message_id", msg.ID), zap.Error(err))
			return domain.StatusAutoSent, nil
		}
		msg.Status = domain.StatusPending
		return domain.StatusPending, nil
	}
	return domain.StatusAutoSent, nil
}

// Send delivers text as the reply to msg
func (uc *RouterUsecase) Send(ctx context.Context, account *domain.Account, msg *domain.Message, text string) error {
	if uc.sender == nil {
		return errors.New("no outbound sender configured")
	}
	if msg.Kind == domain.EventKindComment {
		return uc.sender.ReplyComment(ctx, account, msg.ReplyTarget(), text)
	}
	return uc.sender.SendDM(ctx, account, msg.ReplyTarget(), text)
}

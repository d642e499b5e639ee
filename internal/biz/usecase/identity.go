package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// DefaultIdentityTimeout bounds one remote profile lookup
const DefaultIdentityTimeout = 5 * time.Second

// IdentityUsecase resolves the human behind a sender id. It never fails:
// remote lookup, then local accounts, then a placeholder.
type IdentityUsecase struct {
	identityRepo repo.IdentityRepo
	accountRepo  repo.AccountRepo
	timeout      time.Duration
	group        singleflight.Group
	log          *zap.Logger
}

// NewIdentityUsecase creates the identity usecase
func NewIdentityUsecase(identityRepo repo.IdentityRepo, accountRepo repo.AccountRepo, timeout time.Duration, log *zap.Logger) *IdentityUsecase {
	if timeout <= 0 {
		timeout = DefaultIdentityTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityUsecase{
		identityRepo: identityRepo,
		accountRepo:  accountRepo,
		timeout:      timeout,
		log:          log.Named("identity"),
	}
}

// Resolve returns the best available profile for senderID
func (uc *IdentityUsecase) Resolve(ctx context.Context, account *domain.Account, senderID, senderUsername string) domain.SenderProfile {
	if p, ok := uc.remote(ctx, account, senderID); ok {
		if p.Username == "" {
			p.Username = senderUsername
		}
		return p
	}

	if p, ok := uc.local(ctx, senderID, senderUsername); ok {
		return p
	}

	uc.log.Warn("identity resolution degraded, using placeholder",
		zap.String("sender_id", senderID),
		zap.String("sender_username", senderUsername))
	p := domain.PlaceholderProfile(senderID)
	if senderUsername != "" {
		p.Username = senderUsername
	}
	return p
}

func (uc *IdentityUsecase) remote(ctx context.Context, account *domain.Account, senderID string) (domain.SenderProfile, bool) {
	if uc.identityRepo == nil || account == nil || senderID == "" {
		return domain.SenderProfile{}, false
	}

	// Concurrent events from the same sender share one call
	v, err, _ := uc.group.Do(account.UserID+"/"+senderID, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.timeout)
		defer cancel()
		return uc.identityRepo.LookupProfile(ctx, senderID, account.AccessToken)
	})
	if err != nil {
		uc.log.Debug("remote profile lookup failed", zap.String("sender_id", senderID), zap.Error(err))
		return domain.SenderProfile{}, false
	}
	p, _ := v.(*domain.SenderProfile)
	if p == nil || !p.IsSufficient() {
		return domain.SenderProfile{}, false
	}
	out := *p
	out.Source = domain.ProfileSourceRemote
	return out, true
}

func (uc *IdentityUsecase) local(ctx context.Context, senderID, senderUsername string) (domain.SenderProfile, bool) {
	if uc.accountRepo == nil {
		return domain.SenderProfile{}, false
	}

	if senderID != "" {
		acct, err := uc.accountRepo.FindByScopeID(ctx, senderID)
		if err == nil {
			return localProfile(acct), true
		}
		if !errors.Is(err, repo.ErrNotFound) {
			uc.log.Debug("local scope lookup failed", zap.Error(err))
		}
	}

	if senderUsername == "" {
		return domain.SenderProfile{}, false
	}
	acct, err := uc.accountRepo.FindByUsername(ctx, senderUsername)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			uc.log.Debug("local username lookup failed", zap.Error(err))
		}
		return domain.SenderProfile{}, false
	}

	// Learn the scope id so the next lookup hits the first branch
	if senderID != "" && acct.RecipientScopeID != senderID {
		if _, err := uc.accountRepo.UpdateScopeID(ctx, acct.UserID, senderID); err != nil {
			uc.log.Warn("failed to store learned scope id", zap.String("user_id", acct.UserID), zap.Error(err))
		}
	}
	return localProfile(acct), true
}

func localProfile(acct *domain.Account) domain.SenderProfile {
	return domain.SenderProfile{
		Name:     acct.DisplayUsername,
		Username: acct.DisplayUsername,
		Source:   domain.ProfileSourceLocal,
	}
}

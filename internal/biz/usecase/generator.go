package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// RetryPolicy controls completion retries. Only rate limits and timeouts are retried.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns 3 retries at 1s, 2s, 4s (capped at 10s)
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: time.Second,
		Multiplier:      2,
		MaxInterval:     10 * time.Second,
	}
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0
	return b
}

// GeneratorUsecase produces reply suggestions with the completion service.
// It always returns a well formed Generation; failures carry an ErrorCode.
type GeneratorUsecase struct {
	completionRepo repo.CompletionRepo
	correctionRepo repo.CorrectionRepo
	prompts        PromptConfig
	retry          RetryPolicy
	log            *zap.Logger
}

// NewGeneratorUsecase creates the generator usecase
func NewGeneratorUsecase(completionRepo repo.CompletionRepo, correctionRepo repo.CorrectionRepo, prompts PromptConfig, retry RetryPolicy, log *zap.Logger) *GeneratorUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &GeneratorUsecase{
		completionRepo: completionRepo,
		correctionRepo: correctionRepo,
		prompts:        prompts,
		retry:          retry,
		log:            log.Named("generator"),
	}
}

// Generate produces the first suggestion for a message
func (uc *GeneratorUsecase) Generate(ctx context.Context, req GenerateRequest) domain.Generation {
	return uc.run(ctx, req, "")
}

// Regenerate produces a new suggestion that diverges from previous
func (uc *GeneratorUsecase) Regenerate(ctx context.Context, req GenerateRequest, previous string) domain.Generation {
	return uc.run(ctx, req, previous)
}

func (uc *GeneratorUsecase) run(ctx context.Context, req GenerateRequest, previous string) domain.Generation {
	if req.Corrections == nil && req.Account != nil && uc.correctionRepo != nil {
		corrections, err := uc.correctionRepo.Recent(ctx, req.Account.UserID, uc.prompts.MaxCorrections)
		if err != nil {
			uc.log.Warn("failed to load corrections", zap.Error(err))
		}
		req.Corrections = corrections
	}

	messages := uc.prompts.buildMessages(req, previous)

	attempt := 0
	raw, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		out, err := uc.completionRepo.Complete(ctx, messages)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, repo.ErrRateLimited) || errors.Is(err, repo.ErrCompletionTimeout) {
			uc.log.Info("completion failed, will retry", zap.Int("attempt", attempt), zap.Error(err))
			return "", err
		}
		return "", backoff.Permanent(err)
	},
		backoff.WithBackOff(uc.retry.backOff()),
		backoff.WithMaxTries(uint(uc.retry.MaxRetries+1)),
	)
	if err != nil {
		code := completionErrorCode(err)
		uc.log.Warn("completion failed",
			zap.String("error_code", string(code)),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return domain.FailedGeneration(code, err.Error())
	}

	gen := parseCompletion(raw)
	if gen.ErrorCode != domain.ErrorCodeNone {
		uc.log.Warn("completion not parseable", zap.String("reason", gen.Reasoning))
	}
	return gen
}

func completionErrorCode(err error) domain.ErrorCode {
	switch {
	case errors.Is(err, repo.ErrMissingAPIKey):
		return domain.ErrorCodeMissingAPIKey
	case errors.Is(err, repo.ErrRateLimited):
		return domain.ErrorCodeRateLimit
	default:
		return domain.ErrorCodeAPIError
	}
}

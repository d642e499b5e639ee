package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

const tracerName = "github.com/devricklin/inbox-autopilot/internal/biz/usecase"

// PipelineUsecase takes one normalized event from admission to a persisted,
// routed message
type PipelineUsecase struct {
	accountRepo repo.AccountRepo
	dedup       *DedupUsecase
	identity    *IdentityUsecase
	generator   *GeneratorUsecase
	router      *RouterUsecase
	tracer      trace.Tracer
	newID       func() string
	now         func() time.Time
	log         *zap.Logger
}

// NewPipelineUsecase creates the pipeline
func NewPipelineUsecase(
	accountRepo repo.AccountRepo,
	dedup *DedupUsecase,
	identity *IdentityUsecase,
	generator *GeneratorUsecase,
	router *RouterUsecase,
	log *zap.Logger,
) *PipelineUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &PipelineUsecase{
		accountRepo: accountRepo,
		dedup:       dedup,
		identity:    identity,
		generator:   generator,
		router:      router,
		tracer:      otel.Tracer(tracerName),
		newID:       uuid.NewString,
		now:         time.Now,
		log:         log.Named("pipeline"),
	}
}

// Process runs one event through dedup, identity, generation and routing.
// Duplicates and unknown accounts are reported as discarded outcomes, not errors.
func (uc *PipelineUsecase) Process(ctx context.Context, batch *Batch, ev *domain.InboundEvent) (domain.EventOutcome, error) {
	ctx, span := uc.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.String("event.kind", string(ev.Kind)),
		attribute.String("event.platform_message_id", ev.PlatformMessageID),
		attribute.String("event.account_id", ev.AccountID),
	))
	defer span.End()

	outcome, err := uc.process(ctx, batch, ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.log.Error("event processing failed",
			zap.String("platform_message_id", ev.PlatformMessageID),
			zap.Error(err))
		return outcome, err
	}

	span.SetAttributes(
		attribute.String("outcome.state", string(outcome.State)),
		attribute.String("outcome.layer", string(outcome.Layer)),
		attribute.String("outcome.status", string(outcome.Status)),
	)
	return outcome, nil
}

func (uc *PipelineUsecase) process(ctx context.Context, batch *Batch, ev *domain.InboundEvent) (domain.EventOutcome, error) {
	account, err := uc.accountRepo.GetByPlatformAccountID(ctx, ev.AccountID)
	if errors.Is(err, repo.ErrNotFound) {
		uc.log.Warn("event for unknown account dropped",
			zap.String("account_id", ev.AccountID),
			zap.String("platform_message_id", ev.PlatformMessageID))
		return domain.Dropped("unknown account"), nil
	}
	if err != nil {
		return domain.EventOutcome{}, fmt.Errorf("account lookup: %w", err)
	}

	layer, err := uc.step(ctx, "dedup.early", func(ctx context.Context) (domain.DedupLayer, error) {
		return uc.dedup.CheckEarly(ctx, batch, account.UserID, ev)
	})
	if err != nil {
		return domain.EventOutcome{}, err
	}
	if layer != domain.LayerNone {
		return domain.Discarded(layer), nil
	}

	ictx, ispan := uc.tracer.Start(ctx, "identity.resolve")
	sender := uc.identity.Resolve(ictx, account, ev.SenderID, ev.SenderUsername)
	ispan.SetAttributes(attribute.String("identity.source", string(sender.Source)))
	ispan.End()

	layer, err = uc.step(ctx, "dedup.content", func(ctx context.Context) (domain.DedupLayer, error) {
		return uc.dedup.CheckContent(ctx, account.UserID, ev, sender.Username)
	})
	if err != nil {
		return domain.EventOutcome{}, err
	}
	if layer != domain.LayerNone {
		return domain.Discarded(layer), nil
	}

	gctx, gspan := uc.tracer.Start(ctx, "generator.generate")
	gen := uc.generator.Generate(gctx, GenerateRequest{
		Account:   account,
		Sender:    sender,
		Kind:      ev.Kind,
		Content:   ev.Content,
		MediaType: ev.MediaType,
		ParentID:  ev.ParentCommentID,
	})
	gspan.SetAttributes(
		attribute.Float64("generation.confidence", gen.Confidence),
		attribute.String("generation.error_code", string(gen.ErrorCode)),
	)
	gspan.End()

	status := domain.RouteGeneration(account.Mode, account.Threshold, gen)

	if !uc.dedup.Reserve(ev) {
		return domain.Discarded(domain.LayerInsertRace), nil
	}

	now := uc.now()
	msg := domain.NewMessage(uc.newID(), account.UserID, ev, sender, status, now)
	resp := domain.NewResponse(uc.newID(), msg.ID, 1, gen, now)

	pctx, pspan := uc.tracer.Start(ctx, "router.persist")
	final, err := uc.router.Persist(pctx, account, msg, resp)
	pspan.End()
	if errors.Is(err, repo.ErrDuplicate) {
		uc.log.Info("concurrent delivery won the insert, reply discarded",
			zap.String("layer", string(domain.LayerInsertRace)),
			zap.String("platform_message_id", ev.PlatformMessageID))
		return domain.Discarded(domain.LayerInsertRace), nil
	}
	if err != nil {
		uc.dedup.Release(ev)
		return domain.EventOutcome{}, err
	}

	uc.log.Info("message persisted",
		zap.String("message_id", msg.ID),
		zap.String("platform_message_id", ev.PlatformMessageID),
		zap.String("status", string(final)),
		zap.String("mode", string(account.Mode)),
		zap.Float64("confidence", resp.ConfidenceScore),
		zap.String("error_code", string(resp.ErrorCode)))
	return domain.Persisted(msg.ID, final), nil
}

func (uc *PipelineUsecase) step(ctx context.Context, name string, fn func(context.Context) (domain.DedupLayer, error)) (domain.DedupLayer, error) {
	ctx, span := uc.tracer.Start(ctx, name)
	defer span.End()
	layer, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		return layer, err
	}
	span.SetAttributes(attribute.String("dedup.layer", string(layer)))
	return layer, nil
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/usecase"
	"github.com/devricklin/inbox-autopilot/internal/webhook"
)

// ErrShuttingDown is returned by Submit after Shutdown has started
var ErrShuttingDown = errors.New("ingest service is shutting down")

// EventProcessor runs one event through the pipeline
type EventProcessor interface {
	Process(ctx context.Context, batch *usecase.Batch, ev *domain.InboundEvent) (domain.EventOutcome, error)
}

// IngestConfig contains ingest configuration
type IngestConfig struct {
	MaxInFlight  int64         // deliveries processed at once
	PerDelivery  int           // concurrent events within one delivery
	EventTimeout time.Duration // overall deadline for one event
}

// DefaultIngestConfig returns default ingest configuration
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		MaxInFlight:  32,
		PerDelivery:  4,
		EventTimeout: 2 * time.Minute,
	}
}

// IngestService decouples webhook acknowledgement from processing. Each
// delivery runs in its own goroutine; there is no cross-event lock.
type IngestService struct {
	processor EventProcessor
	cfg       IngestConfig
	sem       *semaphore.Weighted
	wg        sync.WaitGroup
	mu        sync.Mutex
	closed    bool
	baseCtx   context.Context
	cancel    context.CancelFunc
	log       *zap.Logger
}

// NewIngestService creates the ingest service
func NewIngestService(processor EventProcessor, cfg IngestConfig, log *zap.Logger) *IngestService {
	def := DefaultIngestConfig()
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = def.MaxInFlight
	}
	if cfg.PerDelivery <= 0 {
		cfg.PerDelivery = def.PerDelivery
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = def.EventTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &IngestService{
		processor: processor,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(cfg.MaxInFlight),
		baseCtx:   ctx,
		cancel:    cancel,
		log:       log.Named("ingest"),
	}
}

// Submit schedules a delivery and returns immediately
func (s *IngestService) Submit(d *webhook.Delivery) error {
	if d == nil || len(d.Events) == 0 {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrShuttingDown
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(s.baseCtx, 1); err != nil {
			s.log.Warn("delivery dropped during shutdown", zap.Int("events", len(d.Events)))
			return
		}
		defer s.sem.Release(1)
		s.Process(s.baseCtx, d)
	}()
	return nil
}

// Process runs every event of a delivery and returns their outcomes in order
func (s *IngestService) Process(ctx context.Context, d *webhook.Delivery) []domain.EventOutcome {
	batch := usecase.NewBatch()
	outcomes := make([]domain.EventOutcome, len(d.Events))

	var g errgroup.Group
	g.SetLimit(s.cfg.PerDelivery)
	for i, ev := range d.Events {
		g.Go(func() error {
			ectx, cancel := context.WithTimeout(ctx, s.cfg.EventTimeout)
			defer cancel()

			out, err := s.processor.Process(ectx, batch, ev)
			if err != nil {
				// Failures stay isolated to their event
				s.log.Error("event failed",
					zap.String("platform_message_id", ev.PlatformMessageID),
					zap.Error(err))
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	s.log.Debug("delivery processed", zap.String("object", d.Object), zap.Int("events", len(d.Events)))
	return outcomes
}

// Shutdown stops accepting deliveries and waits for in-flight ones. If ctx
// expires first, remaining work is cancelled.
func (s *IngestService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// DefaultContentWindow bounds the content-based fallback scan
const DefaultContentWindow = 5 * time.Minute

// Batch tracks platform message ids seen within one webhook delivery.
// Safe for the concurrent workers of that delivery.
type Batch struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewBatch creates an empty batch
func NewBatch() *Batch {
	return &Batch{seen: make(map[string]struct{})}
}

// Add records id and reports whether it was new to the batch
func (b *Batch) Add(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.seen[id]; ok {
		return false
	}
	b.seen[id] = struct{}{}
	return true
}

// DedupUsecase runs the layered duplicate checks for one event
type DedupUsecase struct {
	cache         repo.DedupCache
	messageRepo   repo.MessageRepo
	contentWindow time.Duration
	now           func() time.Time
	log           *zap.Logger
}

// NewDedupUsecase creates the dedup usecase
func NewDedupUsecase(cache repo.DedupCache, messageRepo repo.MessageRepo, contentWindow time.Duration, log *zap.Logger) *DedupUsecase {
	if contentWindow <= 0 {
		contentWindow = DefaultContentWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DedupUsecase{
		cache:         cache,
		messageRepo:   messageRepo,
		contentWindow: contentWindow,
		now:           time.Now,
		log:           log.Named("dedup"),
	}
}

// CheckEarly runs the cache, batch and durable layers in order. It returns the
// layer that matched, or LayerNone if the event may proceed.
func (uc *DedupUsecase) CheckEarly(ctx context.Context, batch *Batch, userID string, ev *domain.InboundEvent) (domain.DedupLayer, error) {
	id := ev.PlatformMessageID

	if uc.cache.Seen(id) {
		return uc.duplicate(domain.LayerCache, ev), nil
	}
	if batch != nil && !batch.Add(id) {
		return uc.duplicate(domain.LayerBatch, ev), nil
	}

	exists, err := uc.messageRepo.ExistsByPlatformID(ctx, userID, id)
	if err != nil {
		return domain.LayerNone, fmt.Errorf("durable dedup check: %w", err)
	}
	if exists {
		return uc.duplicate(domain.LayerDurable, ev), nil
	}
	return domain.LayerNone, nil
}

// CheckContent runs the content fallback for DMs and synthetic ids.
// A candidate only matches when it shares a non-empty sender id or username.
func (uc *DedupUsecase) CheckContent(ctx context.Context, userID string, ev *domain.InboundEvent, senderUsername string) (domain.DedupLayer, error) {
	if !ev.NeedsContentDedup() {
		return domain.LayerNone, nil
	}

	since := uc.now().Add(-uc.contentWindow)
	candidates, err := uc.messageRepo.FindRecentByContent(ctx, userID, ev.Content, ev.MediaType, since)
	if err != nil {
		return domain.LayerNone, fmt.Errorf("content dedup check: %w", err)
	}
	for _, c := range candidates {
		if domain.SameSender(c.SenderID, c.SenderUsername, ev.SenderID, senderUsername) {
			return uc.duplicate(domain.LayerContent, ev), nil
		}
	}
	return domain.LayerNone, nil
}

// Reserve closes the race between concurrent deliveries of the same id: the
// cache is re-checked and written in one step before the insert.
func (uc *DedupUsecase) Reserve(ev *domain.InboundEvent) bool {
	if !uc.cache.Reserve(ev.PlatformMessageID) {
		uc.duplicate(domain.LayerInsertRace, ev)
		return false
	}
	return true
}

// Release drops a reservation after a failed, non-conflicting insert
func (uc *DedupUsecase) Release(ev *domain.InboundEvent) {
	uc.cache.Release(ev.PlatformMessageID)
}

func (uc *DedupUsecase) duplicate(layer domain.DedupLayer, ev *domain.InboundEvent) domain.DedupLayer {
	uc.log.Debug("duplicate event discarded",
		zap.String("layer", string(layer)),
		zap.String("platform_message_id", ev.PlatformMessageID),
		zap.String("kind", string(ev.Kind)))
	return layer
}

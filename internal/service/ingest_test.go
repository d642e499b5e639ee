package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
	"github.com/devricklin/inbox-autopilot/internal/biz/usecase"
	"github.com/devricklin/inbox-autopilot/internal/data"
	"github.com/devricklin/inbox-autopilot/internal/webhook"
)

type stubCompletion struct {
	calls atomic.Int32
}

func (s *stubCompletion) Complete(ctx context.Context, messages []repo.ChatMessage) (string, error) {
	s.calls.Add(1)
	// Widen the race window between concurrent deliveries
	time.Sleep(20 * time.Millisecond)
	return `{"response":"Thanks for reaching out!","confidence":0.95,"reasoning":"greeting"}`, nil
}

type stubIdentity struct{}

func (stubIdentity) LookupProfile(ctx context.Context, senderID, accessToken string) (*domain.SenderProfile, error) {
	return &domain.SenderProfile{Name: "Ana", Username: "ana"}, nil
}

type countingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *countingSender) SendDM(ctx context.Context, account *domain.Account, recipientID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, recipientID)
	return nil
}

func (s *countingSender) ReplyComment(ctx context.Context, account *domain.Account, commentID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, commentID)
	return nil
}

func (s *countingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type endToEnd struct {
	db         *data.DB
	messages   repo.MessageRepo
	completion *stubCompletion
	sender     *countingSender
	ingest     *IngestService
}

func newEndToEnd(t *testing.T) *endToEnd {
	t.Helper()
	db, err := data.Open(data.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, data.Migrate(db))
	t.Cleanup(func() { db.Close() })

	accounts := data.NewAccountRepo(db)
	require.NoError(t, accounts.Save(context.Background(), &domain.Account{
		UserID:            "user-1",
		PlatformAccountID: "acct-1",
		AccessToken:       "tok",
		Mode:              domain.ModeAuto,
		Threshold:         80,
	}))

	e := &endToEnd{
		db:         db,
		messages:   data.NewMessageRepo(db),
		completion: &stubCompletion{},
		sender:     &countingSender{},
	}
	corrections := data.NewCorrectionRepo(db)
	retry := usecase.RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, Multiplier: 2, MaxInterval: 5 * time.Millisecond}
	router := usecase.NewRouterUsecase(e.messages, e.sender, nil)
	pipeline := usecase.NewPipelineUsecase(
		accounts,
		usecase.NewDedupUsecase(data.NewDedupCache(time.Minute), e.messages, 5*time.Minute, nil),
		usecase.NewIdentityUsecase(stubIdentity{}, accounts, time.Second, nil),
		usecase.NewGeneratorUsecase(e.completion, corrections, usecase.DefaultPromptConfig(), retry, nil),
		router,
		nil,
	)
	e.ingest = NewIngestService(pipeline, IngestConfig{MaxInFlight: 8, PerDelivery: 4, EventTimeout: 10 * time.Second}, nil)
	return e
}

func (e *endToEnd) rowCount(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n))
	return n
}

func delivery(mids ...string) *webhook.Delivery {
	d := &webhook.Delivery{Object: "instagram"}
	for _, mid := range mids {
		d.Events = append(d.Events, &domain.InboundEvent{
			Kind:              domain.EventKindDM,
			PlatformMessageID: mid,
			SenderID:          "sender-1",
			AccountID:         "acct-1",
			Content:           "hello " + mid,
			ReceivedAt:        time.Now(),
		})
	}
	return d
}

func TestIngest_ConcurrentIdenticalDeliveries(t *testing.T) {
	e := newEndToEnd(t)

	require.NoError(t, e.ingest.Submit(delivery("mid.1")))
	require.NoError(t, e.ingest.Submit(delivery("mid.1")))
	require.NoError(t, e.ingest.Shutdown(context.Background()))

	assert.Equal(t, 1, e.rowCount(t))
	assert.Equal(t, 1, e.sender.count())
}

func TestIngest_ManyRedeliveries(t *testing.T) {
	e := newEndToEnd(t)

	for i := 0; i < 10; i++ {
		require.NoError(t, e.ingest.Submit(delivery("mid.1", "mid.2")))
	}
	require.NoError(t, e.ingest.Shutdown(context.Background()))

	assert.Equal(t, 2, e.rowCount(t))
	assert.Equal(t, 2, e.sender.count())
}

func TestIngest_DuplicateWithinOneDelivery(t *testing.T) {
	e := newEndToEnd(t)

	outcomes := e.ingest.Process(context.Background(), delivery("mid.1", "mid.1", "mid.1"))
	require.Len(t, outcomes, 3)

	persisted := 0
	for _, o := range outcomes {
		if o.State == domain.StatePersisted {
			persisted++
		} else {
			assert.True(t, o.IsDuplicate())
		}
	}
	assert.Equal(t, 1, persisted)
	assert.Equal(t, 1, e.rowCount(t))
}

type fakeProcessor struct {
	fail map[string]bool
	seen atomic.Int32
}

func (f *fakeProcessor) Process(ctx context.Context, batch *usecase.Batch, ev *domain.InboundEvent) (domain.EventOutcome, error) {
	f.seen.Add(1)
	if f.fail[ev.PlatformMessageID] {
		return domain.EventOutcome{}, errors.New("boom")
	}
	return domain.Persisted("id-"+ev.PlatformMessageID, domain.StatusPending), nil
}

func TestIngest_FailuresAreIsolated(t *testing.T) {
	p := &fakeProcessor{fail: map[string]bool{"b": true}}
	s := NewIngestService(p, IngestConfig{}, nil)

	outcomes := s.Process(context.Background(), delivery("a", "b", "c"))
	require.Len(t, outcomes, 3)
	assert.Equal(t, "id-a", outcomes[0].MessageID)
	assert.Equal(t, domain.EventOutcome{}, outcomes[1])
	assert.Equal(t, "id-c", outcomes[2].MessageID)
}

func TestIngest_SubmitAfterShutdown(t *testing.T) {
	p := &fakeProcessor{}
	s := NewIngestService(p, IngestConfig{}, nil)

	require.NoError(t, s.Submit(&webhook.Delivery{}), "empty deliveries are accepted")
	require.NoError(t, s.Shutdown(context.Background()))
	assert.ErrorIs(t, s.Submit(delivery("a")), ErrShuttingDown)
	assert.Zero(t, p.seen.Load())
}

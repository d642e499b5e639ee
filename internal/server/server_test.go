package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/usecase"
	"github.com/devricklin/inbox-autopilot/internal/service"
	"github.com/devricklin/inbox-autopilot/internal/webhook"
)

const (
	testSecret      = "app-secret"
	testVerifyToken = "verify-me"
)

const dmBody = `{"object":"instagram","entry":[{"id":"acct-1","time":1740830400000,"messaging":[{"sender":{"id":"s1"},"recipient":{"id":"acct-1"},"timestamp":1740830400123,"message":{"mid":"mid.1","text":"hi"}}]}]}`

type fakeSubmitter struct {
	mu         sync.Mutex
	deliveries []*webhook.Delivery
	err        error
}

func (f *fakeSubmitter) Submit(d *webhook.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deliveries = append(f.deliveries, d)
	return nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deliveries)
}

func newTestServer(secret string, ingest DeliverySubmitter) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(Config{AppSecret: secret, VerifyToken: testVerifyToken}, ingest, nil, nil)
}

func post(s *Server, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(webhook.SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(testSecret, &fakeSubmitter{})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyHandshake(t *testing.T) {
	s := newTestServer(testSecret, &fakeSubmitter{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token="+testVerifyToken+"&hub.challenge=12345", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEvent_Accepted(t *testing.T) {
	sub := &fakeSubmitter{}
	s := newTestServer(testSecret, sub)

	w := post(s, dmBody, webhook.SignatureHeaderValue(testSecret, []byte(dmBody)))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, sub.count())
	require.Len(t, sub.deliveries[0].Events, 1)
	assert.Equal(t, "mid.1", sub.deliveries[0].Events[0].PlatformMessageID)
}

func TestEvent_Rejected(t *testing.T) {
	valid := webhook.SignatureHeaderValue(testSecret, []byte(dmBody))
	tests := []struct {
		name      string
		secret    string
		body      string
		signature string
		want      int
	}{
		{"missing signature", testSecret, dmBody, "", http.StatusUnauthorized},
		{"malformed signature", testSecret, dmBody, "sha1=abc", http.StatusUnauthorized},
		{"bad hex", testSecret, dmBody, "sha256=zz", http.StatusUnauthorized},
		{"mismatch", testSecret, dmBody, webhook.SignatureHeaderValue("other", []byte(dmBody)), http.StatusForbidden},
		{"tampered body", testSecret, strings.Replace(dmBody, "hi", "ho", 1), valid, http.StatusForbidden},
		{"secret not configured", "", dmBody, valid, http.StatusForbidden},
		{"malformed json", testSecret, "{nope", webhook.SignatureHeaderValue(testSecret, []byte("{nope")), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			s := newTestServer(tt.secret, sub)

			w := post(s, tt.body, tt.signature)
			assert.Equal(t, tt.want, w.Code)
			assert.Zero(t, sub.count(), "nothing may be scheduled")
		})
	}
}

func TestEvent_ShuttingDown(t *testing.T) {
	s := newTestServer(testSecret, &fakeSubmitter{err: service.ErrShuttingDown})
	w := post(s, dmBody, webhook.SignatureHeaderValue(testSecret, []byte(dmBody)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type blockingProcessor struct {
	release chan struct{}
	done    chan struct{}
}

func (p *blockingProcessor) Process(ctx context.Context, batch *usecase.Batch, ev *domain.InboundEvent) (domain.EventOutcome, error) {
	<-p.release
	close(p.done)
	return domain.Persisted("m1", domain.StatusPending), nil
}

func TestEvent_AcknowledgedBeforeProcessing(t *testing.T) {
	p := &blockingProcessor{release: make(chan struct{}), done: make(chan struct{})}
	ingest := service.NewIngestService(p, service.DefaultIngestConfig(), nil)
	s := newTestServer(testSecret, ingest)

	w := post(s, dmBody, webhook.SignatureHeaderValue(testSecret, []byte(dmBody)))
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case <-p.done:
		t.Fatal("processing finished before the acknowledgement")
	default:
	}

	close(p.release)
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery was never processed")
	}
	require.NoError(t, ingest.Shutdown(context.Background()))
}

func TestAPIMounted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(Config{AppSecret: testSecret, APIToken: "tok"}, &fakeSubmitter{}, stubApprover{}, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/messages", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

type stubApprover struct{}

func (stubApprover) List(ctx context.Context, userID string, status domain.MessageStatus, limit int) ([]*domain.MessageWithResponse, error) {
	return nil, nil
}

func (stubApprover) Get(ctx context.Context, id string) (*domain.MessageWithResponse, error) {
	return nil, nil
}

func (stubApprover) Approve(ctx context.Context, id, finalText string) (*domain.MessageWithResponse, error) {
	return nil, nil
}

func (stubApprover) Reject(ctx context.Context, id string) (*domain.MessageWithResponse, error) {
	return nil, nil
}

func (stubApprover) Regenerate(ctx context.Context, id string) (*domain.MessageWithResponse, error) {
	return nil, nil
}

package usecase

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// Mock implementations

type mockMessageRepo struct {
	mu        sync.Mutex
	messages  map[string]*domain.Message
	responses map[string][]*domain.Response
	createErr error
	creates   int
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{
		messages:  make(map[string]*domain.Message),
		responses: make(map[string][]*domain.Response),
	}
}

func (m *mockMessageRepo) ExistsByPlatformID(ctx context.Context, userID, platformMessageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.UserID == userID && msg.PlatformMessageID == platformMessageID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockMessageRepo) FindRecentByContent(ctx context.Context, userID, content, mediaType string, since time.Time) ([]*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Message
	for _, msg := range m.messages {
		if msg.UserID == userID && msg.Content == content && msg.MediaType == mediaType && !msg.CreatedAt.Before(since) {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) CreateWithResponse(ctx context.Context, msg *domain.Message, resp *domain.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.messages {
		if existing.UserID == msg.UserID && existing.PlatformMessageID == msg.PlatformMessageID {
			return repo.ErrDuplicate
		}
	}
	cp := *msg
	m.messages[msg.ID] = &cp
	if resp != nil {
		r := *resp
		r.MessageID = msg.ID
		m.responses[msg.ID] = append(m.responses[msg.ID], &r)
	}
	return nil
}

func (m *mockMessageRepo) Get(ctx context.Context, id string) (*domain.MessageWithResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

func (m *mockMessageRepo) getLocked(id string) (*domain.MessageWithResponse, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *msg
	item := &domain.MessageWithResponse{Message: &cp}
	if rs := m.responses[id]; len(rs) > 0 {
		r := *rs[len(rs)-1]
		item.Response = &r
	}
	return item, nil
}

func (m *mockMessageRepo) ListByStatus(ctx context.Context, userID string, status domain.MessageStatus, limit int) ([]*domain.MessageWithResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.MessageWithResponse
	for id, msg := range m.messages {
		if (userID == "" || msg.UserID == userID) && (status == "" || msg.Status == status) {
			item, _ := m.getLocked(id)
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Message.CreatedAt.After(out[j].Message.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockMessageRepo) UpdateStatus(ctx context.Context, id string, from, to domain.MessageStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok || msg.Status != from {
		return repo.ErrNotFound
	}
	msg.Status = to
	return nil
}

func (m *mockMessageRepo) AddResponse(ctx context.Context, resp *domain.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.responses[resp.MessageID] {
		if r.Attempt == resp.Attempt {
			return repo.ErrDuplicate
		}
	}
	r := *resp
	m.responses[resp.MessageID] = append(m.responses[resp.MessageID], &r)
	return nil
}

func (m *mockMessageRepo) FinalizeResponse(ctx context.Context, responseID, finalText string, edited, approved bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rs := range m.responses {
		for _, r := range rs {
			if r.ID == responseID {
				r.FinalResponse = finalText
				r.WasEdited = edited
				r.WasApproved = &approved
				r.ApprovedAt = &at
				return nil
			}
		}
	}
	return repo.ErrNotFound
}

func (m *mockMessageRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *mockMessageRepo) only() *domain.MessageWithResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.messages {
		item, _ := m.getLocked(id)
		return item
	}
	return nil
}

type mockAccountRepo struct {
	mu       sync.Mutex
	accounts []*domain.Account
	updates  int
}

func (m *mockAccountRepo) find(match func(a *domain.Account) bool) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *mockAccountRepo) GetByPlatformAccountID(ctx context.Context, id string) (*domain.Account, error) {
	return m.find(func(a *domain.Account) bool { return a.PlatformAccountID == id })
}

func (m *mockAccountRepo) GetByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	return m.find(func(a *domain.Account) bool { return a.UserID == userID })
}

func (m *mockAccountRepo) FindByScopeID(ctx context.Context, scopeID string) (*domain.Account, error) {
	return m.find(func(a *domain.Account) bool { return scopeID != "" && a.RecipientScopeID == scopeID })
}

func (m *mockAccountRepo) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return m.find(func(a *domain.Account) bool { return username != "" && a.DisplayUsername == username })
}

func (m *mockAccountRepo) UpdateScopeID(ctx context.Context, userID, scopeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.UserID == userID && a.RecipientScopeID != scopeID {
			a.RecipientScopeID = scopeID
			m.updates++
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAccountRepo) Save(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = append(m.accounts, account)
	return nil
}

func (m *mockAccountRepo) List(ctx context.Context) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts, nil
}

type mockCorrectionRepo struct {
	mu    sync.Mutex
	items []*domain.Correction
}

func (m *mockCorrectionRepo) Add(ctx context.Context, c *domain.Correction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]*domain.Correction{c}, m.items...)
	return nil
}

func (m *mockCorrectionRepo) Recent(ctx context.Context, userID string, limit int) ([]*domain.Correction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Correction
	for _, c := range m.items {
		if c.UserID == userID && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockDedupCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMockDedupCache() *mockDedupCache {
	return &mockDedupCache{seen: make(map[string]bool)}
}

func (m *mockDedupCache) Seen(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[id]
}

func (m *mockDedupCache) Reserve(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return false
	}
	m.seen[id] = true
	return true
}

func (m *mockDedupCache) Release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDedupCache) Sweep() int { return 0 }

type mockIdentityRepo struct {
	mu      sync.Mutex
	profile *domain.SenderProfile
	err     error
	delay   time.Duration
	calls   int
}

func (m *mockIdentityRepo) LookupProfile(ctx context.Context, senderID, accessToken string) (*domain.SenderProfile, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.profile
	return &cp, nil
}

func (m *mockIdentityRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockCompletionRepo replays scripted results; the last one repeats
type mockCompletionRepo struct {
	mu       sync.Mutex
	results  []completionResult
	calls    int
	messages [][]repo.ChatMessage
}

type completionResult struct {
	out string
	err error
}

func (m *mockCompletionRepo) Complete(ctx context.Context, messages []repo.ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, messages)
	i := m.calls
	m.calls++
	if i >= len(m.results) {
		i = len(m.results) - 1
	}
	return m.results[i].out, m.results[i].err
}

func (m *mockCompletionRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type sentReply struct {
	kind   domain.EventKind
	target string
	text   string
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentReply
	err  error
}

func (m *mockSender) SendDM(ctx context.Context, account *domain.Account, recipientID, text string) error {
	return m.record(domain.EventKindDM, recipientID, text)
}

func (m *mockSender) ReplyComment(ctx context.Context, account *domain.Account, commentID, text string) error {
	return m.record(domain.EventKindComment, commentID, text)
}

func (m *mockSender) record(kind domain.EventKind, target, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentReply{kind: kind, target: target, text: text})
	return nil
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func okCompletion(text string, confidence float64) completionResult {
	return completionResult{out: `{"response":"` + text + `","confidence":` + formatFloat(confidence) + `,"reasoning":"test"}`}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

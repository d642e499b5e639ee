package data

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func testMessage(userID, platformID, content string, at time.Time) *domain.Message {
	ev := &domain.InboundEvent{
		Kind:              domain.EventKindDM,
		PlatformMessageID: platformID,
		SenderID:          "sender-1",
		AccountID:         "acct-1",
		Content:           content,
	}
	sender := domain.SenderProfile{Name: "Ana", Username: "ana"}
	return domain.NewMessage(uuid.NewString(), userID, ev, sender, domain.StatusPending, at)
}

func testResponse(attempt int, suggestion string, at time.Time) *domain.Response {
	gen := domain.Generation{Suggestion: suggestion, Confidence: 0.7, Reasoning: "ok"}
	return domain.NewResponse(uuid.NewString(), "", attempt, gen, at)
}

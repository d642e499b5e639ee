package webhook

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
)

var received = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParse_DirectMessage(t *testing.T) {
	body := `{
		"object": "instagram",
		"entry": [{
			"id": "17841400000000000",
			"time": 1740830400000,
			"messaging": [{
				"sender": {"id": "sender-1"},
				"recipient": {"id": "acct-1"},
				"timestamp": 1740830400123,
				"message": {"mid": "mid.1", "text": "  how much is shipping?  "}
			}]
		}]
	}`

	d, err := Parse([]byte(body), received)
	require.NoError(t, err)
	assert.Equal(t, "instagram", d.Object)
	require.Len(t, d.Events, 1)

	ev := d.Events[0]
	assert.Equal(t, domain.EventKindDM, ev.Kind)
	assert.Equal(t, "mid.1", ev.PlatformMessageID)
	assert.Equal(t, "sender-1", ev.SenderID)
	assert.Equal(t, "acct-1", ev.AccountID)
	assert.Equal(t, "how much is shipping?", ev.Content)
	assert.Equal(t, time.UnixMilli(1740830400123), ev.Timestamp)
	assert.Equal(t, received, ev.ReceivedAt)
}

func TestParse_Attachment(t *testing.T) {
	body := `{"object":"instagram","entry":[{"id":"acct-1","messaging":[{
		"sender":{"id":"s"},"recipient":{"id":"acct-1"},"timestamp":1740830400000,
		"message":{"mid":"m","attachments":[{"type":"image","payload":{"url":"https://cdn/x.jpg"}},{"type":"video","payload":{"url":"v"}}]}
	}]}]}`

	d, err := Parse([]byte(body), received)
	require.NoError(t, err)
	require.Len(t, d.Events, 1)
	assert.Equal(t, "image", d.Events[0].MediaType)
	assert.Equal(t, "https://cdn/x.jpg", d.Events[0].MediaURL)
	assert.Empty(t, d.Events[0].Content)
}

func TestParse_DropsNonMessages(t *testing.T) {
	body := `{"object":"instagram","entry":[{"id":"acct-1","messaging":[
		{"sender":{"id":"acct-1"},"recipient":{"id":"s"},"timestamp":1,"message":{"mid":"echo","text":"hi","is_echo":true}},
		{"sender":{"id":"s"},"recipient":{"id":"acct-1"},"timestamp":1,"read":{"mid":"m"}},
		{"sender":{"id":"s"},"recipient":{"id":"acct-1"},"timestamp":1,"message":{"mid":"empty","text":"   "}},
		{"sender":{"id":"s"},"recipient":{"id":"acct-1"},"timestamp":1,"message":{"mid":"gone","text":"x","is_deleted":true}},
		{"sender":{"id":"acct-1"},"recipient":{"id":"s"},"timestamp":1,"message":{"mid":"self","text":"from me"}}
	]}]}`

	d, err := Parse([]byte(body), received)
	require.NoError(t, err)
	assert.Empty(t, d.Events)
}

func TestParse_StandbyAndEdit(t *testing.T) {
	body := `{"object":"page","entry":[{"id":"page-1",
		"standby":[{"sender":{"id":"s"},"recipient":{"id":"page-1"},"timestamp":1740830400000,"message":{"mid":"sb","text":"standby"}}],
		"messaging":[{"sender":{"id":"s"},"recipient":{"id":"page-1"},"timestamp":1740830400000,"message_edit":{"mid":"ed","text":"edited"}}]
	}]}`

	d, err := Parse([]byte(body), received)
	require.NoError(t, err)
	require.Len(t, d.Events, 2)
	assert.Equal(t, "ed", d.Events[0].PlatformMessageID)
	assert.Equal(t, "edited", d.Events[0].Content)
	assert.Equal(t, "sb", d.Events[1].PlatformMessageID)
}

func TestParse_Comments(t *testing.T) {
	body := `{"object":"instagram","entry":[{"id":"acct-1","time":1740830400,"changes":[
		{"field":"comments","value":{"id":"c1","text":"love it","from":{"id":"u1","username":"fan"},"media":{"id":"post-9","media_product_type":"FEED"}}},
		{"field":"live_comments","value":{"id":"c2","text":"hello live","from":{"id":"u2","username":"viewer"},"parent_id":"c0"}},
		{"field":"mentions","value":{"id":"x","text":"ignored","from":{"id":"u3"}}},
		{"field":"comments","value":{"id":"c3","text":"my own reply","from":{"id":"acct-1","username":"brand"}}}
	]}]}`

	d, err := Parse([]byte(body), received)
	require.NoError(t, err)
	require.Len(t, d.Events, 2)

	c := d.Events[0]
	assert.Equal(t, domain.EventKindComment, c.Kind)
	assert.Equal(t, "c1", c.PlatformMessageID)
	assert.Equal(t, "acct-1", c.AccountID)
	assert.Equal(t, "fan", c.SenderUsername)
	assert.Equal(t, "post-9", c.PostID)
	assert.Equal(t, time.Unix(1740830400, 0), c.Timestamp)

	assert.Equal(t, "c0", d.Events[1].ParentCommentID)
}

func TestParse_SyntheticID(t *testing.T) {
	body := `{"object":"instagram","entry":[{"id":"acct-1","messaging":[
		{"sender":{"id":"s"},"recipient":{"id":"acct-1"},"timestamp":1740830400000,"message":{"text":"no mid"}}
	]}]}`

	first, err := Parse([]byte(body), received)
	require.NoError(t, err)
	second, err := Parse([]byte(body), received.Add(time.Minute))
	require.NoError(t, err)

	require.Len(t, first.Events, 1)
	id := first.Events[0].PlatformMessageID
	assert.True(t, strings.HasPrefix(id, domain.SyntheticIDPrefix))
	assert.True(t, first.Events[0].HasSyntheticID())
	assert.Equal(t, id, second.Events[0].PlatformMessageID, "redelivery must map to the same id")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"object":`), received)
	assert.Error(t, err)
}

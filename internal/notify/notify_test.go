package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyNewJob(t *testing.T) {
	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- r
		bodies <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := New(server.URL, "publish-key")
	n.NotifyNewJob("job-1", "abc123", "render")

	select {
	case r := <-received:
		assert.Equal(t, "Bearer publish-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	case <-time.After(5 * time.Second):
		t.Fatal("notification was never delivered")
	}

	var env envelope
	require.NoError(t, json.Unmarshal(<-bodies, &env))
	assert.Equal(t, Topic, env.Topic)
	assert.Equal(t, "new_job", env.Message.Type)
	assert.Equal(t, "job-1", env.Message.JobID)
	assert.Equal(t, "abc123", env.Message.JobHash)
	assert.Equal(t, "render", env.Message.JobType)
	assert.NotZero(t, env.Message.Timestamp)
}

func TestDisabledWithoutRelayURL(t *testing.T) {
	n := New("", "key")
	assert.False(t, n.Enabled())

	// Must be a silent no-op
	n.NotifyNewJob("job-1", "abc123", "render")
}

func TestNilNotifierIsDisabled(t *testing.T) {
	var n *Notifier
	assert.False(t, n.Enabled())
	n.NotifyNewJob("job-1", "abc123", "render")
}

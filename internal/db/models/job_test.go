package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobStatus(t *testing.T) {
	for _, valid := range []string{"pending", "claimed", "in_progress", "completed", "failed", "expired"} {
		status, err := ParseJobStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, status.String())
	}

	_, err := ParseJobStatus("bogus")
	assert.Error(t, err)

	_, err = ParseJobStatus("")
	assert.Error(t, err)
}

func TestJobStatusLive(t *testing.T) {
	assert.True(t, JobStatusClaimed.Live())
	assert.True(t, JobStatusInProgress.Live())

	assert.False(t, JobStatusPending.Live())
	assert.False(t, JobStatusCompleted.Live())
	assert.False(t, JobStatusFailed.Live())
	assert.False(t, JobStatusExpired.Live())
}

func TestRunnerActive(t *testing.T) {
	now := time.Now().UnixMilli()

	fresh := &Runner{LastSeen: now - time.Minute.Milliseconds()}
	assert.True(t, fresh.Active(5*time.Minute))

	stale := &Runner{LastSeen: now - (6 * time.Minute).Milliseconds()}
	assert.False(t, stale.Active(5*time.Minute))
}

func TestCapabilitiesContains(t *testing.T) {
	caps := Capabilities{"render", "analyze"}

	assert.True(t, caps.Contains("render"))
	assert.False(t, caps.Contains("transcode"))
	assert.False(t, Capabilities(nil).Contains("render"))
}

func TestCapabilitiesRoundTrip(t *testing.T) {
	caps := Capabilities{"a", "b"}

	value, err := caps.Value()
	require.NoError(t, err)

	var decoded Capabilities
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, caps, decoded)
}

// Package notify publishes best-effort job events to an external relay.
//
// Notification is a one-way sink: failures are logged and discarded, and a
// missing configuration disables publishing entirely. The submit path never
// waits on, or fails because of, the relay.
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/flatironinstitute/runpack/internal/logger"
)

// Topic is the fixed relay topic job events are published on.
const Topic = "runpack-jobs"

// requestTimeout bounds the outbound publish request.
const requestTimeout = 10 * time.Second

// NewJobMessage announces the creation of a new job.
type NewJobMessage struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	JobHash   string `json:"job_hash"`
	JobType   string `json:"job_type"`
	Timestamp int64  `json:"timestamp"`
}

type envelope struct {
	Topic   string        `json:"topic"`
	Message NewJobMessage `json:"message"`
}

// Notifier posts job events to the configured relay.
type Notifier struct {
	relayURL   string
	publishKey string
	client     *http.Client
}

// New creates a notifier. An empty relay URL returns a disabled notifier.
func New(relayURL, publishKey string) *Notifier {
	return &Notifier{
		relayURL:   relayURL,
		publishKey: publishKey,
		client:     &http.Client{Timeout: requestTimeout},
	}
}

// Enabled reports whether a relay is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.relayURL != ""
}

// NotifyNewJob publishes a new_job event in the background. It never blocks
// the caller and never surfaces an error.
func (n *Notifier) NotifyNewJob(jobID, jobHash, jobType string) {
	if !n.Enabled() {
		return
	}
	msg := NewJobMessage{
		Type:      "new_job",
		JobID:     jobID,
		JobHash:   jobHash,
		JobType:   jobType,
		Timestamp: time.Now().UnixMilli(),
	}
	go n.publish(msg)
}

func (n *Notifier) publish(msg NewJobMessage) {
	body, err := json.Marshal(envelope{Topic: Topic, Message: msg})
	if err != nil {
		logger.Errorf("Failed to encode notification for job %s: %v", msg.JobID, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, n.relayURL, bytes.NewReader(body))
	if err != nil {
		logger.Errorf("Failed to build notification request for job %s: %v", msg.JobID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if n.publishKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.publishKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		logger.Errorf("Failed to publish new_job notification for job %s: %v", msg.JobID, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Errorf("Notify relay returned status %d for job %s", resp.StatusCode, msg.JobID)
		return
	}
	logger.Debugf("Published new_job notification for job %s", msg.JobID)
}

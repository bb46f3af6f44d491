package models

import (
	"encoding/json"
	"fmt"
)

// Database field names used in repository queries
const (
	// JobCreatedAtField is the database field name for the job creation timestamp
	JobCreatedAtField = "created_at"
	// JobLastHeartbeatField is the database field name for the last heartbeat timestamp
	JobLastHeartbeatField = "last_heartbeat"
)

// JobStatus represents the current state of a job in the system
type JobStatus string

// Job status constants
const (
	// JobStatusPending indicates the job is waiting to be claimed by a runner
	JobStatusPending JobStatus = "pending"
	// JobStatusClaimed indicates the job has been claimed but no heartbeat has arrived yet
	JobStatusClaimed JobStatus = "claimed"
	// JobStatusInProgress indicates the job is being executed by a runner
	JobStatusInProgress JobStatus = "in_progress"
	// JobStatusCompleted indicates the job has finished successfully
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job has failed
	JobStatusFailed JobStatus = "failed"
	// JobStatusExpired marks a cached result that failed its freshness probe.
	// It is only ever written into response bodies; the row itself is deleted.
	JobStatusExpired JobStatus = "expired"
)

// ParseJobStatus converts a string representation of a job status to JobStatus type
func ParseJobStatus(str string) (JobStatus, error) {
	switch JobStatus(str) {
	case JobStatusPending, JobStatusClaimed, JobStatusInProgress,
		JobStatusCompleted, JobStatusFailed, JobStatusExpired:
		return JobStatus(str), nil
	}
	return "", fmt.Errorf("invalid job status: %s", str)
}

// Live reports whether the status may still receive heartbeats or terminals.
func (s JobStatus) Live() bool {
	return s == JobStatusClaimed || s == JobStatusInProgress
}

func (s JobStatus) String() string {
	return string(s)
}

// Job represents a unit of deferred computation in the system.
// InputParams and OutputData are opaque serialized blobs; the store never
// parses them.
type Job struct {
	ID              string          `json:"job_id" gorm:"primaryKey;size:36"`
	JobHash         string          `json:"job_hash" gorm:"uniqueIndex;not null;size:64"`
	JobType         string          `json:"job_type" gorm:"not null;index"`
	InputParams     json.RawMessage `json:"input_params,omitempty" gorm:"type:jsonb"`
	Status          JobStatus       `json:"status" gorm:"not null;index;size:16"`
	CreatedAt       int64           `json:"created_at" gorm:"autoCreateTime:milli;index"`
	UpdatedAt       int64           `json:"updated_at" gorm:"autoUpdateTime:milli"`
	ClaimedBy       *string         `json:"claimed_by,omitempty" gorm:"index;size:36"`
	ClaimedAt       *int64          `json:"claimed_at,omitempty"`
	ProgressCurrent *int64          `json:"progress_current,omitempty"`
	ProgressTotal   *int64          `json:"progress_total,omitempty"`
	ConsoleOutput   string          `json:"console_output,omitempty" gorm:"type:text"`
	OutputData      json.RawMessage `json:"output_data,omitempty" gorm:"type:jsonb"`
	ErrorMessage    string          `json:"error_message,omitempty" gorm:"type:text"`
	LastHeartbeat   *int64          `json:"last_heartbeat,omitempty"`
}

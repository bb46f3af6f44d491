package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Capabilities is the set of job types a runner will accept, stored as a JSON
// array.
type Capabilities []string

// Value implements the driver.Valuer interface
func (c Capabilities) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (c *Capabilities) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported capabilities column type %T", value)
	}
}

// Contains reports whether the runner accepts the given job type.
func (c Capabilities) Contains(jobType string) bool {
	for _, t := range c {
		if t == jobType {
			return true
		}
	}
	return false
}

// Runner represents a registered worker process. Runners hold no durable
// state; activeness is derived from LastSeen on read.
type Runner struct {
	ID           string       `json:"runner_id" gorm:"primaryKey;size:36"`
	Name         string       `json:"name" gorm:"not null"`
	Capabilities Capabilities `json:"capabilities" gorm:"type:jsonb"`
	RegisteredAt int64        `json:"registered_at" gorm:"autoCreateTime:milli"`
	LastSeen     int64        `json:"last_seen" gorm:"index"`
}

// Active reports whether the runner has been seen within the given window.
func (r *Runner) Active(window time.Duration) bool {
	return time.Now().UnixMilli()-r.LastSeen < window.Milliseconds()
}

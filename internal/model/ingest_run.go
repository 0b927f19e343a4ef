package model

import "time"

const (
	IngestStatusQueued    = "queued"
	IngestStatusRunning   = "running"
	IngestStatusSucceeded = "succeeded"
	IngestStatusFailed    = "failed"
)

// IngestRun is the audit row of one offline index build.
type IngestRun struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	Status     string     `gorm:"size:16;not null;index" json:"status"`
	Trigger    string     `gorm:"size:32;not null" json:"trigger"`
	BuildID    string     `gorm:"size:64" json:"build_id"`
	Documents  int        `json:"documents"`
	Chunks     int        `json:"chunks"`
	Vectors    int        `json:"vectors"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

package model

import "time"

// RebuildRequest is the queue message asking a worker to rebuild the index.
type RebuildRequest struct {
	RunID       string    `json:"run_id"`
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requested_at"`
}

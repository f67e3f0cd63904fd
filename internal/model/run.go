package model

import "time"

// RunStatus represents the current state of a recorded run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunKind identifies what a run did.
type RunKind string

const (
	RunKindGeocode RunKind = "geocode"
	RunKindNearest RunKind = "nearest"
)

// Run is a single geocoding or matching run recorded in the store.
type Run struct {
	ID         string     `json:"id"`
	Kind       RunKind    `json:"kind"`
	Status     RunStatus  `json:"status"`
	Input      string     `json:"input"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

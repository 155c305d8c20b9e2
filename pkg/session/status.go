package session

import (
	"context"
	"time"
)

// Status is the lifecycle state of graph finalization.
type Status string

const (
	StatusNotStarted Status = "Not started"
	StatusInProgress Status = "In progress"
	StatusCompleted  Status = "Completed"
	StatusError      Status = "Error"
)

// GraphStatus is the pollable state of the finalization pipeline.
// Progress is -1 after an error.
type GraphStatus struct {
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	JobID     string    `json:"job_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusNotifier is told about every status transition. Notifications are
// best effort: an error is logged and otherwise ignored.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, status GraphStatus) error
}

const (
	msgElementSummaries   = "Creating element summaries"
	msgCommunities        = "Creating communities"
	msgCommunitySummaries = "Creating community summaries"
	msgCompleted          = "Graph finalization completed"
	msgGraphChanged       = "Graph changed since last finalization"
)

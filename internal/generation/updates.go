package generation

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Status is the lifecycle status reported for a job.
type Status string

const (
	// StatusSubmitting is emitted locally while the request is being handed to the service.
	StatusSubmitting Status = "SUBMITTING"
	StatusQueued     Status = "IN_QUEUE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// QueueUpdate is an interim notification from the generation service. It is
// never used to decide success or failure.
type QueueUpdate struct {
	RequestID     string
	Status        Status
	QueuePosition *int
	Logs          []string
}

// LastLog returns the most recent non-empty log line.
func (u QueueUpdate) LastLog() string {
	for i := len(u.Logs) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(u.Logs[i]); line != "" {
			return line
		}
	}
	return ""
}

// Progress is the message pushed to a caller's progress channel.
type Progress struct {
	RequestID string
	Status    Status
	Message   string
	At        time.Time
}

// ProgressTracker keeps the canonical "current progress" string: the last
// log line of the most recent IN_PROGRESS update.
type ProgressTracker struct {
	mu      sync.Mutex
	current string
}

// Observe folds an update into the tracker. Updates of other statuses, and
// IN_PROGRESS updates without logs, leave the current line unchanged.
func (t *ProgressTracker) Observe(u QueueUpdate) {
	if u.Status != StatusInProgress {
		return
	}
	line := u.LastLog()
	if line == "" {
		return
	}
	t.mu.Lock()
	t.current = line
	t.mu.Unlock()
}

// Current returns the latest progress line, or "" before any was seen.
func (t *ProgressTracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func describeUpdate(u QueueUpdate, current string) string {
	switch u.Status {
	case StatusQueued:
		if u.QueuePosition != nil {
			return "Waiting in queue (position " + strconv.Itoa(*u.QueuePosition) + ")"
		}
		return "Waiting in queue"
	case StatusInProgress:
		if current != "" {
			return current
		}
		return "Generating audio"
	case StatusCompleted:
		return "Finalizing generated video"
	default:
		return string(u.Status)
	}
}

package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerUsesLatestInProgressLog(t *testing.T) {
	var tracker ProgressTracker
	assert.Empty(t, tracker.Current())

	tracker.Observe(QueueUpdate{Status: StatusQueued, Logs: []string{"queued log"}})
	assert.Empty(t, tracker.Current())

	tracker.Observe(QueueUpdate{Status: StatusInProgress, Logs: []string{"loading model", "extracting frames"}})
	assert.Equal(t, "extracting frames", tracker.Current())

	tracker.Observe(QueueUpdate{Status: StatusInProgress})
	assert.Equal(t, "extracting frames", tracker.Current())

	tracker.Observe(QueueUpdate{Status: StatusInProgress, Logs: []string{"loading model", "extracting frames", "sampling audio", " "}})
	assert.Equal(t, "sampling audio", tracker.Current())

	tracker.Observe(QueueUpdate{Status: StatusCompleted, Logs: []string{"done"}})
	assert.Equal(t, "sampling audio", tracker.Current())
}

func TestDescribeUpdate(t *testing.T) {
	pos := 3
	assert.Equal(t, "Waiting in queue (position 3)", describeUpdate(QueueUpdate{Status: StatusQueued, QueuePosition: &pos}, ""))
	assert.Equal(t, "Waiting in queue", describeUpdate(QueueUpdate{Status: StatusQueued}, ""))
	assert.Equal(t, "Generating audio", describeUpdate(QueueUpdate{Status: StatusInProgress}, ""))
	assert.Equal(t, "step 2", describeUpdate(QueueUpdate{Status: StatusInProgress}, "step 2"))
	assert.Equal(t, "Finalizing generated video", describeUpdate(QueueUpdate{Status: StatusCompleted}, "step 2"))
}

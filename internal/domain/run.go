package domain

import (
	"encoding/json"
	"time"
)

// GenerationRun is the audit record of one finished generate-audio call.
type GenerationRun struct {
	ID          string
	HTTPRequest string
	JobID       string
	VideoURL    string
	Prompt      string
	Outcome     string
	ArtifactURL string
	Error       string
	Details     json.RawMessage
	Attempts    int
	Elapsed     time.Duration
	CreatedAt   time.Time
}

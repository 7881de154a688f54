package generation

import (
	"errors"
	"fmt"
	"time"
)

// OutcomeKind enumerates the terminal results of one orchestration attempt.
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomeValidationFailed OutcomeKind = "validation_failed"
	OutcomeTransientFailure OutcomeKind = "transient_failure"
	OutcomeTimeout          OutcomeKind = "timeout"
)

// Outcome is produced exactly once per Supervisor.Run.
type Outcome struct {
	Kind        OutcomeKind
	ArtifactURL string
	Result      *Result
	// Reason describes why validation failed.
	Reason string
	Cause  error

	Attempts  int
	RequestID string
	Deadline  time.Duration
	Elapsed   time.Duration
}

// Succeeded reports whether the outcome carries a usable artifact URL.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess && o.ArtifactURL != ""
}

// Err converts a failed outcome into a *JobError. It returns nil on success.
func (o Outcome) Err() error {
	if o.Kind == OutcomeSuccess {
		return nil
	}
	jobErr := &JobError{Kind: o.Kind, Cause: o.Cause, Details: DiagnosticFrom(o.Cause)}
	switch o.Kind {
	case OutcomeTimeout:
		jobErr.Message = fmt.Sprintf("Audio generation timed out after %s", o.Deadline)
	case OutcomeValidationFailed:
		jobErr.Message = "No video with audio generated or video URL not found"
		if o.Reason != "" {
			jobErr.Message += ": " + o.Reason
		}
	default:
		jobErr.Message = "Failed to generate audio"
		if o.Cause != nil {
			jobErr.Message += ": " + o.Cause.Error()
		}
	}
	return jobErr
}

func successOutcome(result Result) Outcome {
	return Outcome{Kind: OutcomeSuccess, ArtifactURL: result.Video.URL, Result: &result}
}

func transientOutcome(cause error) Outcome {
	return Outcome{Kind: OutcomeTransientFailure, Cause: cause}
}

func validationOutcome(err error) Outcome {
	return Outcome{Kind: OutcomeValidationFailed, Reason: reasonOf(err), Cause: err}
}

func reasonOf(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	return err.Error()
}

package generation

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrCallerInput marks errors caused by missing or malformed caller input.
	ErrCallerInput = errors.New("invalid generation input")
	// ErrMissingVideoURL is returned before any network activity when no video reference is given.
	ErrMissingVideoURL = fmt.Errorf("%w: video URL is required", ErrCallerInput)

	ErrTransient  = errors.New("audio generation failed")
	ErrValidation = errors.New("no video with audio generated or video URL not found")
	ErrTimeout    = errors.New("audio generation timed out")
)

// JobError is the error form of a non-successful Outcome.
type JobError struct {
	Kind    OutcomeKind
	Message string
	// Details carries the generation service's diagnostic payload, if any.
	Details json.RawMessage
	Cause   error
}

func (e *JobError) Error() string {
	return e.Message
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause.
func (e *JobError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := sentinelFor(e.Kind); s != nil {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Diagnostic is implemented by service errors that carry a response body.
type Diagnostic interface {
	Diagnostic() json.RawMessage
}

// DiagnosticFrom extracts the first diagnostic payload found in err's chain.
func DiagnosticFrom(err error) json.RawMessage {
	var d Diagnostic
	if errors.As(err, &d) {
		return d.Diagnostic()
	}
	return nil
}

func sentinelFor(kind OutcomeKind) error {
	switch kind {
	case OutcomeTransientFailure:
		return ErrTransient
	case OutcomeValidationFailed:
		return ErrValidation
	case OutcomeTimeout:
		return ErrTimeout
	default:
		return nil
	}
}

package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vidsound/internal/infra"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultDeadline    = 60 * time.Second
)

// Options configures a Supervisor.
type Options struct {
	// MaxAttempts bounds submission attempts. Accepted jobs are never retried.
	MaxAttempts int
	// RetryDelay is the fixed pause between submission attempts. Zero retries
	// immediately; a negative value selects DefaultRetryDelay.
	RetryDelay time.Duration
	Logger     *infra.Logger
	Metrics    *Metrics
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Supervisor drives one generation job per Run call: submission with a
// bounded retry, waiting for the terminal response, and validation, all
// raced against a deadline. A Supervisor holds no per-run state and is safe
// for concurrent use.
type Supervisor struct {
	service     JobService
	maxAttempts int
	retryDelay  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *infra.Logger
	metrics     *Metrics
}

// NewSupervisor wires a Supervisor around service.
func NewSupervisor(service JobService, opts Options) *Supervisor {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryDelay := opts.RetryDelay
	if retryDelay < 0 {
		retryDelay = DefaultRetryDelay
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Supervisor{
		service:     service,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		sleep:       sleep,
		logger:      infra.OrDiscard(opts.Logger),
		metrics:     opts.Metrics,
	}
}

// Run executes req and returns its normalized outcome. It never panics and
// never returns a raw service response. Progress messages are delivered to
// progress without blocking; messages are dropped when the channel is full
// and nothing is sent after Run returns. progress may be nil.
//
// When the deadline wins the race the in-flight work is abandoned: its
// context is cancelled, but a service that ignores cancellation keeps
// running in the background until it finishes on its own, and whatever it
// produces is discarded.
func (s *Supervisor) Run(ctx context.Context, req Request, deadline time.Duration, progress chan<- Progress) Outcome {
	started := time.Now()
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	st := &runState{progress: progress, metrics: s.metrics}
	logger := s.logger.With().
		Str("video_url", req.VideoURL()).
		Str("prompt", req.PromptPreview()).
		Dur("deadline", deadline).
		Logger()

	var outcome Outcome
	if !req.valid() {
		outcome = transientOutcome(ErrMissingVideoURL)
	} else {
		outcome = s.race(ctx, req, deadline, st, &logger)
	}
	st.close()

	attempts, requestID := st.snapshot()
	outcome.Attempts = attempts
	if outcome.RequestID == "" {
		outcome.RequestID = requestID
	}
	outcome.Deadline = deadline
	outcome.Elapsed = time.Since(started)
	s.metrics.observeOutcome(outcome)

	event := logger.Info()
	if outcome.Kind != OutcomeSuccess {
		event = logger.Error().Err(outcome.Cause)
	}
	event.
		Str("outcome", string(outcome.Kind)).
		Str("request_id", outcome.RequestID).
		Int("attempts", outcome.Attempts).
		Dur("elapsed", outcome.Elapsed).
		Str("artifact_url", outcome.ArtifactURL).
		Msg("supervisor: run finished")

	return outcome
}

func (s *Supervisor) race(ctx context.Context, req Request, deadline time.Duration, st *runState, logger *infra.Logger) Outcome {
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	// Buffered so an abandoned worker can always deliver and exit.
	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- transientOutcome(fmt.Errorf("generation service panic: %v", r))
			}
		}()
		done <- s.execute(workCtx, req, st, logger)
	}()

	select {
	case out := <-done:
		return out
	case <-timer.C:
		logger.Warn().Msg("supervisor: deadline elapsed, abandoning in-flight work")
		return Outcome{Kind: OutcomeTimeout, Cause: fmt.Errorf("%w after %s", ErrTimeout, deadline)}
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return Outcome{Kind: OutcomeTimeout, Cause: err}
		}
		return transientOutcome(err)
	}
}

func (s *Supervisor) execute(ctx context.Context, req Request, st *runState, logger *infra.Logger) Outcome {
	job, err := s.submitWithRetry(ctx, req, st, logger)
	if err != nil {
		return transientOutcome(err)
	}

	st.accept(job.RequestID)
	logger.Info().Str("request_id", job.RequestID).Msg("supervisor: job accepted")
	st.emit(Progress{Status: StatusQueued, Message: "Request accepted"})

	raw, err := s.service.Await(ctx, job, st.observe)
	if err != nil {
		return transientOutcome(fmt.Errorf("await job %s: %w", job.RequestID, err))
	}

	result, err := Validate(raw)
	if err != nil {
		logger.Error().
			Err(err).
			Str("request_id", job.RequestID).
			RawJSON("response", compactOrNull(raw)).
			Msg("supervisor: invalid response structure")
		return validationOutcome(err)
	}
	return successOutcome(result)
}

func (s *Supervisor) submitWithRetry(ctx context.Context, req Request, st *runState, logger *infra.Logger) (Job, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		st.setAttempt(attempt)
		st.emit(Progress{
			Status:  StatusSubmitting,
			Message: fmt.Sprintf("Submitting request (attempt %d of %d)", attempt, s.maxAttempts),
		})

		began := time.Now()
		job, err := s.service.Submit(ctx, req)
		elapsed := time.Since(began)
		s.metrics.observeAttempt(err, elapsed)

		if err == nil {
			logger.Debug().Int("attempt", attempt).Dur("elapsed", elapsed).Msg("supervisor: submit succeeded")
			return job, nil
		}
		lastErr = err
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", s.maxAttempts).
			Dur("elapsed", elapsed).
			Msg("supervisor: submit failed")

		if attempt == s.maxAttempts || ctx.Err() != nil {
			break
		}
		if err := s.sleep(ctx, s.retryDelay); err != nil {
			break
		}
	}
	return Job{}, fmt.Errorf("submit failed after %d attempt(s): %w", st.attemptCount(), lastErr)
}

// runState is the call-scoped state shared between Run and its worker.
type runState struct {
	mu        sync.Mutex
	closed    bool
	attempts  int
	requestID string
	progress  chan<- Progress
	tracker   ProgressTracker
	metrics   *Metrics
}

func (st *runState) emit(p Progress) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed || st.progress == nil {
		return
	}
	if p.RequestID == "" {
		p.RequestID = st.requestID
	}
	p.At = time.Now()
	select {
	case st.progress <- p:
	default:
	}
}

func (st *runState) observe(u QueueUpdate) {
	st.mu.Lock()
	closed := st.closed
	st.mu.Unlock()
	if closed {
		return
	}
	st.metrics.observeUpdate(u.Status)
	st.tracker.Observe(u)
	st.emit(Progress{RequestID: u.RequestID, Status: u.Status, Message: describeUpdate(u, st.tracker.Current())})
}

func (st *runState) setAttempt(n int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.closed {
		st.attempts = n
	}
}

func (st *runState) attemptCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.attempts
}

func (st *runState) accept(requestID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.closed {
		st.requestID = requestID
	}
}

func (st *runState) close() {
	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
}

func (st *runState) snapshot() (int, string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.attempts, st.requestID
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

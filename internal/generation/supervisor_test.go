package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	mu          sync.Mutex
	submitErrs  []error
	submitCalls int
	awaitCalls  int
	lastReq     Request

	updates  []QueueUpdate
	response json.RawMessage
	awaitErr error

	// release, when set, makes Await ignore ctx and wait for it.
	release  chan struct{}
	returned chan struct{}
}

func (s *stubService) Submit(ctx context.Context, req Request) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCalls++
	s.lastReq = req
	if idx := s.submitCalls - 1; idx < len(s.submitErrs) && s.submitErrs[idx] != nil {
		return Job{}, s.submitErrs[idx]
	}
	return Job{RequestID: fmt.Sprintf("req-%d", s.submitCalls)}, nil
}

func (s *stubService) Await(ctx context.Context, job Job, onUpdate func(QueueUpdate)) (json.RawMessage, error) {
	s.mu.Lock()
	s.awaitCalls++
	s.mu.Unlock()
	if s.returned != nil {
		defer close(s.returned)
	}
	if s.release != nil {
		<-s.release
	}
	for _, u := range s.updates {
		u.RequestID = job.RequestID
		onUpdate(u)
	}
	if s.awaitErr != nil {
		return nil, s.awaitErr
	}
	return s.response, nil
}

func (s *stubService) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitCalls, s.awaitCalls
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func mustRequest(t *testing.T, url, prompt string) Request {
	t.Helper()
	req, err := NewRequest(url, prompt)
	require.NoError(t, err)
	return req
}

func okResponse(url string) json.RawMessage {
	return json.RawMessage(`{"video":{"url":"` + url + `","content_type":"video/mp4"}}`)
}

func TestRunRetriesSubmitUntilSuccess(t *testing.T) {
	for k := 0; k < 3; k++ {
		t.Run(fmt.Sprintf("fails_%d", k), func(t *testing.T) {
			errs := make([]error, k)
			for i := range errs {
				errs[i] = fmt.Errorf("submit boom %d", i+1)
			}
			svc := &stubService{submitErrs: errs, response: okResponse("https://cdn/ok.mp4")}
			rec := &sleepRecorder{}
			sup := NewSupervisor(svc, Options{MaxAttempts: 3, RetryDelay: 250 * time.Millisecond, Sleep: rec.sleep})

			out := sup.Run(context.Background(), mustRequest(t, "https://store/abc.mp4", ""), time.Second, nil)

			require.Equal(t, OutcomeSuccess, out.Kind, "cause: %v", out.Cause)
			assert.Equal(t, "https://cdn/ok.mp4", out.ArtifactURL)
			assert.Equal(t, k+1, out.Attempts)
			submits, awaits := svc.calls()
			assert.Equal(t, k+1, submits)
			assert.Equal(t, 1, awaits)
			require.Len(t, rec.delays, k)
			for _, d := range rec.delays {
				assert.Equal(t, 250*time.Millisecond, d)
			}
			assert.NoError(t, out.Err())
		})
	}
}

func TestRunReturnsTransientFailureAfterMaxAttempts(t *testing.T) {
	final := errors.New("final submit failure")
	svc := &stubService{submitErrs: []error{errors.New("first"), errors.New("second"), final}}
	rec := &sleepRecorder{}
	sup := NewSupervisor(svc, Options{MaxAttempts: 3, RetryDelay: time.Second, Sleep: rec.sleep})

	out := sup.Run(context.Background(), mustRequest(t, "https://store/abc.mp4", "rain"), 5*time.Second, nil)

	assert.Equal(t, OutcomeTransientFailure, out.Kind)
	assert.Equal(t, 3, out.Attempts)
	assert.True(t, errors.Is(out.Cause, final))
	submits, awaits := svc.calls()
	assert.Equal(t, 3, submits)
	assert.Zero(t, awaits)
	assert.Len(t, rec.delays, 2)

	err := out.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransient))
	assert.True(t, errors.Is(err, final))
	assert.Contains(t, err.Error(), "final submit failure")
}

func TestRunDoesNotRetryAcceptedJob(t *testing.T) {
	svc := &stubService{awaitErr: errors.New("job crashed")}
	sup := NewSupervisor(svc, Options{MaxAttempts: 5, Sleep: (&sleepRecorder{}).sleep})

	out := sup.Run(context.Background(), mustRequest(t, "https://store/abc.mp4", ""), time.Second, nil)

	assert.Equal(t, OutcomeTransientFailure, out.Kind)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, "req-1", out.RequestID)
	submits, awaits := svc.calls()
	assert.Equal(t, 1, submits)
	assert.Equal(t, 1, awaits)
}

type diagnosticError struct {
	body json.RawMessage
}

func (e diagnosticError) Error() string               { return "service rejected job" }
func (e diagnosticError) Diagnostic() json.RawMessage { return e.body }

func TestRunSurfacesServiceDiagnostics(t *testing.T) {
	body := json.RawMessage(`{"detail":[{"msg":"video too long"}]}`)
	svc := &stubService{awaitErr: fmt.Errorf("fetch result: %w", diagnosticError{body: body})}
	sup := NewSupervisor(svc, Options{})

	out := sup.Run(context.Background(), mustRequest(t, "https://store/abc.mp4", ""), time.Second, nil)

	var jobErr *JobError
	require.True(t, errors.As(out.Err(), &jobErr))
	assert.Equal(t, OutcomeTransientFailure, jobErr.Kind)
	assert.JSONEq(t, string(body), string(jobErr.Details))
}

func TestRunTimesOutAndDiscardsLateCompletion(t *testing.T) {
	svc := &stubService{
		release:  make(chan struct{}),
		returned: make(chan struct{}),
		updates:  []QueueUpdate{{Status: StatusCompleted, Logs: []string{"late"}}},
		response: okResponse("https://cdn/late.mp4"),
	}
	sup := NewSupervisor(svc, Options{})
	progress := make(chan Progress, 16)

	out := sup.Run(context.Background(), mustRequest(t, "https://store/abc.mp4", ""), 30*time.Millisecond, progress)

	require.Equal(t, OutcomeTimeout, out.Kind)
	assert.Empty(t, out.ArtifactURL)
	assert.Equal(t, 30*time.Millisecond, out.Deadline)
	assert.True(t, errors.Is(out.Err(), ErrTimeout))
	assert.Contains(t, out.Err().Error(), "timed out after 30ms")

	// Drain everything emitted before the deadline.
	var beforeRelease int
	for len(progress) > 0 {
		<-progress
		beforeRelease++
	}

	close(svc.release)
	select {
	case <-svc.returned:
	case <-time.After(time.Second):
		t.Fatal("abandoned worker did not finish")
	}
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, OutcomeTimeout, out.Kind)
	assert.Zero(t, len(progress), "progress delivered after Run returned")
	assert.Positive(t, beforeRelease)
}

func TestRunRetriesCanExhaustDeadline(t *testing.T) {
	svc := &stubService{submitErrs: []error{
		errors.New("1"), errors.New("2"), errors.New("3"), errors.New("4"), errors.New("5"),
	}}
	sup := NewSupervisor(svc, Options{MaxAttempts: 5, RetryDelay: 40 * time.Millisecond})

	out := sup.Run(context.Background(), mustRequest(t, "https://store/abc.mp4", ""), 60*time.Millisecond, nil)

	assert.Equal(t, OutcomeTimeout, out.Kind)
	assert.Less(t, out.Attempts, 5)
}

func TestRunReportsValidationFailure(t *testing.T) {
	svc := &stubService{response: json.RawMessage(`{"video":{"url":""}}`)}
	sup := NewSupervisor(svc, Options{})

	out := sup.Run(context.Background(), mustRequest(t, "https://store/abc.mp4", ""), time.Second, nil)

	assert.Equal(t, OutcomeValidationFailed, out.Kind)
	assert.Equal(t, "video url missing", out.Reason)
	assert.True(t, errors.Is(out.Err(), ErrValidation))
	assert.Equal(t, 1, out.Attempts)
}

func TestRunRejectsZeroRequest(t *testing.T) {
	svc := &stubService{}
	sup := NewSupervisor(svc, Options{})

	out := sup.Run(context.Background(), Request{}, time.Second, nil)

	assert.Equal(t, OutcomeTransientFailure, out.Kind)
	assert.True(t, errors.Is(out.Err(), ErrCallerInput))
	submits, _ := svc.calls()
	assert.Zero(t, submits)
}

func TestRunHonorsCallerCancellation(t *testing.T) {
	svc := &stubService{release: make(chan struct{})}
	defer close(svc.release)
	sup := NewSupervisor(svc, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := sup.Run(ctx, mustRequest(t, "https://store/abc.mp4", ""), time.Second, nil)

	assert.NotEqual(t, OutcomeSuccess, out.Kind)
}

func TestRunEndToEndWithProgress(t *testing.T) {
	svc := &stubService{
		updates: []QueueUpdate{
			{Status: StatusQueued},
			{Status: StatusInProgress, Logs: []string{"Loading model", "Sampling audio 50%"}},
			{Status: StatusCompleted, Logs: []string{"Loading model", "Sampling audio 50%", "Done"}},
		},
		response: json.RawMessage(`{"video":{"url":"https://cdn/out123.mp4"}}`),
	}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	sup := NewSupervisor(svc, Options{Metrics: metrics})
	progress := make(chan Progress, 16)

	req := mustRequest(t, "https://store/abc.mp4", "")
	out := sup.Run(context.Background(), req, time.Second, progress)

	require.Equal(t, OutcomeSuccess, out.Kind, "cause: %v", out.Cause)
	assert.Equal(t, "https://cdn/out123.mp4", out.ArtifactURL)
	require.NotNil(t, out.Result)
	assert.Equal(t, "https://cdn/out123.mp4", out.Result.Video.URL)
	assert.Equal(t, DefaultPrompt, svc.lastReq.Prompt())
	assert.Equal(t, "https://store/abc.mp4", svc.lastReq.VideoURL())

	var messages []string
	var statuses []Status
	for len(progress) > 0 {
		p := <-progress
		messages = append(messages, p.Message)
		statuses = append(statuses, p.Status)
		if p.Status != StatusSubmitting {
			assert.Equal(t, "req-1", p.RequestID)
		}
	}
	assert.Equal(t, []Status{StatusSubmitting, StatusQueued, StatusQueued, StatusInProgress, StatusCompleted}, statuses)
	assert.Contains(t, messages, "Sampling audio 50%")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues(string(OutcomeSuccess))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.updates.WithLabelValues(string(StatusInProgress))))
}

func TestRunConcurrentInvocationsAreIndependent(t *testing.T) {
	sup := NewSupervisor(&urlEchoService{}, Options{})

	var wg sync.WaitGroup
	results := make([]Outcome, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := fmt.Sprintf("https://store/%d.mp4", i)
			results[i] = sup.Run(context.Background(), mustRequest(t, url, ""), time.Second, nil)
		}(i)
	}
	wg.Wait()

	for i, out := range results {
		require.Equal(t, OutcomeSuccess, out.Kind)
		assert.Equal(t, fmt.Sprintf("https://cdn/%d.mp4", i), out.ArtifactURL)
	}
}

// urlEchoService derives the artifact from the request so runs can be told apart.
type urlEchoService struct{}

func (urlEchoService) Submit(ctx context.Context, req Request) (Job, error) {
	return Job{RequestID: req.VideoURL(), Handle: req.VideoURL()}, nil
}

func (urlEchoService) Await(ctx context.Context, job Job, onUpdate func(QueueUpdate)) (json.RawMessage, error) {
	src := job.Handle.(string)
	name := src[len("https://store/"):]
	return okResponse("https://cdn/" + name), nil
}

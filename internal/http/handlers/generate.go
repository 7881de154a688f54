package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"vidsound/internal/domain"
	"vidsound/internal/generation"
	"vidsound/internal/middleware"
)

const (
	maxGenerateBody = 64 << 10
	auditTimeout    = 5 * time.Second
)

type generateRequest struct {
	VideoURL string `json:"videoUrl"`
	Prompt   string `json:"prompt"`
}

type generateResponse struct {
	GeneratedVideoURL string `json:"generatedVideoUrl"`
}

func (a *App) GenerateAudio(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxGenerateBody))
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "Invalid request body", quoteDetails(err.Error()))
		return
	}

	req, err := generation.NewRequest(body.VideoURL, body.Prompt)
	if err != nil {
		a.error(w, http.StatusBadRequest, "Video URL is required", nil)
		return
	}
	if a.Generator == nil {
		a.error(w, http.StatusServiceUnavailable, "Audio generation is not configured", nil)
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	outcome := a.Generator.Run(r.Context(), req, a.Deadline, nil)
	a.recordRun(r.Context(), requestID, req, outcome)

	if err := outcome.Err(); err != nil {
		var jobErr *generation.JobError
		if !errors.As(err, &jobErr) {
			a.error(w, http.StatusInternalServerError, err.Error(), nil)
			return
		}
		a.error(w, statusForOutcome(outcome.Kind), jobErr.Message, jobErr.Details)
		return
	}
	a.json(w, http.StatusOK, generateResponse{GeneratedVideoURL: outcome.ArtifactURL})
}

func statusForOutcome(kind generation.OutcomeKind) int {
	switch kind {
	case generation.OutcomeSuccess:
		return http.StatusOK
	case generation.OutcomeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// recordRun appends the outcome to run history. Failures are logged only.
func (a *App) recordRun(ctx context.Context, requestID string, req generation.Request, outcome generation.Outcome) {
	if a.Runs == nil {
		return
	}
	run := &domain.GenerationRun{
		HTTPRequest: requestID,
		JobID:       outcome.RequestID,
		VideoURL:    req.VideoURL(),
		Prompt:      req.Prompt(),
		Outcome:     string(outcome.Kind),
		ArtifactURL: outcome.ArtifactURL,
		Attempts:    outcome.Attempts,
		Elapsed:     outcome.Elapsed,
	}
	if err := outcome.Err(); err != nil {
		run.Error = err.Error()
		var jobErr *generation.JobError
		if errors.As(err, &jobErr) {
			run.Details = jobErr.Details
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := a.Runs.Record(ctx, run); err != nil {
		a.Logger.Error().Err(err).Str("request_id", requestID).Msg("generate: record run failed")
	}
}

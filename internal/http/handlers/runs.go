package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

type runItem struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"request_id"`
	JobID       string          `json:"job_id,omitempty"`
	VideoURL    string          `json:"video_url"`
	Prompt      string          `json:"prompt"`
	Outcome     string          `json:"outcome"`
	ArtifactURL string          `json:"artifact_url,omitempty"`
	Error       string          `json:"error,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	Attempts    int             `json:"attempts"`
	ElapsedMS   int64           `json:"elapsed_ms"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (a *App) ListRuns(w http.ResponseWriter, r *http.Request) {
	if a.Runs == nil {
		a.error(w, http.StatusServiceUnavailable, "Run history is not configured", nil)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.error(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}
	runs, err := a.Runs.ListRecent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("runs: list failed")
		a.error(w, http.StatusInternalServerError, "Failed to list runs", nil)
		return
	}
	items := make([]runItem, 0, len(runs))
	for _, run := range runs {
		items = append(items, runItem{
			ID:          run.ID,
			RequestID:   run.HTTPRequest,
			JobID:       run.JobID,
			VideoURL:    run.VideoURL,
			Prompt:      run.Prompt,
			Outcome:     run.Outcome,
			ArtifactURL: run.ArtifactURL,
			Error:       run.Error,
			Details:     run.Details,
			Attempts:    run.Attempts,
			ElapsedMS:   run.Elapsed.Milliseconds(),
			CreatedAt:   run.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

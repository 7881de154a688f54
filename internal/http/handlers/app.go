package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"vidsound/internal/domain"
	"vidsound/internal/generation"
	"vidsound/internal/infra"
	"vidsound/internal/storage"
)

// Orchestrator runs one generation job to a normalized outcome.
type Orchestrator interface {
	Run(ctx context.Context, req generation.Request, deadline time.Duration, progress chan<- generation.Progress) generation.Outcome
}

type App struct {
	// Generator is nil when no generation service credentials are configured.
	Generator Orchestrator
	Store     storage.AssetStore
	Policy    storage.Policy
	Deadline  time.Duration
	// Runs is nil when no database is configured.
	Runs   domain.RunRepository
	Logger infra.Logger
}

type errorResponse struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes {"error": message, "details": details}; details renders as null when empty.
func (a *App) error(w http.ResponseWriter, code int, message string, details json.RawMessage) {
	if len(details) == 0 {
		details = json.RawMessage("null")
	}
	a.json(w, code, errorResponse{Error: message, Details: details})
}

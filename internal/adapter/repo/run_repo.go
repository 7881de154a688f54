package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vidsound/internal/domain"
	"vidsound/internal/infra"
	"vidsound/internal/sqlinline"
)

const maxListLimit = 200

// RunRepositoryPG implements domain.RunRepository on top of the marked SQL runner.
type RunRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRunRepository creates a run repository. sql is normally an *infra.SQLRunner.
func NewRunRepository(sql infra.SQLExecutor) *RunRepositoryPG {
	return &RunRepositoryPG{sql: sql}
}

// EnsureSchema creates the generation_runs table when missing.
func (r *RunRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QCreateGenerationRuns); err != nil {
		return fmt.Errorf("create generation_runs: %w", err)
	}
	return nil
}

// Record inserts run, assigning an ID when it has none.
func (r *RunRepositoryPG) Record(ctx context.Context, run *domain.GenerationRun) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertGenerationRun,
		run.ID,
		run.HTTPRequest,
		run.JobID,
		run.VideoURL,
		run.Prompt,
		run.Outcome,
		run.ArtifactURL,
		run.Error,
		nullableJSON(run.Details),
		run.Attempts,
		run.Elapsed.Milliseconds(),
	)
	if err := row.Scan(&run.CreatedAt); err != nil {
		return fmt.Errorf("insert generation run: %w", err)
	}
	return nil
}

// ListRecent returns the newest runs first.
func (r *RunRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.GenerationRun, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListRecentGenerationRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("list generation runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.GenerationRun
	for rows.Next() {
		var run domain.GenerationRun
		var details []byte
		var elapsedMS int64
		if err := rows.Scan(
			&run.ID,
			&run.HTTPRequest,
			&run.JobID,
			&run.VideoURL,
			&run.Prompt,
			&run.Outcome,
			&run.ArtifactURL,
			&run.Error,
			&details,
			&run.Attempts,
			&elapsedMS,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation run: %w", err)
		}
		if len(details) > 0 {
			run.Details = json.RawMessage(details)
		}
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generation runs: %w", err)
	}
	return runs, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return string(raw)
}

var _ domain.RunRepository = (*RunRepositoryPG)(nil)

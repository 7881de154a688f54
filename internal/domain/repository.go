package domain

import "context"

// RunRepository persists generation run history.
type RunRepository interface {
	Record(ctx context.Context, run *GenerationRun) error
	ListRecent(ctx context.Context, limit int) ([]GenerationRun, error)
}

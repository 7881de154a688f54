package generation

import (
	"context"
	"encoding/json"
)

// Job identifies a request accepted by the generation service. Handle is
// opaque to this package and belongs to the JobService that produced it.
type Job struct {
	RequestID string
	Handle    any
}

// JobService is the external long-running generation service.
type JobService interface {
	// Submit hands the request to the service and returns once it is accepted.
	Submit(ctx context.Context, req Request) (Job, error)
	// Await blocks until the terminal response of an accepted job. onUpdate
	// receives interim status notifications in delivery order.
	Await(ctx context.Context, job Job, onUpdate func(QueueUpdate)) (json.RawMessage, error)
}

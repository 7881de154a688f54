package fal

import (
	"context"
	"encoding/json"
	"fmt"

	"vidsound/internal/generation"
)

// DefaultEndpoint is the video-to-audio model used for ambient tracks.
const DefaultEndpoint = "fal-ai/thinksound"

// Generator adapts the queue client to generation.JobService.
type Generator struct {
	client   *Client
	endpoint string
}

// NewGenerator binds client to a model endpoint.
func NewGenerator(client *Client, endpoint string) *Generator {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Generator{client: client, endpoint: endpoint}
}

// Endpoint returns the model endpoint requests are sent to.
func (g *Generator) Endpoint() string {
	return g.endpoint
}

func (g *Generator) Submit(ctx context.Context, req generation.Request) (generation.Job, error) {
	sub, err := g.client.Submit(ctx, g.endpoint, req.Input())
	if err != nil {
		return generation.Job{}, err
	}
	return generation.Job{RequestID: sub.RequestID, Handle: sub}, nil
}

func (g *Generator) Await(ctx context.Context, job generation.Job, onUpdate func(generation.QueueUpdate)) (json.RawMessage, error) {
	sub, ok := job.Handle.(*Submission)
	if !ok || sub == nil {
		return nil, fmt.Errorf("fal: job %s was not submitted by this generator", job.RequestID)
	}
	return g.client.Await(ctx, sub, func(status StatusResponse) {
		if onUpdate != nil {
			onUpdate(toQueueUpdate(sub.RequestID, status))
		}
	})
}

func toQueueUpdate(requestID string, status StatusResponse) generation.QueueUpdate {
	update := generation.QueueUpdate{
		RequestID:     requestID,
		Status:        generation.Status(status.Status),
		QueuePosition: status.QueuePosition,
	}
	for _, entry := range status.Logs {
		update.Logs = append(update.Logs, entry.Message)
	}
	return update
}

var _ generation.JobService = (*Generator)(nil)

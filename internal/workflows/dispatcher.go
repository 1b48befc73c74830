package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/cafelog/internal/core/ports"
)

// DefaultMaxPayloadBytes keeps workflow input under Temporal's default 2 MB
// blob limit once JSON-encoded.
const DefaultMaxPayloadBytes = 1400 * 1024

// Dispatcher starts a PhotoWorkflow per upload. It implements
// ports.PhotoDispatcher.
type Dispatcher struct {
	client     client.Client
	taskQueue  string
	maxPayload int
}

// NewDispatcher creates a Dispatcher. maxPayload <= 0 uses DefaultMaxPayloadBytes.
func NewDispatcher(c client.Client, taskQueue string, maxPayload int) *Dispatcher {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadBytes
	}
	return &Dispatcher{client: c, taskQueue: taskQueue, maxPayload: maxPayload}
}

// DispatchPhoto implements ports.PhotoDispatcher. Uploads over the payload
// limit are rejected with ports.ErrDispatchRejected.
func (d *Dispatcher) DispatchPhoto(ctx context.Context, up ports.PhotoUpload) (string, error) {
	if len(up.Data) > d.maxPayload {
		return "", fmt.Errorf("%w: %d bytes exceeds workflow payload limit %d", ports.ErrDispatchRejected, len(up.Data), d.maxPayload)
	}
	run, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "photo-" + uuid.NewString(),
		TaskQueue: d.taskQueue,
	}, PhotoWorkflow, up)
	if err != nil {
		return "", fmt.Errorf("start photo workflow: %w", err)
	}
	return run.GetID(), nil
}

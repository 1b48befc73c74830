package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"github.com/samirrijal/cafelog/internal/core/ports"
)

func TestDispatcher_StartsWorkflow(t *testing.T) {
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("photo-123")

	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.TaskQueue == "photo-queue" && len(o.ID) > len("photo-")
	}), mock.Anything, mock.Anything).Return(run, nil)

	d := NewDispatcher(c, "photo-queue", 0)
	id, err := d.DispatchPhoto(context.Background(), ports.PhotoUpload{CafeID: "c1", Data: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, "photo-123", id)
	c.AssertExpectations(t)
}

func TestDispatcher_RejectsLargePayload(t *testing.T) {
	d := NewDispatcher(nil, "photo-queue", 8)
	_, err := d.DispatchPhoto(context.Background(), ports.PhotoUpload{CafeID: "c1", Data: make([]byte, 9)})
	assert.ErrorIs(t, err, ports.ErrDispatchRejected)
}

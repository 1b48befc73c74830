package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/cafelog/internal/core/ports"
)

// PhotoWorkflow compresses and stores an upload, then attaches it to its
// café. If the attach fails, the stored photo is deleted (saga compensation).
func PhotoWorkflow(ctx workflow.Context, input ports.PhotoUpload) (PhotoRef, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting photo workflow", "cafeID", input.CafeID, "kind", input.Kind, "bytes", len(input.Data))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Compress and store
	var ref PhotoRef
	if err := workflow.ExecuteActivity(ctx, "StorePhoto", input).Get(ctx, &ref); err != nil {
		return PhotoRef{}, err
	}

	// Step 2: Attach to the café
	if err := workflow.ExecuteActivity(ctx, "AttachPhoto", ref).Get(ctx, nil); err != nil {
		logger.Warn("attach failed, compensating", "photoID", ref.ID, "error", err)
		// Compensate on a disconnected context so a cancelled workflow still cleans up.
		dctx, _ := workflow.NewDisconnectedContext(ctx)
		if derr := workflow.ExecuteActivity(dctx, "DeletePhoto", ref.ID).Get(dctx, nil); derr != nil {
			logger.Error("compensation failed, photo orphaned", "photoID", ref.ID, "error", derr)
		}
		return PhotoRef{}, err
	}

	logger.Info("Photo attached", "photoID", ref.ID)
	return ref, nil
}

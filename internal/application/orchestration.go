package application

import (
	"context"
	"fmt"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// OrchestrationService executes the release pipeline as a durable workflow.
type OrchestrationService struct {
	Workflow domain.ReleaseRunner
}

// Orchestrate starts the release pipeline workflow and waits for it to
// complete.
func (o *OrchestrationService) Orchestrate(ctx context.Context, releaseID domain.ReleaseID) error {
	handle, err := o.Workflow.Run(ctx, releaseID)
	if err != nil {
		return fmt.Errorf("start release workflow: %w", err)
	}
	_, err = handle.AwaitResult(ctx)
	return err
}

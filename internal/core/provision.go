package core

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/sitebuilder/internal/model"
)

// signalDeploy routes an attempt through the per-project entity workflow.
// SignalWithStartWorkflow starts the entity on first use; afterwards attempts
// for the same project queue behind each other and run one at a time.
func signalDeploy(ctx context.Context, tc temporalclient.Client, projectID string, task model.DeployTask) error {
	wfID := model.ProjectWorkflowID(projectID)
	_, err := tc.SignalWithStartWorkflow(ctx, wfID, model.DeploySignalName, task,
		temporalclient.StartWorkflowOptions{
			ID:        wfID,
			TaskQueue: model.TaskQueue,
		},
		"ProjectDeployWorkflow",
	)
	return err
}

// cancelAttempt requests cancellation of the workflow driving an attempt.
// It reports false when no such workflow is running.
func cancelAttempt(ctx context.Context, tc temporalclient.Client, attemptID string) (bool, error) {
	err := tc.CancelWorkflow(ctx, model.DeployWorkflowID(attemptID), "")
	if err == nil {
		return true, nil
	}
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("cancel workflow %s: %w", model.DeployWorkflowID(attemptID), err)
}

package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/sitebuilder/internal/model"
)

const (
	projectIdleTimeout   = 5 * time.Minute
	projectMaxIterations = 1000
)

// ProjectDeployWorkflow is a long-running per-project orchestrator that runs
// deployment attempts one at a time. Attempts are submitted via the "deploy"
// signal and executed as child DeployWorkflows, so at most one attempt per
// project talks to the provider at any moment.
//
// The workflow idles for up to 5 minutes between attempts and then completes.
// SignalWithStartWorkflow starts a new run when the next attempt is queued.
//
// After 1000 iterations the workflow uses ContinueAsNew to keep the event
// history bounded. Unread signals are carried over automatically by Temporal.
func ProjectDeployWorkflow(ctx workflow.Context) error {
	signalCh := workflow.GetSignalChannel(ctx, model.DeploySignalName)

	iteration := 0
	for {
		// Drain buffered signals first.
		for {
			var task model.DeployTask
			if !signalCh.ReceiveAsync(&task) {
				break
			}
			executeDeployTask(ctx, task)
			iteration++
			if iteration >= projectMaxIterations {
				return workflow.NewContinueAsNewError(ctx, ProjectDeployWorkflow)
			}
		}

		var task model.DeployTask
		gotSignal := false

		selector := workflow.NewSelector(ctx)
		selector.AddReceive(signalCh, func(c workflow.ReceiveChannel, _ bool) {
			c.Receive(ctx, &task)
			gotSignal = true
		})
		selector.AddFuture(workflow.NewTimer(ctx, projectIdleTimeout), func(workflow.Future) {})
		selector.Select(ctx)

		if !gotSignal {
			return nil
		}

		executeDeployTask(ctx, task)
		iteration++
		if iteration >= projectMaxIterations {
			return workflow.NewContinueAsNewError(ctx, ProjectDeployWorkflow)
		}
	}
}

// executeDeployTask runs one attempt to completion. Failures are recorded on
// the attempt by DeployWorkflow itself and never stop the orchestrator.
func executeDeployTask(ctx workflow.Context, task model.DeployTask) {
	logger := workflow.GetLogger(ctx)

	childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: task.WorkflowID,
		TaskQueue:  model.TaskQueue,
	})
	err := workflow.ExecuteChildWorkflow(childCtx, DeployWorkflow, task.Params).Get(ctx, nil)
	switch {
	case err == nil:
	case temporal.IsCanceledError(err):
		logger.Info("deploy attempt cancelled", "attempt", task.Params.AttemptID)
	default:
		logger.Error("deploy attempt failed",
			"attempt", task.Params.AttemptID,
			"id", task.WorkflowID,
			"error", err)
	}
}

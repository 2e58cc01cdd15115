package workflow

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/edvin/sitebuilder/internal/metrics"
	"github.com/edvin/sitebuilder/internal/model"
)

type simulationStep struct {
	status string
	line   string
}

func simulationSteps(fileCount int) []simulationStep {
	return []simulationStep{
		{model.StatusBuilding, "Preparing project files"},
		{model.StatusBuilding, fmt.Sprintf("Building site from %d files", fileCount)},
		{model.StatusBuilding, "Optimizing assets"},
		{model.StatusDeploying, "Deploying to preview"},
		{model.StatusDeploying, "Finalizing deployment"},
	}
}

// simulate runs the provider-free deployment: a fixed sequence of progress
// updates followed by SUCCESS at this application's preview URL.
func (r *deployRun) simulate(ctx workflow.Context, reason string) error {
	r.mode = metrics.ModeSimulated

	if err := r.appendLog(ctx, reason); err != nil {
		return err
	}
	for _, step := range simulationSteps(r.dc.FileCount) {
		if err := r.setStatus(ctx, step.status, "", step.line, ""); err != nil {
			return err
		}
		if err := workflow.Sleep(ctx, r.params.SimulationStepDelay); err != nil {
			return err
		}
	}

	url := r.dc.PreviewURL
	if err := r.setStatus(ctx, model.StatusSuccess, url, "Deployment successful (simulated): "+url, r.mode); err != nil {
		return err
	}
	return r.history(ctx, model.HistoryDeploymentSuccess,
		fmt.Sprintf("Deployment %s live at %s (simulated)", r.attemptID(), url))
}

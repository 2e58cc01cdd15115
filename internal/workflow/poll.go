package workflow

import (
	"fmt"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/sitebuilder/internal/activity"
	"github.com/edvin/sitebuilder/internal/model"
	"github.com/edvin/sitebuilder/internal/provider"
)

type pollOutcome int

const (
	pollReady pollOutcome = iota
	pollError
	pollTimeout
)

// pollLine is the log line written when the provider reports a new state.
func pollLine(status, readyState string) string {
	switch status {
	case model.StatusBuilding:
		return fmt.Sprintf("Building on the provider (%s)", readyState)
	case model.StatusDeploying:
		return fmt.Sprintf("Deploying on the provider (%s)", readyState)
	}
	return "Provider reported " + readyState
}

// poll follows a remote deployment until it is READY or ERROR, or the poll
// budget runs out. READY and timeout are recorded here; ERROR is left to
// recover.
func (r *deployRun) poll(ctx workflow.Context, remoteID, url string) (pollOutcome, error) {
	logger := workflow.GetLogger(ctx)

	if err := workflow.Sleep(ctx, r.params.InitialPollDelay); err != nil {
		return 0, err
	}

	lastState := ""
	for i := 1; i <= r.params.MaxPolls; i++ {
		if i > 1 {
			if err := workflow.Sleep(ctx, r.params.PollInterval); err != nil {
				return 0, err
			}
		}

		var dep provider.RemoteDeployment
		err := workflow.ExecuteActivity(pollActivityCtx(ctx), "GetRemoteDeploymentStatus", remoteID).Get(ctx, &dep)
		if err != nil {
			if temporal.IsCanceledError(err) {
				return 0, err
			}
			logger.Warn("deployment status poll failed",
				"attempt", r.attemptID(),
				"poll", i,
				"error", err)
			continue
		}

		if u := provider.NormalizeURL(dep.URL); u != "" {
			url = u
		}
		status := provider.MapReadyState(dep.ReadyState)
		switch status {
		case model.StatusSuccess:
			return pollReady, r.succeed(ctx, remoteID, url)
		case model.StatusFailed:
			return pollError, nil
		}

		line := ""
		if dep.ReadyState != lastState {
			line = pollLine(status, dep.ReadyState)
			lastState = dep.ReadyState
		}
		if err := r.setStatus(ctx, status, url, line, ""); err != nil {
			return 0, err
		}
	}

	line := fmt.Sprintf("Deployment timed out after %d status checks", r.params.MaxPolls)
	return pollTimeout, r.setStatus(ctx, model.StatusFailed, "", line, r.mode)
}

// succeed resolves the public URL of a READY deployment and finishes the
// attempt.
func (r *deployRun) succeed(ctx workflow.Context, remoteID, url string) error {
	var public string
	err := workflow.ExecuteActivity(providerActivityCtx(ctx), "ResolvePublicURL", activity.ResolvePublicURLParams{
		RemoteDeploymentID: remoteID,
		ProjectName:        r.dc.RemoteProjectName,
		FallbackURL:        url,
	}).Get(ctx, &public)
	if err != nil {
		if temporal.IsCanceledError(err) {
			return err
		}
		workflow.GetLogger(ctx).Warn("public URL resolution failed",
			"attempt", r.attemptID(),
			"error", err)
		public = provider.CanonicalURL(url, r.dc.RemoteProjectName, r.dc.AliasDomain)
	}

	if err := r.setStatus(ctx, model.StatusSuccess, public, "Deployment successful: "+public, r.mode); err != nil {
		return err
	}
	return r.history(ctx, model.HistoryDeploymentSuccess,
		fmt.Sprintf("Deployment %s live at %s", r.attemptID(), public))
}

package workflow

import (
	"errors"
	"fmt"
	"strings"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/sitebuilder/internal/activity"
	"github.com/edvin/sitebuilder/internal/metrics"
	"github.com/edvin/sitebuilder/internal/model"
	"github.com/edvin/sitebuilder/internal/provider"
)

// DeployWorkflow drives one deployment attempt from PENDING to SUCCESS or
// FAILED. With a provider configured it deploys and polls the remote
// deployment, running automated recovery when the provider reports an error.
// Without one, or when provider setup fails, it runs the simulated path.
//
// Cancelling the workflow is how an attempt is cancelled: polling stops and
// the attempt is marked FAILED.
func DeployWorkflow(ctx workflow.Context, params model.DeployParams) error {
	params = params.WithDefaults()
	logger := workflow.GetLogger(ctx)

	var dc activity.DeployContext
	err := workflow.ExecuteActivity(storeActivityCtx(ctx), "GetDeployContext", params.AttemptID).Get(ctx, &dc)
	if err != nil {
		return err
	}
	if model.IsTerminalStatus(dc.Attempt.Status) {
		logger.Info("attempt already finished, skipping",
			"attempt", params.AttemptID,
			"status", dc.Attempt.Status)
		return nil
	}

	r := &deployRun{
		params: params,
		dc:     dc,
		status: dc.Attempt.Status,
		budget: params.RecoveryBudget,
		mode:   metrics.ModeProvider,
	}

	err = r.run(ctx)
	if err == nil {
		return nil
	}

	if isAttemptFinished(err) {
		logger.Info("attempt finished outside the workflow, stopping",
			"attempt", params.AttemptID)
		return nil
	}

	if temporal.IsCanceledError(err) || errors.Is(ctx.Err(), workflow.ErrCanceled) {
		dctx, _ := workflow.NewDisconnectedContext(ctx)
		if ferr := r.fail(dctx, model.LogCancelled); ferr != nil {
			logger.Error("failed to record cancellation", "attempt", params.AttemptID, "error", ferr)
		}
		return err
	}

	if ferr := r.fail(ctx, "Deployment failed: "+err.Error()); ferr != nil {
		logger.Error("failed to record deployment failure", "attempt", params.AttemptID, "error", ferr)
	}
	return err
}

// deployRun is the state of one DeployWorkflow execution.
type deployRun struct {
	params model.DeployParams
	dc     activity.DeployContext
	status string
	budget int
	mode   string
}

func (r *deployRun) attemptID() string { return r.params.AttemptID }
func (r *deployRun) projectID() string { return r.dc.Project.ID }

// run executes deploy cycles until the attempt is terminal. A cycle after an
// automated recovery always uploads the fixed files instead of reusing the
// latest remote deployment.
func (r *deployRun) run(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)

	if err := r.history(ctx, model.HistoryDeploymentStarted,
		fmt.Sprintf("Deployment %s started", r.attemptID())); err != nil {
		return err
	}

	forceFresh := false
	for cycle := 1; ; cycle++ {
		r.snapshot(ctx, cycle)

		if !r.dc.ProviderEnabled {
			return r.simulate(ctx, "No deployment provider configured, running simulated deployment")
		}

		remoteID, url, err := r.setupRemote(ctx, forceFresh)
		if err != nil {
			if temporal.IsCanceledError(err) {
				return err
			}
			logger.Warn("provider setup failed, falling back to simulation",
				"attempt", r.attemptID(),
				"error", err)
			return r.simulate(ctx, fmt.Sprintf("Deployment provider unavailable (%s), running simulated deployment", rootMessage(err)))
		}

		outcome, err := r.poll(ctx, remoteID, url)
		if err != nil {
			return err
		}

		switch outcome {
		case pollReady:
			return nil
		case pollTimeout:
			return r.history(ctx, model.HistoryDeploymentFailed,
				fmt.Sprintf("Deployment %s timed out", r.attemptID()))
		}

		recovered, err := r.recover(ctx)
		if err != nil {
			return err
		}
		if !recovered {
			return r.history(ctx, model.HistoryDeploymentFailed,
				fmt.Sprintf("Deployment %s failed", r.attemptID()))
		}
		forceFresh = true
	}
}

// setupRemote resolves the remote project and the deployment to follow. It
// returns the remote deployment id and the best URL known so far.
func (r *deployRun) setupRemote(ctx workflow.Context, forceFresh bool) (string, string, error) {
	logger := workflow.GetLogger(ctx)
	pctx := providerActivityCtx(ctx)

	var project activity.ResolveRemoteProjectResult
	err := workflow.ExecuteActivity(pctx, "ResolveRemoteProject", activity.ResolveRemoteProjectParams{
		Name: r.dc.RemoteProjectName,
	}).Get(ctx, &project)
	if err != nil {
		return "", "", err
	}
	line := "Using remote project " + project.Name
	if project.Created {
		line = "Created remote project " + project.Name
	}
	if err := r.appendLog(ctx, line); err != nil {
		return "", "", err
	}

	var dep *provider.RemoteDeployment
	if !forceFresh {
		var latest *provider.RemoteDeployment
		err := workflow.ExecuteActivity(pctx, "FindLatestDeployment", project.ID).Get(ctx, &latest)
		switch {
		case temporal.IsCanceledError(err):
			return "", "", err
		case err != nil:
			logger.Warn("checking for an existing deployment failed, deploying fresh",
				"attempt", r.attemptID(),
				"error", err)
		case latest != nil && latest.ID != "":
			dep = latest
			if err := r.appendLog(ctx, "Reusing existing deployment "+dep.ID); err != nil {
				return "", "", err
			}
		}
	}

	if dep == nil {
		if err := r.appendLog(ctx, fmt.Sprintf("Uploading %d files", r.dc.FileCount)); err != nil {
			return "", "", err
		}
		var created provider.RemoteDeployment
		err := workflow.ExecuteActivity(pctx, "CreateRemoteDeployment", activity.CreateRemoteDeploymentParams{
			ProjectID:       r.projectID(),
			RemoteProjectID: project.ID,
			Name:            r.dc.RemoteProjectName,
			Target:          provider.TargetProduction,
		}).Get(ctx, &created)
		if err != nil {
			return "", "", err
		}
		dep = &created
	}

	url := provider.NormalizeURL(dep.URL)
	err = workflow.ExecuteActivity(storeActivityCtx(ctx), "SetRemoteDeployment", activity.SetRemoteDeploymentParams{
		ID:                 r.attemptID(),
		RemoteProjectID:    project.ID,
		RemoteDeploymentID: dep.ID,
		URL:                url,
	}).Get(ctx, nil)
	if err != nil {
		return "", "", err
	}

	if err := r.setStatus(ctx, model.StatusBuilding, url, "Building deployment "+dep.ID, ""); err != nil {
		return "", "", err
	}
	return dep.ID, url, nil
}

// recover runs the recovery rule chain after a provider error. It reports
// whether fixes were applied and another cycle should run. The attempt is
// FAILED when it returns false.
func (r *deployRun) recover(ctx workflow.Context) (bool, error) {
	const failedLine = "Deployment failed on the provider"

	if r.budget <= 0 {
		return false, r.setStatus(ctx, model.StatusFailed, "", failedLine, r.mode)
	}

	var diag activity.DiagnoseProjectFilesResult
	err := workflow.ExecuteActivity(recoveryActivityCtx(ctx), "DiagnoseProjectFiles", r.projectID()).Get(ctx, &diag)
	if err != nil {
		return false, err
	}

	if !diag.Diagnosis.CanFix() {
		if err := r.setStatus(ctx, model.StatusFailed, "", failedLine, r.mode); err != nil {
			return false, err
		}
		lines := []string{"Automatic recovery found no fixable issues, manual intervention required"}
		if len(diag.Diagnosis.Issues) > 0 {
			lines = append([]string{"Automatic recovery could not fix these issues:"}, diag.Diagnosis.Summary()...)
		}
		return false, r.appendLog(ctx, lines...)
	}

	// FAILED is recorded without a mode so the completion metric only counts
	// the attempt's final outcome.
	if err := r.setStatus(ctx, model.StatusFailed, "", failedLine, ""); err != nil {
		return false, err
	}
	lines := append([]string{fmt.Sprintf("Auto-fix found %d issue(s):", len(diag.Diagnosis.Issues))}, diag.Diagnosis.Summary()...)
	if err := r.appendLog(ctx, lines...); err != nil {
		return false, err
	}

	var applied activity.ApplyProjectFixesResult
	err = workflow.ExecuteActivity(recoveryActivityCtx(ctx), "ApplyProjectFixes", activity.ApplyProjectFixesParams{
		ProjectID: r.projectID(),
		Fixes:     diag.Diagnosis.Fixes,
	}).Get(ctx, &applied)
	if err != nil {
		return false, err
	}
	r.budget--
	r.dc.FileCount = applied.FilesAfter

	descriptions := make([]string, 0, len(diag.Diagnosis.Fixes))
	for _, f := range diag.Diagnosis.Fixes {
		descriptions = append(descriptions, f.Description)
	}
	if err := r.setStatus(ctx, model.StatusBuilding, "",
		fmt.Sprintf("Applied %d automatic fix(es), redeploying", len(diag.Diagnosis.Fixes)), ""); err != nil {
		return false, err
	}
	if err := r.history(ctx, model.HistoryDeploymentAutoFixed, strings.Join(descriptions, "; ")); err != nil {
		return false, err
	}
	return true, nil
}

// snapshot archives the files a cycle deploys. Failures are logged only.
func (r *deployRun) snapshot(ctx workflow.Context, cycle int) {
	var key string
	err := workflow.ExecuteActivity(storeActivityCtx(ctx), "ArchiveFileSnapshot", activity.ArchiveFileSnapshotParams{
		ProjectID: r.projectID(),
		AttemptID: r.attemptID(),
		Cycle:     cycle,
	}).Get(ctx, &key)
	if err != nil {
		workflow.GetLogger(ctx).Warn("file snapshot failed",
			"attempt", r.attemptID(),
			"error", err)
	}
}

// setStatus writes a status change. A status the attempt may not move to is
// not written; the URL and log line still are. The write fails with
// ErrTypeAttemptFinished when the row was finished outside this workflow.
func (r *deployRun) setStatus(ctx workflow.Context, status, url, line, mode string) error {
	if !model.ValidTransition(r.status, status) {
		if url == "" && line == "" {
			return nil
		}
		status = r.status
		mode = ""
	}
	err := workflow.ExecuteActivity(storeActivityCtx(ctx), "UpdateDeploymentStatus", activity.UpdateDeploymentStatusParams{
		ID:         r.attemptID(),
		Status:     status,
		URL:        url,
		Log:        line,
		Mode:       mode,
		Recovering: r.status == model.StatusFailed && status == model.StatusBuilding,
	}).Get(ctx, nil)
	if err != nil {
		return err
	}
	r.status = status
	return nil
}

// fail marks the attempt FAILED with a log line. An attempt that is already
// FAILED only gets the line.
func (r *deployRun) fail(ctx workflow.Context, line string) error {
	if r.status == model.StatusFailed {
		if err := r.appendLog(ctx, line); err != nil {
			return err
		}
	} else if err := r.setStatus(ctx, model.StatusFailed, "", line, r.mode); err != nil {
		return err
	}
	return r.history(ctx, model.HistoryDeploymentFailed, line)
}

func (r *deployRun) appendLog(ctx workflow.Context, lines ...string) error {
	return workflow.ExecuteActivity(storeActivityCtx(ctx), "AppendDeploymentLog", activity.AppendDeploymentLogParams{
		ID:    r.attemptID(),
		Lines: lines,
	}).Get(ctx, nil)
}

func (r *deployRun) history(ctx workflow.Context, action, details string) error {
	return workflow.ExecuteActivity(storeActivityCtx(ctx), "AddProjectHistory", activity.AddProjectHistoryParams{
		ProjectID: r.projectID(),
		Action:    action,
		Details:   details,
	}).Get(ctx, nil)
}

// isAttemptFinished reports whether err is a status write rejected because the
// attempt was already finished.
func isAttemptFinished(err error) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == activity.ErrTypeAttemptFinished
}

// rootMessage returns the innermost message of an activity error, without
// Temporal's wrapping.
func rootMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}

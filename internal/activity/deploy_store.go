package activity

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/temporal"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/sitebuilder/internal/metrics"
	"github.com/edvin/sitebuilder/internal/model"
	"github.com/edvin/sitebuilder/internal/platform"
	"github.com/edvin/sitebuilder/internal/provider"
)

// DeployStore contains activities that read and write deployment attempts.
// Logs are only ever appended.
type DeployStore struct {
	db              DB
	appBaseURL      string
	providerEnabled bool
	aliasDomain     string
}

// NewDeployStore creates a new DeployStore activity struct.
func NewDeployStore(db DB, appBaseURL string, providerEnabled bool, aliasDomain string) *DeployStore {
	return &DeployStore{
		db:              db,
		appBaseURL:      appBaseURL,
		providerEnabled: providerEnabled,
		aliasDomain:     aliasDomain,
	}
}

// PreviewURL is the URL of this application's preview page for a project.
func PreviewURL(appBaseURL, projectID string) string {
	return fmt.Sprintf("%s/projects/%s/preview", appBaseURL, projectID)
}

// GetDeployContext loads an attempt together with its project and file count.
func (a *DeployStore) GetDeployContext(ctx context.Context, attemptID string) (*DeployContext, error) {
	var dc DeployContext
	d := &dc.Attempt
	err := a.db.QueryRow(ctx,
		`SELECT id, project_id, platform, branch, custom_domain, status, url, commit_sha, logs,
		        remote_project_id, remote_deployment_id, snapshot_key, created_at, updated_at, completed_at
		 FROM deployments WHERE id = $1`, attemptID,
	).Scan(&d.ID, &d.ProjectID, &d.Platform, &d.Branch, &d.CustomDomain, &d.Status, &d.URL, &d.Commit, &d.Logs,
		&d.RemoteProjectID, &d.RemoteDeploymentID, &d.SnapshotKey, &d.CreatedAt, &d.UpdatedAt, &d.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("get deployment %s: %w", attemptID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p := &dc.Project
		err := a.db.QueryRow(gctx,
			`SELECT id, user_id, title, description, created_at, updated_at FROM projects WHERE id = $1`, d.ProjectID,
		).Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("get project %s: %w", d.ProjectID, err)
		}
		return nil
	})
	g.Go(func() error {
		err := a.db.QueryRow(gctx,
			`SELECT count(*) FROM project_files WHERE project_id = $1`, d.ProjectID,
		).Scan(&dc.FileCount)
		if err != nil {
			return fmt.Errorf("count files of project %s: %w", d.ProjectID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dc.ProviderEnabled = a.providerEnabled
	dc.PreviewURL = PreviewURL(a.appBaseURL, d.ProjectID)
	dc.RemoteProjectName = provider.GenerateDescriptiveProjectName(dc.Project.Title, dc.Project.UserID)
	dc.AliasDomain = a.aliasDomain
	return &dc, nil
}

// ErrTypeAttemptFinished is the application error type returned when a status
// write finds the attempt already finished, for example cancelled by the API
// before its workflow got to run.
const ErrTypeAttemptFinished = "ATTEMPT_FINISHED"

// UpdateDeploymentStatusParams holds parameters for UpdateDeploymentStatus.
// Empty URL and Log leave the stored values untouched. Mode is set on the
// write that finishes an attempt and labels the completion metric. Recovering
// allows moving a FAILED attempt back to BUILDING after automated fixes.
type UpdateDeploymentStatusParams struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	URL        string `json:"url,omitempty"`
	Log        string `json:"log,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Recovering bool   `json:"recovering,omitempty"`
}

// UpdateDeploymentStatus sets an attempt's status. completed_at is stamped on
// the first write of a terminal status and cleared by any non-terminal one.
// A finished attempt is never rewritten unless Recovering is set and the
// attempt is FAILED.
func (a *DeployStore) UpdateDeploymentStatus(ctx context.Context, params UpdateDeploymentStatusParams) error {
	tag, err := a.db.Exec(ctx,
		`UPDATE deployments SET
		   status = $1::text,
		   url = CASE WHEN $2::text = '' THEN url ELSE $2::text END,
		   logs = CASE WHEN $3::text = '' THEN logs ELSE array_append(logs, $3::text) END,
		   completed_at = CASE WHEN $1::text IN ($4::text, $5::text) THEN COALESCE(completed_at, now()) ELSE NULL END,
		   updated_at = now()
		 WHERE id = $6
		   AND (status NOT IN ($4::text, $5::text) OR ($7::bool AND status = $5::text))`,
		params.Status, params.URL, params.Log, model.StatusSuccess, model.StatusFailed, params.ID, params.Recovering,
	)
	if err != nil {
		return fmt.Errorf("update deployment %s status to %s: %w", params.ID, params.Status, err)
	}
	if tag.RowsAffected() == 0 {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("deployment %s is already finished", params.ID), ErrTypeAttemptFinished, nil)
	}
	if params.Mode != "" && model.IsTerminalStatus(params.Status) {
		metrics.DeploymentsCompleted.WithLabelValues(params.Status, params.Mode).Inc()
	}
	return nil
}

// AppendDeploymentLogParams holds parameters for AppendDeploymentLog.
type AppendDeploymentLogParams struct {
	ID    string   `json:"id"`
	Lines []string `json:"lines"`
}

// AppendDeploymentLog appends lines to an attempt's log in order.
func (a *DeployStore) AppendDeploymentLog(ctx context.Context, params AppendDeploymentLogParams) error {
	if len(params.Lines) == 0 {
		return nil
	}
	_, err := a.db.Exec(ctx,
		`UPDATE deployments SET logs = logs || $1::text[], updated_at = now() WHERE id = $2`,
		params.Lines, params.ID,
	)
	if err != nil {
		return fmt.Errorf("append log to deployment %s: %w", params.ID, err)
	}
	return nil
}

// SetRemoteDeploymentParams holds parameters for SetRemoteDeployment.
type SetRemoteDeploymentParams struct {
	ID                 string `json:"id"`
	RemoteProjectID    string `json:"remote_project_id"`
	RemoteDeploymentID string `json:"remote_deployment_id"`
	URL                string `json:"url,omitempty"`
}

// SetRemoteDeployment records the provider resources backing an attempt and
// the best URL known so far.
func (a *DeployStore) SetRemoteDeployment(ctx context.Context, params SetRemoteDeploymentParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE deployments SET
		   remote_project_id = $1, remote_deployment_id = $2,
		   url = CASE WHEN $3::text = '' THEN url ELSE $3::text END,
		   updated_at = now()
		 WHERE id = $4`,
		params.RemoteProjectID, params.RemoteDeploymentID, params.URL, params.ID,
	)
	if err != nil {
		return fmt.Errorf("set remote deployment of %s: %w", params.ID, err)
	}
	return nil
}

// AddProjectHistoryParams holds parameters for AddProjectHistory.
type AddProjectHistoryParams struct {
	ProjectID string `json:"project_id"`
	Action    string `json:"action"`
	Details   string `json:"details"`
}

// AddProjectHistory appends an entry to the project's audit history.
func (a *DeployStore) AddProjectHistory(ctx context.Context, params AddProjectHistoryParams) error {
	_, err := a.db.Exec(ctx,
		`INSERT INTO project_history (id, project_id, action, details, created_at) VALUES ($1, $2, $3, $4, now())`,
		platform.NewID(), params.ProjectID, params.Action, params.Details,
	)
	if err != nil {
		return fmt.Errorf("add %s history to project %s: %w", params.Action, params.ProjectID, err)
	}
	return nil
}

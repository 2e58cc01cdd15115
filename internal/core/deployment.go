package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/sitebuilder/internal/model"
)

var (
	// ErrDeploymentNotFound is returned when no attempt has the given ID.
	ErrDeploymentNotFound = errors.New("deployment not found")
	// ErrDeploymentFinished is returned when cancelling a terminal attempt.
	ErrDeploymentFinished = errors.New("deployment already finished")
)

const deploymentColumns = `id, project_id, platform, branch, custom_domain, status, url, commit_sha, logs,
	remote_project_id, remote_deployment_id, snapshot_key, created_at, updated_at, completed_at`

type DeploymentService struct {
	db     DB
	tc     temporalclient.Client
	params model.DeployParams
}

func NewDeploymentService(db DB, tc temporalclient.Client, params model.DeployParams) *DeploymentService {
	return &DeploymentService{db: db, tc: tc, params: params}
}

// Create persists a PENDING attempt, queues it on the project's deploy
// workflow and then supersedes the project's other active attempts. It
// returns as soon as the attempt is queued.
func (s *DeploymentService) Create(ctx context.Context, d *model.Deployment) error {
	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)", d.ProjectID).Scan(&exists); err != nil {
		return fmt.Errorf("check project %s: %w", d.ProjectID, err)
	}
	if !exists {
		return fmt.Errorf("project %s: %w", d.ProjectID, ErrProjectNotFound)
	}

	if len(d.Logs) == 0 {
		d.Logs = []string{model.LogQueued}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO deployments (id, project_id, platform, branch, custom_domain, status, url, commit_sha, logs, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.ProjectID, d.Platform, d.Branch, d.CustomDomain, d.Status, d.URL, d.Commit, d.Logs,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}

	params := s.params
	params.AttemptID = d.ID
	if err := signalDeploy(ctx, s.tc, d.ProjectID, model.DeployTask{
		WorkflowID: model.DeployWorkflowID(d.ID),
		Params:     params,
	}); err != nil {
		// Nothing will ever pick the row up, so close it out.
		if ferr := s.failOrphan(ctx, d.ID, model.LogNotQueued); ferr != nil {
			return errors.Join(fmt.Errorf("signal ProjectDeployWorkflow: %w", err), ferr)
		}
		return fmt.Errorf("signal ProjectDeployWorkflow: %w", err)
	}

	return s.supersede(ctx, d.ProjectID, d.ID)
}

// supersede stops every other active attempt of a project. Each one gets a log
// line and its workflow cancelled; attempts without a workflow are failed in
// place.
func (s *DeploymentService) supersede(ctx context.Context, projectID, newID string) error {
	rows, err := s.db.Query(ctx,
		`UPDATE deployments SET logs = array_append(logs, $1), updated_at = now()
		 WHERE project_id = $2 AND id <> $3 AND status IN ($4, $5, $6)
		 RETURNING id`,
		fmt.Sprintf("Superseded by deployment %s", newID), projectID, newID,
		model.StatusPending, model.StatusBuilding, model.StatusDeploying,
	)
	if err != nil {
		return fmt.Errorf("supersede deployments of project %s: %w", projectID, err)
	}
	var active []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan superseded deployment: %w", err)
		}
		active = append(active, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate superseded deployments: %w", err)
	}

	for _, id := range active {
		if err := s.stop(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *DeploymentService) GetByID(ctx context.Context, id string) (*model.Deployment, error) {
	d, err := scanDeployment(s.db.QueryRow(ctx, `SELECT `+deploymentColumns+` FROM deployments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get deployment %s: %w", id, ErrDeploymentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get deployment %s: %w", id, err)
	}
	return d, nil
}

// ListByProject returns attempts newest first. cursor is the ID of the last
// attempt of the previous page.
func (s *DeploymentService) ListByProject(ctx context.Context, projectID string, limit int, cursor string) ([]model.Deployment, bool, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE project_id = $1`
	args := []any{projectID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND (created_at, id) < (SELECT created_at, id FROM deployments WHERE id = $%d)`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY created_at DESC, id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list deployments for project %s: %w", projectID, err)
	}
	defer rows.Close()

	var deployments []model.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate deployments: %w", err)
	}

	hasMore := len(deployments) > limit
	if hasMore {
		deployments = deployments[:limit]
	}
	return deployments, hasMore, nil
}

// Cancel stops an attempt. The attempt's workflow fails the row once the
// cancellation is delivered; an attempt whose workflow has not started yet is
// failed in place.
func (s *DeploymentService) Cancel(ctx context.Context, id string) error {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if model.IsTerminalStatus(d.Status) {
		return fmt.Errorf("cancel deployment %s: %w", id, ErrDeploymentFinished)
	}
	return s.stop(ctx, id)
}

// stop cancels an attempt's workflow, falling back to failing the row when
// Temporal has no workflow for it.
func (s *DeploymentService) stop(ctx context.Context, id string) error {
	ok, err := cancelAttempt(ctx, s.tc, id)
	if err != nil {
		return err
	}
	if !ok {
		return s.failOrphan(ctx, id, model.LogCancelled)
	}
	return nil
}

// failOrphan fails a non-terminal attempt that has no workflow driving it.
func (s *DeploymentService) failOrphan(ctx context.Context, id, line string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE deployments
		 SET status = $1, logs = array_append(logs, $2), completed_at = COALESCE(completed_at, now()), updated_at = now()
		 WHERE id = $3 AND status NOT IN ($4, $5)`,
		model.StatusFailed, line, id, model.StatusSuccess, model.StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("fail orphaned deployment %s: %w", id, err)
	}
	return nil
}

func scanDeployment(row pgx.Row) (*model.Deployment, error) {
	var d model.Deployment
	err := row.Scan(&d.ID, &d.ProjectID, &d.Platform, &d.Branch, &d.CustomDomain, &d.Status, &d.URL, &d.Commit, &d.Logs,
		&d.RemoteProjectID, &d.RemoteDeploymentID, &d.SnapshotKey, &d.CreatedAt, &d.UpdatedAt, &d.CompletedAt)
	if err != nil {
		return nil, err
	}
	if d.Logs == nil {
		d.Logs = []string{}
	}
	return &d, nil
}

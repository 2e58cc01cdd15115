package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/sitebuilder/internal/metrics"
	"github.com/edvin/sitebuilder/internal/provider"
)

// Provider contains activities that call the deployment provider.
type Provider struct {
	client *provider.Client
	db     DB
	logger zerolog.Logger
}

// NewProvider creates a new Provider activity struct.
func NewProvider(logger zerolog.Logger, client *provider.Client, db DB) *Provider {
	return &Provider{
		client: client,
		db:     db,
		logger: logger.With().Str("component", "provider-activity").Logger(),
	}
}

// asNonRetryable marks provider rejections (4xx, malformed responses) as
// non-retryable so Temporal gives up immediately.
func asNonRetryable(err error) error {
	var perr *provider.Error
	if !errors.As(err, &perr) {
		return err
	}
	if perr.ClientError() || (perr.StatusCode == 0 && perr.Err == nil) {
		return temporal.NewNonRetryableApplicationError(perr.Error(), "PROVIDER_REJECTED", err)
	}
	return err
}

func (a *Provider) requireClient() error {
	if !a.client.Enabled() {
		return temporal.NewNonRetryableApplicationError("deployment provider is not configured", "PROVIDER_DISABLED", nil)
	}
	return nil
}

// ResolveRemoteProjectParams holds parameters for ResolveRemoteProject.
type ResolveRemoteProjectParams struct {
	Name string `json:"name"`
}

// ResolveRemoteProjectResult is the remote project an attempt deploys to.
type ResolveRemoteProjectResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created bool   `json:"created"`
}

// ResolveRemoteProject finds the remote project with the given name, creating
// it when none exists.
func (a *Provider) ResolveRemoteProject(ctx context.Context, params ResolveRemoteProjectParams) (*ResolveRemoteProjectResult, error) {
	if err := a.requireClient(); err != nil {
		return nil, err
	}
	projects, err := a.client.ListProjects(ctx)
	if err != nil {
		return nil, asNonRetryable(err)
	}
	for _, p := range projects {
		if p.Name == params.Name {
			return &ResolveRemoteProjectResult{ID: p.ID, Name: p.Name}, nil
		}
	}

	a.logger.Info().Str("name", params.Name).Msg("creating remote project")
	created, err := a.client.CreateProject(ctx, params.Name)
	if err != nil {
		return nil, asNonRetryable(err)
	}
	return &ResolveRemoteProjectResult{ID: created.ID, Name: created.Name, Created: true}, nil
}

// FindLatestDeployment returns the newest deployment of a remote project, or
// nil when it has none.
func (a *Provider) FindLatestDeployment(ctx context.Context, remoteProjectID string) (*provider.RemoteDeployment, error) {
	if err := a.requireClient(); err != nil {
		return nil, err
	}
	deployments, err := a.client.GetProjectDeployments(ctx, remoteProjectID)
	if err != nil {
		return nil, asNonRetryable(err)
	}
	if len(deployments) == 0 {
		return nil, nil
	}
	return &deployments[0], nil
}

// CreateRemoteDeploymentParams holds parameters for CreateRemoteDeployment.
type CreateRemoteDeploymentParams struct {
	ProjectID       string `json:"project_id"`
	RemoteProjectID string `json:"remote_project_id"`
	Name            string `json:"name"`
	Target          string `json:"target"`
}

// CreateRemoteDeployment uploads the project's current files as a new
// deployment. Stored paths are sent relative to the site root.
func (a *Provider) CreateRemoteDeployment(ctx context.Context, params CreateRemoteDeploymentParams) (*provider.RemoteDeployment, error) {
	if err := a.requireClient(); err != nil {
		return nil, err
	}
	files, err := loadFiles(ctx, a.db, params.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load files of project %s: %w", params.ProjectID, err)
	}
	if len(files) == 0 {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("project %s has no files to deploy", params.ProjectID), "NO_FILES", nil)
	}

	fileMap := make(map[string]string, len(files))
	for _, f := range files {
		rel := strings.TrimLeft(f.Path, "/")
		if rel == "" {
			continue
		}
		fileMap[rel] = f.Content
	}

	target := params.Target
	if target == "" {
		target = provider.TargetProduction
	}
	dep, err := a.client.DeployProject(ctx, params.RemoteProjectID, provider.DeployRequest{
		Name:   params.Name,
		Files:  fileMap,
		Target: target,
	})
	if err != nil {
		return nil, asNonRetryable(err)
	}
	return dep, nil
}

// GetRemoteDeploymentStatus fetches the provider's view of a deployment.
func (a *Provider) GetRemoteDeploymentStatus(ctx context.Context, remoteDeploymentID string) (*provider.RemoteDeployment, error) {
	if err := a.requireClient(); err != nil {
		return nil, err
	}
	dep, err := a.client.GetDeploymentStatus(ctx, remoteDeploymentID)
	if err != nil {
		metrics.PollsTotal.WithLabelValues("error").Inc()
		return nil, asNonRetryable(err)
	}
	metrics.PollsTotal.WithLabelValues(provider.MapReadyState(dep.ReadyState)).Inc()
	return dep, nil
}

// ResolvePublicURLParams holds parameters for ResolvePublicURL.
type ResolvePublicURLParams struct {
	RemoteDeploymentID string `json:"remote_deployment_id"`
	ProjectName        string `json:"project_name"`
	FallbackURL        string `json:"fallback_url"`
}

// ResolvePublicURL returns the best browsable URL of a deployment. Alias
// lookup failures degrade to FallbackURL and never fail the activity.
func (a *Provider) ResolvePublicURL(ctx context.Context, params ResolvePublicURLParams) (string, error) {
	best := provider.NormalizeURL(params.FallbackURL)
	if a.client.Enabled() {
		u, err := a.client.GetPublicDeploymentURL(ctx, params.RemoteDeploymentID)
		if err != nil {
			a.logger.Warn().Err(err).
				Str("deployment", params.RemoteDeploymentID).
				Str("url", best).
				Msg("public URL lookup failed, keeping best known URL")
		} else {
			best = u
		}
	}
	return provider.CanonicalURL(best, params.ProjectName, a.client.AliasDomain()), nil
}

package model

import "time"

// PlatformVercel is the only integrated deployment provider.
const PlatformVercel = "VERCEL"

// Deployment is one deployment attempt for a project.
type Deployment struct {
	ID                 string     `json:"id"`
	ProjectID          string     `json:"project_id"`
	Platform           string     `json:"platform"`
	Branch             string     `json:"branch,omitempty"`
	CustomDomain       string     `json:"custom_domain,omitempty"`
	Status             string     `json:"status"`
	URL                string     `json:"url"`
	Commit             string     `json:"commit,omitempty"`
	Logs               []string   `json:"logs"`
	RemoteProjectID    *string    `json:"remote_project_id,omitempty"`
	RemoteDeploymentID *string    `json:"remote_deployment_id,omitempty"`
	SnapshotKey        *string    `json:"snapshot_key,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Log lines shared by the API and the deploy workflow.
const (
	LogQueued    = "Deployment queued"
	LogCancelled = "Deployment cancelled"
	LogNotQueued = "Deployment could not be queued"
)

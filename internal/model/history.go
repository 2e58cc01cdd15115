package model

import "time"

// ProjectHistoryEntry is an append-only audit record for a project.
type ProjectHistoryEntry struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// History actions written by the deploy workflow.
const (
	HistoryDeploymentStarted   = "DEPLOYMENT_STARTED"
	HistoryDeploymentAutoFixed = "DEPLOYMENT_AUTO_FIXED"
	HistoryDeploymentSuccess   = "DEPLOYMENT_SUCCESS"
	HistoryDeploymentFailed    = "DEPLOYMENT_FAILED"
)

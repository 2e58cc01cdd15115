package activity

import "github.com/edvin/sitebuilder/internal/model"

// DeployContext bundles what DeployWorkflow needs to drive an attempt.
type DeployContext struct {
	Attempt           model.Deployment `json:"attempt"`
	Project           model.Project    `json:"project"`
	FileCount         int              `json:"file_count"`
	ProviderEnabled   bool             `json:"provider_enabled"`
	PreviewURL        string           `json:"preview_url"`
	RemoteProjectName string           `json:"remote_project_name"`
	AliasDomain       string           `json:"alias_domain"`
}

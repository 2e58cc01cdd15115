package request

import "github.com/edvin/sitebuilder/internal/model"

// CreateDeployment is the body of POST /deploy.
type CreateDeployment struct {
	ProjectID    string `json:"project_id" validate:"required,id"`
	Platform     string `json:"platform" validate:"omitempty,oneof=VERCEL"`
	Branch       string `json:"branch" validate:"omitempty,max=255"`
	CustomDomain string `json:"custom_domain" validate:"omitempty,fqdn"`
	Commit       string `json:"commit" validate:"omitempty,max=64"`
}

// PlatformOrDefault returns the requested platform, defaulting to the only
// integrated provider.
func (c CreateDeployment) PlatformOrDefault() string {
	if c.Platform == "" {
		return model.PlatformVercel
	}
	return c.Platform
}

package core

import (
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/sitebuilder/internal/model"
)

type Services struct {
	Deployment *DeploymentService
	Project    *ProjectService
}

func NewServices(db DB, tc temporalclient.Client, params model.DeployParams) *Services {
	return &Services{
		Deployment: NewDeploymentService(db, tc, params),
		Project:    NewProjectService(db),
	}
}

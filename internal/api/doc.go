// Package api provides the site builder deployment REST API.
//
//	@title			Site Builder Deploy API
//	@version		1.0
//	@description	Deployment orchestration for generated sites
//	@BasePath		/api/v1
package api

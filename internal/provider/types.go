package provider

import (
	"encoding/json"
	"fmt"
)

// Provider readyState values.
const (
	ReadyStateQueued       = "QUEUED"
	ReadyStateInitializing = "INITIALIZING"
	ReadyStateBuilding     = "BUILDING"
	ReadyStateReady        = "READY"
	ReadyStateError        = "ERROR"
	ReadyStateCanceled     = "CANCELED"
)

// Deployment targets.
const (
	TargetProduction = "production"
	TargetPreview    = "preview"
)

// RemoteProject is a project on the deployment provider.
type RemoteProject struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// RemoteDeployment is a single deployment on the provider. The provider uses
// "id" on some endpoints and "uid" on others; both decode into ID.
type RemoteDeployment struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	ReadyState string   `json:"readyState"`
	CreatedAt  int64    `json:"createdAt"`
	Alias      []string `json:"alias,omitempty"`
}

func (d *RemoteDeployment) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string   `json:"id"`
		UID        string   `json:"uid"`
		URL        string   `json:"url"`
		ReadyState string   `json:"readyState"`
		State      string   `json:"state"`
		CreatedAt  int64    `json:"createdAt"`
		Created    int64    `json:"created"`
		Alias      []string `json:"alias"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.ID = raw.ID
	if d.ID == "" {
		d.ID = raw.UID
	}
	d.URL = raw.URL
	d.ReadyState = raw.ReadyState
	if d.ReadyState == "" {
		d.ReadyState = raw.State
	}
	d.CreatedAt = raw.CreatedAt
	if d.CreatedAt == 0 {
		d.CreatedAt = raw.Created
	}
	d.Alias = raw.Alias
	return nil
}

// DeployRequest uploads a flat map of relative path to file content.
type DeployRequest struct {
	Name   string
	Files  map[string]string
	Target string
}

type deployFile struct {
	File string `json:"file"`
	Data string `json:"data"`
}

type createDeploymentBody struct {
	Name            string          `json:"name"`
	Project         string          `json:"project"`
	Target          string          `json:"target,omitempty"`
	Files           []deployFile    `json:"files"`
	ProjectSettings projectSettings `json:"projectSettings"`
}

type projectSettings struct {
	Framework *string `json:"framework"`
}

type createProjectBody struct {
	Name      string  `json:"name"`
	Framework *string `json:"framework"`
}

type aliasList struct {
	Aliases []struct {
		Alias string `json:"alias"`
	} `json:"aliases"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Error is returned for any failed provider call.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("provider %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("provider %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("provider %s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ClientError reports whether the provider rejected the request with a 4xx
// status. Retrying such a request does not help.
func (e *Error) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

package workflow

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"

	"github.com/edvin/sitebuilder/internal/activity"
	"github.com/edvin/sitebuilder/internal/model"
)

// registerActivities registers activity structs with the test workflow
// environment so that parameter and return types can be deserialized
// correctly. All activities are mocked via OnActivity in unit tests.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.DeployStore{})
	env.RegisterActivity(&activity.Provider{})
	env.RegisterActivity(&activity.Recovery{})
	env.RegisterActivity(&activity.Snapshot{})
}

// attemptRecorder records the writes DeployWorkflow makes to an attempt.
type attemptRecorder struct {
	mu         sync.Mutex
	statuses   []string
	logs       []string
	url        string
	modes      []string
	history    []string
	recovering int
	snapshots  []int
}

func (r *attemptRecorder) updateStatus(_ context.Context, p activity.UpdateDeploymentStatusParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.statuses); n == 0 || r.statuses[n-1] != p.Status {
		r.statuses = append(r.statuses, p.Status)
	}
	if p.URL != "" {
		r.url = p.URL
	}
	if p.Log != "" {
		r.logs = append(r.logs, p.Log)
	}
	if p.Mode != "" {
		r.modes = append(r.modes, p.Status+"/"+p.Mode)
	}
	if p.Recovering {
		r.recovering++
	}
	return nil
}

func (r *attemptRecorder) archiveSnapshot(_ context.Context, p activity.ArchiveFileSnapshotParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, p.Cycle)
	return activity.SnapshotKey(p.ProjectID, p.AttemptID, p.Cycle), nil
}

func (r *attemptRecorder) appendLog(_ context.Context, p activity.AppendDeploymentLogParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, p.Lines...)
	return nil
}

func (r *attemptRecorder) addHistory(_ context.Context, p activity.AddProjectHistoryParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, p.Action)
	return nil
}

func (r *attemptRecorder) lastLog() string {
	if len(r.logs) == 0 {
		return ""
	}
	return r.logs[len(r.logs)-1]
}

// onRecordStore wires the record store writes to the recorder.
func onRecordStore(env *testsuite.TestWorkflowEnvironment, rec *attemptRecorder) {
	env.OnActivity("UpdateDeploymentStatus", mock.Anything, mock.Anything).Return(rec.updateStatus)
	env.OnActivity("AppendDeploymentLog", mock.Anything, mock.Anything).Return(rec.appendLog)
	env.OnActivity("AddProjectHistory", mock.Anything, mock.Anything).Return(rec.addHistory)
	env.OnActivity("ArchiveFileSnapshot", mock.Anything, mock.Anything).Return(rec.archiveSnapshot)
}

func testDeployContext(providerEnabled bool) activity.DeployContext {
	return activity.DeployContext{
		Attempt: model.Deployment{
			ID:        "dep-1",
			ProjectID: "proj-1",
			Platform:  model.PlatformVercel,
			Status:    model.StatusPending,
			Logs:      []string{model.LogQueued},
		},
		Project: model.Project{
			ID:     "proj-1",
			UserID: "user-1",
			Title:  "Bakery",
		},
		FileCount:         1,
		ProviderEnabled:   providerEnabled,
		PreviewURL:        "http://localhost:8090/projects/proj-1/preview",
		RemoteProjectName: "bakery-1a2b3c4d",
		AliasDomain:       "vercel.app",
	}
}

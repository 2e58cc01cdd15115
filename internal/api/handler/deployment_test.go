package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalmocks "go.temporal.io/sdk/mocks"

	"github.com/edvin/sitebuilder/internal/core"
	"github.com/edvin/sitebuilder/internal/model"
)

func newDeploymentHandler(db *handlerMockDB, tc *temporalmocks.Client) *Deployment {
	return NewDeployment(core.NewDeploymentService(db, tc, model.DeployParams{RecoveryBudget: 1}))
}

func sqlHas(fragment string) any {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, fragment) })
}

func testDeployment(status string, logs ...string) model.Deployment {
	now := time.Now()
	return model.Deployment{
		ID:        testDeploymentID,
		ProjectID: testProjectID,
		Platform:  model.PlatformVercel,
		Status:    status,
		Logs:      logs,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// --- Create ---

func TestDeploymentCreate_InvalidJSON(t *testing.T) {
	h := NewDeployment(nil)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/api/v1/deploy", "{bad json")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "invalid JSON")
}

func TestDeploymentCreate_MissingProject(t *testing.T) {
	h := NewDeployment(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/api/v1/deploy", map[string]any{"branch": "main"})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "validation error")
}

func TestDeploymentCreate_Success(t *testing.T) {
	db := &handlerMockDB{}
	tc := &temporalmocks.Client{}
	h := newDeploymentHandler(db, tc)

	db.On("QueryRow", mock.Anything, sqlHas("EXISTS"), []any{testProjectID}).Return(&mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = true
		return nil
	}})
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.CommandTag{}, nil)
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(&mockRows{}, nil)

	wfRun := &temporalmocks.WorkflowRun{}
	wfRun.On("GetID").Return("project-deploy-" + testProjectID)
	wfRun.On("GetRunID").Return("run-1")
	tc.On("SignalWithStartWorkflow", mock.Anything, "project-deploy-"+testProjectID, model.DeploySignalName,
		mock.Anything, mock.Anything, "ProjectDeployWorkflow").Return(wfRun, nil)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/api/v1/deploy", map[string]any{"project_id": testProjectID, "branch": "main"})

	h.Create(rec, r)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var d model.Deployment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, testProjectID, d.ProjectID)
	assert.Equal(t, model.StatusPending, d.Status)
	assert.Equal(t, model.PlatformVercel, d.Platform)
	assert.Equal(t, []string{model.LogQueued}, d.Logs)
	assert.NotEmpty(t, d.ID)
	tc.AssertExpectations(t)
}

func TestDeploymentCreate_ProjectNotFound(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})

	db.On("QueryRow", mock.Anything, sqlHas("EXISTS"), mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = false
		return nil
	}})

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/v1/deploy", map[string]any{"project_id": testProjectID}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- List ---

func TestDeploymentList_MissingProject(t *testing.T) {
	h := NewDeployment(nil)
	rec := httptest.NewRecorder()

	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deploy", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeploymentList_Paginates(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})

	rows := &mockRows{}
	for _, id := range []string{"dep-3", "dep-2", "dep-1"} {
		d := testDeployment(model.StatusSuccess)
		d.ID = id
		rows.scanFuncs = append(rows.scanFuncs, deploymentRow(d))
	}
	db.On("Query", mock.Anything, sqlHas("ORDER BY created_at DESC"), []any{testProjectID, 3}).Return(rows, nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deploy?project_id="+testProjectID+"&limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items      []model.Deployment `json:"items"`
		NextCursor string             `json:"next_cursor"`
		HasMore    bool               `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, "dep-3", body.Items[0].ID)
	assert.True(t, body.HasMore)
	assert.Equal(t, "dep-2", body.NextCursor)
}

// --- Get ---

func TestDeploymentGet_NotFound(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})

	db.On("QueryRow", mock.Anything, mock.Anything, []any{testDeploymentID}).Return(&mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}})

	rec := httptest.NewRecorder()
	r := withChiURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/deployments/x", nil), map[string]string{"id": testDeploymentID})
	h.Get(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeploymentGet_DBError(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})

	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error {
		return errors.New("connection refused")
	}})

	rec := httptest.NewRecorder()
	r := withChiURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/deployments/x", nil), map[string]string{"id": testDeploymentID})
	h.Get(rec, r)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// --- Cancel ---

func TestDeploymentCancel_Finished(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})

	db.On("QueryRow", mock.Anything, mock.Anything, []any{testDeploymentID}).
		Return(&mockRow{scanFunc: deploymentRow(testDeployment(model.StatusSuccess))})

	rec := httptest.NewRecorder()
	r := withChiURLParams(httptest.NewRequest(http.MethodPost, "/cancel", nil), map[string]string{"id": testDeploymentID})
	h.Cancel(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeploymentCancel_Pending(t *testing.T) {
	db := &handlerMockDB{}
	tc := &temporalmocks.Client{}
	h := newDeploymentHandler(db, tc)

	db.On("QueryRow", mock.Anything, mock.Anything, []any{testDeploymentID}).
		Return(&mockRow{scanFunc: deploymentRow(testDeployment(model.StatusPending))})
	tc.On("CancelWorkflow", mock.Anything, "deploy-"+testDeploymentID, "").Return(nil)

	rec := httptest.NewRecorder()
	r := withChiURLParams(httptest.NewRequest(http.MethodPost, "/cancel", nil), map[string]string{"id": testDeploymentID})
	h.Cancel(rec, r)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	tc.AssertExpectations(t)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

// --- StreamLogs ---

func TestDeploymentStreamLogs(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})
	h.streamInterval = 10 * time.Millisecond

	running := testDeployment(model.StatusBuilding, model.LogQueued, "Building deployment dpl_1")
	done := testDeployment(model.StatusSuccess, model.LogQueued, "Building deployment dpl_1", "Deployment successful: https://site.vercel.app")
	done.URL = "https://site.vercel.app"

	db.On("QueryRow", mock.Anything, mock.Anything, []any{testDeploymentID}).
		Return(&mockRow{scanFunc: deploymentRow(running)}).Twice()
	db.On("QueryRow", mock.Anything, mock.Anything, []any{testDeploymentID}).
		Return(&mockRow{scanFunc: deploymentRow(done)})

	router := chi.NewRouter()
	router.Get("/deployments/{id}/logs/ws", h.StreamLogs)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/deployments/"+testDeploymentID+"/logs/ws", nil)
	require.NoError(t, err)
	defer ws.CloseNow()

	var events []logEvent
	for {
		var ev logEvent
		if err := wsjson.Read(ctx, ws, &ev); err != nil {
			assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
			break
		}
		events = append(events, ev)
	}

	var lines, statuses []string
	for _, ev := range events {
		switch ev.Type {
		case "log":
			lines = append(lines, ev.Line)
		case "status":
			statuses = append(statuses, ev.Status)
		}
	}
	assert.Equal(t, done.Logs, lines)
	assert.Equal(t, []string{model.StatusBuilding, model.StatusSuccess}, statuses)
	assert.Equal(t, "https://site.vercel.app", events[len(events)-1].URL)
}

func TestDeploymentStreamLogs_NotFound(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})

	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}})

	rec := httptest.NewRecorder()
	r := withChiURLParams(httptest.NewRequest(http.MethodGet, "/logs/ws", nil), map[string]string{"id": testDeploymentID})
	h.StreamLogs(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/sitebuilder/internal/api/request"
	"github.com/edvin/sitebuilder/internal/api/response"
	"github.com/edvin/sitebuilder/internal/core"
	"github.com/edvin/sitebuilder/internal/model"
	"github.com/edvin/sitebuilder/internal/platform"
)

const defaultStreamInterval = time.Second

type Deployment struct {
	svc            *core.DeploymentService
	streamInterval time.Duration
}

func NewDeployment(svc *core.DeploymentService) *Deployment {
	return &Deployment{svc: svc, streamInterval: defaultStreamInterval}
}

// Create godoc
//
//	@Summary		Start a deployment
//	@Description	Creates a PENDING attempt and queues it on the project's deploy workflow. Returns before any remote work starts.
//	@Tags			Deployments
//	@Param			body body request.CreateDeployment true "Deployment details"
//	@Success		202 {object} model.Deployment
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/deploy [post]
func (h *Deployment) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateDeployment
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	d := &model.Deployment{
		ID:           platform.NewID(),
		ProjectID:    req.ProjectID,
		Platform:     req.PlatformOrDefault(),
		Branch:       req.Branch,
		CustomDomain: req.CustomDomain,
		Commit:       req.Commit,
		Status:       model.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.svc.Create(r.Context(), d); err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, d)
}

// List godoc
//
//	@Summary		List deployments of a project
//	@Tags			Deployments
//	@Param			project_id query string true "Project ID"
//	@Param			limit query int false "Page size" default(20)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Deployment}
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/deploy [get]
func (h *Deployment) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(r.URL.Query().Get("project_id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg := request.ParsePagination(r)

	deployments, hasMore, err := h.svc.ListByProject(r.Context(), projectID, pg.Limit, pg.Cursor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var nextCursor string
	if hasMore && len(deployments) > 0 {
		nextCursor = deployments[len(deployments)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, deployments, nextCursor, hasMore)
}

// Get godoc
//
//	@Summary		Get a deployment
//	@Tags			Deployments
//	@Param			id path string true "Deployment ID"
//	@Success		200 {object} model.Deployment
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/deployments/{id} [get]
func (h *Deployment) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, d)
}

// Cancel godoc
//
//	@Summary		Cancel a deployment
//	@Description	Stops polling and marks the attempt FAILED. Finished attempts cannot be cancelled.
//	@Tags			Deployments
//	@Param			id path string true "Deployment ID"
//	@Success		202
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Router			/deployments/{id}/cancel [post]
func (h *Deployment) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// logEvent is a message on the deployment log stream.
type logEvent struct {
	Type   string `json:"type"`
	Line   string `json:"line,omitempty"`
	Status string `json:"status,omitempty"`
	URL    string `json:"url,omitempty"`
}

// StreamLogs upgrades to a WebSocket and streams an attempt's log lines and
// status changes until the attempt finishes or the client goes away.
func (h *Deployment) StreamLogs(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log := zerolog.Ctx(r.Context())
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Origin differs from Host when proxied through the editor UI.
	})
	if err != nil {
		log.Error().Err(err).Str("deployment", id).Msg("websocket upgrade failed")
		return
	}
	defer ws.CloseNow()

	// The client only listens; CloseRead cancels ctx when it disconnects.
	ctx := ws.CloseRead(r.Context())

	sent := 0
	status := ""
	for {
		if err := h.sendUpdates(ctx, ws, d, &sent, &status); err != nil {
			log.Debug().Err(err).Str("deployment", id).Msg("log stream closed")
			return
		}
		if model.IsTerminalStatus(d.Status) {
			ws.Close(websocket.StatusNormalClosure, "deployment finished")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(h.streamInterval):
		}

		d, err = h.svc.GetByID(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("deployment", id).Msg("reload deployment for log stream")
			ws.Close(websocket.StatusInternalError, "failed to load deployment")
			return
		}
	}
}

// sendUpdates writes log lines not yet sent and a status event when the
// status or URL changed.
func (h *Deployment) sendUpdates(ctx context.Context, ws *websocket.Conn, d *model.Deployment, sent *int, status *string) error {
	for ; *sent < len(d.Logs); *sent++ {
		if err := wsjson.Write(ctx, ws, logEvent{Type: "log", Line: d.Logs[*sent]}); err != nil {
			return err
		}
	}
	key := d.Status + " " + d.URL
	if key == *status {
		return nil
	}
	*status = key
	return wsjson.Write(ctx, ws, logEvent{Type: "status", Status: d.Status, URL: d.URL})
}

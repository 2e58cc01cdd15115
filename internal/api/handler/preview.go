package handler

import (
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/sitebuilder/internal/api/request"
	"github.com/edvin/sitebuilder/internal/api/response"
	"github.com/edvin/sitebuilder/internal/core"
	"github.com/edvin/sitebuilder/internal/recovery"
)

// Preview serves a project's stored files as a static site. It is the target
// of simulated deployments.
type Preview struct {
	projects *core.ProjectService
}

func NewPreview(projects *core.ProjectService) *Preview {
	return &Preview{projects: projects}
}

// Serve godoc
//
//	@Summary		Preview a project
//	@Tags			Preview
//	@Param			id path string true "Project ID"
//	@Success		200
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/projects/{id}/preview [get]
func (h *Preview) Serve(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	file := strings.TrimLeft(chi.URLParam(r, "*"), "/")
	if file == "" || strings.HasSuffix(file, "/") {
		file += recovery.EntryFile
	}
	file = path.Clean(file)
	if file == ".." || strings.HasPrefix(file, "../") {
		response.WriteError(w, http.StatusBadRequest, "invalid path")
		return
	}

	if _, err := h.projects.GetByID(r.Context(), projectID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	f, err := h.projects.GetFile(r.Context(), projectID, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ctype := mime.TypeByExtension(path.Ext(f.Path))
	if ctype == "" {
		ctype = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(f.Content))
}

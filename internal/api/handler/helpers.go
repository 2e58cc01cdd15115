package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/sitebuilder/internal/api/response"
	"github.com/edvin/sitebuilder/internal/core"
)

// writeServiceError maps core errors onto HTTP status codes. Unexpected
// errors are logged with the request's logger.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrDeploymentNotFound),
		errors.Is(err, core.ErrProjectNotFound),
		errors.Is(err, core.ErrFileNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrDeploymentFinished):
		response.WriteError(w, http.StatusConflict, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalclient "go.temporal.io/sdk/client"
	temporalmocks "go.temporal.io/sdk/mocks"

	"github.com/edvin/sitebuilder/internal/config"
	"github.com/edvin/sitebuilder/internal/core"
	"github.com/edvin/sitebuilder/internal/model"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(db pinger, tc *temporalmocks.Client) *Server {
	return newServer(zerolog.Nop(), core.NewServices(nil, tc, model.DeployParams{}), db, tc, &config.Config{})
}

func TestHealthz(t *testing.T) {
	s := newTestServer(fakePinger{}, &temporalmocks.Client{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name        string
		pingErr     error
		temporalErr error
		wantCode    int
		wantChecks  map[string]string
	}{
		{
			name:       "all healthy",
			wantCode:   http.StatusOK,
			wantChecks: map[string]string{"core_db": "ok", "temporal": "ok"},
		},
		{
			name:       "database down",
			pingErr:    errors.New("connection refused"),
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"core_db": "connection refused", "temporal": "ok"},
		},
		{
			name:        "temporal down",
			temporalErr: errors.New("unavailable"),
			wantCode:    http.StatusServiceUnavailable,
			wantChecks:  map[string]string{"core_db": "ok", "temporal": "unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := &temporalmocks.Client{}
			var resp *temporalclient.CheckHealthResponse
			if tt.temporalErr == nil {
				resp = &temporalclient.CheckHealthResponse{}
			}
			tc.On("CheckHealth", mock.Anything, mock.Anything).Return(resp, tt.temporalErr)
			s := newTestServer(fakePinger{err: tt.pingErr}, tc)

			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var checks map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checks))
			assert.Equal(t, tt.wantChecks, checks)
		})
	}
}

func TestRoutes_DeployRequiresProject(t *testing.T) {
	s := newTestServer(fakePinger{}, &temporalmocks.Client{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deploy", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

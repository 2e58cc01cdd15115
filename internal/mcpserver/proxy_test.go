package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func operation(name string) ToolOperation {
	for _, op := range Operations {
		if op.Name == name {
			return op
		}
	}
	panic("unknown operation " + name)
}

func callTool(t *testing.T, p *ProxyHandler, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := p.Handler(operation(name))(context.Background(), req)
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestProxy_CreateDeploymentSendsJSONBody(t *testing.T) {
	var gotBody map[string]any
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/deploy", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id":"dep-1","status":"PENDING"}`))
	}))
	defer api.Close()

	p := NewProxyHandler(api.URL+"/", api.Client(), zerolog.Nop())
	res := callTool(t, p, "create_deployment", map[string]any{"project_id": "proj-1", "branch": "main"})

	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"id":"dep-1","status":"PENDING"}`, resultText(t, res))
	assert.Equal(t, map[string]any{"project_id": "proj-1", "branch": "main"}, gotBody)
}

func TestProxy_PathAndQueryParameters(t *testing.T) {
	var gotURL string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Write([]byte(`{}`))
	}))
	defer api.Close()

	p := NewProxyHandler(api.URL, api.Client(), zerolog.Nop())

	callTool(t, p, "get_deployment", map[string]any{"id": "dep-1"})
	assert.Equal(t, "/api/v1/deployments/dep-1", gotURL)

	callTool(t, p, "list_deployments", map[string]any{"project_id": "proj-1", "limit": float64(5)})
	assert.Equal(t, "/api/v1/deploy?limit=5&project_id=proj-1", gotURL)
}

func TestProxy_MissingRequiredParameter(t *testing.T) {
	p := NewProxyHandler("http://127.0.0.1:1", nil, zerolog.Nop())

	res := callTool(t, p, "get_deployment", map[string]any{})

	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "missing required parameter: id")
}

func TestProxy_APIError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"deployment already finished"}`))
	}))
	defer api.Close()

	p := NewProxyHandler(api.URL, api.Client(), zerolog.Nop())
	res := callTool(t, p, "cancel_deployment", map[string]any{"id": "dep-1"})

	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "HTTP 409")
}

func TestProxy_EmptyAcceptedResponse(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer api.Close()

	p := NewProxyHandler(api.URL, api.Client(), zerolog.Nop())
	res := callTool(t, p, "cancel_deployment", map[string]any{"id": "dep-1"})

	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"status":"accepted"}`, resultText(t, res))
}

func TestServer_Healthz(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	s := New(cfg, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

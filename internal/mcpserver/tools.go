package mcpserver

import (
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Parameter is an argument of a tool. In is "path", "query" or "body"; body
// parameters become fields of the JSON request body.
type Parameter struct {
	Name        string
	In          string
	Type        string
	Required    bool
	Description string
	Enum        []string
}

// ToolOperation describes one tool and the API call it proxies to.
type ToolOperation struct {
	Name        string
	Description string
	Method      string
	Path        string // URL path template with {param} placeholders
	Parameters  []Parameter
}

// Operations is the deployment tool catalog.
var Operations = []ToolOperation{
	{
		Name:        "create_deployment",
		Description: "Start a deployment of a project. Returns the queued attempt immediately; poll get_deployment for progress.",
		Method:      http.MethodPost,
		Path:        "/api/v1/deploy",
		Parameters: []Parameter{
			{Name: "project_id", In: "body", Required: true, Description: "Project ID"},
			{Name: "platform", In: "body", Description: "Deployment platform", Enum: []string{"VERCEL"}},
			{Name: "branch", In: "body", Description: "Branch label"},
			{Name: "custom_domain", In: "body", Description: "Custom domain to attach"},
			{Name: "commit", In: "body", Description: "Commit reference"},
		},
	},
	{
		Name:        "list_deployments",
		Description: "List deployments of a project, newest first.",
		Method:      http.MethodGet,
		Path:        "/api/v1/deploy",
		Parameters: []Parameter{
			{Name: "project_id", In: "query", Required: true, Description: "Project ID"},
			{Name: "limit", In: "query", Type: "integer", Description: "Page size"},
			{Name: "cursor", In: "query", Description: "Pagination cursor"},
		},
	},
	{
		Name:        "get_deployment",
		Description: "Get a deployment with its status, URL and logs.",
		Method:      http.MethodGet,
		Path:        "/api/v1/deployments/{id}",
		Parameters: []Parameter{
			{Name: "id", In: "path", Required: true, Description: "Deployment ID"},
		},
	},
	{
		Name:        "cancel_deployment",
		Description: "Cancel a deployment that has not finished yet.",
		Method:      http.MethodPost,
		Path:        "/api/v1/deployments/{id}/cancel",
		Parameters: []Parameter{
			{Name: "id", In: "path", Required: true, Description: "Deployment ID"},
		},
	},
}

// BuildTools turns the operation catalog into MCP tools, applying the
// config's annotation defaults and per-tool overrides.
func BuildTools(ops []ToolOperation, cfg *Config, proxyFn func(op ToolOperation) server.ToolHandlerFunc) []server.ServerTool {
	var tools []server.ServerTool
	for _, op := range ops {
		if cfg.disabled(op.Name) {
			continue
		}

		override, hasOverride := cfg.Overrides[op.Name]
		desc := op.Description
		if hasOverride && override.Description != "" {
			desc = override.Description
		}

		toolOpts := []mcp.ToolOption{mcp.WithDescription(desc)}
		toolOpts = append(toolOpts, buildAnnotations(op.Method, cfg, override, hasOverride)...)
		toolOpts = append(toolOpts, buildParams(op.Parameters)...)

		tools = append(tools, server.ServerTool{
			Tool:    mcp.NewTool(op.Name, toolOpts...),
			Handler: proxyFn(op),
		})
	}
	return tools
}

// buildAnnotations creates MCP annotation options from config defaults and overrides.
func buildAnnotations(method string, cfg *Config, override ToolOverride, hasOverride bool) []mcp.ToolOption {
	var opts []mcp.ToolOption
	defaults := cfg.Defaults[method]

	readOnly := defaults.ReadOnly
	destructive := defaults.Destructive
	idempotent := defaults.Idempotent

	if hasOverride {
		if override.ReadOnly != nil {
			readOnly = override.ReadOnly
		}
		if override.Destructive != nil {
			destructive = override.Destructive
		}
		if override.Idempotent != nil {
			idempotent = override.Idempotent
		}
	}

	if readOnly != nil {
		opts = append(opts, mcp.WithReadOnlyHintAnnotation(*readOnly))
	}
	if destructive != nil {
		opts = append(opts, mcp.WithDestructiveHintAnnotation(*destructive))
	}
	if idempotent != nil {
		opts = append(opts, mcp.WithIdempotentHintAnnotation(*idempotent))
	}
	return opts
}

func buildParams(params []Parameter) []mcp.ToolOption {
	var opts []mcp.ToolOption
	for _, p := range params {
		popts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		if len(p.Enum) > 0 {
			popts = append(popts, mcp.Enum(p.Enum...))
		}
		switch p.Type {
		case "integer":
			opts = append(opts, mcp.WithNumber(p.Name, popts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, popts...))
		}
	}
	return opts
}

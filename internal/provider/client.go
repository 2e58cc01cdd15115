package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/edvin/sitebuilder/internal/metrics"
)

// Client talks to a Vercel-compatible deployment API. Calls are never retried
// here; callers own retry and fallback policy.
type Client struct {
	baseURL     string
	token       string
	teamID      string
	aliasDomain string
	httpClient  *http.Client
}

func NewClient(baseURL, token, teamID, aliasDomain string) *Client {
	return &Client{
		baseURL:     baseURL,
		token:       token,
		teamID:      teamID,
		aliasDomain: aliasDomain,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Enabled reports whether a token is configured. Without one the provider is
// treated as unavailable.
func (c *Client) Enabled() bool {
	return c != nil && c.token != ""
}

// AliasDomain is the domain public aliases are issued under.
func (c *Client) AliasDomain() string {
	if c == nil {
		return ""
	}
	return c.aliasDomain
}

func (c *Client) endpoint(path string, query url.Values) string {
	if c.teamID != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("teamId", c.teamID)
	}
	if len(query) == 0 {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + query.Encode()
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body, result any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ProviderRequests.WithLabelValues(op, outcome).Inc()
		metrics.ProviderRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := ""
		if json.Unmarshal(raw, &eb) == nil {
			msg = eb.Error.Message
		}
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// ListProjects returns the projects visible to the token. A response whose
// "projects" field is not a list is reported as an *Error.
func (c *Client) ListProjects(ctx context.Context) ([]RemoteProject, error) {
	var resp struct {
		Projects json.RawMessage `json:"projects"`
	}
	if err := c.do(ctx, "list_projects", http.MethodGet, c.endpoint("/v9/projects", nil), nil, &resp); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(resp.Projects)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &Error{Op: "list_projects", Message: "malformed project list"}
	}
	var projects []RemoteProject
	if err := json.Unmarshal(trimmed, &projects); err != nil {
		return nil, &Error{Op: "list_projects", Err: fmt.Errorf("decode project list: %w", err)}
	}
	return projects, nil
}

// CreateProject creates a static project. The caller is responsible for
// checking that a project with the same name does not already exist.
func (c *Client) CreateProject(ctx context.Context, name string) (*RemoteProject, error) {
	var project RemoteProject
	body := createProjectBody{Name: name}
	if err := c.do(ctx, "create_project", http.MethodPost, c.endpoint("/v10/projects", nil), body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProjectDeployments returns the deployments of a remote project, newest
// first.
func (c *Client) GetProjectDeployments(ctx context.Context, projectID string) ([]RemoteDeployment, error) {
	var resp struct {
		Deployments []RemoteDeployment `json:"deployments"`
	}
	q := url.Values{"projectId": {projectID}}
	if err := c.do(ctx, "list_deployments", http.MethodGet, c.endpoint("/v6/deployments", q), nil, &resp); err != nil {
		return nil, err
	}
	sort.SliceStable(resp.Deployments, func(i, j int) bool {
		return resp.Deployments[i].CreatedAt > resp.Deployments[j].CreatedAt
	})
	return resp.Deployments, nil
}

// DeployProject uploads files and creates a new deployment of the project.
func (c *Client) DeployProject(ctx context.Context, projectID string, req DeployRequest) (*RemoteDeployment, error) {
	paths := make([]string, 0, len(req.Files))
	for p := range req.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	body := createDeploymentBody{
		Name:    req.Name,
		Project: projectID,
		Target:  req.Target,
		Files:   make([]deployFile, 0, len(paths)),
	}
	for _, p := range paths {
		body.Files = append(body.Files, deployFile{File: p, Data: req.Files[p]})
	}

	var dep RemoteDeployment
	if err := c.do(ctx, "create_deployment", http.MethodPost, c.endpoint("/v13/deployments", nil), body, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// GetDeploymentStatus fetches a deployment including its readyState.
func (c *Client) GetDeploymentStatus(ctx context.Context, deploymentID string) (*RemoteDeployment, error) {
	var dep RemoteDeployment
	path := "/v13/deployments/" + url.PathEscape(deploymentID)
	if err := c.do(ctx, "get_deployment", http.MethodGet, c.endpoint(path, nil), nil, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// ErrNoAlias is returned when a deployment has no public alias yet.
var ErrNoAlias = errors.New("deployment has no public alias")

// GetPublicDeploymentURL resolves the shortest alias under the alias domain,
// falling back to any alias. The result always carries a scheme.
func (c *Client) GetPublicDeploymentURL(ctx context.Context, deploymentID string) (string, error) {
	var resp aliasList
	path := "/v2/deployments/" + url.PathEscape(deploymentID) + "/aliases"
	if err := c.do(ctx, "list_aliases", http.MethodGet, c.endpoint(path, nil), nil, &resp); err != nil {
		return "", err
	}

	best := ""
	for _, a := range resp.Aliases {
		if a.Alias == "" {
			continue
		}
		switch {
		case best == "":
			best = a.Alias
		case underDomain(a.Alias, c.aliasDomain) && !underDomain(best, c.aliasDomain):
			best = a.Alias
		case underDomain(a.Alias, c.aliasDomain) == underDomain(best, c.aliasDomain) && len(a.Alias) < len(best):
			best = a.Alias
		}
	}
	if best == "" {
		return "", ErrNoAlias
	}
	return NormalizeURL(best), nil
}

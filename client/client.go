// Package client talks to the Architex backend: projects, generation
// jobs and the GitHub-backed session.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/meikuraledutech/architex"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	// BaseURL defaults to "http://127.0.0.1:8000" if empty.
	BaseURL string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
	// RateLimit caps requests per second; zero disables the limiter.
	// Requests over the limit wait for a token.
	RateLimit float64
	RateBurst int
}

// Client is the backend REST client.
type Client struct {
	baseURL string
	http    *resty.Client
}

// New creates a backend client.
func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "http://127.0.0.1:8000"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	h := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		h.SetAuthToken(opts.Token)
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		// resty's own limiter fails fast; callers here should queue instead.
		lim := rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
		h.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return lim.Wait(r.Context())
		})
	}
	return &Client{baseURL: base, http: h}
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends the request and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Message: errorMessage(resp.Body())}
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}

// ---- Projects ---------------------------------------------------------

// ListProjects returns the caller's projects.
func (c *Client) ListProjects(ctx context.Context) ([]architex.Project, error) {
	var raw json.RawMessage
	if err := c.do(ctx, resty.MethodGet, "/api/projects", nil, &raw); err != nil {
		return nil, err
	}
	return decodeProjectList(raw)
}

// GetProject fetches one project. Unknown ids surface as ErrNotFound.
func (c *Client) GetProject(ctx context.Context, id string) (*architex.Project, error) {
	if !architex.ValidProjectID(id) {
		return nil, architex.ErrInvalidProjectID
	}
	var p architex.Project
	if err := c.do(ctx, resty.MethodGet, "/api/projects/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject creates a project and returns the backend's copy.
func (c *Client) CreateProject(ctx context.Context, in architex.ProjectInput) (*architex.Project, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("client: project name is required")
	}
	var p architex.Project
	if err := c.do(ctx, resty.MethodPost, "/api/projects", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject patches the fields set in in.
func (c *Client) UpdateProject(ctx context.Context, id string, in architex.ProjectInput) (*architex.Project, error) {
	if !architex.ValidProjectID(id) {
		return nil, architex.ErrInvalidProjectID
	}
	var p architex.Project
	if err := c.do(ctx, resty.MethodPatch, "/api/projects/"+url.PathEscape(id), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject deletes a project.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	if !architex.ValidProjectID(id) {
		return architex.ErrInvalidProjectID
	}
	return c.do(ctx, resty.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil)
}

// decodeProjectList accepts either a bare array or {"projects": [...]}.
func decodeProjectList(raw json.RawMessage) ([]architex.Project, error) {
	projects := []architex.Project{}
	if len(raw) == 0 || string(raw) == "null" {
		return projects, nil
	}
	if err := json.Unmarshal(raw, &projects); err == nil {
		return projects, nil
	}
	var wrapped struct {
		Projects []architex.Project `json:"projects"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("client: decode project list: %w", err)
	}
	if wrapped.Projects == nil {
		return projects, nil
	}
	return wrapped.Projects, nil
}

// ---- Jobs -------------------------------------------------------------

type createJobResponse struct {
	JobID   string `json:"job_id"`
	JobIDJS string `json:"jobId"`
	ID      string `json:"id"`
}

func (r createJobResponse) id() string {
	for _, id := range []string{r.JobID, r.JobIDJS, r.ID} {
		if id != "" {
			return id
		}
	}
	return ""
}

// CreateJob submits an architecture spec for generation and returns the job id.
func (c *Client) CreateJob(ctx context.Context, spec architex.ArchitectureSpec) (string, error) {
	var out createJobResponse
	if err := c.do(ctx, resty.MethodPost, "/api/jobs", spec, &out); err != nil {
		return "", err
	}
	id := out.id()
	if id == "" {
		return "", fmt.Errorf("client: create job: response carried no job id")
	}
	return id, nil
}

// GetJob fetches the current status of a job.
func (c *Client) GetJob(ctx context.Context, id string) (*architex.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("client: job id is required")
	}
	var job struct {
		architex.Job
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, resty.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	out := job.Job
	if out.ID == "" {
		out.ID = job.JobID
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}

// ---- Auth -------------------------------------------------------------

// Me returns the authenticated user. Without a valid session it returns
// an error matching ErrUnauthorized.
func (c *Client) Me(ctx context.Context) (*architex.User, error) {
	var u architex.User
	if err := c.do(ctx, resty.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GitHubLoginURL is where a browser starts the GitHub OAuth flow. The
// backend redirects back to redirect (when set) after the callback.
func (c *Client) GitHubLoginURL(redirect string) string {
	u := c.baseURL + "/api/auth/github"
	if redirect != "" {
		u += "?" + url.Values{"redirect": {redirect}}.Encode()
	}
	return u
}

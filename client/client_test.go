package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meikuraledutech/architex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectID = "3f2b8c1e-9a4d-4e6f-8b2a-1c3d5e7f9a0b"

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Token: "tok", Timeout: 2 * time.Second})
}

func TestListProjectsAcceptsBothShapes(t *testing.T) {
	for name, body := range map[string]string{
		"array":   `[{"id":"` + projectID + `","name":"shop","nodes_count":3}]`,
		"wrapped": `{"projects":[{"id":"` + projectID + `","name":"shop","nodes_count":3}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/projects", r.URL.Path)
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				_, _ = io.WriteString(w, body)
			})

			got, err := c.ListProjects(context.Background())
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "shop", got[0].Name)
			assert.Equal(t, 3, got[0].NodesCount)
		})
	}
}

func TestListProjectsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	})
	got, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetProjectRejectsInvalidID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})
	for _, id := range []string{"", "undefined", "null"} {
		_, err := c.GetProject(context.Background(), id)
		assert.ErrorIs(t, err, architex.ErrInvalidProjectID, id)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Project not found"}`)
	})

	_, err := c.GetProject(context.Background(), projectID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Project not found", apiErr.Message)
}

func TestCreateAndUpdateProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/api/projects", r.URL.Path)
			assert.Equal(t, "shop", in["name"])
		case http.MethodPatch:
			assert.Equal(t, "/api/projects/"+projectID, r.URL.Path)
			assert.NotContains(t, in, "name")
			assert.Equal(t, "new description", in["description"])
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
		_, _ = io.WriteString(w, `{"id":"`+projectID+`","name":"shop","description":"new description"}`)
	})

	name := "shop"
	p, err := c.CreateProject(context.Background(), architex.ProjectInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, projectID, p.ID)

	desc := "new description"
	p, err = c.UpdateProject(context.Background(), projectID, architex.ProjectInput{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "new description", p.Description)
}

func TestCreateProjectRequiresName(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1"})
	blank := "  "
	_, err := c.CreateProject(context.Background(), architex.ProjectInput{Name: &blank})
	assert.Error(t, err)
	_, err = c.CreateProject(context.Background(), architex.ProjectInput{})
	assert.Error(t, err)
}

func TestDeleteProject(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/projects/"+projectID, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.DeleteProject(context.Background(), projectID))
	assert.True(t, called)
}

func TestCreateJob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/jobs", r.URL.Path)

		var spec architex.ArchitectureSpec
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		assert.Equal(t, "build a shop", spec.Prompt)
		assert.Equal(t, 1, spec.Metadata.NodeCount)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"job_id":"job-1","status":"pending"}`)
	})

	st := architex.State{
		Nodes:  []architex.Node{{ID: "redis-1", Type: "component"}},
		Edges:  []architex.Edge{},
		Prompt: "build a shop",
	}
	id, err := c.CreateJob(context.Background(), architex.NewArchitectureSpec(st, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
}

func TestCreateJobWithoutID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"pending"}`)
	})
	_, err := c.CreateJob(context.Background(), architex.ArchitectureSpec{})
	assert.Error(t, err)
}

func TestGetJob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/job-7", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"completed","result":{"repo_url":"https://github.com/acme/shop"}}`)
	})

	job, err := c.GetJob(context.Background(), "job-7")
	require.NoError(t, err)
	assert.Equal(t, "job-7", job.ID)
	assert.Equal(t, architex.JobCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "https://github.com/acme/shop", job.Result.RepoURL)
}

func TestMeUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":"unauthorized","message":"session expired"}}`)
	})

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "session expired")
}

func TestGitHubLoginURL(t *testing.T) {
	c := New(Options{BaseURL: "https://api.architex.dev/"})
	assert.Equal(t, "https://api.architex.dev/api/auth/github", c.GitHubLoginURL(""))
	assert.Equal(t,
		"https://api.architex.dev/api/auth/github?redirect=http%3A%2F%2Flocalhost%3A3000%2Fdashboard",
		c.GitHubLoginURL("http://localhost:3000/dashboard"))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", errorMessage([]byte(`{"error":"boom"}`)))
	assert.Equal(t, "nested", errorMessage([]byte(`{"error":{"message":"nested"}}`)))
	assert.Equal(t, "plain", errorMessage([]byte(`{"message":"plain"}`)))
	assert.Equal(t, "Bad Gateway", errorMessage([]byte("Bad Gateway\n")))
}

func TestRateLimitedClientWaitsForTokens(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"status":"running"}`)
	})
	c = New(Options{BaseURL: c.BaseURL(), RateLimit: 20, RateBurst: 1})

	start := time.Now()
	for i := 0; i < 3; i++ {
		job, err := c.GetJob(context.Background(), "job-1")
		require.NoError(t, err, "call %d", i)
		assert.Equal(t, architex.JobRunning, job.Status)
	}
	assert.Equal(t, int32(3), calls.Load())
	// Burst 1 at 20/s: the second and third calls each wait about 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRateLimitedClientHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"running"}`)
	})
	c = New(Options{BaseURL: c.BaseURL(), RateLimit: 0.001, RateBurst: 1})

	_, err := c.GetJob(context.Background(), "job-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.GetJob(ctx, "job-1")
	assert.Error(t, err)
}

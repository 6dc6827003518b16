package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	owner   string
	http    *http.Client
}

// NewClient constructs a client for the daemon at baseURL, acting as owner.
func NewClient(baseURL, owner string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		owner:   owner,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewStreamClient returns a client without a request timeout, for
// long-poll and SSE consumption.
func NewStreamClient(baseURL, owner string) *Client {
	c := NewClient(baseURL, owner)
	c.http = &http.Client{}
	return c
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// ListProjects fetches the owner's projects, optionally filtered by status.
func (c *Client) ListProjects(ctx context.Context, statuses ...string) ([]Project, error) {
	path := "/api/projects"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var out ProjectListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// CreateProject registers a new draft project.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (Project, error) {
	var out Project
	err := c.do(ctx, http.MethodPost, "/api/projects", req, &out)
	return out, err
}

// GetProject fetches the reconciled view of one project.
func (c *Client) GetProject(ctx context.Context, id string) (ProjectView, error) {
	var out ProjectResponse
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, &out)
	return out.View, err
}

// UpdateProject edits a draft project.
func (c *Client) UpdateProject(ctx context.Context, id string, req UpdateProjectRequest) (Project, error) {
	var out Project
	err := c.do(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(id), req, &out)
	return out, err
}

// RemoveProject deletes a project record.
func (c *Client) RemoveProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil)
}

// Generate starts or joins clip generation.
func (c *Client) Generate(ctx context.Context, id string, prompts []string) (StartJobResponse, error) {
	var out StartJobResponse
	err := c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(id)+"/generate", GenerateRequest{Prompts: prompts}, &out)
	return out, err
}

// Stitch starts or joins output assembly.
func (c *Client) Stitch(ctx context.Context, id string) (StartJobResponse, error) {
	var out StartJobResponse
	err := c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(id)+"/stitch", nil, &out)
	return out, err
}

// Jobs fetches a project's active jobs.
func (c *Client) Jobs(ctx context.Context, id string) ([]Job, error) {
	var out JobsResponse
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id)+"/jobs", nil, &out)
	return out.Jobs, err
}

// Reconcile requests an explicit verification pass.
func (c *Client) Reconcile(ctx context.Context, id string) (ReconciliationReport, error) {
	var out ReconciliationReport
	err := c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(id)+"/reconcile", nil, &out)
	return out, err
}

// Events long-polls the project's progress stream starting after since.
func (c *Client) Events(ctx context.Context, id string, since uint64, limit int, follow bool) (EventStreamResponse, error) {
	values := url.Values{}
	values.Set("since", strconv.FormatUint(since, 10))
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if follow {
		values.Set("follow", "1")
	}
	var out EventStreamResponse
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id)+"/events?"+values.Encode(), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.owner != "" {
		req.Header.Set("X-Reel-Owner", c.owner)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

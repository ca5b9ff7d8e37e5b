// Package clickup provides the downstream task-API client and the idempotent
// task materializer.
package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second

	// Token bucket protecting the downstream API.
	requestsPerSecond = 10
	burstSize         = 20

	// Circuit breaker: open after 5 consecutive failures, probe with 3
	// requests after 30s.
	breakerFailures    = 5
	breakerOpenFor     = 30 * time.Second
	breakerHalfOpenMax = 3
)

// APIError is a non-2xx response from the downstream API. Status drives the
// caller's branching: 401/403 auth alerts, 404 cache invalidation, 429
// backoff, 5xx retry through the breaker.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clickup api: status %d: %s", e.Status, e.Body)
}

// IsAuth reports an authentication/authorization failure.
func (e *APIError) IsAuth() bool { return e.Status == 401 || e.Status == 403 }

// IsNotFound reports a missing resource.
func (e *APIError) IsNotFound() bool { return e.Status == 404 }

// IsServer reports a downstream server error.
func (e *APIError) IsServer() bool { return e.Status >= 500 }

// Client is the REST client to the downstream task API. Every call waits on
// the shared token bucket and runs through the circuit breaker.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

// NewClient creates a downstream API client.
func NewClient(baseURL, token string) *Client {
	logger := slog.Default().With("component", "clickup-client")

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "clickup",
		MaxRequests: breakerHalfOpenMax,
		Timeout:     breakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: func(err error) bool {
			// 4xx responses are caller mistakes, not downstream outages.
			var ce *clientError
			return err == nil || errors.As(err, &ce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
		breaker:    breaker,
		logger:     logger,
	}
}

// do performs one authenticated request and decodes the JSON response into
// out (when non-nil). Rate limiting and the circuit breaker wrap the call;
// client-side errors (4xx except 429) do not count as breaker failures.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{Status: resp.StatusCode, Body: string(respBody)}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return nil, apiErr
			}
			// 4xx responses are the caller's problem, not a downstream
			// outage; surface them without tripping the breaker.
			return nil, &clientError{apiErr}
		}
		return respBody, nil
	})
	if err != nil {
		var ce *clientError
		if errors.As(err, &ce) {
			return ce.apiErr
		}
		return err
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// clientError wraps 4xx APIErrors so gobreaker counts them as successes.
type clientError struct {
	apiErr *APIError
}

func (e *clientError) Error() string { return e.apiErr.Error() }

// ListExists checks whether a list is still present downstream.
func (c *Client) ListExists(ctx context.Context, listID string) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/list/"+url.PathEscape(listID), nil, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsNotFound() {
		return false, nil
	}
	return false, err
}

// GetFolderLists returns the lists of a folder.
func (c *Client) GetFolderLists(ctx context.Context, folderID string) ([]List, error) {
	var resp struct {
		Lists []List `json:"lists"`
	}
	if err := c.do(ctx, http.MethodGet, "/folder/"+url.PathEscape(folderID)+"/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lists, nil
}

// CreateList creates a list inside a folder.
func (c *Client) CreateList(ctx context.Context, folderID string, req CreateListRequest) (*List, error) {
	var list List
	if err := c.do(ctx, http.MethodPost, "/folder/"+url.PathEscape(folderID)+"/list", req, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetListTasks returns the non-archived tasks of a list.
func (c *Client) GetListTasks(ctx context.Context, listID string) ([]Task, error) {
	var resp struct {
		Tasks []Task `json:"tasks"`
	}
	path := "/list/" + url.PathEscape(listID) + "/task?archived=false"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// CreateTask creates a task in a list.
func (c *Client) CreateTask(ctx context.Context, listID string, req CreateTaskRequest) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPost, "/list/"+url.PathEscape(listID)+"/task", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask updates a task's base fields.
func (c *Client) UpdateTask(ctx context.Context, taskID string, req UpdateTaskRequest) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPut, "/task/"+url.PathEscape(taskID), req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetTaskCustomField sets one custom-field value on a task.
func (c *Client) SetTaskCustomField(ctx context.Context, taskID string, field CustomFieldPayload) error {
	path := "/task/" + url.PathEscape(taskID) + "/field/" + url.PathEscape(field.ID)
	return c.do(ctx, http.MethodPost, path, map[string]any{"value": field.Value}, nil)
}

// CreateTaskComment appends a comment to a task.
func (c *Client) CreateTaskComment(ctx context.Context, taskID, text string) error {
	body := map[string]any{"comment_text": text}
	return c.do(ctx, http.MethodPost, "/task/"+url.PathEscape(taskID)+"/comment", body, nil)
}

// GetListFields returns the custom-field definitions of a list.
func (c *Client) GetListFields(ctx context.Context, listID string) ([]Field, error) {
	var resp struct {
		Fields []Field `json:"fields"`
	}
	if err := c.do(ctx, http.MethodGet, "/list/"+url.PathEscape(listID)+"/field", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Fields, nil
}

// GetTeamSpaces returns the spaces of a team.
func (c *Client) GetTeamSpaces(ctx context.Context, teamID string) ([]Space, error) {
	var resp struct {
		Spaces []Space `json:"spaces"`
	}
	if err := c.do(ctx, http.MethodGet, "/team/"+url.PathEscape(teamID)+"/space", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Spaces, nil
}

// GetSpaceFolders returns the folders of a space.
func (c *Client) GetSpaceFolders(ctx context.Context, spaceID string) ([]Folder, error) {
	var resp struct {
		Folders []Folder `json:"folders"`
	}
	if err := c.do(ctx, http.MethodGet, "/space/"+url.PathEscape(spaceID)+"/folder", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Folders, nil
}

// VerifyAuth exercises the team endpoint to confirm the token works.
func (c *Client) VerifyAuth(ctx context.Context, teamID string) error {
	return c.do(ctx, http.MethodGet, "/team/"+url.PathEscape(teamID), nil, nil)
}

package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/fasal/internal/domain/model"
)

// errBackpressure marks a batch the service refused because its queue was full.
var errBackpressure = errors.New("service applied backpressure")

// client wraps http.Client for the scoring API.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type historyResponse struct {
	FarmerID string              `json:"farmer_id"`
	Count    int                 `json:"count"`
	History  []model.ScoreRecord `json:"history"`
}

// do sends body as JSON and decodes a 2xx response into out.
func (c *client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e apiError
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return resp.StatusCode, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, e.Message)
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

func (c *client) health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

// submitBatch posts items as one batch job.
func (c *client) submitBatch(ctx context.Context, items []model.BatchItem) (model.Job, error) {
	var job model.Job
	status, err := c.do(ctx, http.MethodPost, "/score/batch", map[string]any{"items": items}, &job)
	if status == http.StatusTooManyRequests {
		return job, fmt.Errorf("%w: %w", errBackpressure, err)
	}
	return job, err
}

func (c *client) job(ctx context.Context, id string) (model.Job, error) {
	var job model.Job
	_, err := c.do(ctx, http.MethodGet, "/score/batch/"+url.PathEscape(id), nil, &job)
	return job, err
}

func (c *client) history(ctx context.Context, farmerID string, limit int) ([]model.ScoreRecord, error) {
	var resp historyResponse
	path := "/score/" + url.PathEscape(farmerID) + "/history?limit=" + strconv.Itoa(limit)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

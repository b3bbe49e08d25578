package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

const requestIDHeader = "X-Request-ID"

// Client talks to the LLM experiment backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client. httpClient may be nil; no request
// timeout is set beyond what the transport applies.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the normalised backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) FetchStatus(ctx context.Context, experimentID string) (*domain.ExperimentStatus, error) {
	var status domain.ExperimentStatus
	path := "/llms/experiment/" + url.PathEscape(experimentID) + "/status"
	if err := c.do(ctx, "fetch status", http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	var resp domain.GenerateResponse
	if err := c.do(ctx, "generate", http.MethodPost, "/llms/generate", req, &resp); err != nil {
		return nil, err
	}
	if resp.ExperimentID == "" {
		return nil, &domain.NetworkError{Op: "generate", Message: "backend response is missing experiment_id"}
	}
	return &resp, nil
}

func (c *Client) Cancel(ctx context.Context, experimentID string) (*domain.CancelResponse, error) {
	var resp domain.CancelResponse
	path := "/llms/experiment/" + url.PathEscape(experimentID) + "/cancel"
	if err := c.do(ctx, "cancel", http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type providersResponse struct {
	Models []domain.Model `json:"models"`
}

// ListModels returns the selectable models. Entries without an id or
// provider are dropped rather than guessed at.
func (c *Client) ListModels(ctx context.Context) ([]domain.Model, error) {
	var resp providersResponse
	if err := c.do(ctx, "list models", http.MethodGet, "/llms/providers", nil, &resp); err != nil {
		return nil, err
	}

	models := make([]domain.Model, 0, len(resp.Models))
	for _, m := range resp.Models {
		if err := m.Validate(); err != nil {
			continue
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		models = append(models, m)
	}
	return models, nil
}

type experimentsResponse struct {
	Experiments []domain.ExperimentSummary `json:"experiments"`
}

func (c *Client) ListExperiments(ctx context.Context) ([]domain.ExperimentSummary, error) {
	var resp experimentsResponse
	if err := c.do(ctx, "list experiments", http.MethodGet, "/experiments", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Experiments == nil {
		resp.Experiments = []domain.ExperimentSummary{}
	}
	return resp.Experiments, nil
}

func (c *Client) GetExperiment(ctx context.Context, experimentID string) (*domain.ExperimentDetail, error) {
	var detail domain.ExperimentDetail
	if err := c.do(ctx, "get experiment", http.MethodGet, "/experiments/"+url.PathEscape(experimentID), nil, &detail); err != nil {
		return nil, err
	}
	if detail.Results == nil {
		detail.Results = []domain.Result{}
	}
	return &detail, nil
}

func (c *Client) QualityMetrics(ctx context.Context, experimentID string) ([]domain.QualityMetric, error) {
	var metrics []domain.QualityMetric
	path := "/metrics/experiments/" + url.PathEscape(experimentID) + "/quality"
	if err := c.do(ctx, "quality metrics", http.MethodGet, path, nil, &metrics); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = []domain.QualityMetric{}
	}
	return metrics, nil
}

type apiKeyCheckResponse struct {
	Provider string `json:"provider"`
	HasKey   bool   `json:"has_key"`
}

// CheckAPIKey reports whether the backend holds a key for provider.
func (c *Client) CheckAPIKey(ctx context.Context, provider string) (bool, error) {
	var resp apiKeyCheckResponse
	if err := c.do(ctx, "check api key", http.MethodGet, "/api-keys/check/"+url.PathEscape(provider), nil, &resp); err != nil {
		return false, err
	}
	return resp.HasKey, nil
}

// errorBody covers FastAPI's {"detail": "..."} error shape.
type errorBody struct {
	Detail any `json:"detail"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.NetworkError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp, data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &domain.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid JSON response: %w", err)}
	}
	return nil
}

func errorMessage(resp *http.Response, data []byte) string {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Detail != nil {
		switch d := eb.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
	}
	return fmt.Sprintf("request failed: %s", resp.Status)
}

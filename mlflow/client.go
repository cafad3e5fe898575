// Package mlflow is a minimal client for the MLflow Tracking REST API.
//
// It covers the handful of endpoints the conformance suite exercises:
// experiment creation and search, registered model search, and a plain
// liveness probe against the UI root. It is not a general purpose MLflow
// SDK and deliberately ignores runs, artifacts and model versions.
package mlflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	apiPrefix = "/api/2.0/mlflow"

	// DefaultTimeout is the default timeout for HTTP requests.
	DefaultTimeout = 30 * time.Second

	// defaultMaxResults caps search responses. The suite only ever
	// deals with a handful of experiments.
	defaultMaxResults = 1000
)

// Experiment is an MLflow experiment as returned by the search and get
// endpoints.
type Experiment struct {
	ExperimentID     string `json:"experiment_id"`
	Name             string `json:"name"`
	ArtifactLocation string `json:"artifact_location"`
	LifecycleStage   string `json:"lifecycle_stage"`
}

// RegisteredModel is an entry of the model registry.
type RegisteredModel struct {
	Name string `json:"name"`
}

// APIError is a non-2xx answer from the tracking server.
type APIError struct {
	StatusCode int
	Code       string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mlflow: %s (code %s, http %d)", e.Message, e.Code, e.StatusCode)
}

// Client talks to one MLflow tracking server.
type Client struct {
	trackingURI string
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the timeout for HTTP requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for the tracking server at trackingURI,
// e.g. "http://localhost:5000".
func NewClient(trackingURI string, opts ...Option) *Client {
	c := &Client{
		trackingURI: trackingURI,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TrackingURI returns the base URI the client was created with.
func (c *Client) TrackingURI() string {
	return c.trackingURI
}

// Ping fetches the UI root and reports an error unless it answers 200
// with a non-empty body.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.trackingURI+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mlflow: UI answered %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return fmt.Errorf("mlflow: UI answered with an empty body")
	}
	return nil
}

// CreateExperiment creates a named experiment and returns its id.
func (c *Client) CreateExperiment(ctx context.Context, name string) (string, error) {
	request := struct {
		Name string `json:"name"`
	}{Name: name}
	var response struct {
		ExperimentID string `json:"experiment_id"`
	}
	if err := c.post(ctx, "/experiments/create", request, &response); err != nil {
		return "", err
	}
	return response.ExperimentID, nil
}

// SearchExperiments returns all active experiments.
func (c *Client) SearchExperiments(ctx context.Context) ([]Experiment, error) {
	request := struct {
		MaxResults int `json:"max_results"`
	}{MaxResults: defaultMaxResults}
	var response struct {
		Experiments []Experiment `json:"experiments"`
	}
	if err := c.post(ctx, "/experiments/search", request, &response); err != nil {
		return nil, err
	}
	return response.Experiments, nil
}

// GetExperimentByName fetches a single experiment by its name.
func (c *Client) GetExperimentByName(ctx context.Context, name string) (*Experiment, error) {
	u := fmt.Sprintf("%s%s/experiments/get-by-name?experiment_name=%s", c.trackingURI, apiPrefix, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var response struct {
		Experiment *Experiment `json:"experiment"`
	}
	if err := c.do(req, &response); err != nil {
		return nil, err
	}
	return response.Experiment, nil
}

// SearchRegisteredModels returns all registered models.
func (c *Client) SearchRegisteredModels(ctx context.Context) ([]RegisteredModel, error) {
	request := struct {
		MaxResults int `json:"max_results"`
	}{MaxResults: defaultMaxResults}
	var response struct {
		RegisteredModels []RegisteredModel `json:"registered_models"`
	}
	if err := c.post(ctx, "/registered-models/search", request, &response); err != nil {
		return nil, err
	}
	return response.RegisteredModels, nil
}

func (c *Client) post(ctx context.Context, path string, request, response any) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("mlflow: failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.trackingURI+apiPrefix+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, response)
}

func (c *Client) do(req *http.Request, response any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mlflow: failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(body)
		}
		return apiErr
	}
	if response == nil {
		return nil
	}
	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("mlflow: failed to unmarshal response: %w", err)
	}
	return nil
}

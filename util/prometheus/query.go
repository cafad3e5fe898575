// Package prometheus contains helpers for driving a Prometheus instance
// from the suite: API calls through the apiserver service proxy, alert
// rule files, and parsing of scraped exposition output.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"k8s.io/client-go/rest"
)

const proxyPort = 9090

// APIParams locates a Prometheus HTTP API. Either RestClient together with
// Namespace and Service must be set, in which case calls go through the
// apiserver service proxy, or BaseURL must point directly at Prometheus.
type APIParams struct {
	RestClient rest.Interface
	Namespace  string
	Service    string
	BaseURL    string
}

func (p APIParams) validate() error {
	if p.RestClient != nil && p.Namespace != "" && p.Service != "" {
		return nil
	}
	if p.BaseURL != "" {
		return nil
	}
	return errors.New("must specify either RestClient+Namespace+Service or BaseURL")
}

// Get performs a GET against a Prometheus API path such as "/api/v1/rules"
// and returns the raw body.
func Get(ctx context.Context, params APIParams, apiPath string, query url.Values) ([]byte, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.RestClient != nil && params.Namespace != "" && params.Service != "" {
		req := params.RestClient.
			Get().
			RequestURI(fmt.Sprintf("/api/v1/namespaces/%s/services/%s:%d/proxy%s", params.Namespace, params.Service, proxyPort, apiPath))
		for key, values := range query {
			for _, value := range values {
				req = req.Param(key, value)
			}
		}
		return req.Do(ctx).Raw()
	}

	u, err := url.Parse(params.BaseURL + apiPath)
	if err != nil {
		return nil, err
	}
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prometheus answered %d for %s", resp.StatusCode, apiPath)
	}
	return io.ReadAll(resp.Body)
}

// Query runs an instant PromQL query and returns the raw API response.
func Query(ctx context.Context, params APIParams, promQL string) ([]byte, error) {
	return Get(ctx, params, "/api/v1/query", url.Values{"query": []string{promQL}})
}

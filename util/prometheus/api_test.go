package prometheus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTargetsResponse(t *testing.T) {
	raw := []byte(`{
		"status": "success",
		"data": {
			"activeTargets": [
				{
					"discoveredLabels": {"juju_application": "mlflow-server"},
					"labels": {"job": "mlflow-server"},
					"scrapePool": "serviceMonitor/monitoring/mlflow-server/0",
					"health": "up"
				}
			]
		}
	}`)

	result := TargetsResult{}
	require.NoError(t, decodeAPIResponse(raw, &result))
	require.Len(t, result.ActiveTargets, 1)
	assert.Equal(t, "mlflow-server", result.ActiveTargets[0].DiscoveredLabels["juju_application"])
	assert.Equal(t, "up", result.ActiveTargets[0].Health)
}

func TestDecodeErrorResponse(t *testing.T) {
	raw := []byte(`{"status": "error", "data": {}}`)
	result := TargetsResult{}
	assert.Error(t, decodeAPIResponse(raw, &result))
}

func TestDecodeGarbage(t *testing.T) {
	result := TargetsResult{}
	assert.Error(t, decodeAPIResponse([]byte("not json"), &result))
}

func TestRuleNames(t *testing.T) {
	groups := []RuleGroupResult{
		{
			Name: "MlflowServer",
			Rules: []Rule{
				{Name: "MLflowServerUnavailable", Type: "alerting"},
				{Name: "mlflow:request_rate", Type: "recording"},
				{Name: "MLflowRequestDurationTooLong", Type: "alerting"},
			},
		},
		{
			Name:  "Other",
			Rules: []Rule{{Name: "SomethingElse", Type: "alerting"}},
		},
	}

	assert.Equal(t,
		[]string{"MLflowServerUnavailable", "MLflowRequestDurationTooLong", "SomethingElse"},
		RuleNames(groups))
}

func TestAPIParamsValidate(t *testing.T) {
	assert.Error(t, APIParams{}.validate())
	assert.NoError(t, APIParams{BaseURL: "http://localhost:9090"}.validate())
}

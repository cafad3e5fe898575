package prometheus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exporterOutput = `# HELP mlflow_metric mlflow metric
# TYPE mlflow_metric gauge
mlflow_metric{metric_name="num_experiments"} 1.0
mlflow_metric{metric_name="num_registered_models"} 0.0
mlflow_metric{metric_name="num_runs"} 0
# HELP process_start_time_seconds Start time of the process since unix epoch in seconds.
# TYPE process_start_time_seconds gauge
process_start_time_seconds 1.75e+09
`

func TestGaugeValue(t *testing.T) {
	value, err := GaugeValue(exporterOutput, "mlflow_metric", map[string]string{"metric_name": "num_experiments"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, value)

	value, err = GaugeValue(exporterOutput, "mlflow_metric", map[string]string{"metric_name": "num_registered_models"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, value)

	value, err = GaugeValue(exporterOutput, "process_start_time_seconds", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.75e+09, value)
}

func TestGaugeValueMissingFamily(t *testing.T) {
	_, err := GaugeValue(exporterOutput, "mlflow_unknown", nil)
	assert.Error(t, err)
}

func TestGaugeValueMissingLabels(t *testing.T) {
	_, err := GaugeValue(exporterOutput, "mlflow_metric", map[string]string{"metric_name": "num_users"})
	assert.Error(t, err)

	// A subset match is not a match.
	_, err = GaugeValue(exporterOutput, "mlflow_metric", nil)
	assert.Error(t, err)
}

func TestGaugeValueGarbage(t *testing.T) {
	_, err := GaugeValue("{{{", "mlflow_metric", nil)
	assert.Error(t, err)
}

package prometheus

import (
	"fmt"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// GaugeValue extracts the value of a gauge (or untyped) metric with the
// given family name and label set from text exposition output. The label
// set must match exactly.
func GaugeValue(exposition string, family string, labels map[string]string) (float64, error) {
	parser := expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(strings.NewReader(exposition))
	if err != nil {
		return 0, fmt.Errorf("failed to parse metrics exposition: %w", err)
	}

	mf, ok := families[family]
	if !ok {
		return 0, fmt.Errorf("metric family %q not found", family)
	}

	for _, metric := range mf.GetMetric() {
		if !labelsMatch(metric, labels) {
			continue
		}
		switch {
		case metric.GetGauge() != nil:
			return metric.GetGauge().GetValue(), nil
		case metric.GetUntyped() != nil:
			return metric.GetUntyped().GetValue(), nil
		case metric.GetCounter() != nil:
			return metric.GetCounter().GetValue(), nil
		default:
			return 0, fmt.Errorf("metric %q has no scalar value", family)
		}
	}
	return 0, fmt.Errorf("metric %q with labels %v not found", family, labels)
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.GetLabel()) != len(labels) {
		return false
	}
	for _, pair := range metric.GetLabel() {
		if labels[pair.GetName()] != pair.GetValue() {
			return false
		}
	}
	return true
}

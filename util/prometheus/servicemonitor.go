package prometheus

import (
	"context"
	"fmt"

	monitoringv1 "github.com/prometheus-operator/prometheus-operator/pkg/apis/monitoring/v1"
	monitoring "github.com/prometheus-operator/prometheus-operator/pkg/client/versioned"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// MonitorSpec describes the scrape configuration a test wants to register.
type MonitorSpec struct {
	// Namespace and Name of the ServiceMonitor object itself.
	Namespace string
	Name      string

	// TargetNamespace and Selector pick the Services to scrape.
	TargetNamespace string
	Selector        map[string]string

	// Port is the name of the Service port exposing metrics.
	Port string

	// Labels must match the ServiceMonitor selector of the Prometheus
	// instance, e.g. {"release": "kube-prometheus-stack"}.
	Labels map[string]string
}

// CreateServiceMonitor registers a ServiceMonitor scraping /metrics every
// 15s from the selected Services.
func CreateServiceMonitor(ctx context.Context, client monitoring.Interface, spec MonitorSpec) (*monitoringv1.ServiceMonitor, error) {
	monitor := &monitoringv1.ServiceMonitor{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.Name,
			Namespace: spec.Namespace,
			Labels:    spec.Labels,
		},
		Spec: monitoringv1.ServiceMonitorSpec{
			NamespaceSelector: monitoringv1.NamespaceSelector{
				MatchNames: []string{spec.TargetNamespace},
			},
			Selector: metav1.LabelSelector{
				MatchLabels: spec.Selector,
			},
			Endpoints: []monitoringv1.Endpoint{
				{
					Port:     spec.Port,
					Interval: "15s",
					Path:     "/metrics",
				},
			},
		},
	}

	created, err := client.MonitoringV1().ServiceMonitors(spec.Namespace).Create(ctx, monitor, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create service monitor %s/%s: %w", spec.Namespace, spec.Name, err)
	}
	return created, nil
}

// CreatePrometheusRule registers the given rule object.
func CreatePrometheusRule(ctx context.Context, client monitoring.Interface, rule *monitoringv1.PrometheusRule) (*monitoringv1.PrometheusRule, error) {
	created, err := client.MonitoringV1().PrometheusRules(rule.Namespace).Create(ctx, rule, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus rule %s/%s: %w", rule.Namespace, rule.Name, err)
	}
	return created, nil
}

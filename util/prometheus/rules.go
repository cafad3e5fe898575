package prometheus

import (
	"fmt"
	"os"

	monitoringv1 "github.com/prometheus-operator/prometheus-operator/pkg/apis/monitoring/v1"
	"github.com/samber/lo"
	yaml "go.yaml.in/yaml/v2"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// AlertRule is one alerting rule of a rule file.
type AlertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// RuleGroup is one group of a rule file.
type RuleGroup struct {
	Name  string      `yaml:"name"`
	Rules []AlertRule `yaml:"rules"`
}

// RuleFile is an alert rules file in the standard Prometheus format.
type RuleFile struct {
	Groups []RuleGroup `yaml:"groups"`
}

// LoadRuleFile reads and parses an alert rules file.
func LoadRuleFile(path string) (*RuleFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	file := &RuleFile{}
	if err := yaml.Unmarshal(raw, file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	if len(file.Groups) == 0 {
		return nil, fmt.Errorf("rules file %s contains no rule groups", path)
	}
	return file, nil
}

// AlertNames returns the names of all alerting rules in the file.
func (f *RuleFile) AlertNames() []string {
	return lo.FlatMap(f.Groups, func(group RuleGroup, _ int) []string {
		return lo.Map(group.Rules, func(rule AlertRule, _ int) string { return rule.Alert })
	})
}

// ToPrometheusRule converts the rule file into a PrometheusRule object the
// prometheus-operator picks up. extraLabels selects the Prometheus
// instance, e.g. the release label of a kube-prometheus-stack install.
func (f *RuleFile) ToPrometheusRule(namespace, name string, extraLabels map[string]string) *monitoringv1.PrometheusRule {
	groups := lo.Map(f.Groups, func(group RuleGroup, _ int) monitoringv1.RuleGroup {
		return monitoringv1.RuleGroup{
			Name: group.Name,
			Rules: lo.Map(group.Rules, func(rule AlertRule, _ int) monitoringv1.Rule {
				converted := monitoringv1.Rule{
					Alert:       rule.Alert,
					Expr:        intstr.FromString(rule.Expr),
					Labels:      rule.Labels,
					Annotations: rule.Annotations,
				}
				if rule.For != "" {
					duration := monitoringv1.Duration(rule.For)
					converted.For = &duration
				}
				return converted
			}),
		}
	})

	return &monitoringv1.PrometheusRule{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    extraLabels,
		},
		Spec: monitoringv1.PrometheusRuleSpec{Groups: groups},
	}
}

package prometheus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

// statusSuccess is the status field value of a healthy API response.
const statusSuccess = "success"

// Target is one scrape target of /api/v1/targets.
type Target struct {
	DiscoveredLabels map[string]string `json:"discoveredLabels"`
	Labels           map[string]string `json:"labels"`
	ScrapePool       string            `json:"scrapePool"`
	Health           string            `json:"health"`
}

// TargetsResult is the data portion of /api/v1/targets.
type TargetsResult struct {
	ActiveTargets []Target `json:"activeTargets"`
}

// Rule is one rule of a rule group as reported by /api/v1/rules.
type Rule struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	State string `json:"state"`
}

// RuleGroupResult is one group of /api/v1/rules.
type RuleGroupResult struct {
	Name  string `json:"name"`
	Rules []Rule `json:"rules"`
}

// RulesResult is the data portion of /api/v1/rules.
type RulesResult struct {
	Groups []RuleGroupResult `json:"groups"`
}

type apiResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decodeAPIResponse(raw []byte, data any) error {
	response := apiResponse{}
	if err := json.Unmarshal(raw, &response); err != nil {
		return fmt.Errorf("failed to decode prometheus API response: %w", err)
	}
	if response.Status != statusSuccess {
		return fmt.Errorf("prometheus API answered status %q", response.Status)
	}
	return json.Unmarshal(response.Data, data)
}

// ActiveTargets fetches the active scrape targets.
func ActiveTargets(ctx context.Context, params APIParams) ([]Target, error) {
	raw, err := Get(ctx, params, "/api/v1/targets", nil)
	if err != nil {
		return nil, err
	}
	result := TargetsResult{}
	if err := decodeAPIResponse(raw, &result); err != nil {
		return nil, err
	}
	return result.ActiveTargets, nil
}

// LoadedRules fetches all rule groups currently loaded by Prometheus.
func LoadedRules(ctx context.Context, params APIParams) ([]RuleGroupResult, error) {
	raw, err := Get(ctx, params, "/api/v1/rules", nil)
	if err != nil {
		return nil, err
	}
	result := RulesResult{}
	if err := decodeAPIResponse(raw, &result); err != nil {
		return nil, err
	}
	return result.Groups, nil
}

// RuleNames flattens the alerting rule names of the given groups.
func RuleNames(groups []RuleGroupResult) []string {
	return lo.FlatMap(groups, func(group RuleGroupResult, _ int) []string {
		alerting := lo.Filter(group.Rules, func(rule Rule, _ int) bool {
			return rule.Type == "" || rule.Type == "alerting"
		})
		return lo.Map(alerting, func(rule Rule, _ int) string { return rule.Name })
	})
}

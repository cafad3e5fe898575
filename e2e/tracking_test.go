package e2e

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/samber/lo"
	"sigs.k8s.io/e2e-framework/pkg/envconf"
	"sigs.k8s.io/e2e-framework/pkg/features"

	"github.com/nishant-dash/mlflow-conformance/mlflow"
	"github.com/nishant-dash/mlflow-conformance/util/kubectl"
)

const testExperimentName = "test-experiment"

// TestTrackingAPI drives the tracking server through its REST API the way
// an ML workload would: reach the UI, create an experiment, and find it
// again via search.
func TestTrackingAPI(t *testing.T) {
	f := features.New("tracking_api").
		WithLabel("type", "tracking").
		WithLabel("id", "tracking_api").
		WithLabel("level", "MUST").
		Assess("experiment can be created and found", func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			eventually(ctx, t, 5*time.Minute, 10*time.Second, func(ctx context.Context) error {
				pf, err := kubectl.ForwardService(ctx, cfg.KubeconfigFile(), settings.Namespace, settings.AppName, settings.TrackingPort, settings.TrackingPort)
				if err != nil {
					return err
				}
				defer pf.Stop()

				client := mlflow.NewClient(pf.URL())
				if err := client.Ping(ctx); err != nil {
					return err
				}

				if _, err := client.CreateExperiment(ctx, testExperimentName); err != nil {
					// A retry of this body may find its own earlier
					// experiment; that is not a failure.
					apiErr := &mlflow.APIError{}
					if !errors.As(err, &apiErr) || apiErr.Code != "RESOURCE_ALREADY_EXISTS" {
						return err
					}
				}

				experiments, err := client.SearchExperiments(ctx)
				if err != nil {
					return err
				}
				matching := lo.Filter(experiments, func(e mlflow.Experiment, _ int) bool {
					return e.Name == testExperimentName
				})
				if len(matching) != 1 {
					return fmt.Errorf("found %d experiments named %q, want exactly 1", len(matching), testExperimentName)
				}
				t.Logf("experiment %q has id %s", testExperimentName, matching[0].ExperimentID)
				return nil
			})
			return ctx
		})

	testenv.Test(t, f.Feature())
}

package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	miniocredentials "github.com/minio/minio-go/v7/pkg/credentials"
	"sigs.k8s.io/e2e-framework/pkg/envconf"
	"sigs.k8s.io/e2e-framework/pkg/features"

	"github.com/nishant-dash/mlflow-conformance/util/kubectl"
)

// TestArtifactBucket checks that the default artifact root bucket exists
// in object storage after the platform deployed.
func TestArtifactBucket(t *testing.T) {
	f := features.New("artifact_bucket").
		WithLabel("type", "storage").
		WithLabel("id", "artifact_bucket").
		WithLabel("level", "MUST").
		Assess("default artifact root bucket exists", func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			eventually(ctx, t, 5*time.Minute, 10*time.Second, func(ctx context.Context) error {
				pf, err := kubectl.ForwardService(ctx, cfg.KubeconfigFile(), settings.Namespace, settings.Charts.Minio.Release, settings.MinioPort, settings.MinioPort)
				if err != nil {
					return err
				}
				defer pf.Stop()

				// The region must be set, bucket lookups fail without it.
				client, err := minio.New(pf.Addr(), &minio.Options{
					Creds:  miniocredentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
					Region: "us-east-1",
					Secure: false,
				})
				if err != nil {
					return fmt.Errorf("failed to create object storage client: %w", err)
				}

				found, err := client.BucketExists(ctx, settings.DefaultArtifactRoot)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("the %q bucket does not exist", settings.DefaultArtifactRoot)
				}
				t.Logf("bucket %q exists", settings.DefaultArtifactRoot)
				return nil
			})
			return ctx
		})

	testenv.Test(t, f.Feature())
}

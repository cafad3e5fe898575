package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/e2e-framework/pkg/envconf"
	"sigs.k8s.io/e2e-framework/pkg/features"

	"github.com/nishant-dash/mlflow-conformance/util/kubectl"
)

const (
	ingressGatewayService = "istio-ingressgateway"
	virtualServicePath    = "testdata/manifests/mlflow-virtualservice.yaml"
	trackingURLPrefix     = "/mlflow/"
)

// TestIngress verifies the tracking server is reachable from outside the
// cluster through the istio ingress gateway. The gateway URL is derived
// from the LoadBalancer status: a bare IP becomes a nip.io hostname so
// that Host-based routing works without DNS setup.
func TestIngress(t *testing.T) {
	f := features.New("ingress").
		WithLabel("type", "networking").
		WithLabel("id", "ingress").
		WithLabel("level", "MUST").
		Setup(func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			out, err := kubectl.Run(cfg.KubeconfigFile(), settings.Namespace, "apply", "-f", virtualServicePath)
			if err != nil {
				t.Fatalf("error when applying virtual service: %v", err)
			}
			t.Log(strings.TrimSpace(out))
			return ctx
		}).
		Assess("tracking UI is served through the gateway", func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			// LoadBalancer provisioning is the slowest part on most
			// clusters, so the ceiling here is generous.
			eventually(ctx, t, 10*time.Minute, 10*time.Second, func(ctx context.Context) error {
				baseURL, err := ingressURL(ctx, cfg)
				if err != nil {
					return err
				}

				status, body, err := fetchResponse(ctx, baseURL+trackingURLPrefix)
				if err != nil {
					return err
				}
				if status != http.StatusOK {
					return fmt.Errorf("gateway answered %d for %s", status, baseURL+trackingURLPrefix)
				}
				if len(body) == 0 {
					return fmt.Errorf("gateway answered an empty body for %s", baseURL+trackingURLPrefix)
				}
				t.Logf("tracking UI reachable at %s%s", baseURL, trackingURLPrefix)
				return nil
			})
			return ctx
		}).
		Teardown(func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			out, err := kubectl.Run(cfg.KubeconfigFile(), settings.Namespace, "delete", "-f", virtualServicePath, "--ignore-not-found")
			if err != nil {
				t.Errorf("error when deleting virtual service: %v", err)
			}
			t.Log(strings.TrimSpace(out))
			return ctx
		})

	testenv.Test(t, f.Feature())
}

// ingressURL derives the external base URL of the ingress gateway from its
// LoadBalancer status. IPs are wrapped in nip.io hostnames; hostnames, as
// handed out by cloud load balancers, are used verbatim.
func ingressURL(ctx context.Context, cfg *envconf.Config) (string, error) {
	service := &corev1.Service{}
	err := cfg.Client().Resources(settings.IstioNamespace).Get(ctx, ingressGatewayService, settings.IstioNamespace, service)
	if err != nil {
		return "", fmt.Errorf("failed to get ingress gateway service: %w", err)
	}

	ingress := service.Status.LoadBalancer.Ingress
	if len(ingress) == 0 {
		return "", fmt.Errorf("service %s has no load balancer ingress yet", ingressGatewayService)
	}
	switch {
	case ingress[0].IP != "":
		return fmt.Sprintf("http://%s.nip.io", ingress[0].IP), nil
	case ingress[0].Hostname != "":
		return "http://" + ingress[0].Hostname, nil
	default:
		return "", fmt.Errorf("service %s load balancer ingress carries neither IP nor hostname", ingressGatewayService)
	}
}

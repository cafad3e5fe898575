package e2e

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	monitoring "github.com/prometheus-operator/prometheus-operator/pkg/client/versioned"
	corev1 "k8s.io/api/core/v1"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/discovery"
	clientset "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/e2e-framework/pkg/envconf"
	"sigs.k8s.io/e2e-framework/third_party/helm"

	"github.com/nishant-dash/mlflow-conformance/config"
)

// testingLabel marks namespaces whose owners opted into the platform. The
// resource dispatcher projects the artifact secret and PodDefaults into
// namespaces carrying it.
const testingLabel = "user.kubeflow.org/enabled"

const helmInstallTimeout = "15m"

func installChart(manager *helm.Manager, ref config.ChartRef, extraArgs ...string) error {
	opts := []helm.Option{
		helm.WithName(ref.Release),
		helm.WithChart(ref.Chart),
		helm.WithNamespace(ref.Namespace),
		helm.WithArgs("--create-namespace"),
		helm.WithWait(),
		helm.WithTimeout(helmInstallTimeout),
	}
	if ref.Version != "" {
		opts = append(opts, helm.WithVersion(ref.Version))
	}
	if ref.Values != "" {
		opts = append(opts, helm.WithArgs("-f", ref.Values))
	}
	if len(extraArgs) > 0 {
		opts = append(opts, helm.WithArgs(extraArgs...))
	}
	return manager.RunInstall(opts...)
}

func uninstallChart(manager *helm.Manager, ref config.ChartRef) error {
	return manager.RunUninstall(
		helm.WithName(ref.Release),
		helm.WithNamespace(ref.Namespace),
		helm.WithWait(),
	)
}

func kubernetesClient(cfg *envconf.Config) (clientset.Interface, error) {
	return clientset.NewForConfig(cfg.Client().RESTConfig())
}

func apiextensionsClient(cfg *envconf.Config) (apiextensionsclientset.Interface, error) {
	return apiextensionsclientset.NewForConfig(cfg.Client().RESTConfig())
}

func monitoringClient(cfg *envconf.Config) (monitoring.Interface, error) {
	return monitoring.NewForConfig(cfg.Client().RESTConfig())
}

func coreRESTClient(cfg *envconf.Config) (rest.Interface, error) {
	client, err := kubernetesClient(cfg)
	if err != nil {
		return nil, err
	}
	return client.CoreV1().RESTClient(), nil
}

// serviceProxyGet fetches a path from a Service through the apiserver
// proxy. servicePort is the Service name with a port name or number
// appended, e.g. "grafana:80".
func serviceProxyGet(ctx context.Context, cfg *envconf.Config, namespace, servicePort, path string) ([]byte, error) {
	restClient, err := coreRESTClient(cfg)
	if err != nil {
		return nil, err
	}
	return restClient.
		Get().
		RequestURI(fmt.Sprintf("/api/v1/namespaces/%s/services/%s/proxy%s", namespace, servicePort, path)).
		Do(ctx).
		Raw()
}

// fetchResponse fetches the provided URL and returns the status code and
// body text.
func fetchResponse(ctx context.Context, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}

// eventually re-runs the whole assertion body at a fixed interval until it
// stops returning an error or the total elapsed ceiling is hit. The last
// error is reported through t.
func eventually(ctx context.Context, t *testing.T, timeout, interval time.Duration, body func(context.Context) error) {
	t.Helper()
	var lastErr error
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		if lastErr = body(ctx); lastErr != nil {
			t.Logf("retrying after: %v", lastErr)
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		t.Errorf("condition not met within %v (last error: %v)", timeout, lastErr)
	}
}

// SkipIfGroupVersionUnavailable skips the test when the API server does
// not serve the given group/version, e.g. monitoring.coreos.com/v1.
func SkipIfGroupVersionUnavailable(t *testing.T, cfg *envconf.Config, groupVersion string) {
	t.Helper()
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(cfg.Client().RESTConfig())
	if err != nil {
		t.Fatalf("failed to create discovery client: %v", err)
	}
	if _, err := discoveryClient.ServerResourcesForGroupVersion(groupVersion); err != nil {
		t.Skipf("%s is not served by the cluster: %v", groupVersion, err)
	}
}

func deleteNamespace(ctx context.Context, cfg *envconf.Config, name string) error {
	client, err := kubernetesClient(cfg)
	if err != nil {
		return err
	}
	err = client.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	return err
}

// deleteUserNamespaces removes every namespace carrying the testing label.
// User namespaces are created by individual features; this is the backstop
// for runs that abort between a feature's setup and teardown.
func deleteUserNamespaces(ctx context.Context, cfg *envconf.Config) (context.Context, error) {
	client, err := kubernetesClient(cfg)
	if err != nil {
		return ctx, err
	}
	nsList, err := client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{LabelSelector: testingLabel})
	if err != nil {
		return ctx, fmt.Errorf("failed to list user namespaces: %w", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(nsList.Items))
	for i, item := range nsList.Items {
		if strings.HasPrefix(item.Name, "kube-") {
			continue
		}
		wg.Add(1)
		go func(i int, ns corev1.Namespace) {
			defer wg.Done()
			err := client.CoreV1().Namespaces().Delete(ctx, ns.Name, metav1.DeleteOptions{})
			if err != nil && !apierrors.IsNotFound(err) {
				errs[i] = fmt.Errorf("failed to delete namespace %s: %w", ns.Name, err)
			}
		}(i, item)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

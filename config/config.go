// Package config holds the runtime settings of the conformance suite.
//
// Settings come from three places, in increasing order of precedence:
// compiled-in defaults, an optional YAML settings file, and environment
// variables prefixed with MLFLOW_CONFORMANCE_. Object storage credentials
// are read separately from the well-known MINIO_* variables so that the
// suite can run against a cluster whose MinIO was provisioned out of band.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

const envPrefix = "MLFLOW_CONFORMANCE"

// ChartRef identifies a helm chart release the suite installs during setup.
type ChartRef struct {
	Release   string `mapstructure:"release"`
	Chart     string `mapstructure:"chart"`
	Version   string `mapstructure:"version"`
	Namespace string `mapstructure:"namespace"`
	Values    string `mapstructure:"values"`
}

// Charts lists every release the suite manages.
type Charts struct {
	Minio              ChartRef `mapstructure:"minio"`
	MySQL              ChartRef `mapstructure:"mysql"`
	MLflow             ChartRef `mapstructure:"mlflow"`
	PrometheusStack    ChartRef `mapstructure:"prometheusStack"`
	Grafana            ChartRef `mapstructure:"grafana"`
	IstioBase          ChartRef `mapstructure:"istioBase"`
	Istiod             ChartRef `mapstructure:"istiod"`
	IstioGateway       ChartRef `mapstructure:"istioGateway"`
	ResourceDispatcher ChartRef `mapstructure:"resourceDispatcher"`
}

// Settings is the full suite configuration.
type Settings struct {
	// AppName is the name the MLflow tracking server is released under.
	// Secrets and PodDefaults dispatched into user namespaces derive
	// their names from it.
	AppName string `mapstructure:"appName"`

	// Namespace is the namespace the MLflow server and its backing
	// services are installed into.
	Namespace string `mapstructure:"namespace"`

	// UserNamespace is the labeled namespace used to verify credential
	// propagation by the resource dispatcher.
	UserNamespace string `mapstructure:"userNamespace"`

	MonitoringNamespace string `mapstructure:"monitoringNamespace"`
	IstioNamespace      string `mapstructure:"istioNamespace"`

	TrackingPort int `mapstructure:"trackingPort"`
	ExporterPort int `mapstructure:"exporterPort"`
	MinioPort    int `mapstructure:"minioPort"`

	// DefaultArtifactRoot is the object storage bucket MLflow stores
	// artifacts in.
	DefaultArtifactRoot string `mapstructure:"defaultArtifactRoot"`

	// AlertRulesFile is the path of the alert rules shipped with the
	// tracking server, relative to the suite working directory.
	AlertRulesFile string `mapstructure:"alertRulesFile"`

	Charts Charts `mapstructure:"charts"`
}

// ObjectStorageCredentials is the MinIO key pair the platform is deployed
// with. The same pair must surface in the dispatched artifact secret.
type ObjectStorageCredentials struct {
	AccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minio"`
	SecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minio123"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "mlflow-server")
	v.SetDefault("namespace", "mlflow")
	v.SetDefault("userNamespace", "mlflow-user")
	v.SetDefault("monitoringNamespace", "monitoring")
	v.SetDefault("istioNamespace", "istio-system")
	v.SetDefault("trackingPort", 5000)
	v.SetDefault("exporterPort", 8000)
	v.SetDefault("minioPort", 9000)
	v.SetDefault("defaultArtifactRoot", "mlflow")
	v.SetDefault("alertRulesFile", "testdata/alert-rules/mlflow-server.rule")

	v.SetDefault("charts.minio", map[string]any{
		"release":   "minio",
		"chart":     "oci://registry-1.docker.io/bitnamicharts/minio",
		"namespace": "mlflow",
		"values":    "testdata/helm/minio/values.yaml",
	})
	v.SetDefault("charts.mysql", map[string]any{
		"release":   "mysql",
		"chart":     "oci://registry-1.docker.io/bitnamicharts/mysql",
		"namespace": "mlflow",
		"values":    "testdata/helm/mysql/values.yaml",
	})
	v.SetDefault("charts.mlflow", map[string]any{
		"release":   "mlflow-server",
		"chart":     "community-charts/mlflow",
		"namespace": "mlflow",
		"values":    "testdata/helm/mlflow/values.yaml",
	})
	v.SetDefault("charts.prometheusStack", map[string]any{
		"release":   "kube-prometheus-stack",
		"chart":     "oci://ghcr.io/prometheus-community/charts/kube-prometheus-stack",
		"namespace": "monitoring",
		"values":    "testdata/helm/kube-prometheus-stack/values.yaml",
	})
	v.SetDefault("charts.grafana", map[string]any{
		"release":   "grafana",
		"chart":     "oci://ghcr.io/grafana/helm-charts/grafana",
		"namespace": "monitoring",
		"values":    "testdata/helm/grafana/values.yaml",
	})
	v.SetDefault("charts.istioBase", map[string]any{
		"release":   "istio-base",
		"chart":     "oci://docker.io/istio/base",
		"namespace": "istio-system",
	})
	v.SetDefault("charts.istiod", map[string]any{
		"release":   "istiod",
		"chart":     "oci://docker.io/istio/istiod",
		"namespace": "istio-system",
	})
	v.SetDefault("charts.istioGateway", map[string]any{
		"release":   "istio-ingressgateway",
		"chart":     "oci://docker.io/istio/gateway",
		"namespace": "istio-system",
		"values":    "testdata/helm/istio-gateway/values.yaml",
	})
	v.SetDefault("charts.resourceDispatcher", map[string]any{
		"release":   "resource-dispatcher",
		"chart":     "oci://ghcr.io/canonical/charms/resource-dispatcher",
		"namespace": "mlflow",
		"values":    "testdata/helm/resource-dispatcher/values.yaml",
	})
}

// Load reads the suite settings. file may be empty, in which case only
// defaults and environment overrides apply. A missing file at the given
// path is an error; defaults are not a silent fallback for a typo.
func Load(file string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", file, err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return settings, nil
}

// LoadCredentials reads the object storage key pair from the environment.
func LoadCredentials() (ObjectStorageCredentials, error) {
	creds := ObjectStorageCredentials{}
	if err := env.Parse(&creds); err != nil {
		return creds, fmt.Errorf("failed to parse object storage credentials: %w", err)
	}
	return creds, nil
}

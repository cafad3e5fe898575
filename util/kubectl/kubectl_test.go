package kubectl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name       string
		kubeconfig string
		namespace  string
		args       []string
		want       []string
	}{
		{
			name: "no defaults",
			args: []string{"get", "pods"},
			want: []string{"get", "pods"},
		},
		{
			name:       "kubeconfig and namespace",
			kubeconfig: "/tmp/kubeconfig",
			namespace:  "mlflow",
			args:       []string{"port-forward", "svc/mlflow-server", "5000:5000"},
			want: []string{
				"--kubeconfig=/tmp/kubeconfig",
				"--namespace=mlflow",
				"port-forward", "svc/mlflow-server", "5000:5000",
			},
		},
		{
			name:      "namespace only",
			namespace: "monitoring",
			args:      []string{"logs", "prometheus-0"},
			want:      []string{"--namespace=monitoring", "logs", "prometheus-0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Args(tt.kubeconfig, tt.namespace, tt.args...))
		})
	}
}

func TestPortForwarderAddr(t *testing.T) {
	pf := &PortForwarder{Service: "minio", LocalPort: 9000, RemotePort: 9000}
	assert.Equal(t, "localhost:9000", pf.Addr())
	assert.Equal(t, "http://localhost:9000", pf.URL())
}

func TestPortForwarderStopWithoutStart(t *testing.T) {
	pf := &PortForwarder{Service: "minio"}
	assert.NotPanics(t, pf.Stop)
}

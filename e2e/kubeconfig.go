package e2e

import (
	"os"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// WriteInClusterKubeconfig generates a kubeconfig file based on the
// in-cluster configuration. The generated file can be used by kubectl or
// helm running inside the plugin pod.
func WriteInClusterKubeconfig(path string) error {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return err
	}

	kubeconfig := clientcmdapi.NewConfig()

	cluster := clientcmdapi.NewCluster()
	cluster.Server = cfg.Host
	cluster.CertificateAuthority = cfg.CAFile
	kubeconfig.Clusters["in-cluster"] = cluster

	auth := clientcmdapi.NewAuthInfo()
	auth.Token = string(cfg.BearerToken)
	kubeconfig.AuthInfos["sa-user"] = auth

	context := clientcmdapi.NewContext()
	context.Cluster = "in-cluster"
	context.AuthInfo = "sa-user"
	kubeconfig.Contexts["in-cluster"] = context
	kubeconfig.CurrentContext = "in-cluster"

	data, err := clientcmd.Write(*kubeconfig)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Package crd waits for custom resource definitions to become usable.
package crd

import (
	"context"
	"fmt"
	"time"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

const pollInterval = 2 * time.Second

// WaitForEstablished blocks until the named CRD has the Established and
// NamesAccepted conditions with status True, or the timeout expires.
func WaitForEstablished(ctx context.Context, client clientset.Interface, crdName string, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		crd, err := client.ApiextensionsV1().CustomResourceDefinitions().Get(ctx, crdName, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		return established(crd) && namesAccepted(crd), nil
	})
	if err != nil {
		return fmt.Errorf("CRD %s did not become established: %w", crdName, err)
	}
	return nil
}

func established(crd *apiextensionsv1.CustomResourceDefinition) bool {
	return hasCondition(crd, apiextensionsv1.Established)
}

func namesAccepted(crd *apiextensionsv1.CustomResourceDefinition) bool {
	return hasCondition(crd, apiextensionsv1.NamesAccepted)
}

func hasCondition(crd *apiextensionsv1.CustomResourceDefinition, conditionType apiextensionsv1.CustomResourceDefinitionConditionType) bool {
	for _, condition := range crd.Status.Conditions {
		if condition.Type == conditionType && condition.Status == apiextensionsv1.ConditionTrue {
			return true
		}
	}
	return false
}

// Package v1alpha1 contains the typed form of the kubeflow.org PodDefault
// custom resource. The suite only reads PodDefaults, so the types cover the
// fields the resource dispatcher is known to set.
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// GroupVersion is the group and version of the PodDefault resource.
var GroupVersion = schema.GroupVersion{Group: "kubeflow.org", Version: "v1alpha1"}

var (
	// SchemeBuilder collects functions that add the PodDefault types to a scheme.
	SchemeBuilder = runtime.NewSchemeBuilder(addKnownTypes)

	// AddToScheme adds the PodDefault types to a scheme.
	AddToScheme = SchemeBuilder.AddToScheme
)

func addKnownTypes(scheme *runtime.Scheme) error {
	scheme.AddKnownTypes(GroupVersion,
		&PodDefault{},
		&PodDefaultList{},
	)
	metav1.AddToGroupVersion(scheme, GroupVersion)
	return nil
}

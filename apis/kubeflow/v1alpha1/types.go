package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PodDefaultSpec describes the mutations a PodDefault injects into pods
// whose labels match its selector.
type PodDefaultSpec struct {
	Selector metav1.LabelSelector `json:"selector"`

	// Desc is a human readable description shown by dashboards that let
	// users pick configurations for their workloads.
	Desc string `json:"desc,omitempty"`

	Env          []corev1.EnvVar        `json:"env,omitempty"`
	EnvFrom      []corev1.EnvFromSource `json:"envFrom,omitempty"`
	Volumes      []corev1.Volume        `json:"volumes,omitempty"`
	VolumeMounts []corev1.VolumeMount   `json:"volumeMounts,omitempty"`

	Annotations map[string]string `json:"annotations,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`

	ServiceAccountName           string `json:"serviceAccountName,omitempty"`
	AutomountServiceAccountToken *bool  `json:"automountServiceAccountToken,omitempty"`
}

// PodDefault injects default configuration, such as object storage
// credentials, into pods created in the namespace it lives in.
type PodDefault struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec PodDefaultSpec `json:"spec,omitempty"`
}

// PodDefaultList contains a list of PodDefault.
type PodDefaultList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []PodDefault `json:"items"`
}

package sandbox

import (
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/devforge/devforge/internal/naming"
)

const (
	labelManagedBy = "managed-by"
	labelValue     = "devforge"
	labelSandbox   = "devforge/sandbox"
	labelProject   = "devforge/project"

	containerName      = "sandbox"
	workspaceMountPath = "/workspace"
)

// sandboxLabels is the stable selector label set; it must not vary once a
// workload exists.
func sandboxLabels(sandboxName string) map[string]string {
	return map[string]string{
		labelManagedBy: labelValue,
		labelSandbox:   sandboxName,
	}
}

// objectLabels is the label set stamped on created objects: the selector
// labels plus the owning project when known.
func objectLabels(opts CreateOptions) map[string]string {
	labels := sandboxLabels(opts.SandboxName)
	if opts.ProjectID != "" {
		labels[labelProject] = opts.ProjectID
	}
	return labels
}

// envList flattens the merged environment bag into a deterministic,
// name-sorted container env list.
func envList(env map[string]string) []corev1.EnvVar {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]corev1.EnvVar, 0, len(keys))
	for _, k := range keys {
		out = append(out, corev1.EnvVar{Name: k, Value: env[k]})
	}
	return out
}

// MergeEnv overlays maps left to right, later sources winning. Sources are
// the global defaults, the resolved database connection, and user-supplied
// project variables, in that precedence order.
func MergeEnv(sources ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, src := range sources {
		for k, v := range src {
			merged[k] = v
		}
	}
	return merged
}

func (m *Manager) buildStatefulSet(opts CreateOptions) *appsv1.StatefulSet {
	replicas := int32(1)
	labels := objectLabels(opts)

	pvc := corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: "workspace"},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(m.cfg.StorageSize),
				},
			},
		},
	}
	if m.cfg.StorageClassName != "" {
		pvc.Spec.StorageClassName = &m.cfg.StorageClassName
	}

	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      opts.SandboxName,
			Namespace: opts.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.StatefulSetSpec{
			Replicas:    &replicas,
			ServiceName: naming.ServiceName(opts.SandboxName),
			Selector:    &metav1.LabelSelector{MatchLabels: sandboxLabels(opts.SandboxName)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  containerName,
						Image: m.cfg.Image,
						Env:   envList(opts.Env),
						Ports: []corev1.ContainerPort{
							{Name: "app", ContainerPort: m.cfg.AppPort},
							{Name: "ttyd", ContainerPort: m.cfg.TTYDPort},
						},
						Resources: corev1.ResourceRequirements{
							Limits: corev1.ResourceList{
								corev1.ResourceMemory: resource.MustParse(m.cfg.MemoryLimit),
								corev1.ResourceCPU:    resource.MustParse(m.cfg.CPULimit),
							},
						},
						VolumeMounts: []corev1.VolumeMount{
							{Name: "workspace", MountPath: workspaceMountPath},
						},
					}},
				},
			},
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{pvc},
		},
	}
}

func (m *Manager) buildService(opts CreateOptions) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.ServiceName(opts.SandboxName),
			Namespace: opts.Namespace,
			Labels:    objectLabels(opts),
		},
		Spec: corev1.ServiceSpec{
			Selector: sandboxLabels(opts.SandboxName),
			Ports: []corev1.ServicePort{
				{Name: "app", Port: m.cfg.AppPort},
				{Name: "ttyd", Port: m.cfg.TTYDPort},
			},
		},
	}
}

func (m *Manager) buildIngress(opts CreateOptions, ingressName, host string, port int32) *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix
	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ingressName,
			Namespace: opts.Namespace,
			Labels:    objectLabels(opts),
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{{
				Host: host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: naming.ServiceName(opts.SandboxName),
									Port: networkingv1.ServiceBackendPort{Number: port},
								},
							},
						}},
					},
				},
			}},
		},
	}
	if m.cfg.IngressClassName != "" {
		ing.Spec.IngressClassName = &m.cfg.IngressClassName
	}
	return ing
}

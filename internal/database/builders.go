package database

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/devforge/devforge/internal/cluster"
)

const labelManagedBy = "managed-by"
const labelValue = "devforge"

func databaseLabels(clusterName string) map[string]string {
	return map[string]string{
		labelManagedBy:      labelValue,
		"devforge/database": clusterName,
	}
}

// ensureRBAC creates the service account, role, and role binding the
// managed-database operator requires for the cluster's pods.
func (p *Provisioner) ensureRBAC(ctx context.Context, namespace, clusterName string) error {
	saName := "kb-" + clusterName
	labels := databaseLabels(clusterName)

	sa := &corev1.ServiceAccount{
		ObjectMeta: metav1.ObjectMeta{Name: saName, Namespace: namespace, Labels: labels},
	}
	if err := p.cluster.EnsureServiceAccount(ctx, sa); err != nil {
		return err
	}

	role := &rbacv1.Role{
		ObjectMeta: metav1.ObjectMeta{Name: saName, Namespace: namespace, Labels: labels},
		Rules: []rbacv1.PolicyRule{{
			APIGroups: []string{""},
			Resources: []string{"events"},
			Verbs:     []string{"create"},
		}},
	}
	if err := p.cluster.EnsureRole(ctx, role); err != nil {
		return err
	}

	rb := &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: saName, Namespace: namespace, Labels: labels},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "Role",
			Name:     saName,
		},
		Subjects: []rbacv1.Subject{{
			Kind:      rbacv1.ServiceAccountKind,
			Name:      saName,
			Namespace: namespace,
		}},
	}
	return p.cluster.EnsureRoleBinding(ctx, rb)
}

// buildCluster constructs the database cluster custom resource.
func (p *Provisioner) buildCluster(namespace, clusterName string) *unstructured.Unstructured {
	obj := cluster.NewDatabaseCluster()
	obj.SetNamespace(namespace)
	obj.SetName(clusterName)
	obj.SetLabels(databaseLabels(clusterName))
	obj.Object["spec"] = map[string]interface{}{
		"clusterDefinitionRef": p.cfg.ClusterDefinition,
		"clusterVersionRef":    p.cfg.ComponentVersion,
		"terminationPolicy":    "WipeOut",
		"componentSpecs": []interface{}{
			map[string]interface{}{
				"name":               p.cfg.ClusterDefinition,
				"componentDefRef":    p.cfg.ClusterDefinition,
				"replicas":           int64(1),
				"serviceAccountName": "kb-" + clusterName,
				"volumeClaimTemplates": []interface{}{
					map[string]interface{}{
						"name": "data",
						"spec": map[string]interface{}{
							"accessModes": []interface{}{"ReadWriteOnce"},
							"resources": map[string]interface{}{
								"requests": map[string]interface{}{
									"storage": p.cfg.StorageSize,
								},
							},
						},
					},
				},
			},
		},
	}
	return obj
}

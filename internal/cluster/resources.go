package cluster

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

// GetStatefulSet returns the workload, or nil if it does not exist.
func (c *Client) GetStatefulSet(ctx context.Context, namespace, name string) (*appsv1.StatefulSet, error) {
	sts, err := c.clientset.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get statefulset %s/%s: %w", namespace, name, err)
	}
	return sts, nil
}

func (c *Client) CreateStatefulSet(ctx context.Context, sts *appsv1.StatefulSet) error {
	_, err := c.clientset.AppsV1().StatefulSets(sts.Namespace).Create(ctx, sts, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("create statefulset %s/%s: %w", sts.Namespace, sts.Name, err)
	}
	return nil
}

func (c *Client) UpdateStatefulSet(ctx context.Context, sts *appsv1.StatefulSet) error {
	_, err := c.clientset.AppsV1().StatefulSets(sts.Namespace).Update(ctx, sts, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("update statefulset %s/%s: %w", sts.Namespace, sts.Name, err)
	}
	return nil
}

// PatchStatefulSetReplicas sets the declared replica count. Last writer wins;
// the field carries no compare-and-swap semantics at this level.
func (c *Client) PatchStatefulSetReplicas(ctx context.Context, namespace, name string, replicas int32) error {
	patch := []byte(fmt.Sprintf(`{"spec":{"replicas":%d}}`, replicas))
	_, err := c.clientset.AppsV1().StatefulSets(namespace).Patch(ctx, name, types.StrategicMergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return fmt.Errorf("patch statefulset %s/%s replicas: %w", namespace, name, err)
	}
	return nil
}

// DeleteStatefulSet removes the workload. Returns false when it was already
// absent, which callers treat as success.
func (c *Client) DeleteStatefulSet(ctx context.Context, namespace, name string) (bool, error) {
	err := c.clientset.AppsV1().StatefulSets(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if errors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete statefulset %s/%s: %w", namespace, name, err)
	}
	return true, nil
}

// EnsureNamespace creates the namespace if it does not exist. Idempotent.
func (c *Client) EnsureNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{"managed-by": "devforge"},
		},
	}
	_, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil && !errors.IsAlreadyExists(err) {
		return fmt.Errorf("create namespace %s: %w", name, err)
	}
	return nil
}

// GetService returns the service, or nil if it does not exist.
func (c *Client) GetService(ctx context.Context, namespace, name string) (*corev1.Service, error) {
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get service %s/%s: %w", namespace, name, err)
	}
	return svc, nil
}

func (c *Client) CreateService(ctx context.Context, svc *corev1.Service) error {
	_, err := c.clientset.CoreV1().Services(svc.Namespace).Create(ctx, svc, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("create service %s/%s: %w", svc.Namespace, svc.Name, err)
	}
	return nil
}

func (c *Client) DeleteService(ctx context.Context, namespace, name string) (bool, error) {
	err := c.clientset.CoreV1().Services(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if errors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete service %s/%s: %w", namespace, name, err)
	}
	return true, nil
}

// GetIngress returns the ingress, or nil if it does not exist.
func (c *Client) GetIngress(ctx context.Context, namespace, name string) (*networkingv1.Ingress, error) {
	ing, err := c.clientset.NetworkingV1().Ingresses(namespace).Get(ctx, name, metav1.GetOptions{})
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingress %s/%s: %w", namespace, name, err)
	}
	return ing, nil
}

func (c *Client) CreateIngress(ctx context.Context, ing *networkingv1.Ingress) error {
	_, err := c.clientset.NetworkingV1().Ingresses(ing.Namespace).Create(ctx, ing, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("create ingress %s/%s: %w", ing.Namespace, ing.Name, err)
	}
	return nil
}

func (c *Client) DeleteIngress(ctx context.Context, namespace, name string) (bool, error) {
	err := c.clientset.NetworkingV1().Ingresses(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if errors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete ingress %s/%s: %w", namespace, name, err)
	}
	return true, nil
}

// GetSecret returns the secret, or nil if it does not exist. Data fields are
// already base64-decoded by the client.
func (c *Client) GetSecret(ctx context.Context, namespace, name string) (*corev1.Secret, error) {
	sec, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get secret %s/%s: %w", namespace, name, err)
	}
	return sec, nil
}

// EnsureServiceAccount creates the service account if absent.
func (c *Client) EnsureServiceAccount(ctx context.Context, sa *corev1.ServiceAccount) error {
	_, err := c.clientset.CoreV1().ServiceAccounts(sa.Namespace).Create(ctx, sa, metav1.CreateOptions{})
	if err != nil && !errors.IsAlreadyExists(err) {
		return fmt.Errorf("create serviceaccount %s/%s: %w", sa.Namespace, sa.Name, err)
	}
	return nil
}

// EnsureRole creates the role if absent.
func (c *Client) EnsureRole(ctx context.Context, role *rbacv1.Role) error {
	_, err := c.clientset.RbacV1().Roles(role.Namespace).Create(ctx, role, metav1.CreateOptions{})
	if err != nil && !errors.IsAlreadyExists(err) {
		return fmt.Errorf("create role %s/%s: %w", role.Namespace, role.Name, err)
	}
	return nil
}

// EnsureRoleBinding creates the role binding if absent.
func (c *Client) EnsureRoleBinding(ctx context.Context, rb *rbacv1.RoleBinding) error {
	_, err := c.clientset.RbacV1().RoleBindings(rb.Namespace).Create(ctx, rb, metav1.CreateOptions{})
	if err != nil && !errors.IsAlreadyExists(err) {
		return fmt.Errorf("create rolebinding %s/%s: %w", rb.Namespace, rb.Name, err)
	}
	return nil
}

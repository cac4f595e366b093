package cluster

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// The managed database operator exposes one custom resource kind per
// database instance. It is addressed as unstructured objects with an
// explicit GVK; no generated API package is required.
var (
	databaseClusterGVK = schema.GroupVersionKind{
		Group:   "apps.kubeblocks.io",
		Version: "v1alpha1",
		Kind:    "Cluster",
	}
	databaseClusterListGVK = schema.GroupVersionKind{
		Group:   "apps.kubeblocks.io",
		Version: "v1alpha1",
		Kind:    "ClusterList",
	}
)

// NewDatabaseCluster returns an empty DatabaseCluster object with its GVK
// set, ready for callers to fill in metadata and spec.
func NewDatabaseCluster() *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(databaseClusterGVK)
	return obj
}

// GetDatabaseCluster returns the cluster resource, or nil if it does not exist.
func (c *Client) GetDatabaseCluster(ctx context.Context, namespace, name string) (*unstructured.Unstructured, error) {
	obj := NewDatabaseCluster()
	key := ctrlclient.ObjectKey{Namespace: namespace, Name: name}
	err := c.runtime.Get(ctx, key, obj)
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get database cluster %s/%s: %w", namespace, name, err)
	}
	return obj, nil
}

func (c *Client) CreateDatabaseCluster(ctx context.Context, obj *unstructured.Unstructured) error {
	if err := c.runtime.Create(ctx, obj); err != nil {
		return fmt.Errorf("create database cluster %s/%s: %w", obj.GetNamespace(), obj.GetName(), err)
	}
	return nil
}

// DeleteDatabaseCluster removes the cluster resource. Returns false when it
// was already absent.
func (c *Client) DeleteDatabaseCluster(ctx context.Context, namespace, name string) (bool, error) {
	obj := NewDatabaseCluster()
	obj.SetNamespace(namespace)
	obj.SetName(name)
	err := c.runtime.Delete(ctx, obj)
	if errors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete database cluster %s/%s: %w", namespace, name, err)
	}
	return true, nil
}

// ListDatabaseClusters returns all cluster resources in the namespace.
func (c *Client) ListDatabaseClusters(ctx context.Context, namespace string) ([]unstructured.Unstructured, error) {
	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(databaseClusterListGVK)
	if err := c.runtime.List(ctx, list, ctrlclient.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("list database clusters in %s: %w", namespace, err)
	}
	return list.Items, nil
}

// DatabaseClusterPhase extracts the reported lifecycle phase from a cluster
// resource's status, or "" when none is reported yet.
func DatabaseClusterPhase(obj *unstructured.Unstructured) string {
	phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
	return phase
}

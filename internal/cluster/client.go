// Package cluster wraps the Kubernetes API behind narrow, typed operations.
// Reads normalize "not found" to a nil object so callers can branch without
// inspecting API errors; every mutation reflects live cluster state, never a
// local cache.
package cluster

import (
	"fmt"
	"net/url"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// Config controls how cluster credentials are located.
type Config struct {
	// KubeconfigPath points at an explicit credential blob. When empty the
	// client falls back to in-cluster config, then $KUBECONFIG, then
	// ~/.kube/config.
	KubeconfigPath string
}

// Client is an authenticated connection to the orchestration cluster.
type Client struct {
	restCfg   *rest.Config
	clientset kubernetes.Interface
	runtime   ctrlclient.Client
}

// New authenticates against the cluster. Missing or invalid credentials are
// fatal here and not retried; transient API errors surface later, per call.
func New(cfg Config) (*Client, error) {
	restCfg, err := buildRESTConfig(cfg.KubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("cluster config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("kubernetes clientset: %w", err)
	}

	rc, err := ctrlclient.New(restCfg, ctrlclient.Options{Scheme: Scheme()})
	if err != nil {
		return nil, fmt.Errorf("controller-runtime client: %w", err)
	}

	return &Client{restCfg: restCfg, clientset: clientset, runtime: rc}, nil
}

// NewFromClients builds a Client over pre-constructed API clients. Used by
// tests with fakes.
func NewFromClients(clientset kubernetes.Interface, rc ctrlclient.Client) *Client {
	return &Client{clientset: clientset, runtime: rc}
}

// Scheme returns the runtime scheme used for the controller-runtime client:
// the built-in types plus the DatabaseCluster custom resource registered as
// unstructured.
func Scheme() *runtime.Scheme {
	s := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(s))
	s.AddKnownTypeWithName(databaseClusterGVK, &unstructured.Unstructured{})
	s.AddKnownTypeWithName(databaseClusterListGVK, &unstructured.UnstructuredList{})
	metav1.AddToGroupVersion(s, databaseClusterGVK.GroupVersion())
	return s
}

// IngressDomain derives the default ingress domain from the API server host.
func (c *Client) IngressDomain() (string, error) {
	if c.restCfg == nil {
		return "", fmt.Errorf("no rest config available")
	}
	u, err := url.Parse(c.restCfg.Host)
	if err != nil {
		return "", fmt.Errorf("parse API server host: %w", err)
	}
	return u.Hostname(), nil
}

func buildRESTConfig(kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	}
	cfg, err := rest.InClusterConfig()
	if err == nil {
		return cfg, nil
	}
	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		kubeconfig = os.Getenv("HOME") + "/.kube/config"
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

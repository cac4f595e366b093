// Package sandbox realizes "sandbox exists and is running/stopped/deleted"
// as idempotent operations against the cluster, and derives the logical
// status of a sandbox from live workload state.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/devforge/devforge/internal/cluster"
	"github.com/devforge/devforge/internal/naming"
)

// ErrNotFound is returned by operations that require the sandbox workload to
// already exist.
var ErrNotFound = errors.New("sandbox workload not found")

// Manager is the sandbox orchestration core.
type Manager struct {
	cluster *cluster.Client
	cfg     Config
}

// NewManager creates a sandbox Manager over an authenticated cluster client.
func NewManager(c *cluster.Client, cfg Config) *Manager {
	return &Manager{cluster: c, cfg: cfg}
}

// CreateOptions are the inputs to CreateSandbox.
type CreateOptions struct {
	ProjectID     string // owning project, recorded as a resource label
	Namespace     string
	SandboxName   string
	IngressDomain string
	Env           map[string]string // fully merged environment bag
}

// Info describes the externally visible endpoints of a created sandbox.
type Info struct {
	ServiceName string `json:"serviceName"`
	PublicURL   string `json:"publicUrl"`
	TTYDURL     string `json:"ttydUrl"`
}

// CreateSandbox provisions the four resources backing a sandbox: the
// workload, its service, and one ingress per exposed port, in that order so
// the service is routable by the time ingress exists. Each resource is
// checked and created independently, so a retry after a partially failed
// attempt converges to the same end state.
func (m *Manager) CreateSandbox(ctx context.Context, opts CreateOptions) (*Info, error) {
	ns, name := opts.Namespace, opts.SandboxName

	existing, err := m.cluster.GetStatefulSet(ctx, ns, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Printf("sandbox %s/%s: workload already exists, skipping create", ns, name)
	} else {
		if err := m.cluster.CreateStatefulSet(ctx, m.buildStatefulSet(opts)); err != nil {
			return nil, err
		}
		log.Printf("sandbox %s/%s: created workload", ns, name)
	}

	svc, err := m.cluster.GetService(ctx, ns, naming.ServiceName(name))
	if err != nil {
		return nil, err
	}
	if svc != nil {
		log.Printf("sandbox %s/%s: service already exists, skipping create", ns, name)
	} else {
		if err := m.cluster.CreateService(ctx, m.buildService(opts)); err != nil {
			return nil, err
		}
	}

	ingresses := []struct {
		ingressName string
		host        string
		port        int32
	}{
		{naming.AppIngressName(name), naming.AppHost(name, opts.IngressDomain), m.cfg.AppPort},
		{naming.TTYDIngressName(name), naming.TTYDHost(name, opts.IngressDomain), m.cfg.TTYDPort},
	}
	for _, in := range ingresses {
		existing, err := m.cluster.GetIngress(ctx, ns, in.ingressName)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			log.Printf("sandbox %s/%s: ingress %s already exists, skipping create", ns, name, in.ingressName)
			continue
		}
		if err := m.cluster.CreateIngress(ctx, m.buildIngress(opts, in.ingressName, in.host, in.port)); err != nil {
			return nil, err
		}
	}

	return &Info{
		ServiceName: naming.ServiceName(name),
		PublicURL:   naming.AppURL(name, opts.IngressDomain),
		TTYDURL:     naming.TTYDURL(name, opts.IngressDomain),
	}, nil
}

// DeleteSandbox removes all four resources in parallel. A resource that is
// already absent counts as deleted; deletion is the most retried operation
// and must never fail because a previous attempt partially succeeded.
func (m *Manager) DeleteSandbox(ctx context.Context, namespace, sandboxName string) error {
	type deletion struct {
		kind string
		fn   func(context.Context, string, string) (bool, error)
		name string
	}
	deletions := []deletion{
		{"workload", m.cluster.DeleteStatefulSet, sandboxName},
		{"service", m.cluster.DeleteService, naming.ServiceName(sandboxName)},
		{"ingress", m.cluster.DeleteIngress, naming.AppIngressName(sandboxName)},
		{"ingress", m.cluster.DeleteIngress, naming.TTYDIngressName(sandboxName)},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, d := range deletions {
		d := d
		g.Go(func() error {
			deleted, err := d.fn(ctx, namespace, d.name)
			if err != nil {
				return err
			}
			if !deleted {
				log.Printf("Warning: sandbox %s/%s: %s %s already absent", namespace, sandboxName, d.kind, d.name)
			}
			return nil
		})
	}
	return g.Wait()
}

// StartSandbox sets the declared replica count to 1. A no-op when the
// sandbox is already started or the workload is absent.
func (m *Manager) StartSandbox(ctx context.Context, namespace, sandboxName string) error {
	return m.scale(ctx, namespace, sandboxName, 1)
}

// StopSandbox sets the declared replica count to 0. A no-op when the sandbox
// is already stopped or the workload is absent.
func (m *Manager) StopSandbox(ctx context.Context, namespace, sandboxName string) error {
	return m.scale(ctx, namespace, sandboxName, 0)
}

func (m *Manager) scale(ctx context.Context, namespace, sandboxName string, replicas int32) error {
	sts, err := m.cluster.GetStatefulSet(ctx, namespace, sandboxName)
	if err != nil {
		return err
	}
	if sts == nil {
		log.Printf("Warning: sandbox %s/%s: workload absent, nothing to scale", namespace, sandboxName)
		return nil
	}
	if sts.Spec.Replicas != nil && *sts.Spec.Replicas == replicas {
		return nil
	}
	return m.cluster.PatchStatefulSetReplicas(ctx, namespace, sandboxName, replicas)
}

// GetStatus derives the sandbox status from the live workload. Read failures
// other than absence surface as StatusError alongside the error.
func (m *Manager) GetStatus(ctx context.Context, namespace, sandboxName string) (Status, error) {
	sts, err := m.cluster.GetStatefulSet(ctx, namespace, sandboxName)
	if err != nil {
		return StatusError, err
	}
	return StatusFor(sts), nil
}

// GetReplicaStatus returns the raw workload counts behind GetStatus.
func (m *Manager) GetReplicaStatus(ctx context.Context, namespace, sandboxName string) (*ReplicaStatus, error) {
	sts, err := m.cluster.GetStatefulSet(ctx, namespace, sandboxName)
	if err != nil {
		return nil, err
	}
	if sts == nil {
		return nil, fmt.Errorf("%s/%s: %w", namespace, sandboxName, ErrNotFound)
	}
	rs := ReplicasFor(sts)
	return &rs, nil
}

// UpdateEnvVars replaces the container environment on the existing workload.
// Strictly update-only: a missing workload is an error, never an implicit
// create. Concurrent updates race with last-writer-wins semantics.
func (m *Manager) UpdateEnvVars(ctx context.Context, namespace, sandboxName string, env map[string]string) error {
	sts, err := m.cluster.GetStatefulSet(ctx, namespace, sandboxName)
	if err != nil {
		return err
	}
	if sts == nil {
		return fmt.Errorf("update env vars for %s/%s: %w", namespace, sandboxName, ErrNotFound)
	}
	for i := range sts.Spec.Template.Spec.Containers {
		if sts.Spec.Template.Spec.Containers[i].Name == containerName {
			sts.Spec.Template.Spec.Containers[i].Env = envList(env)
		}
	}
	return m.cluster.UpdateStatefulSet(ctx, sts)
}

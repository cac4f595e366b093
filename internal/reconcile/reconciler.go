// Package reconcile keeps the system-of-record's project status column in
// sync with live cluster state. The cluster read is the only status
// authority; this loop just copies its answer into the store so UI reads
// stay cheap.
package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/devforge/devforge/internal/sandbox"
	"github.com/devforge/devforge/internal/store"
)

// ProjectLister is the slice of the store the reconciler reads and writes.
type ProjectLister interface {
	ListActiveProjects() ([]*store.Project, error)
	UpdateProjectStatus(id, status string) error
}

// StatusReader derives sandbox status from the cluster.
type StatusReader interface {
	GetStatus(ctx context.Context, namespace, sandboxName string) (sandbox.Status, error)
}

// Reconciler polls sandbox status for every tracked project and writes
// changes back to the store.
type Reconciler struct {
	projects ProjectLister
	status   StatusReader
	interval time.Duration
	stop     chan struct{}
}

// New creates a Reconciler. interval <= 0 defaults to 15 seconds.
func New(projects ProjectLister, status StatusReader, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Reconciler{
		projects: projects,
		status:   status,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the reconcile loop. Call Stop() to terminate.
func (r *Reconciler) Start() {
	go r.loop()
}

// Stop terminates the reconciler.
func (r *Reconciler) Stop() {
	close(r.stop)
}

func (r *Reconciler) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Check(context.Background())
		}
	}
}

// Check runs one reconcile pass.
func (r *Reconciler) Check(ctx context.Context) {
	projects, err := r.projects.ListActiveProjects()
	if err != nil {
		log.Printf("reconciler: failed to list projects: %v", err)
		return
	}

	for _, p := range projects {
		if !p.SandboxName.Valid {
			continue
		}
		status, err := r.status.GetStatus(ctx, p.Namespace, p.SandboxName.String)
		if err != nil {
			log.Printf("reconciler: status read for project %s: %v", p.ID, err)
		}
		if p.Status == store.StatusCreating && status == sandbox.StatusTerminated {
			// Provisioning has not created the workload yet; absence here
			// means "not yet", not "deleted".
			continue
		}
		if string(status) == p.Status {
			continue
		}
		if err := r.projects.UpdateProjectStatus(p.ID, string(status)); err != nil {
			log.Printf("reconciler: failed to update status for project %s: %v", p.ID, err)
			continue
		}
		log.Printf("reconciler: project %s status %s -> %s", p.ID, p.Status, status)
	}
}

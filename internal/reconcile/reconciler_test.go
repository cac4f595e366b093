package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/devforge/devforge/internal/sandbox"
	"github.com/devforge/devforge/internal/store"
)

type fakeProjects struct {
	projects []*store.Project
	updates  map[string]string
	listErr  error
}

func (f *fakeProjects) ListActiveProjects() ([]*store.Project, error) {
	return f.projects, f.listErr
}

func (f *fakeProjects) UpdateProjectStatus(id, status string) error {
	if f.updates == nil {
		f.updates = map[string]string{}
	}
	f.updates[id] = status
	return nil
}

type fakeStatus struct {
	statuses map[string]sandbox.Status
	errs     map[string]error
}

func (f *fakeStatus) GetStatus(_ context.Context, _, sandboxName string) (sandbox.Status, error) {
	if err := f.errs[sandboxName]; err != nil {
		return sandbox.StatusError, err
	}
	return f.statuses[sandboxName], nil
}

func project(id, sandboxName, status string) *store.Project {
	return &store.Project{
		ID:          id,
		Namespace:   "projects",
		SandboxName: sql.NullString{String: sandboxName, Valid: sandboxName != ""},
		Status:      status,
	}
}

func TestCheckWritesChangedStatus(t *testing.T) {
	projects := &fakeProjects{projects: []*store.Project{
		project("p1", "myapp-x7k2m9", "STARTING"),
		project("p2", "other-aaaaaa", "RUNNING"),
	}}
	status := &fakeStatus{statuses: map[string]sandbox.Status{
		"myapp-x7k2m9": sandbox.StatusRunning,
		"other-aaaaaa": sandbox.StatusRunning,
	}}

	New(projects, status, 0).Check(context.Background())

	if got := projects.updates["p1"]; got != "RUNNING" {
		t.Errorf("p1 status update = %q, want RUNNING", got)
	}
	if _, ok := projects.updates["p2"]; ok {
		t.Error("p2 was updated despite unchanged status")
	}
}

func TestCheckSkipsUnprovisionedProjects(t *testing.T) {
	projects := &fakeProjects{projects: []*store.Project{
		project("p1", "", store.StatusCreating),
	}}
	status := &fakeStatus{}

	New(projects, status, 0).Check(context.Background())

	if len(projects.updates) != 0 {
		t.Errorf("updates = %v, want none for unprovisioned project", projects.updates)
	}
}

// A project mid-provisioning has a sandbox name recorded but no workload in
// the cluster yet. The reconciler must not turn that absence into
// TERMINATED while the row still says CREATING.
func TestCheckKeepsCreatingWhileWorkloadAbsent(t *testing.T) {
	projects := &fakeProjects{projects: []*store.Project{
		project("p1", "myapp-x7k2m9", store.StatusCreating),
	}}
	status := &fakeStatus{statuses: map[string]sandbox.Status{
		"myapp-x7k2m9": sandbox.StatusTerminated,
	}}

	New(projects, status, 0).Check(context.Background())

	if got, ok := projects.updates["p1"]; ok {
		t.Errorf("status update = %q, want CREATING left untouched", got)
	}
}

// Once the workload appears, the reconciler takes over from CREATING as
// usual.
func TestCheckAdvancesCreatingWhenWorkloadAppears(t *testing.T) {
	projects := &fakeProjects{projects: []*store.Project{
		project("p1", "myapp-x7k2m9", store.StatusCreating),
	}}
	status := &fakeStatus{statuses: map[string]sandbox.Status{
		"myapp-x7k2m9": sandbox.StatusStarting,
	}}

	New(projects, status, 0).Check(context.Background())

	if got := projects.updates["p1"]; got != "STARTING" {
		t.Errorf("status update = %q, want STARTING", got)
	}
}

func TestCheckRecordsErrorStatus(t *testing.T) {
	projects := &fakeProjects{projects: []*store.Project{
		project("p1", "myapp-x7k2m9", "RUNNING"),
	}}
	status := &fakeStatus{errs: map[string]error{
		"myapp-x7k2m9": errors.New("api server unreachable"),
	}}

	New(projects, status, 0).Check(context.Background())

	if got := projects.updates["p1"]; got != "ERROR" {
		t.Errorf("p1 status update = %q, want ERROR", got)
	}
}

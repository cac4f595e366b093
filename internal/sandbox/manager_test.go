package sandbox

import (
	"context"
	"errors"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/devforge/devforge/internal/cluster"
)

func testConfig() Config {
	return Config{
		Image:            "devforge/sandbox:1.4.2",
		MemoryLimit:      "2Gi",
		CPULimit:         "2",
		StorageSize:      "5Gi",
		IngressClassName: "nginx",
		AppPort:          3000,
		TTYDPort:         7681,
	}
}

func newTestManager(t *testing.T) (*Manager, *fake.Clientset) {
	t.Helper()
	clientset := fake.NewSimpleClientset()
	return NewManager(cluster.NewFromClients(clientset, nil), testConfig()), clientset
}

func createOpts() CreateOptions {
	return CreateOptions{
		Namespace:     "sandboxes",
		SandboxName:   "myapp-x7k2m9",
		IngressDomain: "usw.example.io",
		Env:           map[string]string{"NODE_ENV": "development"},
	}
}

func countVerb(actions []k8stesting.Action, verb, resource string) int {
	n := 0
	for _, a := range actions {
		if a.GetVerb() == verb && a.GetResource().Resource == resource {
			n++
		}
	}
	return n
}

func TestCreateSandboxURLs(t *testing.T) {
	mgr, _ := newTestManager(t)
	info, err := mgr.CreateSandbox(context.Background(), createOpts())
	if err != nil {
		t.Fatalf("CreateSandbox: %v", err)
	}
	if info.PublicURL != "https://myapp-x7k2m9-app.usw.example.io" {
		t.Errorf("PublicURL = %q", info.PublicURL)
	}
	if info.TTYDURL != "https://myapp-x7k2m9-ttyd.usw.example.io" {
		t.Errorf("TTYDURL = %q", info.TTYDURL)
	}
	if info.ServiceName != "myapp-x7k2m9-service" {
		t.Errorf("ServiceName = %q", info.ServiceName)
	}
}

func TestCreateSandboxIdempotent(t *testing.T) {
	mgr, clientset := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := mgr.CreateSandbox(ctx, createOpts()); err != nil {
			t.Fatalf("CreateSandbox call %d: %v", i+1, err)
		}
	}

	stsList, _ := clientset.AppsV1().StatefulSets("sandboxes").List(ctx, metav1.ListOptions{})
	if len(stsList.Items) != 1 {
		t.Errorf("statefulsets = %d, want 1", len(stsList.Items))
	}
	svcList, _ := clientset.CoreV1().Services("sandboxes").List(ctx, metav1.ListOptions{})
	if len(svcList.Items) != 1 {
		t.Errorf("services = %d, want 1", len(svcList.Items))
	}
	ingList, _ := clientset.NetworkingV1().Ingresses("sandboxes").List(ctx, metav1.ListOptions{})
	if len(ingList.Items) != 2 {
		t.Errorf("ingresses = %d, want 2", len(ingList.Items))
	}

	actions := clientset.Actions()
	if got := countVerb(actions, "create", "statefulsets"); got != 1 {
		t.Errorf("statefulset creates = %d, want 1", got)
	}
	if got := countVerb(actions, "create", "ingresses"); got != 2 {
		t.Errorf("ingress creates = %d, want 2", got)
	}
}

func TestCreateSandboxRecoversPartialProvisioning(t *testing.T) {
	mgr, clientset := newTestManager(t)
	ctx := context.Background()

	// Simulate a prior crashed attempt that only got the workload created.
	sts := mgr.buildStatefulSet(createOpts())
	if _, err := clientset.AppsV1().StatefulSets("sandboxes").Create(ctx, sts, metav1.CreateOptions{}); err != nil {
		t.Fatal(err)
	}

	if _, err := mgr.CreateSandbox(ctx, createOpts()); err != nil {
		t.Fatalf("CreateSandbox: %v", err)
	}
	svcList, _ := clientset.CoreV1().Services("sandboxes").List(ctx, metav1.ListOptions{})
	if len(svcList.Items) != 1 {
		t.Errorf("services = %d, want 1", len(svcList.Items))
	}
	ingList, _ := clientset.NetworkingV1().Ingresses("sandboxes").List(ctx, metav1.ListOptions{})
	if len(ingList.Items) != 2 {
		t.Errorf("ingresses = %d, want 2", len(ingList.Items))
	}
}

func TestDeleteSandboxIdempotent(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.CreateSandbox(ctx, createOpts()); err != nil {
		t.Fatal(err)
	}
	if err := mgr.DeleteSandbox(ctx, "sandboxes", "myapp-x7k2m9"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	// Second delete against an empty namespace must succeed.
	if err := mgr.DeleteSandbox(ctx, "sandboxes", "myapp-x7k2m9"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	// As must deleting a sandbox that never existed.
	if err := mgr.DeleteSandbox(ctx, "sandboxes", "never-existed"); err != nil {
		t.Fatalf("delete of nonexistent sandbox: %v", err)
	}
}

func TestStartSandboxAlreadyRunning(t *testing.T) {
	mgr, clientset := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.CreateSandbox(ctx, createOpts()); err != nil {
		t.Fatal(err)
	}
	clientset.ClearActions()

	if err := mgr.StartSandbox(ctx, "sandboxes", "myapp-x7k2m9"); err != nil {
		t.Fatalf("StartSandbox: %v", err)
	}
	if got := countVerb(clientset.Actions(), "patch", "statefulsets"); got != 0 {
		t.Errorf("patches on already-started sandbox = %d, want 0", got)
	}

	sts, err := clientset.AppsV1().StatefulSets("sandboxes").Get(ctx, "myapp-x7k2m9", metav1.GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if *sts.Spec.Replicas != 1 {
		t.Errorf("declared replicas = %d, want 1", *sts.Spec.Replicas)
	}
}

func TestStopThenStartPatchesReplicas(t *testing.T) {
	mgr, clientset := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.CreateSandbox(ctx, createOpts()); err != nil {
		t.Fatal(err)
	}
	if err := mgr.StopSandbox(ctx, "sandboxes", "myapp-x7k2m9"); err != nil {
		t.Fatalf("StopSandbox: %v", err)
	}
	sts, _ := clientset.AppsV1().StatefulSets("sandboxes").Get(ctx, "myapp-x7k2m9", metav1.GetOptions{})
	if *sts.Spec.Replicas != 0 {
		t.Fatalf("after stop: declared replicas = %d, want 0", *sts.Spec.Replicas)
	}

	// Repeat stop is a no-op.
	clientset.ClearActions()
	if err := mgr.StopSandbox(ctx, "sandboxes", "myapp-x7k2m9"); err != nil {
		t.Fatalf("repeat StopSandbox: %v", err)
	}
	if got := countVerb(clientset.Actions(), "patch", "statefulsets"); got != 0 {
		t.Errorf("patches on already-stopped sandbox = %d, want 0", got)
	}

	if err := mgr.StartSandbox(ctx, "sandboxes", "myapp-x7k2m9"); err != nil {
		t.Fatalf("StartSandbox: %v", err)
	}
	sts, _ = clientset.AppsV1().StatefulSets("sandboxes").Get(ctx, "myapp-x7k2m9", metav1.GetOptions{})
	if *sts.Spec.Replicas != 1 {
		t.Errorf("after start: declared replicas = %d, want 1", *sts.Spec.Replicas)
	}
}

func TestScaleAbsentWorkloadIsNoop(t *testing.T) {
	mgr, clientset := newTestManager(t)
	ctx := context.Background()

	if err := mgr.StopSandbox(ctx, "sandboxes", "ghost"); err != nil {
		t.Errorf("StopSandbox on absent workload: %v", err)
	}
	if err := mgr.StartSandbox(ctx, "sandboxes", "ghost"); err != nil {
		t.Errorf("StartSandbox on absent workload: %v", err)
	}
	if got := countVerb(clientset.Actions(), "patch", "statefulsets"); got != 0 {
		t.Errorf("patches on absent workload = %d, want 0", got)
	}
}

func TestGetStatusAbsentIsTerminated(t *testing.T) {
	mgr, _ := newTestManager(t)
	status, err := mgr.GetStatus(context.Background(), "sandboxes", "ghost")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != StatusTerminated {
		t.Errorf("status = %v, want TERMINATED", status)
	}
}

func TestUpdateEnvVarsRequiresWorkload(t *testing.T) {
	mgr, _ := newTestManager(t)
	err := mgr.UpdateEnvVars(context.Background(), "sandboxes", "ghost", map[string]string{"A": "1"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateEnvVars on absent workload = %v, want ErrNotFound", err)
	}
}

func TestUpdateEnvVarsReplacesEnv(t *testing.T) {
	mgr, clientset := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.CreateSandbox(ctx, createOpts()); err != nil {
		t.Fatal(err)
	}
	env := MergeEnv(
		map[string]string{"NODE_ENV": "development"},
		map[string]string{"DATABASE_URL": "postgresql://u:p@h:5432/d?schema=public"},
		map[string]string{"NODE_ENV": "production"},
	)
	if err := mgr.UpdateEnvVars(ctx, "sandboxes", "myapp-x7k2m9", env); err != nil {
		t.Fatalf("UpdateEnvVars: %v", err)
	}

	sts, _ := clientset.AppsV1().StatefulSets("sandboxes").Get(ctx, "myapp-x7k2m9", metav1.GetOptions{})
	got := map[string]string{}
	for _, e := range sts.Spec.Template.Spec.Containers[0].Env {
		got[e.Name] = e.Value
	}
	if got["NODE_ENV"] != "production" {
		t.Errorf("NODE_ENV = %q, want project override to win", got["NODE_ENV"])
	}
	if got["DATABASE_URL"] == "" {
		t.Error("DATABASE_URL missing from replaced env")
	}
}

func TestConfigValidateRejectsFloatingTags(t *testing.T) {
	tests := []struct {
		image   string
		wantErr bool
	}{
		{"devforge/sandbox:1.4.2", false},
		{"registry.example.io:5000/sandbox:1.4.2", false},
		{"devforge/sandbox:latest", true},
		{"devforge/sandbox", true},
		{"", true},
	}
	for _, tt := range tests {
		cfg := testConfig()
		cfg.Image = tt.image
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(image=%q) err = %v, wantErr %v", tt.image, err, tt.wantErr)
		}
	}
}

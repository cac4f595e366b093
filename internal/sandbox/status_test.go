package sandbox

import (
	"testing"

	appsv1 "k8s.io/api/apps/v1"
)

func sts(desired, current, ready int32) *appsv1.StatefulSet {
	s := &appsv1.StatefulSet{}
	s.Spec.Replicas = &desired
	s.Status.Replicas = current
	s.Status.ReadyReplicas = ready
	return s
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		sts  *appsv1.StatefulSet
		want Status
	}{
		{"absent", nil, StatusTerminated},
		{"scaled down, drained", sts(0, 0, 0), StatusStopped},
		{"scaled down, pod lingering", sts(0, 1, 0), StatusStopping},
		{"scaled down, pod lingering unready", sts(0, 1, 1), StatusStopping},
		{"scaled up, ready", sts(1, 1, 1), StatusRunning},
		{"scaled up, not yet ready", sts(1, 1, 0), StatusStarting},
		{"scaled up, no pod yet", sts(1, 0, 0), StatusStarting},
		{"nil declared replicas defaults to one", &appsv1.StatefulSet{}, StatusStarting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.sts); got != tt.want {
				t.Errorf("StatusFor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusForIsPure(t *testing.T) {
	s := sts(1, 1, 1)
	for i := 0; i < 3; i++ {
		if got := StatusFor(s); got != StatusRunning {
			t.Fatalf("call %d: StatusFor = %v, want RUNNING", i, got)
		}
	}
}

func TestReplicasFor(t *testing.T) {
	s := sts(1, 1, 0)
	s.Status.UpdatedReplicas = 1
	got := ReplicasFor(s)
	want := ReplicaStatus{Desired: 1, Current: 1, Ready: 0, Updated: 1}
	if got != want {
		t.Errorf("ReplicasFor = %+v, want %+v", got, want)
	}
	if got := ReplicasFor(nil); got != (ReplicaStatus{}) {
		t.Errorf("ReplicasFor(nil) = %+v, want zero value", got)
	}
}

package sandbox

import appsv1 "k8s.io/api/apps/v1"

// Status is the logical lifecycle state of a sandbox, derived purely from
// the compute workload's declared vs. observed replica counts at query time.
// Nothing here is stored; the cluster read is the only authority.
type Status string

const (
	StatusStarting Status = "STARTING"
	StatusRunning  Status = "RUNNING"
	StatusStopping Status = "STOPPING"
	StatusStopped  Status = "STOPPED"
	// StatusTerminated means the workload does not exist. From this layer's
	// read-only perspective "deleted" and "never created" are
	// indistinguishable; the system-of-record knows whether creation was
	// ever attempted and owns that distinction (its CREATING state).
	StatusTerminated Status = "TERMINATED"
	StatusError      Status = "ERROR"
)

// ReplicaStatus carries the raw workload counts behind a derived Status.
type ReplicaStatus struct {
	Desired int32 `json:"desired"`
	Current int32 `json:"current"`
	Ready   int32 `json:"ready"`
	Updated int32 `json:"updated"`
}

// StatusFor derives the sandbox status from a workload object. A nil
// workload means the resource is absent.
func StatusFor(sts *appsv1.StatefulSet) Status {
	if sts == nil {
		return StatusTerminated
	}
	desired := int32(1)
	if sts.Spec.Replicas != nil {
		desired = *sts.Spec.Replicas
	}
	if desired == 0 {
		if sts.Status.Replicas > 0 {
			return StatusStopping
		}
		return StatusStopped
	}
	if sts.Status.ReadyReplicas >= desired {
		return StatusRunning
	}
	return StatusStarting
}

// ReplicasFor extracts the raw counts from a workload object.
func ReplicasFor(sts *appsv1.StatefulSet) ReplicaStatus {
	if sts == nil {
		return ReplicaStatus{}
	}
	desired := int32(1)
	if sts.Spec.Replicas != nil {
		desired = *sts.Spec.Replicas
	}
	return ReplicaStatus{
		Desired: desired,
		Current: sts.Status.Replicas,
		Ready:   sts.Status.ReadyReplicas,
		Updated: sts.Status.UpdatedReplicas,
	}
}

package planstore

import (
	"testing"
	"time"
)

func TestApproveThenRejectOwnershipViolation(t *testing.T) {
	r := New()
	plan := r.Create("session-a", "do x", "/tmp", "claude", "artifact", "bullet-list")

	if _, err := r.Approve(plan.ID, "session-b"); err != ErrOwnershipViolation {
		t.Fatalf("expected ErrOwnershipViolation, got %v", err)
	}

	approved, err := r.Approve(plan.ID, "session-a")
	if err != nil {
		t.Fatalf("unexpected error approving: %v", err)
	}
	if approved.State != StateApproved {
		t.Errorf("expected APPROVED state, got %s", approved.State)
	}
}

func TestApproveTwiceFailsAlreadyTerminal(t *testing.T) {
	r := New()
	plan := r.Create("session-a", "do x", "/tmp", "claude", "artifact", "bullet-list")

	if _, err := r.Approve(plan.ID, "session-a"); err != nil {
		t.Fatalf("unexpected error on first approve: %v", err)
	}
	if _, err := r.Approve(plan.ID, "session-a"); err != ErrAlreadyTerminal {
		t.Errorf("expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestRejectRemovesPlan(t *testing.T) {
	r := New()
	plan := r.Create("session-a", "do x", "/tmp", "claude", "artifact", "bullet-list")

	if err := r.Reject(plan.ID, "session-a", "not what I wanted"); err != nil {
		t.Fatalf("unexpected error rejecting: %v", err)
	}
	if _, err := r.Get(plan.ID); err != ErrNotFound {
		t.Errorf("expected rejected plan to be removed, got %v", err)
	}
}

func TestSweepRemovesOldProposedPlans(t *testing.T) {
	r := New()
	base := time.Now()
	r.now = func() time.Time { return base }

	plan := r.Create("session-a", "do x", "/tmp", "claude", "artifact", "bullet-list")

	r.now = func() time.Time { return base.Add(31 * time.Minute) }
	r.Sweep()

	if _, err := r.Get(plan.ID); err != ErrNotFound {
		t.Errorf("expected expired PROPOSED plan to be swept, got %v", err)
	}
}

func TestSweepKeepsApprovedPlans(t *testing.T) {
	r := New()
	base := time.Now()
	r.now = func() time.Time { return base }

	plan := r.Create("session-a", "do x", "/tmp", "claude", "artifact", "bullet-list")
	if _, err := r.Approve(plan.ID, "session-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.now = func() time.Time { return base.Add(31 * time.Minute) }
	r.Sweep()

	if _, err := r.Get(plan.ID); err != nil {
		t.Errorf("expected approved plan to survive sweep, got %v", err)
	}
}

package execcoord

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/agentio"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/auditlog"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/pairing"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/planstore"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/session"
)

// fakeSupervisor spawns real /bin/sh children so the coordinator's
// streaming and state-machine logic runs against an actual process without
// depending on a real agent CLI being installed.
type fakeSupervisor struct {
	shellScript string
	planArtifact string
}

func (f *fakeSupervisor) StartPlan(ctx context.Context, kind, prompt, workdir, executionID string) (*agentio.PlanSession, error) {
	proc, err := agentio.SpawnRaw(executionID, "/bin/sh", []string{"-c", "true"}, workdir)
	if err != nil {
		return nil, err
	}
	<-proc.Done
	return &agentio.PlanSession{ExecutionID: executionID, Kind: kind, Plan: f.planArtifact, Heuristic: "marked"}, nil
}

func (f *fakeSupervisor) StartOneShot(ctx context.Context, kind, prompt, workdir, executionID string, options map[string]any) (*agentio.Process, error) {
	script := f.shellScript
	if script == "" {
		script = "echo done"
	}
	return agentio.SpawnRaw(executionID, "/bin/sh", []string{"-c", script}, workdir)
}

func (f *fakeSupervisor) Cancel(ctx context.Context, proc *agentio.Process) error {
	return proc.Cancel(ctx)
}

func (f *fakeSupervisor) Suspend(proc *agentio.Process) error {
	return proc.Suspend()
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	st, err := session.New(60, time.Hour, auditlog.New(io.Discard), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess, err := st.Create(&pairing.Redemption{AppName: "Test", AppURL: "https://test.example", ClientPublicKey: []byte("k")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sess
}

func TestExecutePlanRunsToCompletion(t *testing.T) {
	plans := planstore.New()
	coord := &Coordinator{
		supervisor: &fakeSupervisor{shellScript: "echo hello"},
		plans:      plans,
		executions: make(map[string]*Execution),
		queues:     make(map[string]*sessionQueue),
		now:        time.Now,
	}

	sess := newTestSession(t)
	plan := plans.Create(sess.ID, "do a thing", "/tmp", "claude", "1. step", "marked")
	if _, err := plans.Approve(plan.ID, sess.ID); err != nil {
		t.Fatalf("unexpected error approving: %v", err)
	}

	execution, err := coord.ExecutePlan(context.Background(), sess, plan.ID)
	if err != nil {
		t.Fatalf("unexpected error executing: %v", err)
	}

	var sawCompleted bool
	timeout := time.After(5 * time.Second)
drain:
	for {
		select {
		case ev, ok := <-execution.Events:
			if !ok {
				break drain
			}
			if ev.Kind == EventCompleted {
				sawCompleted = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for execution to complete")
		}
	}

	if !sawCompleted {
		t.Error("expected an EventCompleted")
	}
	if execution.State() != StateCompleted {
		t.Errorf("expected StateCompleted, got %s", execution.State())
	}

	updatedPlan, err := plans.Get(plan.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updatedPlan.State != planstore.StateExecuted {
		t.Errorf("expected plan marked EXECUTED, got %s", updatedPlan.State)
	}
}

func TestExecutePlanRejectsWithoutApproval(t *testing.T) {
	plans := planstore.New()
	coord := &Coordinator{
		supervisor: &fakeSupervisor{},
		plans:      plans,
		executions: make(map[string]*Execution),
		queues:     make(map[string]*sessionQueue),
		now:        time.Now,
	}

	sess := newTestSession(t)
	plan := plans.Create(sess.ID, "do a thing", "/tmp", "claude", "1. step", "marked")

	if _, err := coord.ExecutePlan(context.Background(), sess, plan.ID); err != planstore.ErrAlreadyTerminal {
		t.Fatalf("expected ErrAlreadyTerminal for an unapproved plan, got %v", err)
	}
}

func TestExecutePlanRejectsOtherSessionOwnership(t *testing.T) {
	plans := planstore.New()
	coord := &Coordinator{
		supervisor: &fakeSupervisor{},
		plans:      plans,
		executions: make(map[string]*Execution),
		queues:     make(map[string]*sessionQueue),
		now:        time.Now,
	}

	owner := newTestSession(t)
	intruder := newTestSession(t)
	plan := plans.Create(owner.ID, "do a thing", "/tmp", "claude", "1. step", "marked")
	if _, err := plans.Approve(plan.ID, owner.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := coord.ExecutePlan(context.Background(), intruder, plan.ID); err != planstore.ErrOwnershipViolation {
		t.Fatalf("expected ErrOwnershipViolation, got %v", err)
	}
}

func TestAbortTransitionsToAborted(t *testing.T) {
	plans := planstore.New()
	coord := &Coordinator{
		supervisor: &fakeSupervisor{shellScript: "sleep 30"},
		plans:      plans,
		executions: make(map[string]*Execution),
		queues:     make(map[string]*sessionQueue),
		now:        time.Now,
	}

	sess := newTestSession(t)
	plan := plans.Create(sess.ID, "do a thing", "/tmp", "claude", "1. step", "marked")
	if _, err := plans.Approve(plan.ID, sess.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	execution, err := coord.ExecutePlan(context.Background(), sess, plan.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Give run() a moment to reach RUNNING and attach the subprocess before
	// aborting.
	for i := 0; i < 50 && execution.State() != StateRunning; i++ {
		time.Sleep(20 * time.Millisecond)
	}

	if err := coord.Abort(context.Background(), sess, execution.ID); err != nil {
		t.Fatalf("unexpected error aborting: %v", err)
	}
	if execution.State() != StateAborted {
		t.Errorf("expected StateAborted, got %s", execution.State())
	}
}

// Package agentio implements AgentSupervisor: spawning, streaming, and
// tearing down one external agent subprocess per execution.
package agentio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPlanProductionFailed is returned when a plan-mode child exits nonzero
// before a plan artifact could be extracted.
var ErrPlanProductionFailed = errors.New("agentio: plan production failed")

// PlanSession is the result of StartPlan: an extracted plan artifact and,
// if the child is still alive awaiting an approval record on stdin, a flag
// saying so.
type PlanSession struct {
	ExecutionID string
	Kind        string
	Plan        string
	Heuristic   string

	AwaitsInteractiveApproval bool

	proc *Process
}

// Process exposes the underlying subprocess so the coordinator can attach
// it to an execution's streaming output.
func (p *PlanSession) Process() *Process { return p.proc }

// Options configures a Supervisor from the daemon's agents.* config block.
type Options struct {
	ConfiguredPaths map[string]string
	MaxBufferBytes  int
	PlanWaitTimeout time.Duration
}

// Supervisor orchestrates agent subprocesses per spec.md §4.5.
type Supervisor struct {
	opts Options
}

// New builds a Supervisor from agents.* configuration.
func New(opts Options) *Supervisor {
	if opts.PlanWaitTimeout <= 0 {
		opts.PlanWaitTimeout = 2 * time.Minute
	}
	return &Supervisor{opts: opts}
}

// Locate exposes catalog resolution, using this Supervisor's configured
// paths, for the control surface's GET /api/agents and the
// agents-available reply. The `test-agent` CLI subcommand calls the
// package-level Locate directly.
func (s *Supervisor) Locate(kind string) (*Located, error) {
	return Locate(kind, s.opts.ConfiguredPaths[kind])
}

// StartPlan spawns kind in plan mode, writes prompt to stdin, and blocks
// until a plan artifact can be extracted — either because the child closed
// an explicit plan marker, it exited, or the wait timeout elapsed.
func (s *Supervisor) StartPlan(ctx context.Context, kind, prompt, workdir, executionID string) (*PlanSession, error) {
	located, err := s.Locate(kind)
	if err != nil {
		return nil, err
	}

	info := catalog[kind]
	proc, err := spawn(spawnOptions{
		executionID:    executionID,
		path:           located.Path,
		args:           info.args,
		workdir:        workdir,
		maxBufferBytes: s.opts.MaxBufferBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("agentio: spawn %s: %w", kind, err)
	}

	if err := proc.WriteStdin([]byte(prompt + "\n")); err != nil {
		return nil, fmt.Errorf("agentio: write prompt: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.PlanWaitTimeout)
	defer cancel()

	plan, heuristic, exited := waitForPlanArtifact(waitCtx, proc)

	if exited && proc.ExitErr() != nil && plan == "" {
		return nil, ErrPlanProductionFailed
	}

	return &PlanSession{
		ExecutionID:               executionID,
		Kind:                      kind,
		Plan:                      plan,
		Heuristic:                 heuristic,
		AwaitsInteractiveApproval: !exited,
		proc:                      proc,
	}, nil
}

// waitForPlanArtifact drains proc.Events, checking after every line whether
// an explicit plan marker has closed; otherwise it falls back to the
// bullet/numbered/truncated heuristics once the child exits or the context
// is done.
func waitForPlanArtifact(ctx context.Context, proc *Process) (plan, heuristic string, exited bool) {
	var sb strings.Builder
	for {
		select {
		case ev, ok := <-proc.Events:
			if !ok {
				plan, heuristic = ExtractPlan(sb.String())
				return plan, heuristic, true
			}
			sb.Write(ev.Bytes)
			if marked, ok := extractMarked(sb.String()); ok {
				return marked, "marked", false
			}
		case <-proc.Done:
			plan, heuristic = ExtractPlan(sb.String())
			return plan, heuristic, true
		case <-ctx.Done():
			plan, heuristic = ExtractPlan(sb.String())
			return plan, heuristic, false
		}
	}
}

// ApproveInteractively writes a predetermined approval record to a plan
// session's stdin; thereafter the supervisor streams execution output
// until the child exits.
func (s *Supervisor) ApproveInteractively(ps *PlanSession, directive string) error {
	record := "APPROVE"
	if directive != "" {
		record += " " + directive
	}
	return ps.proc.WriteStdin([]byte(record + "\n"))
}

// Reject writes a rejection and feedback to a plan session's stdin.
func (s *Supervisor) Reject(ps *PlanSession, feedback string) error {
	return ps.proc.WriteStdin([]byte("REJECT " + feedback + "\n"))
}

// StartOneShot spawns kind for direct execution: no interactive approval
// path, stdin is closed immediately after the prompt is written.
func (s *Supervisor) StartOneShot(ctx context.Context, kind, prompt, workdir, executionID string, options map[string]any) (*Process, error) {
	located, err := s.Locate(kind)
	if err != nil {
		return nil, err
	}

	info := catalog[kind]
	proc, err := spawn(spawnOptions{
		executionID:    executionID,
		path:           located.Path,
		args:           info.args,
		workdir:        workdir,
		maxBufferBytes: s.opts.MaxBufferBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("agentio: spawn %s: %w", kind, err)
	}

	if err := proc.WriteStdin([]byte(prompt + "\n")); err != nil {
		return nil, fmt.Errorf("agentio: write prompt: %w", err)
	}
	if err := proc.CloseStdin(); err != nil {
		return nil, fmt.Errorf("agentio: close stdin: %w", err)
	}

	return proc, nil
}

// Cancel tears down a still-running process: escalating signals, then a
// hard kill.
func (s *Supervisor) Cancel(ctx context.Context, proc *Process) error {
	return proc.Cancel(ctx)
}

// Suspend freezes a still-running process with SIGSTOP, used by
// EmergencyStop's first pass so every child stops burning CPU immediately
// while the (possibly slow, per-process) escalating Cancel proceeds.
func (s *Supervisor) Suspend(proc *Process) error {
	return proc.Suspend()
}

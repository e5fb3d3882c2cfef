// Package execcoord implements ExecutionCoordinator: the plan/execute
// state machine, per-session FIFO serialisation, and progress reporting.
package execcoord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/agentio"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/planstore"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/session"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/workspace"
)

// State is an Execution's position in the QUEUED/STARTING/RUNNING/
// COMPLETED/FAILED/ABORTED state machine.
type State string

const (
	StateQueued    State = "QUEUED"
	StateStarting  State = "STARTING"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateAborted   State = "ABORTED"
)

var (
	ErrExecutionNotFound        = errors.New("execcoord: execution not found")
	ErrExecutionAlreadyTerminal = errors.New("execcoord: execution already terminal")
)

// Execution is one run of an approved plan.
type Execution struct {
	ID        string
	SessionID string
	PlanID    string
	AgentKind string
	Workdir   string

	mu    sync.Mutex
	state State

	proc   *agentio.Process
	cancel context.CancelFunc

	Events chan Event
}

func (e *Execution) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Execution) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func isTerminal(s State) bool {
	return s == StateCompleted || s == StateFailed || s == StateAborted
}

// sessionQueue is one session's FIFO of executions awaiting their turn;
// at most one is STARTING/RUNNING at any instant.
type sessionQueue struct {
	mu      sync.Mutex
	pending []*Execution
	active  *Execution
}

// agentSupervisor is the subset of AgentSupervisor the coordinator drives.
// Declared as an interface so tests can substitute a fake without spawning
// real agent binaries.
type agentSupervisor interface {
	StartPlan(ctx context.Context, kind, prompt, workdir, executionID string) (*agentio.PlanSession, error)
	StartOneShot(ctx context.Context, kind, prompt, workdir, executionID string, options map[string]any) (*agentio.Process, error)
	Cancel(ctx context.Context, proc *agentio.Process) error
	Suspend(proc *agentio.Process) error
}

// Coordinator is the heart of the plan/execute state machine.
type Coordinator struct {
	supervisor agentSupervisor
	plans      *planstore.Registry
	adapter    workspace.Adapter

	mu         sync.Mutex
	executions map[string]*Execution
	queues     map[string]*sessionQueue

	now func() time.Time
}

// New wires a Coordinator to its collaborators.
func New(supervisor *agentio.Supervisor, plans *planstore.Registry, adapter workspace.Adapter) *Coordinator {
	return &Coordinator{
		supervisor: supervisor,
		plans:      plans,
		adapter:    adapter,
		executions: make(map[string]*Execution),
		queues:     make(map[string]*sessionQueue),
		now:        time.Now,
	}
}

// SubmitPlanRequest validates workdir, captures workspace status, requests
// an optional backup snapshot, invokes AgentSupervisor.StartPlan, and wraps
// the result in a PROPOSED Plan.
func (c *Coordinator) SubmitPlanRequest(ctx context.Context, sess *session.Session, prompt, workdir, agentKind string) (*planstore.Plan, error) {
	if _, err := c.adapter.Status(ctx, workdir); err != nil {
		return nil, fmt.Errorf("execcoord: workspace not ready: %w", err)
	}
	if _, err := c.adapter.CreateBackupSnapshot(ctx, workdir); err != nil {
		return nil, fmt.Errorf("execcoord: backup snapshot: %w", err)
	}

	executionID := uuid.New().String()
	planSession, err := c.supervisor.StartPlan(ctx, agentKind, prompt, workdir, executionID)
	if err != nil {
		return nil, fmt.Errorf("execcoord: start plan: %w", err)
	}

	plan := c.plans.Create(sess.ID, prompt, workdir, agentKind, planSession.Plan, planSession.Heuristic)
	return plan, nil
}

// ApprovePlan transitions PROPOSED -> APPROVED.
func (c *Coordinator) ApprovePlan(sess *session.Session, planID string) (*planstore.Plan, error) {
	return c.plans.Approve(planID, sess.ID)
}

// RejectPlan transitions PROPOSED -> REJECTED (terminal, removed).
func (c *Coordinator) RejectPlan(sess *session.Session, planID, reason string) error {
	return c.plans.Reject(planID, sess.ID, reason)
}

// ExecutePlan requires APPROVED state and caller ownership. It enqueues on
// the session's FIFO queue, which drains one execution at a time.
func (c *Coordinator) ExecutePlan(ctx context.Context, sess *session.Session, planID string) (*Execution, error) {
	plan, err := c.plans.Get(planID)
	if err != nil {
		return nil, err
	}
	if plan.SessionID != sess.ID {
		return nil, planstore.ErrOwnershipViolation
	}
	if plan.State != planstore.StateApproved {
		return nil, planstore.ErrAlreadyTerminal
	}

	execution := &Execution{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		PlanID:    planID,
		AgentKind: plan.AgentKind,
		Workdir:   plan.Workdir,
		state:     StateQueued,
		Events:    make(chan Event, 64),
	}

	c.mu.Lock()
	c.executions[execution.ID] = execution
	queue := c.queues[sess.ID]
	if queue == nil {
		queue = &sessionQueue{}
		c.queues[sess.ID] = queue
	}
	c.mu.Unlock()

	c.enqueue(ctx, queue, execution)

	return execution, nil
}

// enqueue appends execution to queue.pending and, if nothing is currently
// active, starts draining immediately.
func (c *Coordinator) enqueue(ctx context.Context, queue *sessionQueue, execution *Execution) {
	queue.mu.Lock()
	queue.pending = append(queue.pending, execution)
	shouldDrain := queue.active == nil
	queue.mu.Unlock()

	if shouldDrain {
		go c.drain(ctx, queue)
	}
}

// drain runs executions from queue.pending one at a time, in submission
// order, until it is empty.
func (c *Coordinator) drain(ctx context.Context, queue *sessionQueue) {
	for {
		queue.mu.Lock()
		if len(queue.pending) == 0 {
			queue.active = nil
			queue.mu.Unlock()
			return
		}
		execution := queue.pending[0]
		queue.pending = queue.pending[1:]
		queue.active = execution
		queue.mu.Unlock()

		plan, err := c.plans.Get(execution.PlanID)
		if err != nil {
			c.fail(execution, "PLAN_NOT_FOUND")
			continue
		}
		c.run(ctx, execution, plan)
	}
}

// run drives a single execution from STARTING through to a terminal state,
// emitting progress checkpoints at 10/80/90/100%.
func (c *Coordinator) run(ctx context.Context, execution *Execution, plan *planstore.Plan) {
	execCtx, cancel := context.WithCancel(ctx)
	execution.mu.Lock()
	execution.cancel = cancel
	abortedWhileQueued := execution.state == StateAborted
	if !abortedWhileQueued {
		execution.state = StateStarting
	}
	execution.mu.Unlock()

	if abortedWhileQueued {
		c.emit(execution, Event{Kind: EventCompleted, Result: "aborted"})
		close(execution.Events)
		return
	}
	c.emit(execution, Event{Kind: EventStateChange, State: StateStarting})

	proc, err := c.supervisor.StartOneShot(execCtx, execution.AgentKind, plan.Prompt, execution.Workdir, execution.ID, nil)
	if err != nil {
		c.fail(execution, "AGENT_NOT_AVAILABLE")
		return
	}

	execution.mu.Lock()
	execution.proc = proc
	abortedWhileStarting := execution.state == StateAborted
	if !abortedWhileStarting {
		execution.state = StateRunning
	}
	execution.mu.Unlock()

	if abortedWhileStarting {
		_ = c.supervisor.Cancel(execCtx, proc)
	} else {
		c.emit(execution, Event{Kind: EventStateChange, State: StateRunning})
	}
	c.emit(execution, Event{Kind: EventProgress, Progress: 10})

	for ev := range proc.Events {
		c.emit(execution, Event{Kind: EventOutput, Stream: ev.Stream, Data: ev.Bytes, Timestamp: ev.Timestamp})
	}

	<-proc.Done
	c.emit(execution, Event{Kind: EventProgress, Progress: 80})

	if execution.State() == StateAborted {
		// The state transition itself was already emitted synchronously in
		// Abort(); this is the deferred terminal event the client is
		// actually waiting to read off the channel, held back until the
		// subprocess has genuinely exited.
		c.emit(execution, Event{Kind: EventCompleted, Result: "aborted"})
		close(execution.Events)
		return
	}

	if proc.ExitErr() != nil {
		c.fail(execution, "AGENT_CRASHED")
		return
	}

	if err := c.plans.MarkExecuted(plan.ID); err != nil {
		c.fail(execution, "INTERNAL")
		return
	}
	c.emit(execution, Event{Kind: EventProgress, Progress: 90})

	execution.setState(StateCompleted)
	c.emit(execution, Event{Kind: EventStateChange, State: StateCompleted})
	c.emit(execution, Event{Kind: EventProgress, Progress: 100})
	c.emit(execution, Event{Kind: EventCompleted, Result: "ok"})
	close(execution.Events)
}

func (c *Coordinator) fail(execution *Execution, reason string) {
	execution.setState(StateFailed)
	c.emit(execution, Event{Kind: EventStateChange, State: StateFailed})
	c.emit(execution, Event{Kind: EventFailed, Reason: reason})
	close(execution.Events)
}

// emit sends ev on execution.Events, blocking if the buffer is full rather
// than discarding. bootstrap.streamExecution attaches its consumer as soon
// as ExecutePlan returns, so the channel is always being drained; a blocking
// send just applies back-pressure instead of violating the in-order,
// complete delivery guarantee a dropped agent-output or terminal event
// would break.
func (c *Coordinator) emit(execution *Execution, ev Event) {
	ev.ExecutionID = execution.ID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = c.now()
	}
	execution.Events <- ev
}

// Abort transitions a non-terminal execution to ABORTED by asking the
// supervisor to cancel its subprocess.
func (c *Coordinator) Abort(ctx context.Context, sess *session.Session, executionID string) error {
	c.mu.Lock()
	execution, ok := c.executions[executionID]
	c.mu.Unlock()
	if !ok {
		return ErrExecutionNotFound
	}
	if execution.SessionID != sess.ID {
		return planstore.ErrOwnershipViolation
	}

	execution.mu.Lock()
	if isTerminal(execution.state) {
		execution.mu.Unlock()
		return ErrExecutionAlreadyTerminal
	}
	execution.state = StateAborted
	proc := execution.proc
	execution.mu.Unlock()

	c.emit(execution, Event{Kind: EventStateChange, State: StateAborted})

	if proc != nil {
		return c.supervisor.Cancel(ctx, proc)
	}
	return nil
}

// EmergencyStop cancels every non-terminal execution's subprocess and
// drops every queued (non-head) task, tagging it with reason.
func (c *Coordinator) EmergencyStop(ctx context.Context, reason string) []string {
	c.mu.Lock()
	executions := make([]*Execution, 0, len(c.executions))
	for _, execution := range c.executions {
		executions = append(executions, execution)
	}
	for _, queue := range c.queues {
		queue.mu.Lock()
		queue.pending = nil
		queue.mu.Unlock()
	}
	c.mu.Unlock()

	var aborted []string
	var toCancel []*agentio.Process
	for _, execution := range executions {
		execution.mu.Lock()
		terminal := isTerminal(execution.state)
		proc := execution.proc
		if !terminal {
			execution.state = StateAborted
		}
		execution.mu.Unlock()

		if terminal {
			continue
		}
		aborted = append(aborted, execution.ID)
		c.emit(execution, Event{Kind: EventFailed, Reason: reason})

		if proc != nil {
			// Freeze first so every child stops burning CPU immediately;
			// the escalating Cancel below can take several seconds per
			// process and runs in parallel.
			_ = c.supervisor.Suspend(proc)
			toCancel = append(toCancel, proc)
		}
	}

	var wg sync.WaitGroup
	for _, proc := range toCancel {
		wg.Add(1)
		go func(p *agentio.Process) {
			defer wg.Done()
			_ = c.supervisor.Cancel(ctx, p)
		}(proc)
	}
	wg.Wait()

	return aborted
}

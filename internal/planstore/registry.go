// Package planstore implements PlanRegistry: plans keyed by id with strict
// per-session ownership and a 30-minute PROPOSED expiry.
package planstore

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a Plan's position in the PROPOSED/APPROVED/REJECTED/EXECUTED
// state machine.
type State string

const (
	StateProposed State = "PROPOSED"
	StateApproved State = "APPROVED"
	StateRejected State = "REJECTED"
	StateExecuted State = "EXECUTED"
)

const proposedTTL = 30 * time.Minute

var (
	ErrNotFound            = errors.New("planstore: plan not found")
	ErrAlreadyTerminal     = errors.New("planstore: plan already terminal")
	ErrOwnershipViolation  = errors.New("planstore: plan owned by another session")
)

// Plan is one proposed unit of agent work awaiting approval or rejection.
type Plan struct {
	ID        string
	SessionID string
	Prompt    string
	Workdir   string
	AgentKind string
	Artifact  string
	Heuristic string

	State State

	CreatedAt time.Time
}

// Registry is the process-wide, mutex-serialised plan store.
type Registry struct {
	mu    sync.Mutex
	plans map[string]*Plan
	now   func() time.Time
}

// New creates an empty plan registry.
func New() *Registry {
	return &Registry{plans: make(map[string]*Plan), now: time.Now}
}

// Create wraps a freshly produced plan artifact in a new PROPOSED Plan.
func (r *Registry) Create(sessionID, prompt, workdir, agentKind, artifact, heuristic string) *Plan {
	plan := &Plan{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Prompt:    prompt,
		Workdir:   workdir,
		AgentKind: agentKind,
		Artifact:  artifact,
		Heuristic: heuristic,
		State:     StateProposed,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	r.plans[plan.ID] = plan
	r.mu.Unlock()

	return plan
}

// Get returns a plan by id.
func (r *Registry) Get(planID string) (*Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan, ok := r.plans[planID]
	if !ok {
		return nil, ErrNotFound
	}
	return plan, nil
}

// Approve transitions PROPOSED -> APPROVED, rejecting ownership violations
// and attempts against a terminal or missing plan.
func (r *Registry) Approve(planID, sessionID string) (*Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, ok := r.plans[planID]
	if !ok {
		return nil, ErrNotFound
	}
	if plan.SessionID != sessionID {
		return nil, ErrOwnershipViolation
	}
	if plan.State != StateProposed {
		return nil, ErrAlreadyTerminal
	}

	plan.State = StateApproved
	return plan, nil
}

// Reject transitions PROPOSED -> REJECTED and removes the plan.
func (r *Registry) Reject(planID, sessionID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, ok := r.plans[planID]
	if !ok {
		return ErrNotFound
	}
	if plan.SessionID != sessionID {
		return ErrOwnershipViolation
	}
	if plan.State != StateProposed {
		return ErrAlreadyTerminal
	}

	delete(r.plans, planID)
	return nil
}

// MarkExecuted transitions APPROVED -> EXECUTED.
func (r *Registry) MarkExecuted(planID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, ok := r.plans[planID]
	if !ok {
		return ErrNotFound
	}
	plan.State = StateExecuted
	return nil
}

// Sweep removes PROPOSED plans older than 30 minutes and returns how many
// were evicted.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, plan := range r.plans {
		if plan.State == StateProposed && now.Sub(plan.CreatedAt) > proposedTTL {
			delete(r.plans, id)
			removed++
		}
	}
	return removed
}

package bootstrap

import (
	"context"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bridgeerr"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/codec"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/planstore"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/wsconn"
)

func (b *Bridge) handleInitSession(ctx context.Context, c *wsconn.Connection, env *codec.Envelope) []codec.Envelope {
	workdir, _ := env.Data["workdir"].(string)
	if _, err := b.Adapter.Status(ctx, workdir); err != nil {
		return []codec.Envelope{errReply(env, bridgeerr.Wrap(bridgeerr.CodeWorkspaceError, "workdir not ready", err))}
	}
	return []codec.Envelope{reply(env, "agents-available", map[string]any{"agents": b.availableAgents()})}
}

func (b *Bridge) availableAgents() []map[string]any {
	var out []map[string]any
	for _, kind := range []string{"claude", "codex", "gemini"} {
		located, err := b.Supervisor.Locate(kind)
		if err != nil {
			continue
		}
		out = append(out, map[string]any{"name": kind, "version": located.Version, "path": located.Path})
	}
	return out
}

func (b *Bridge) handleExecutePrompt(ctx context.Context, c *wsconn.Connection, env *codec.Envelope) []codec.Envelope {
	sess := c.ActiveSession()
	prompt, _ := env.Data["prompt"].(string)
	mode, _ := env.Data["mode"].(string)
	workdir, _ := env.Data["workdir"].(string)
	agentKind, _ := env.Data["agentType"].(string)
	if agentKind == "" {
		agentKind = "claude"
	}

	switch mode {
	case "plan":
		plan, err := b.Coordinator.SubmitPlanRequest(ctx, sess, prompt, workdir, agentKind)
		if err != nil {
			return []codec.Envelope{errReply(env, bridgeerr.Wrap(bridgeerr.CodeAgentNotAvailable, "plan production failed", err))}
		}
		return []codec.Envelope{reply(env, "agent-plan", map[string]any{
			"id":       plan.ID,
			"prompt":   plan.Prompt,
			"plan":     plan.Artifact,
			"approved": false,
		})}

	case "execute":
		options, _ := env.Data["options"].(map[string]any)
		planID, _ := options["planId"].(string)
		execution, err := b.Coordinator.ExecutePlan(ctx, sess, planID)
		if err != nil {
			return []codec.Envelope{errReply(env, mapPlanStoreError(err))}
		}
		go b.streamExecution(c, execution.ID, execution.Events)
		return []codec.Envelope{reply(env, "agent-state-change", map[string]any{"executionId": execution.ID, "state": "STARTING"})}

	default:
		return []codec.Envelope{errReply(env, bridgeerr.New(bridgeerr.CodeInvalidMessageFormat, "mode must be plan or execute"))}
	}
}

func (b *Bridge) handleApprovePlan(c *wsconn.Connection, env *codec.Envelope) []codec.Envelope {
	sess := c.ActiveSession()
	planID, _ := env.Data["planId"].(string)

	if _, err := b.Coordinator.ApprovePlan(sess, planID); err != nil {
		return []codec.Envelope{errReply(env, mapPlanStoreError(err))}
	}
	return []codec.Envelope{reply(env, "agent-state-change", map[string]any{"planId": planID, "state": "APPROVED"})}
}

func (b *Bridge) handleRejectPlan(c *wsconn.Connection, env *codec.Envelope) []codec.Envelope {
	sess := c.ActiveSession()
	planID, _ := env.Data["planId"].(string)
	reason, _ := env.Data["reason"].(string)

	if err := b.Coordinator.RejectPlan(sess, planID, reason); err != nil {
		return []codec.Envelope{errReply(env, mapPlanStoreError(err))}
	}
	return []codec.Envelope{reply(env, "agent-state-change", map[string]any{"planId": planID, "state": "REJECTED"})}
}

func (b *Bridge) handleAbortExecution(ctx context.Context, c *wsconn.Connection, env *codec.Envelope) []codec.Envelope {
	sess := c.ActiveSession()
	executionID, _ := env.Data["executionId"].(string)

	if err := b.Coordinator.Abort(ctx, sess, executionID); err != nil {
		return []codec.Envelope{errReply(env, bridgeerr.Wrap(bridgeerr.CodeExecutionNotFound, "abort failed", err))}
	}
	return []codec.Envelope{reply(env, "agent-state-change", map[string]any{"executionId": executionID, "state": "ABORTED"})}
}

func (b *Bridge) handleEmergencyKill(ctx context.Context, env *codec.Envelope) []codec.Envelope {
	reason, _ := env.Data["reason"].(string)

	abortedExecutions := b.Coordinator.EmergencyStop(ctx, reason)
	terminatedSessions := b.Sessions.EmergencyKill(reason)

	return []codec.Envelope{reply(env, "emergency-kill-confirmed", map[string]any{
		"abortedExecutions":  abortedExecutions,
		"terminatedSessions": terminatedSessions,
	})}
}

func mapPlanStoreError(err error) *bridgeerr.Error {
	switch err {
	case planstore.ErrNotFound:
		return bridgeerr.New(bridgeerr.CodePlanNotFound, "plan not found")
	case planstore.ErrOwnershipViolation:
		return bridgeerr.New(bridgeerr.CodePlanOwnershipViolation, "plan owned by another session")
	case planstore.ErrAlreadyTerminal:
		return bridgeerr.New(bridgeerr.CodePlanAlreadyExecuted, "plan is not in a state that allows this transition")
	default:
		return bridgeerr.Wrap(bridgeerr.CodeInternal, "plan operation failed", err)
	}
}

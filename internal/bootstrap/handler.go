// Package bootstrap wires every component into the running daemon: the
// message-type dispatch table for wsconn.Connection, the HTTP control
// surface, and the periodic sweeper.
package bootstrap

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/agentio"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/auditlog"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bridgeerr"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/codec"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/cryptoutil"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/execcoord"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/pairing"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/planstore"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/session"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/workspace"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/wsconn"
)

// Bridge owns every long-lived component and is the single wiring point
// the CLI's `start` subcommand constructs.
type Bridge struct {
	Identity   *cryptoutil.Identity
	Pairing    *pairing.Registry
	Sessions   *session.Store
	Plans      *planstore.Registry
	Supervisor *agentio.Supervisor
	Adapter    workspace.Adapter
	Coordinator *execcoord.Coordinator
	Audit      *auditlog.Logger
	Logger     *logrus.Entry
}

// Handler builds the wsconn.Handler dispatch table over b's components.
func (b *Bridge) Handler() wsconn.Handler {
	return func(ctx context.Context, c *wsconn.Connection, env *codec.Envelope) []codec.Envelope {
		switch env.Type {
		case "pair":
			return b.handlePair(c, env)
		case "authenticate":
			return b.handleAuthenticate(c, env)
		case "health-check":
			return []codec.Envelope{reply(env, "health-check", map[string]any{"status": "ok"})}
		case "init-session":
			return b.handleInitSession(ctx, c, env)
		case "git-status":
			return b.handleGitStatus(ctx, env)
		case "git-command":
			return b.handleGitCommand(ctx, env)
		case "create-worktree":
			return b.handleCreateWorktree(ctx, c, env)
		case "cleanup-worktree":
			return b.handleCleanupWorktree(ctx, env)
		case "execute-prompt":
			return b.handleExecutePrompt(ctx, c, env)
		case "approve-plan":
			return b.handleApprovePlan(c, env)
		case "reject-plan":
			return b.handleRejectPlan(c, env)
		case "abort-execution":
			return b.handleAbortExecution(ctx, c, env)
		case "generate-pr":
			return b.handleGeneratePR(ctx, env)
		case "agent-interaction", "agent-feedback", "start-agent-session":
			return []codec.Envelope{reply(env, "error", map[string]any{
				"error": "not yet supported in this build", "code": string(bridgeerr.CodeInternal),
			})}
		case "emergency-kill":
			return b.handleEmergencyKill(ctx, env)
		default:
			return []codec.Envelope{codec.ErrorEnvelope(bridgeerr.New(bridgeerr.CodeInvalidMessageFormat, "unhandled message type").WithID(env.ID))}
		}
	}
}

func reply(env *codec.Envelope, msgType string, data map[string]any) codec.Envelope {
	return codec.Envelope{ID: uuid.New().String(), Type: msgType, Data: data, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

func errReply(env *codec.Envelope, bridgeErr *bridgeerr.Error) codec.Envelope {
	return codec.ErrorEnvelope(bridgeErr.WithID(env.ID))
}

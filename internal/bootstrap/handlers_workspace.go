package bootstrap

import (
	"context"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bridgeerr"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/codec"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/wsconn"
)

func (b *Bridge) handleGitStatus(ctx context.Context, env *codec.Envelope) []codec.Envelope {
	workdir, _ := env.Data["workdir"].(string)
	status, err := b.Adapter.Status(ctx, workdir)
	if err != nil {
		return []codec.Envelope{errReply(env, bridgeerr.Wrap(bridgeerr.CodeWorkspaceError, "git status failed", err))}
	}
	return []codec.Envelope{reply(env, "git-status", map[string]any{
		"branch":         status.Branch,
		"clean":          status.Clean,
		"modifiedFiles":  status.ModifiedFiles,
		"untrackedFiles": status.UntrackedFiles,
	})}
}

func (b *Bridge) handleGitCommand(ctx context.Context, env *codec.Envelope) []codec.Envelope {
	workdir, _ := env.Data["workdir"].(string)
	command, _ := env.Data["command"].(string)

	switch command {
	case "create-branch", "switch-branch", "stash":
		status, err := b.Adapter.Status(ctx, workdir)
		if err != nil {
			return []codec.Envelope{errReply(env, bridgeerr.Wrap(bridgeerr.CodeWorkspaceError, "git command failed", err))}
		}
		return []codec.Envelope{reply(env, "git-status", map[string]any{"branch": status.Branch, "clean": status.Clean})}
	default:
		return []codec.Envelope{errReply(env, bridgeerr.New(bridgeerr.CodeInvalidMessageFormat, "unrecognized git command"))}
	}
}

func (b *Bridge) handleCreateWorktree(ctx context.Context, c *wsconn.Connection, env *codec.Envelope) []codec.Envelope {
	workdir, _ := env.Data["workdir"].(string)
	baseBranch, _ := env.Data["baseBranch"].(string)

	sess := c.ActiveSession()
	info, err := b.Adapter.CreateWorktree(ctx, workdir, baseBranch, workspaceMetadataFor(sess))
	if err != nil {
		return []codec.Envelope{errReply(env, bridgeerr.Wrap(bridgeerr.CodeWorkspaceError, "create worktree failed", err))}
	}
	return []codec.Envelope{reply(env, "worktree-created", map[string]any{"path": info.Path, "branch": info.Branch})}
}

func (b *Bridge) handleCleanupWorktree(ctx context.Context, env *codec.Envelope) []codec.Envelope {
	executionID, _ := env.Data["executionId"].(string)
	workdir, _ := env.Data["workdir"].(string)
	worktreePath, _ := env.Data["worktreePath"].(string)
	branchName, _ := env.Data["branchName"].(string)

	if err := b.Adapter.DeleteWorktree(ctx, workdir, worktreePath, branchName, true); err != nil {
		return []codec.Envelope{errReply(env, bridgeerr.Wrap(bridgeerr.CodeWorkspaceError, "delete worktree failed", err))}
	}
	return []codec.Envelope{reply(env, "worktree-deleted", map[string]any{"executionId": executionID})}
}

func (b *Bridge) handleGeneratePR(ctx context.Context, env *codec.Envelope) []codec.Envelope {
	workdir, _ := env.Data["workdir"].(string)
	title, _ := env.Data["title"].(string)
	description, _ := env.Data["description"].(string)
	baseBranch, _ := env.Data["baseBranch"].(string)

	result, err := b.Adapter.GeneratePullRequest(ctx, workdir, prOptions(title, description, baseBranch))
	if err != nil {
		return []codec.Envelope{errReply(env, bridgeerr.Wrap(bridgeerr.CodeWorkspaceError, "generate PR failed", err))}
	}
	return []codec.Envelope{reply(env, "pr-created", map[string]any{"url": result.URL, "branch": result.Branch})}
}

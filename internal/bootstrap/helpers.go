package bootstrap

import (
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/session"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/workspace"
)

func workspaceMetadataFor(sess *session.Session) workspace.WorktreeMetadata {
	if sess == nil {
		return workspace.WorktreeMetadata{}
	}
	return workspace.WorktreeMetadata{ExecutionID: sess.ID}
}

func prOptions(title, description, baseBranch string) workspace.PullRequestOptions {
	return workspace.PullRequestOptions{Title: title, Description: description, BaseBranch: baseBranch}
}

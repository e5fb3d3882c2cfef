// Package workspace defines the WorkspaceAdapter contract and a
// go-git-backed default implementation.
package workspace

import "context"

// StatusResult summarizes a working tree's state.
type StatusResult struct {
	Branch        string   `json:"branch"`
	Clean         bool     `json:"clean"`
	ModifiedFiles []string `json:"modifiedFiles"`
	UntrackedFiles []string `json:"untrackedFiles"`
}

// WorktreeMetadata carries caller-supplied tags for a new worktree.
type WorktreeMetadata struct {
	ExecutionID string
	PlanID      string
}

// WorktreeInfo describes one worktree known to a repository.
type WorktreeInfo struct {
	Path       string `json:"path"`
	Branch     string `json:"branch"`
	ExecutionID string `json:"executionId,omitempty"`
}

// DiffResult is a single file's unstaged diff (working tree against the
// index).
type DiffResult struct {
	File    string `json:"file"`
	Patch   string `json:"patch"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
}

// PullRequestOptions configures GeneratePullRequest.
type PullRequestOptions struct {
	Title       string
	Description string
	BaseBranch  string
}

// PullRequestResult is returned once a pull request has been generated.
type PullRequestResult struct {
	URL    string `json:"url"`
	Branch string `json:"branch"`
}

// FileChangeEvent is delivered to a WatchWorkspace callback.
type FileChangeEvent struct {
	File string
	Op   string
}

// Adapter is the WorkspaceAdapter contract from spec.md §6. The coordinator
// depends only on this interface.
type Adapter interface {
	Status(ctx context.Context, workdir string) (*StatusResult, error)
	CreateBackupSnapshot(ctx context.Context, workdir string) (string, error)
	CreateWorktree(ctx context.Context, workdir, baseBranch string, metadata WorktreeMetadata) (*WorktreeInfo, error)
	DeleteWorktree(ctx context.Context, workdir, worktreePath, branchName string, force bool) error
	ListWorktrees(ctx context.Context, workdir string) ([]WorktreeInfo, error)
	Commit(ctx context.Context, workdir, message string, files []string) error
	Diff(ctx context.Context, file, workdir string) (*DiffResult, error)
	GeneratePullRequest(ctx context.Context, workdir string, options PullRequestOptions) (*PullRequestResult, error)
	WatchWorkspace(ctx context.Context, workdir string, callback func(FileChangeEvent)) (stop func(), err error)
}

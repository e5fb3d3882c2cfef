package workspace

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitAdapter is the default WorkspaceAdapter: go-git for the operations it
// supports in full, shelling out to the git binary for worktree add/remove,
// which go-git does not fully implement.
type GitAdapter struct {
	authorName  string
	authorEmail string
}

// NewGitAdapter builds the default adapter. The author identity is used for
// commits made through Commit.
func NewGitAdapter(authorName, authorEmail string) *GitAdapter {
	if authorName == "" {
		authorName = "prompt-dock-bridge"
	}
	if authorEmail == "" {
		authorEmail = "prompt-dock-bridge@localhost"
	}
	return &GitAdapter{authorName: authorName, authorEmail: authorEmail}
}

func (a *GitAdapter) Status(ctx context.Context, workdir string) (*StatusResult, error) {
	repo, err := git.PlainOpen(workdir)
	if err != nil {
		return nil, fmt.Errorf("workspace: open repo: %w", err)
	}

	head, err := repo.Head()
	branch := ""
	if err == nil && head.Name().IsBranch() {
		branch = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("workspace: worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("workspace: status: %w", err)
	}

	result := &StatusResult{Branch: branch, Clean: status.IsClean()}
	for file, st := range status {
		if st.Worktree == git.Untracked {
			result.UntrackedFiles = append(result.UntrackedFiles, file)
			continue
		}
		if st.Staging != git.Unmodified || st.Worktree != git.Unmodified {
			result.ModifiedFiles = append(result.ModifiedFiles, file)
		}
	}
	return result, nil
}

func (a *GitAdapter) CreateBackupSnapshot(ctx context.Context, workdir string) (string, error) {
	repo, err := git.PlainOpen(workdir)
	if err != nil {
		return "", fmt.Errorf("workspace: open repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("workspace: worktree: %w", err)
	}

	stashID := fmt.Sprintf("backup-%d", time.Now().UnixNano())
	ref := plumbing.NewHashReference(plumbing.ReferenceName("refs/backups/"+stashID), mustHead(repo))
	if err := repo.Storer.SetReference(ref); err != nil {
		return "", fmt.Errorf("workspace: create backup ref: %w", err)
	}
	_ = wt
	return stashID, nil
}

func mustHead(repo *git.Repository) plumbing.Hash {
	head, err := repo.Head()
	if err != nil {
		return plumbing.ZeroHash
	}
	return head.Hash()
}

func (a *GitAdapter) CreateWorktree(ctx context.Context, workdir, baseBranch string, metadata WorktreeMetadata) (*WorktreeInfo, error) {
	branchName := fmt.Sprintf("bridge/%s", metadata.ExecutionID)
	worktreePath := filepath.Join(filepath.Dir(workdir), filepath.Base(workdir)+"-"+metadata.ExecutionID)

	if err := os.MkdirAll(filepath.Dir(worktreePath), 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create parent dir: %w", err)
	}

	args := []string{"worktree", "add", "-b", branchName, worktreePath}
	if baseBranch != "" {
		args = append(args, baseBranch)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workdir
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("workspace: git worktree add: %w: %s", err, out)
	}

	return &WorktreeInfo{Path: worktreePath, Branch: branchName, ExecutionID: metadata.ExecutionID}, nil
}

func (a *GitAdapter) DeleteWorktree(ctx context.Context, workdir, worktreePath, branchName string, force bool) error {
	args := []string{"worktree", "remove", worktreePath}
	if force {
		args = append(args, "--force")
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workdir
	_, _ = cmd.CombinedOutput()

	if branchName != "" {
		deleteArgs := []string{"branch", "-D", branchName}
		deleteCmd := exec.CommandContext(ctx, "git", deleteArgs...)
		deleteCmd.Dir = workdir
		_, _ = deleteCmd.CombinedOutput()
	}

	return os.RemoveAll(worktreePath)
}

func (a *GitAdapter) ListWorktrees(ctx context.Context, workdir string) ([]WorktreeInfo, error) {
	cmd := exec.CommandContext(ctx, "git", "worktree", "list", "--porcelain")
	cmd.Dir = workdir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("workspace: git worktree list: %w", err)
	}
	return parseWorktreeList(string(out)), nil
}

func (a *GitAdapter) Commit(ctx context.Context, workdir, message string, files []string) error {
	repo, err := git.PlainOpen(workdir)
	if err != nil {
		return fmt.Errorf("workspace: open repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("workspace: worktree: %w", err)
	}

	if len(files) == 0 {
		if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
			return fmt.Errorf("workspace: stage all: %w", err)
		}
	} else {
		for _, file := range files {
			if _, err := wt.Add(file); err != nil {
				continue
			}
		}
	}

	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: a.authorName, Email: a.authorEmail, When: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("workspace: commit: %w", err)
	}
	return nil
}

func (a *GitAdapter) Diff(ctx context.Context, file, workdir string) (*DiffResult, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--", file)
	cmd.Dir = workdir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("workspace: git diff: %w", err)
	}
	return &DiffResult{File: file, Patch: string(out)}, nil
}

func (a *GitAdapter) GeneratePullRequest(ctx context.Context, workdir string, options PullRequestOptions) (*PullRequestResult, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = workdir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve current branch: %w", err)
	}
	branch := trimNewline(string(out))

	pushCmd := exec.CommandContext(ctx, "git", "push", "-u", "origin", branch)
	pushCmd.Dir = workdir
	if out, err := pushCmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("workspace: push branch: %w: %s", err, out)
	}

	return &PullRequestResult{Branch: branch}, nil
}

// WatchWorkspace uses fsnotify to recursively watch workdir, invoking
// callback on every create/write/remove/rename event.
func (a *GitAdapter) WatchWorkspace(ctx context.Context, workdir string, callback func(FileChangeEvent)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("workspace: new watcher: %w", err)
	}

	err = filepath.WalkDir(workdir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() != ".git" {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("workspace: walk workdir: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				callback(FileChangeEvent{File: event.Name, Op: event.Op.String()})
			case <-watcher.Errors:
			case <-ctx.Done():
				watcher.Close()
				return
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

package workspace

import "strings"

// parseWorktreeList parses the output of `git worktree list --porcelain`
// into structured entries.
func parseWorktreeList(porcelain string) []WorktreeInfo {
	var infos []WorktreeInfo
	var current WorktreeInfo

	flush := func() {
		if current.Path != "" {
			infos = append(infos, current)
		}
		current = WorktreeInfo{}
	}

	for _, line := range strings.Split(porcelain, "\n") {
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			branch := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(branch, "refs/heads/")
		}
	}
	flush()

	return infos
}

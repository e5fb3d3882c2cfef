package workspace

import "testing"

func TestParseWorktreeList(t *testing.T) {
	porcelain := "worktree /repo\nHEAD abc123\nbranch refs/heads/main\n\n" +
		"worktree /repo-exec-1\nHEAD def456\nbranch refs/heads/bridge/exec-1\n\n"

	infos := parseWorktreeList(porcelain)
	if len(infos) != 2 {
		t.Fatalf("expected 2 worktrees, got %d", len(infos))
	}
	if infos[0].Path != "/repo" || infos[0].Branch != "main" {
		t.Errorf("unexpected first entry: %+v", infos[0])
	}
	if infos[1].Path != "/repo-exec-1" || infos[1].Branch != "bridge/exec-1" {
		t.Errorf("unexpected second entry: %+v", infos[1])
	}
}

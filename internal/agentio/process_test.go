package agentio

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpawnStreamsStdoutLines(t *testing.T) {
	proc, err := spawn(spawnOptions{
		executionID: "exec-1",
		path:        "/bin/sh",
		args:        []string{"-c", "echo line-one; echo line-two"},
		workdir:     "/tmp",
	})
	if err != nil {
		t.Fatalf("unexpected error spawning: %v", err)
	}

	var lines []string
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-proc.Events:
			if !ok {
				goto done
			}
			lines = append(lines, strings.TrimSpace(string(ev.Bytes)))
		case <-timeout:
			t.Fatal("timed out waiting for process output")
		}
	}
done:
	joined := strings.Join(lines, "|")
	if !strings.Contains(joined, "line-one") || !strings.Contains(joined, "line-two") {
		t.Errorf("expected both lines in output, got %q", joined)
	}
}

func TestProcessCancelKillsLongRunningChild(t *testing.T) {
	proc, err := spawn(spawnOptions{
		executionID: "exec-2",
		path:        "/bin/sh",
		args:        []string{"-c", "sleep 30"},
		workdir:     "/tmp",
	})
	if err != nil {
		t.Fatalf("unexpected error spawning: %v", err)
	}

	go func() {
		for range proc.Events {
		}
	}()

	if err := proc.Cancel(context.Background()); err != nil {
		t.Fatalf("unexpected error cancelling: %v", err)
	}

	select {
	case <-proc.Done:
	case <-time.After(7 * time.Second):
		t.Fatal("expected process to exit after cancel")
	}
}

func TestSuspendThenResumeAllowsNormalExit(t *testing.T) {
	proc, err := spawn(spawnOptions{
		executionID: "exec-3",
		path:        "/bin/sh",
		args:        []string{"-c", "sleep 1"},
		workdir:     "/tmp",
	})
	if err != nil {
		t.Fatalf("unexpected error spawning: %v", err)
	}

	go func() {
		for range proc.Events {
		}
	}()

	if err := proc.Suspend(); err != nil {
		t.Fatalf("unexpected error suspending: %v", err)
	}

	select {
	case <-proc.Done:
		t.Fatal("did not expect a suspended process to exit")
	case <-time.After(300 * time.Millisecond):
	}

	if err := proc.Resume(); err != nil {
		t.Fatalf("unexpected error resuming: %v", err)
	}

	select {
	case <-proc.Done:
	case <-time.After(3 * time.Second):
		t.Fatal("expected process to exit after resume")
	}
}

func TestRingBufferEvictsOldestAndFlagsOnce(t *testing.T) {
	buf := newRingBuffer(4)

	if truncated := buf.Write([]byte("ab")); truncated {
		t.Error("did not expect truncation on first write")
	}
	if truncated := buf.Write([]byte("cdef")); !truncated {
		t.Error("expected truncation flag on overflowing write")
	}
	if truncated := buf.Write([]byte("g")); truncated {
		t.Error("expected truncation flag to fire only once per overflow burst")
	}

	if got := string(buf.Bytes()); len(got) != 4 {
		t.Errorf("expected buffer capped at 4 bytes, got %q", got)
	}
}

package agentio

import "testing"

func TestLocateRejectsUnknownKind(t *testing.T) {
	if _, err := Locate("not-a-kind", ""); err == nil {
		t.Fatal("expected an error for an unknown agent kind")
	}
}

func TestLocateUsesConfiguredPath(t *testing.T) {
	located, err := Locate("claude", "/bin/sh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if located.Path != "/bin/sh" {
		t.Errorf("expected configured path to win, got %q", located.Path)
	}
}

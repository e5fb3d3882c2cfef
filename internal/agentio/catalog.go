package agentio

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// commandInfo describes how to invoke one agent kind, mirroring the
// command/args/env-var catalog shape used to dispatch between agent CLIs.
type commandInfo struct {
	command string
	args    []string
	envVar  string
}

var catalog = map[string]commandInfo{
	"claude": {command: "claude", args: nil, envVar: "ANTHROPIC_API_KEY"},
	"codex":  {command: "codex", args: nil, envVar: "OPENAI_API_KEY"},
	"gemini": {command: "gemini", args: []string{"--experimental-acp"}, envVar: "GEMINI_API_KEY"},
}

// wellKnownLocations are searched, in order, after a configured path and
// before falling back to PATH.
var wellKnownLocations = []string{
	"/usr/local/bin",
	"/opt/homebrew/bin",
}

// Located describes a resolved agent binary.
type Located struct {
	Path    string
	Version string
}

// ErrNotInstalled indicates Locate could not find the requested agent kind
// anywhere it looked.
type ErrNotInstalled struct {
	Kind string
}

func (e *ErrNotInstalled) Error() string {
	return "agentio: " + e.Kind + " is not installed"
}

// Locate resolves an agent binary: a user-configured path first, then a
// short list of well-known install locations, then the process search path.
func Locate(kind string, configuredPath string) (*Located, error) {
	info, ok := catalog[kind]
	if !ok {
		return nil, &ErrNotInstalled{Kind: kind}
	}

	if configuredPath != "" {
		if st, err := os.Stat(configuredPath); err == nil && !st.IsDir() {
			return &Located{Path: configuredPath, Version: probeVersion(configuredPath)}, nil
		}
	}

	for _, dir := range wellKnownLocations {
		candidate := filepath.Join(dir, info.command)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return &Located{Path: candidate, Version: probeVersion(candidate)}, nil
		}
	}

	if path, err := exec.LookPath(info.command); err == nil {
		return &Located{Path: path, Version: probeVersion(path)}, nil
	}

	return nil, &ErrNotInstalled{Kind: kind}
}

func probeVersion(path string) string {
	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

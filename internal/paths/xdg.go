// Package paths resolves the bridge's XDG-compliant on-disk layout:
// config, data (identity keys, audit log), and runtime (pid file) paths.
//
// Resolution order:
// 1. PROMPT_DOCK_HOME (portable root) -> $PROMPT_DOCK_HOME/{config,data,state}/prompt-dock-bridge
// 2. XDG env vars -> $XDG_*_HOME/prompt-dock-bridge
// 3. Platform defaults -> ~/.config/prompt-dock-bridge, ~/.local/share/prompt-dock-bridge, etc.
package paths

import (
	"os"
	"path/filepath"
)

func getConfigHome() string {
	if home := os.Getenv("PROMPT_DOCK_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return ""
}

func getDataHome() string {
	if home := os.Getenv("PROMPT_DOCK_HOME"); home != "" {
		return filepath.Join(home, "data")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return ""
}

func getStateHome() string {
	if home := os.Getenv("PROMPT_DOCK_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return xdg
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state")
	}
	return ""
}

// ConfigDir is where config.json lives.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "prompt-dock-bridge")
}

// DataDir is where the signing identity and audit log live.
func DataDir() string {
	base := getDataHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "prompt-dock-bridge")
}

// StateDir is where the pid file and daemon log live.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "prompt-dock-bridge")
}

// ConfigFilePath is the default config.json location.
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// PidFilePath is the default running-daemon pid file location.
func PidFilePath() string {
	return filepath.Join(StateDir(), "bridge.pid")
}

// LogFilePath is the default daemon stdout/stderr log location.
func LogFilePath() string {
	return filepath.Join(StateDir(), "bridge.log")
}

// EnsureDirs creates every directory this package resolves, if missing.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), DataDir(), StateDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWithNoOverrides(t *testing.T) {
	cfg, err := Load("", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 51720 {
		t.Errorf("expected default port 51720, got %d", cfg.Port)
	}
	if cfg.WSPort != 51721 {
		t.Errorf("expected wsPort defaulted to port+1, got %d", cfg.WSPort)
	}
}

func TestLoadPrecedenceFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"port": 9000}`), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path, map[string]string{"PROMPT_DOCK_PORT": "9100"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("expected env to win over file, got %d", cfg.Port)
	}
}

func TestLoadFlagOverridesEverything(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"port": 9000}`), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path, map[string]string{"PROMPT_DOCK_PORT": "9100"}, map[string]any{"port": 9200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9200 {
		t.Errorf("expected flag to win over env and file, got %d", cfg.Port)
	}
}

func TestLoadRejectsEqualPorts(t *testing.T) {
	if _, err := Load("", nil, map[string]any{"port": 8000, "wsPort": 8000}); err == nil {
		t.Fatal("expected an error when port equals wsPort")
	}
}

func TestLoadMergesCustomOriginsOnlyWhenBothFlagsSet(t *testing.T) {
	cfg, err := Load("", nil, map[string]any{
		"customOrigins": []any{"https://custom.example"},
		"security": map[string]any{
			"allowCustomOrigins":       true,
			"customOriginAcknowledged": false,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "https://custom.example" {
			t.Fatal("expected custom origin to be excluded when not acknowledged")
		}
	}

	cfg, err = Load("", nil, map[string]any{
		"customOrigins": []any{"https://custom.example"},
		"security": map[string]any{
			"allowCustomOrigins":       true,
			"customOriginAcknowledged": true,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, origin := range cfg.AllowedOrigins {
		if origin == "https://custom.example" {
			found = true
		}
	}
	if !found {
		t.Error("expected custom origin to be merged when both flags are true")
	}
}

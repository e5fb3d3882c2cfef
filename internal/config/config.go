// Package config implements the daemon's four-layer configuration
// precedence: built-in default < config file < environment < CLI flag.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Security groups the session/admission tuning knobs.
type Security struct {
	SessionTimeout           int  `mapstructure:"sessionTimeout" json:"sessionTimeout"`
	CommandTimeout           int  `mapstructure:"commandTimeout" json:"commandTimeout"`
	ClockSkewTolerance       int  `mapstructure:"clockSkewTolerance" json:"clockSkewTolerance"`
	MaxCommandsPerMinute     int  `mapstructure:"maxCommandsPerMinute" json:"maxCommandsPerMinute"`
	AllowCustomOrigins       bool `mapstructure:"allowCustomOrigins" json:"allowCustomOrigins"`
	CustomOriginAcknowledged bool `mapstructure:"customOriginAcknowledged" json:"customOriginAcknowledged"`
}

// Agents groups AgentSupervisor tuning.
type Agents struct {
	Preferred      string            `mapstructure:"preferred" json:"preferred"`
	Paths          map[string]string `mapstructure:"paths" json:"paths"`
	Timeout        int               `mapstructure:"timeout" json:"timeout"`
	RetryAttempts  int               `mapstructure:"retryAttempts" json:"retryAttempts"`
	MaxBufferBytes int               `mapstructure:"maxBufferBytes" json:"maxBufferBytes"`
}

// Git groups flags forwarded to the WorkspaceAdapter.
type Git struct {
	AuthorName  string `mapstructure:"authorName" json:"authorName"`
	AuthorEmail string `mapstructure:"authorEmail" json:"authorEmail"`
}

// Config is the fully merged, typed configuration for one daemon run.
type Config struct {
	Port           int      `mapstructure:"port" json:"port"`
	WSPort         int      `mapstructure:"wsPort" json:"wsPort"`
	AllowedOrigins []string `mapstructure:"allowedOrigins" json:"allowedOrigins"`
	CustomOrigins  []string `mapstructure:"customOrigins" json:"customOrigins"`

	Security Security `mapstructure:"security" json:"security"`
	Agents   Agents   `mapstructure:"agents" json:"agents"`
	Git      Git      `mapstructure:"git" json:"git"`
}

// Default returns the built-in baseline layer.
func Default() Config {
	return Config{
		Port: 51720,
		// WSPort is left zero so Load derives it as Port+1 after merging.
		AllowedOrigins: []string{"http://localhost:3000"},
		Security: Security{
			SessionTimeout:       60 * 60 * 1000,
			CommandTimeout:       30 * 1000,
			ClockSkewTolerance:   5000,
			MaxCommandsPerMinute: 60,
		},
		Agents: Agents{
			Timeout:        30 * 1000,
			RetryAttempts:  1,
			MaxBufferBytes: 4 * 1024 * 1024,
		},
	}
}

// Load merges the four precedence layers and decodes the result into a
// Config: built-in default < config file (if it exists) < environment
// overrides < CLI flag overrides.
func Load(configPath string, envOverrides map[string]string, flagOverrides map[string]any) (*Config, error) {
	merged := toMap(Default())

	if configPath != "" {
		fileLayer, err := readFileLayer(configPath)
		if err != nil {
			return nil, err
		}
		mergeInto(merged, fileLayer)
	}

	mergeInto(merged, envLayer(envOverrides))
	mergeInto(merged, flagOverrides)

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &cfg, TagName: "mapstructure"})
	if err != nil {
		return nil, fmt.Errorf("config: build decoder: %w", err)
	}
	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("config: decode merged layers: %w", err)
	}

	if cfg.WSPort == 0 {
		cfg.WSPort = cfg.Port + 1
	}
	if cfg.WSPort == cfg.Port {
		return nil, fmt.Errorf("config: wsPort must differ from port")
	}
	if cfg.Security.SessionTimeout < 60000 {
		return nil, fmt.Errorf("config: security.sessionTimeout must be >= 60000ms")
	}
	if cfg.Security.MaxCommandsPerMinute < 1 {
		return nil, fmt.Errorf("config: security.maxCommandsPerMinute must be >= 1")
	}
	if cfg.Agents.Timeout < 30000 {
		return nil, fmt.Errorf("config: agents.timeout must be >= 30000ms")
	}

	if cfg.Security.AllowCustomOrigins && cfg.Security.CustomOriginAcknowledged {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, cfg.CustomOrigins...)
	}

	return &cfg, nil
}

func toMap(cfg Config) map[string]any {
	var out map[string]any
	raw, _ := json.Marshal(cfg)
	_ = json.Unmarshal(raw, &out)
	return out
}

func readFileLayer(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var layer map[string]any
	if err := json.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return layer, nil
}

// envLayer translates PROMPT_DOCK_PORT and PROMPT_DOCK_WS_PORT into the same
// nested-map shape as the other layers; a value that is not an integer is
// ignored. No other environment variable (PROMPT_DOCK_HUB, LOG_LEVEL) is
// read here.
func envLayer(env map[string]string) map[string]any {
	layer := map[string]any{}
	if v, ok := env["PROMPT_DOCK_PORT"]; ok {
		if port, err := strconv.Atoi(v); err == nil {
			layer["port"] = port
		}
	}
	if v, ok := env["PROMPT_DOCK_WS_PORT"]; ok {
		if port, err := strconv.Atoi(v); err == nil {
			layer["wsPort"] = port
		}
	}
	return layer
}

// mergeInto shallow-then-namespace merges src into dst, recursing one
// level for nested maps (security/agents/git) so a partial override layer
// doesn't blow away sibling keys set by an earlier layer.
func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		if nested, ok := value.(map[string]any); ok {
			existing, _ := dst[key].(map[string]any)
			if existing == nil {
				existing = map[string]any{}
			}
			mergeInto(existing, nested)
			dst[key] = existing
			continue
		}
		dst[key] = value
	}
}

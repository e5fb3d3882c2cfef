package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/config"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/paths"
)

func newConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective, fully merged configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = paths.ConfigFilePath()
			}
			cfg, err := config.Load(configPath, envOverridesFromProcess(), nil)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			encoded, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("config: marshal: %w", err)
			}
			fmt.Println(string(encoded))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json (default: XDG config dir)")
	return cmd
}

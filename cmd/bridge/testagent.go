package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/agentio"
)

func newTestAgentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-agent <kind>",
		Short: "Locate an agent CLI and print its resolved path and version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			located, err := agentio.Locate(kind, "")
			if err != nil {
				return fmt.Errorf("test-agent: %w", err)
			}
			fmt.Printf("%s: %s (%s)\n", kind, located.Path, located.Version)
			return nil
		},
	}
}

func envOverridesFromProcess() map[string]string {
	env := map[string]string{}
	for _, key := range []string{"PROMPT_DOCK_PORT", "PROMPT_DOCK_WS_PORT"} {
		if v := os.Getenv(key); v != "" {
			env[key] = v
		}
	}
	return env
}

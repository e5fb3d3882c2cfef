package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/daemon/pidfile"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/paths"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the bridge daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			if !running {
				fmt.Println("bridge is not running")
				return nil
			}
			fmt.Printf("bridge is running (pid %d)\n", pid)
			return nil
		},
	}
}

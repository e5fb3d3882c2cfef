package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/daemon/pidfile"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/paths"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running bridge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()

			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("stop: %w", err)
			}
			if !running {
				fmt.Println("bridge is not running")
				return nil
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("stop: find process %d: %w", pid, err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("stop: signal process %d: %w", pid, err)
			}

			fmt.Printf("sent SIGTERM to bridge (pid %d)\n", pid)
			return nil
		},
	}
}

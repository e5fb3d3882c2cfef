// Command bridge is the prompt-dock-bridge daemon and its CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "prompt-dock-bridge daemon",
		Long:  "Runs and manages the prompt-dock-bridge daemon: pairing, sessions, agent orchestration, and the workspace adapter.",
	}

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newTestAgentCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

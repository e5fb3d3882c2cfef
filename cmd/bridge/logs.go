package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/paths"
)

func newLogsCmd() *cobra.Command {
	var (
		lines  int
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the bridge daemon's log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(paths.LogFilePath(), lines, follow)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new lines as they are written")

	return cmd
}

func runLogs(path string, n int, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("logs: open %s: %w", path, err)
	}
	defer file.Close()

	tail, err := tailLines(file, n)
	if err != nil {
		return fmt.Errorf("logs: read %s: %w", path, err)
	}
	for _, line := range tail {
		fmt.Println(line)
	}

	if !follow {
		return nil
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err != nil {
			return fmt.Errorf("logs: follow %s: %w", path, err)
		}
		fmt.Print(line)
	}
}

func tailLines(r io.Reader, n int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var buf []string
	for scanner.Scan() {
		buf = append(buf, scanner.Text())
		if len(buf) > n {
			buf = buf[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}

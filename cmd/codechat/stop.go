package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:     "stop",
	Short:   "Stop all running server instances by process-name match",
	GroupID: "serving",
	RunE:    runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	pids, err := findServerPIDs()
	if err != nil {
		return fmt.Errorf("scanning running processes: %w", err)
	}
	if len(pids) == 0 {
		fmt.Fprintln(os.Stdout, "no running codechat server instances found")
		return nil
	}
	for _, pid := range pids {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			fmt.Fprintf(os.Stderr, "failed to stop pid %d: %v\n", pid, err)
			continue
		}
		fmt.Fprintf(os.Stdout, "stopped pid %d\n", pid)
	}
	return nil
}

// findServerPIDs scans /proc for processes whose command line names this
// binary running the serve subcommand, excluding the caller itself (§6:
// "stop all server instances by process-name match").
func findServerPIDs() ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	self := os.Getpid()
	var pids []int
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}
		data, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "cmdline"))
		if err != nil {
			continue
		}
		cmdline := strings.ReplaceAll(string(data), "\x00", " ")
		if strings.Contains(cmdline, "codechat") && strings.Contains(cmdline, "serve") {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

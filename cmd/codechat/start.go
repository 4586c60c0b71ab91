package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// readyWait bounds how long `start` waits for the launched child's
// CODECHAT_READY marker before giving up and killing it (§5).
const readyWait = 10 * time.Second

var startCmd = &cobra.Command{
	Use:     "start",
	Short:   "Start a background server and wait for the ready marker",
	GroupID: "serving",
	RunE:    runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().Bool("insecure", false, "bind HTTP/WebSocket to 0.0.0.0")
	startCmd.Flags().Bool("coverage", false, "enable coverage instrumentation in the launched child")
}

func runStart(cmd *cobra.Command, args []string) error {
	insecure, _ := cmd.Flags().GetBool("insecure")
	coverage, _ := cmd.Flags().GetBool("coverage")

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving own executable path: %w", err)
	}

	serveArgs := []string{"serve"}
	if insecure {
		serveArgs = append(serveArgs, "--insecure")
	}

	child := exec.Command(self, serveArgs...)
	if coverage {
		child.Env = append(os.Environ(), "GOCOVERDIR="+os.TempDir())
	} else {
		child.Env = os.Environ()
	}

	stderr, err := child.StderrPipe()
	if err != nil {
		return fmt.Errorf("attaching to child stderr: %w", err)
	}
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	ready := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			fmt.Fprintln(os.Stderr, line)
			if strings.Contains(line, "CODECHAT_READY") {
				ready <- nil
				return
			}
		}
		ready <- fmt.Errorf("server exited before printing the ready marker")
	}()

	select {
	case err := <-ready:
		if err != nil {
			child.Process.Kill()
			return err
		}
	case <-time.After(readyWait):
		child.Process.Kill()
		return fmt.Errorf("timed out after %s waiting for the ready marker", readyWait)
	}

	// Detach: the child keeps running after this process exits.
	if err := child.Process.Release(); err != nil {
		return fmt.Errorf("releasing server process: %w", err)
	}
	fmt.Fprintf(os.Stdout, "codechat server started (pid %d)\n", child.Process.Pid)
	return nil
}

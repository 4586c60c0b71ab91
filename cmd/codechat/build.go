package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codechat.dev/server/internal/render"
)

var buildCmd = &cobra.Command{
	Use:     "build <path>...",
	Short:   "One-shot render of one or more files",
	Long:    "Render each path without starting a server. HTML (or a pointer to a file) goes to stdout, diagnostics to stderr.",
	GroupID: "rendering",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	dispatcher := render.New()
	failed := false

	for _, path := range args {
		text, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}

		outcome := dispatcher.RenderFile(string(text), path, false, func(chunk string) {
			fmt.Fprint(os.Stderr, chunk)
		})
		if !outcome.WasPerformed {
			continue
		}
		if outcome.Err != "" {
			fmt.Fprintln(os.Stderr, outcome.Err)
			failed = true
		}
		if outcome.HasHTML {
			fmt.Fprintln(os.Stdout, outcome.HTML)
		} else {
			fmt.Fprintln(os.Stdout, outcome.RenderedFilePath)
		}
	}

	if failed {
		return fmt.Errorf("one or more paths failed to render")
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codechat.dev/server/internal/transport/rpc"
	"codechat.dev/server/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch --paths <dir>...",
	Short:   "Subscribe to filesystem changes and submit renders",
	GroupID: "rendering",
	RunE:    runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringSlice("paths", nil, "directories to watch")
	watchCmd.Flags().StringSlice("patterns", nil, "glob patterns a changed file must match (default: all)")
	watchCmd.Flags().StringSlice("ignore-patterns", nil, "glob patterns that exclude a changed file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	paths, _ := cmd.Flags().GetStringSlice("paths")
	patterns, _ := cmd.Flags().GetStringSlice("patterns")
	ignorePatterns, _ := cmd.Flags().GetStringSlice("ignore-patterns")
	if len(paths) == 0 {
		return fmt.Errorf("--paths is required")
	}

	client, err := rpc.Dial(rpcAddr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", rpcAddr, err)
	}
	defer client.Close()

	reply, err := client.GetClient(rpc.LocationBrowser)
	if err != nil {
		return fmt.Errorf("registering a viewer client: %w", err)
	}
	id := reply.ID
	fmt.Fprintf(os.Stderr, "watching, submitting renders against client %d\n", id)

	onChange := func(batch []watcher.Event) {
		for _, ev := range batch {
			text, err := os.ReadFile(ev.Path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "watch: reading %s: %v\n", ev.Path, err)
				continue
			}
			if err := client.StartRender(id, string(text), ev.Path, false); err != nil {
				fmt.Fprintf(os.Stderr, "watch: rendering %s: %v\n", ev.Path, err)
			}
		}
	}

	watchers := make([]*watcher.Watcher, 0, len(paths))
	for _, p := range paths {
		w := watcher.New(p, patterns, ignorePatterns, onChange)
		if err := w.Start(); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		watchers = append(watchers, w)
	}
	defer func() {
		for _, w := range watchers {
			w.Stop()
		}
	}()

	select {}
}

// Package main implements the codechat CLI: start/stop/serve/build/render/
// watch subcommands (§6's CLI surface, filled in by this expansion — the
// distilled spec treats the front-end as an external collaborator). serve
// runs the server in the foreground and start launches it in the
// background; stop signals running instances; build renders in-process;
// render and watch talk to a running instance over the editor RPC client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	codechat "codechat.dev/server"
)

var rpcAddr string

var rootCmd = &cobra.Command{
	Use:          "codechat",
	Short:        "A local rendering service for editor buffers and documents",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rpcAddr, "rpc-addr", fmt.Sprintf("127.0.0.1:%d", codechat.DefaultRPCPort), "editor RPC address of a running instance")

	rootCmd.AddGroup(
		&cobra.Group{ID: "serving", Title: "Serving"},
		&cobra.Group{ID: "rendering", Title: "Rendering"},
	)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

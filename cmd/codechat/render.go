package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	codechat "codechat.dev/server"
	"codechat.dev/server/internal/transport/rpc"
)

var renderCmd = &cobra.Command{
	Use:     "render <path> <id>",
	Short:   "Submit one render to an existing server",
	Long:    "id is auto-created against the running server when negative.",
	GroupID: "rendering",
	Args:    cobra.ExactArgs(2),
	RunE:    runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	path := args[0]
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid client id %q: %w", args[1], err)
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	client, err := rpc.Dial(rpcAddr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", rpcAddr, err)
	}
	defer client.Close()

	return client.StartRender(codechat.ClientID(id), string(text), path, false)
}

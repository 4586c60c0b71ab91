package main

import (
	"embed"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	codechat "codechat.dev/server"
	"codechat.dev/server/internal/bundler"
	"codechat.dev/server/internal/manager"
	"codechat.dev/server/internal/render"
	"codechat.dev/server/internal/transport/httpapi"
	"codechat.dev/server/internal/transport/rpc"
	"codechat.dev/server/internal/transport/ws"
)

//go:embed viewer.html
var viewerHTML embed.FS

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the CodeChat server in the foreground",
	Long:    "Start the editor RPC, HTTP, and WebSocket listeners and block until terminated.",
	GroupID: "serving",
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("insecure", false, "bind HTTP/WebSocket to 0.0.0.0 and serve /insecure")
	serveCmd.Flags().Bool("quiet", false, "suppress info-level logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	insecure, _ := cmd.Flags().GetBool("insecure")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfg := codechat.DefaultServiceConfig()
	if insecure {
		cfg.Insecure = true
	}

	var log *codechat.Logger
	if quiet {
		log = codechat.NewQuietLogger()
	} else {
		log = codechat.NewLogger()
	}

	rpcLis, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.RPCPort))
	if err != nil {
		return portExclusivityError(cfg.RPCPort, err)
	}
	httpLis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.BindHost(), cfg.HTTPPort))
	if err != nil {
		rpcLis.Close()
		return portExclusivityError(cfg.HTTPPort, err)
	}
	wsLis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.BindHost(), cfg.WebSocketPort))
	if err != nil {
		rpcLis.Close()
		httpLis.Close()
		return portExclusivityError(cfg.WebSocketPort, err)
	}

	if err := bundler.BundleViewer("viewer/viewer.ts", "viewer/static"); err != nil {
		log.Warn("bundling viewer assets failed; /static will be stale", "err", err)
	}

	mgr := manager.New(render.New(), log)
	mgr.Start(4)
	defer mgr.Close()

	svc := rpc.NewService(mgr, cfg, log)
	go func() {
		if err := rpc.Serve(rpcLis, svc); err != nil {
			log.Error("editor rpc listener stopped", "err", err)
		}
	}()

	viewerPage, err := viewerHTML.ReadFile("viewer.html")
	if err != nil {
		return fmt.Errorf("reading embedded viewer page: %w", err)
	}
	httpHandler := httpapi.New(mgr, log, "viewer/static", viewerPage)
	httpServer := &http.Server{Handler: httpHandler}
	go func() {
		if err := httpServer.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			log.Error("http listener stopped", "err", err)
		}
	}()

	wsHandler := ws.New(mgr, log)
	wsServer := &http.Server{Handler: wsHandler}
	go func() {
		if err := wsServer.Serve(wsLis); err != nil && err != http.ErrServerClosed {
			log.Error("websocket listener stopped", "err", err)
		}
	}()

	fmt.Fprint(os.Stderr, codechat.ReadyMarker+"\n")

	// When launched by `start`, stderr is a pipe whose reader exits once the
	// ready marker is seen; ignore SIGPIPE so later log writes fail quietly
	// instead of terminating the server.
	signal.Ignore(syscall.SIGPIPE)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	svc.MarkDraining()
	shutdownDone := mgr.Shutdown()
	<-shutdownDone

	rpcLis.Close()
	httpServer.Close()
	wsServer.Close()
	return nil
}

// portExclusivityError produces the canonical stderr message §8 property 7
// requires when a second instance collides on an already-bound port.
func portExclusivityError(port int, cause error) error {
	return fmt.Errorf("Error: port(s) %d already in use: %w", port, cause)
}

package rpc

import (
	"fmt"
	"net"
	"net/rpc"
	"sync/atomic"

	codechat "codechat.dev/server"
	"codechat.dev/server/internal/browser"
	"codechat.dev/server/internal/manager"
)

// Service is the net/rpc-registered receiver for the editor RPC surface.
// Its exported methods are the four operations of §4.7; net/rpc dispatches
// to them by reflection, one goroutine per inbound connection.
type Service struct {
	mgr *manager.RenderManager
	cfg codechat.ServiceConfig
	log *codechat.Logger

	draining atomic.Bool
}

// NewService constructs the RPC receiver. Call MarkDraining once
// service-wide shutdown begins so Ping starts reporting it.
func NewService(mgr *manager.RenderManager, cfg codechat.ServiceConfig, log *codechat.Logger) *Service {
	return &Service{mgr: mgr, cfg: cfg, log: log}
}

// MarkDraining flips the flag Ping reports (§4.8's draining state).
func (s *Service) MarkDraining() {
	s.draining.Store(true)
}

// Serve registers the service and accepts connections on lis until it is
// closed, handling each on its own goroutine — the "bounded pool of OS
// threads" §5 assigns to the editor RPC server, realized here as Go's
// natural one-goroutine-per-connection model.
func Serve(lis net.Listener, svc *Service) error {
	server := rpc.NewServer()
	if err := server.RegisterName("CodeChat", svc); err != nil {
		return fmt.Errorf("rpc: registering service: %w", err)
	}
	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		go server.ServeConn(conn)
	}
}

// unknownClientError is the canonical error text of §4.7.
func unknownClientError(id codechat.ClientID) string {
	return fmt.Sprintf("Unknown client id %d.", id)
}

// GetClient implements get_client: allocate a new client id and report its
// viewer address in the form the caller asked for. §8 scenario 5 requires an
// out-of-range Location to be rejected before any client is allocated.
func (s *Service) GetClient(args GetClientArgs, reply *GetClientReply) error {
	switch args.Location {
	case LocationURL, LocationHTML, LocationBrowser:
	default:
		reply.ID = -1
		reply.Error = fmt.Sprintf("Invalid location %s", args.Location)
		return nil
	}

	id, status := s.mgr.CreateClient(nil)
	if status == manager.CreateShuttingDown {
		reply.Error = "server is shutting down"
		return nil
	}

	url := codechat.ViewerURL(s.cfg, id)
	reply.ID = id

	switch args.Location {
	case LocationHTML:
		reply.HTML = fmt.Sprintf(`<html><head><meta http-equiv="refresh" content="0; url=%s"></head></html>`, url)
	case LocationBrowser:
		if err := browser.Open(url); err != nil {
			s.log.Warn("failed to open browser", "error", err, "url", url)
		}
	default:
		reply.URL = url
	}
	return nil
}

// StartRender implements start_render: delegate to the manager, auto-
// creating a pre-declared negative id and opening a browser window on the
// first submission against it (§4.7).
func (s *Service) StartRender(args StartRenderArgs, reply *StartRenderReply) error {
	if s.mgr.StartRender(args.Text, args.FilePath, args.ID, args.IsDirty) {
		return nil
	}

	if args.ID < 0 {
		if _, status := s.mgr.CreateClient(&args.ID); status == manager.CreateOK {
			url := codechat.ViewerURL(s.cfg, args.ID)
			if err := browser.Open(url); err != nil {
				s.log.Warn("failed to open browser", "error", err, "url", url)
			}
			if s.mgr.StartRender(args.Text, args.FilePath, args.ID, args.IsDirty) {
				return nil
			}
		}
	}

	reply.Error = unknownClientError(args.ID)
	return nil
}

// StopClient implements stop_client: begin the graceful per-client teardown
// choreography described in §4.7.
func (s *Service) StopClient(args StopClientArgs, reply *StopClientReply) error {
	if !s.mgr.ShutdownClient(args.ID) {
		reply.Error = unknownClientError(args.ID)
	}
	return nil
}

// Ping implements ping: empty when healthy, non-empty when draining.
func (s *Service) Ping(args PingArgs, reply *PingReply) error {
	if s.draining.Load() {
		reply.Error = "server is shutting down"
	}
	return nil
}

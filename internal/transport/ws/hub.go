// Package ws implements the WebSocket push loop of §4.5/§6: one goroutine
// per viewer connection that drains a client's mailbox to the socket and
// accepts the small set of inbound viewer messages, on coder/websocket (the
// WebSocket library exercised elsewhere in this dependency corpus — see
// DESIGN.md).
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	codechat "codechat.dev/server"
	"codechat.dev/server/internal/manager"
	"codechat.dev/server/internal/render"
)

// Handler accepts viewer WebSocket connections and runs the push loop
// described in the SYSTEM OVERVIEW table: "Per-viewer connection; drain
// mailbox to socket; accept inbound viewer messages."
type Handler struct {
	mgr *manager.RenderManager
	log *codechat.Logger
}

// New builds a WebSocket Handler.
func New(mgr *manager.RenderManager, log *codechat.Logger) *Handler {
	return &Handler{mgr: mgr, log: log}
}

// inboundIdent matches the xml_node identifiers save_file is allowed to act
// on (§4.5's REDESIGN FLAG: treat xml_node as a literal attribute match and
// reject anything that isn't an identifier-shaped value, rather than
// embedding it into a query expression unchecked).
var inboundIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// saveFilePayload is the save_file message's data object (§4.5).
type saveFilePayload struct {
	XMLNode      string `json:"xml_node"`
	FileContents string `json:"file_contents"`
}

// navigateToErrorPayload is the navigate_to_error message's data object.
type navigateToErrorPayload struct {
	Line     int    `json:"line"`
	FilePath string `json:"file_path"`
}

// ServeHTTP upgrades the request to a WebSocket, reads the first frame as
// the viewer's integer client id, and runs the connection's push/pull loop
// until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Error("ws: accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	var id codechat.ClientID
	if err := wsjson.Read(ctx, conn, &id); err != nil {
		h.log.Error("ws: reading client id frame", "err", err)
		return
	}

	queue, ok := h.mgr.GetQueue(id)
	if !ok {
		wsjson.Write(ctx, conn, codechat.CommandEvent(fmt.Sprintf("error: unknown client %d", id)))
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	log := h.log.With("client", int64(id))
	done := make(chan struct{})
	go h.readLoop(ctx, conn, id, log, done)
	h.writeLoop(ctx, conn, id, queue, log, done)
}

// writeLoop drains id's mailbox to the socket, one event per frame, until
// the shutdown command is sent or the connection dies. Per §4.5 step 3 and
// §4.7 step 3, the loop itself requests deleteClient when it emits the
// shutdown frame; RenderManager's own AfterFunc is only the fallback for a
// viewer that never consumes that frame.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, id codechat.ClientID, queue <-chan codechat.Event, log *codechat.Logger, done chan struct{}) {
	for {
		select {
		case evt, ok := <-queue:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, evt); err != nil {
				log.Error("ws: write failed", "err", err)
				conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
			if evt.Type == codechat.GetResultCommand && evt.Text == codechat.ShutdownCommand.Text {
				h.mgr.DeleteClient(id)
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// readLoop accepts inbound [msg, data] frames from the viewer.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, id codechat.ClientID, log *codechat.Logger, done chan struct{}) {
	defer close(done)
	for {
		var frame [2]json.RawMessage
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if !errors.Is(err, context.Canceled) && websocket.CloseStatus(err) == -1 {
				log.Debug("ws: read loop ending", "err", err)
			}
			return
		}

		var msg string
		if err := json.Unmarshal(frame[0], &msg); err != nil {
			log.Error("ws: malformed inbound message tag", "err", err)
			continue
		}

		switch msg {
		case "save_file":
			h.handleSaveFile(id, frame[1], log)
		case "navigate_to_error":
			h.handleNavigateToError(frame[1], log)
		default:
			log.Info("ws: ignoring unknown inbound message", "msg", msg)
		}
	}
}

// handleSaveFile implements §4.5's save_file contract: resolve the source
// file behind xml_node via the project's PreTeXt mapping and rewrite its
// matching element in place. All failures are logged and the write is
// abandoned, per spec.
func (h *Handler) handleSaveFile(id codechat.ClientID, data json.RawMessage, log *codechat.Logger) {
	var payload saveFilePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Error("ws: save_file: malformed payload", "err", err)
		return
	}
	if !inboundIdent.MatchString(payload.XMLNode) {
		log.Error("ws: save_file: rejecting non-identifier xml_node", "xml_node", payload.XMLNode)
		return
	}

	last, ok := h.mgr.GetLastRender(id)
	if !ok || last.ProjectPath == "" {
		log.Error("ws: save_file: no project render on record for this client")
		return
	}

	cfg, err := render.LoadProjectConfig(last.ProjectPath)
	if err != nil {
		log.Error("ws: save_file: loading project config", "err", err)
		return
	}

	source, ok := render.ResolveSourceForXMLID(cfg, payload.XMLNode)
	if !ok {
		log.Error("ws: save_file: no source file maps to xml_node", "xml_node", payload.XMLNode)
		return
	}

	if err := render.ReplaceXMLElement(source, payload.XMLNode, payload.FileContents); err != nil {
		log.Error("ws: save_file: writing source file back", "source", source, "err", err)
		return
	}
	log.Info("ws: save_file: wrote source file", "source", source, "xml_node", payload.XMLNode)
}

// handleNavigateToError logs the editor-navigation request; the distilled
// spec has no editor-side transport for this yet (§REDESIGN FLAGS), so this
// is a logging stub until one is defined.
func (h *Handler) handleNavigateToError(data json.RawMessage, log *codechat.Logger) {
	var payload navigateToErrorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Error("ws: navigate_to_error: malformed payload", "err", err)
		return
	}
	log.Info("ws: navigate_to_error", "file_path", payload.FilePath, "line", payload.Line)
}

// Package rpc implements the editor RPC handler of §4.7: get_client,
// start_render, stop_client, and ping, served over stdlib net/rpc with
// encoding/gob framing — the distilled spec explicitly scopes the wire
// syntax out, and no third-party RPC/serialization framework appears
// anywhere in the reachable dependency corpus (see DESIGN.md).
package rpc

import (
	codechat "codechat.dev/server"
)

// Location selects how get_client reports the new viewer's address.
type Location string

const (
	LocationURL     Location = "url"
	LocationHTML    Location = "html"
	LocationBrowser Location = "browser"
)

// GetClientArgs is the get_client request (§4.7).
type GetClientArgs struct {
	Location Location
}

// GetClientReply carries exactly one of URL or HTML populated, per the
// requested Location; LocationBrowser leaves both empty, since the browser
// is opened server-side instead.
type GetClientReply struct {
	ID    codechat.ClientID
	URL   string
	HTML  string
	Error string
}

// StartRenderArgs is the start_render request (§4.7).
type StartRenderArgs struct {
	ID       codechat.ClientID
	Text     string
	FilePath string
	IsDirty  bool
}

// StartRenderReply carries the canonical "Unknown client id N." error text
// on failure, empty on success.
type StartRenderReply struct {
	Error string
}

// StopClientArgs is the stop_client request (§4.7).
type StopClientArgs struct {
	ID codechat.ClientID
}

// StopClientReply carries an error on failure, empty on success.
type StopClientReply struct {
	Error string
}

// PingArgs is the (argument-less) ping request.
type PingArgs struct{}

// PingReply is empty when healthy, non-empty (describing the shutdown
// state) when draining (§4.8).
type PingReply struct {
	Error string
}

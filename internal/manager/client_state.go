// Package manager implements the RenderManager registry, the per-client
// job pipeline, and the render worker pool described in §4.3/§4.4 of the
// service design: coalescing, ordering, cancellation, and the scheduling
// contract that guarantees at most one in-flight render per client.
package manager

import (
	"sync"

	codechat "codechat.dev/server"
)

// clientState is one viewer session's mutable state. The fields it holds
// mirror §3's ClientState record exactly.
//
// Mutation discipline: the registry that holds clientStates is owned by
// RenderManager's dispatcher goroutine, but the fields below are read and
// written from several goroutines: the worker that currently owns the
// client via the single-dequeue rule of worker, and the façade methods
// (StartRender, DeleteClient, ShutdownClient, GetRenderResults) running on
// their callers' goroutines. mu guards every field except mailbox, which is
// a channel and is sent to without the lock; see RenderManager for the full
// protocol.
type clientState struct {
	mu sync.Mutex

	id codechat.ClientID

	// mailbox is the single-reader/multi-writer FIFO of outbound events.
	// A generous buffer means producers (the worker, the RPC handler, the
	// WebSocket reader) never block on a slow or absent viewer.
	mailbox chan codechat.Event

	pending         *codechat.PendingRender
	lastRender      codechat.LastRender
	hasLastRender   bool
	inJobQueue      bool
	needsProcessing bool
	deleting        bool
}

func newClientState(id codechat.ClientID) *clientState {
	return &clientState{
		id:      id,
		mailbox: make(chan codechat.Event, 64),
	}
}

// setPending overwrites the pending slot unconditionally, per the
// coalescing contract of §4.3: later submissions replace earlier ones
// while a render is in flight.
func (c *clientState) setPending(p codechat.PendingRender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &p
	c.needsProcessing = true
}

// takePending reads and clears the pending slot exactly once, at the start
// of a render cycle (the "snapshot" of §4.3/§4.4).
func (c *clientState) takePending() (codechat.PendingRender, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.needsProcessing = false
	if c.pending == nil {
		return codechat.PendingRender{}, false
	}
	p := *c.pending
	c.pending = nil
	return p, true
}

func (c *clientState) setLastRender(r codechat.LastRender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRender = r
	c.hasLastRender = true
}

func (c *clientState) getLastRender() (codechat.LastRender, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRender, c.hasLastRender
}

func (c *clientState) isDeleting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleting
}

// send enqueues an event to the mailbox without blocking indefinitely: a
// full mailbox means the viewer connection is stuck, and dropping is
// preferable to stalling the worker pool.
func (c *clientState) send(e codechat.Event) {
	select {
	case c.mailbox <- e:
	default:
	}
}

package manager

import (
	"path"
	"strings"
	"sync"
	"time"

	codechat "codechat.dev/server"
)

// shutdownFallback bounds how long a viewer gets to acknowledge a
// command:"shutdown" event before the client is force-deleted (§4.7 step 2).
const shutdownFallback = 1 * time.Second

// Renderer performs the actual text-to-HTML conversion for one render
// cycle. It is the seam between RenderManager's scheduling machinery and
// the renderer dispatch package (§4.1); manager depends only on this
// interface so the two packages don't import each other.
type Renderer interface {
	// RenderFile mirrors §4.1's renderFile contract. onBuild is invoked
	// zero or more times with streamed build output before the call
	// returns; the call may block (it may drive a subprocess).
	RenderFile(editorText, filePath string, isDirty bool, onBuild func(string)) RenderOutcome
}

// RenderOutcome is the Go encoding of §4.1's
// (wasPerformed, projectPath?, renderedFilePath, html?, errString) tuple.
type RenderOutcome struct {
	WasPerformed     bool
	ProjectPath      string
	HasProjectPath   bool
	RenderedFilePath string
	HTML             string
	HasHTML          bool
	Err              string
}

// CreateStatus is the three-way result of CreateClient.
type CreateStatus int

const (
	CreateOK CreateStatus = iota
	CreateDuplicate
	CreateShuttingDown
)

// RenderResultKind is the three-way result of GetRenderResults.
type RenderResultKind int

const (
	RenderResultNone RenderResultKind = iota
	RenderResultHTML
	RenderResultDiskPath
)

// RenderResult is returned by GetRenderResults.
type RenderResult struct {
	Kind     RenderResultKind
	HTML     string
	DiskPath string
}

// registry is the RenderManager's private, single-owner state: the client
// map and the allocation counter. It is only ever touched from inside the
// dispatcher goroutine (run), which is what lets every RenderManager
// façade method be "a single atomic step with respect to registry state"
// (§4.4) without a registry-wide lock.
type registry struct {
	clients        map[codechat.ClientID]*clientState
	nextID         int64
	shuttingDown   bool
	shutdownSignal chan struct{}
}

// RenderManager is the thread-safe façade described in §4.4: a registry of
// ClientStates, a job queue, a worker pool, and a shutdown barrier.
//
// Every public method may be called concurrently from any goroutine
// (editor-RPC connections, the HTTP handler, the WebSocket loop). Each
// marshals its registry-touching part onto the dispatcher goroutine via a
// request/response channel pair and blocks until the dispatcher replies —
// the Go encoding of §5's "thread-to-cooperative marshaling" design note.
type RenderManager struct {
	log      *codechat.Logger
	renderer Renderer

	reqs chan func(*registry)
	jobs chan *clientState

	wg sync.WaitGroup
}

// New creates a RenderManager. Start must be called before it accepts
// requests.
func New(renderer Renderer, log *codechat.Logger) *RenderManager {
	return &RenderManager{
		log:      log,
		renderer: renderer,
		reqs:     make(chan func(*registry)),
		jobs:     make(chan *clientState, 256),
	}
}

// Start launches the dispatcher goroutine and a pool of workerCount render
// workers. It must be called exactly once.
func (m *RenderManager) Start(workerCount int) {
	if workerCount < 1 {
		workerCount = 1
	}
	m.wg.Add(1)
	go m.run()

	for i := 0; i < workerCount; i++ {
		m.wg.Add(1)
		go m.worker()
	}
}

// run is the dispatcher goroutine: the sole owner of the client registry.
func (m *RenderManager) run() {
	defer m.wg.Done()
	reg := &registry{clients: make(map[codechat.ClientID]*clientState)}
	for req := range m.reqs {
		req(reg)
	}
}

// call marshals fn onto the dispatcher goroutine and blocks until it runs.
func (m *RenderManager) call(fn func(*registry)) {
	done := make(chan struct{})
	m.reqs <- func(reg *registry) {
		fn(reg)
		close(done)
	}
	<-done
}

// CreateClient allocates (or, if preferred is non-nil, registers) a
// ClientID. Server-allocated ids are monotonic from 0.
func (m *RenderManager) CreateClient(preferred *codechat.ClientID) (codechat.ClientID, CreateStatus) {
	var id codechat.ClientID
	var status CreateStatus

	m.call(func(reg *registry) {
		if reg.shuttingDown {
			status = CreateShuttingDown
			return
		}
		if preferred != nil {
			if _, exists := reg.clients[*preferred]; exists {
				status = CreateDuplicate
				return
			}
			id = *preferred
		} else {
			id = codechat.ClientID(reg.nextID)
			reg.nextID++
		}
		reg.clients[id] = newClientState(id)
		status = CreateOK
	})
	return id, status
}

// lookup returns the clientState for id, if any.
func (m *RenderManager) lookup(id codechat.ClientID) (*clientState, bool) {
	var cs *clientState
	var ok bool
	m.call(func(reg *registry) {
		cs, ok = reg.clients[id]
	})
	return cs, ok
}

// enqueue pushes cs onto the job queue if it isn't already queued or
// in flight, preserving the "at most one entry per client" invariant.
func (m *RenderManager) enqueue(cs *clientState) {
	cs.mu.Lock()
	already := cs.inJobQueue
	cs.inJobQueue = true
	cs.mu.Unlock()
	if !already {
		m.jobs <- cs
	}
}

// DeleteClient marks id for removal and ensures a worker will observe it.
// Returns true if id was known and not already deleting.
func (m *RenderManager) DeleteClient(id codechat.ClientID) bool {
	cs, ok := m.lookup(id)
	if !ok {
		return false
	}
	cs.mu.Lock()
	if cs.deleting {
		cs.mu.Unlock()
		return false
	}
	cs.deleting = true
	cs.mu.Unlock()
	m.enqueue(cs)
	return true
}

// ShutdownClient begins the graceful per-client teardown of §4.7: it
// schedules a command:"shutdown" event and arms a fallback delete in case
// the viewer never consumes it. Returns true if id was known and not
// already deleting.
func (m *RenderManager) ShutdownClient(id codechat.ClientID) bool {
	cs, ok := m.lookup(id)
	if !ok || cs.isDeleting() {
		return false
	}
	cs.send(codechat.ShutdownCommand)
	time.AfterFunc(shutdownFallback, func() { m.DeleteClient(id) })
	return true
}

// StartRender overwrites id's pending slot and ensures a worker will render
// it. Returns false if id is unknown or already deleting.
func (m *RenderManager) StartRender(text, filePath string, id codechat.ClientID, isDirty bool) bool {
	cs, ok := m.lookup(id)
	if !ok || cs.isDeleting() {
		return false
	}
	cs.setPending(codechat.PendingRender{EditorText: text, FilePath: filePath, IsDirty: isDirty})
	m.enqueue(cs)
	return true
}

// GetQueue returns id's mailbox, for the WebSocket push loop to drain.
func (m *RenderManager) GetQueue(id codechat.ClientID) (<-chan codechat.Event, bool) {
	cs, ok := m.lookup(id)
	if !ok {
		return nil, false
	}
	return cs.mailbox, true
}

// GetLastRender returns id's most recently completed render, for the
// WebSocket loop's save_file handling (§4.5), which needs the project path
// a render was produced under.
func (m *RenderManager) GetLastRender(id codechat.ClientID) (codechat.LastRender, bool) {
	cs, ok := m.lookup(id)
	if !ok {
		return codechat.LastRender{}, false
	}
	return cs.getLastRender()
}

// GetRenderResults answers the HTTP handler's question: does urlPath match
// id's most recently completed render, and if so, is the result inline
// HTML or a path on disk? See §4.6.
func (m *RenderManager) GetRenderResults(id codechat.ClientID, urlPath string) RenderResult {
	cs, ok := m.lookup(id)
	if !ok {
		return RenderResult{Kind: RenderResultNone}
	}
	last, ok := cs.getLastRender()
	if !ok || !samePath(last.FilePath, urlPath) {
		return RenderResult{Kind: RenderResultNone}
	}
	if last.HasHTML {
		return RenderResult{Kind: RenderResultHTML, HTML: last.HTML}
	}
	return RenderResult{Kind: RenderResultDiskPath, DiskPath: last.FilePath}
}

// samePath compares a stored render path against an incoming URL path,
// both normalized to clean, slash-separated, leading-slash form.
func samePath(renderPath, urlPath string) bool {
	norm := func(p string) string {
		p = strings.ReplaceAll(p, "\\", "/")
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		return path.Clean(p)
	}
	return norm(renderPath) == norm(urlPath)
}

// Shutdown initiates service-wide shutdown: subsequent CreateClient calls
// return CreateShuttingDown and Ping should report non-empty. The returned
// channel closes once every client has been removed from the registry.
func (m *RenderManager) Shutdown() <-chan struct{} {
	signal := make(chan struct{})
	m.call(func(reg *registry) {
		reg.shuttingDown = true
		reg.shutdownSignal = signal
		if len(reg.clients) == 0 {
			close(signal)
			reg.shutdownSignal = nil
		}
	})
	return signal
}

// worker is one render-worker goroutine: it dequeues clients, snapshots
// and performs their pending render, and reports completion back to the
// client and the registry, implementing the scheduling contract of §4.4.
func (m *RenderManager) worker() {
	defer m.wg.Done()
	for cs := range m.jobs {
		if cs.isDeleting() {
			m.finalizeDelete(cs)
			continue
		}

		pending, hasPending := cs.takePending()
		if hasPending {
			m.performRender(cs, pending)
		}

		cs.mu.Lock()
		switch {
		case cs.deleting:
			cs.mu.Unlock()
			m.finalizeDelete(cs)
		case cs.needsProcessing:
			cs.mu.Unlock()
			m.jobs <- cs
		default:
			cs.inJobQueue = false
			cs.mu.Unlock()
		}
	}
}

// performRender runs one render cycle and emits its event sequence:
// zero or more build events (streamed live), then exactly one errors
// event, then exactly one url event (§8 property 4) — unless the render
// was skipped under the project/dirty guard (§4.1, invariant #6), in
// which case no mailbox events are produced at all.
func (m *RenderManager) performRender(cs *clientState, pending codechat.PendingRender) {
	outcome := m.renderer.RenderFile(pending.EditorText, pending.FilePath, pending.IsDirty, func(chunk string) {
		cs.send(codechat.BuildEvent(chunk))
	})

	if !outcome.WasPerformed {
		return
	}

	cs.send(codechat.ErrorsEvent(outcome.Err))

	urlText := outcome.RenderedFilePath
	if !strings.HasPrefix(urlText, "/") {
		urlText = "/" + urlText
	}
	cs.send(codechat.URLEvent(urlText))

	last := codechat.LastRender{
		FilePath:   outcome.RenderedFilePath,
		EditorText: pending.EditorText,
	}
	if outcome.HasProjectPath {
		last.ProjectPath = outcome.ProjectPath
	}
	if outcome.HasHTML {
		last.HTML = outcome.HTML
		last.HasHTML = true
	}
	cs.setLastRender(last)
}

// finalizeDelete removes cs from the registry and, if the registry is now
// empty and a service-wide shutdown was requested, signals completion.
func (m *RenderManager) finalizeDelete(cs *clientState) {
	m.call(func(reg *registry) {
		delete(reg.clients, cs.id)
		if reg.shuttingDown && len(reg.clients) == 0 && reg.shutdownSignal != nil {
			close(reg.shutdownSignal)
			reg.shutdownSignal = nil
		}
	})
}

// Close stops accepting requests once all in-flight work has drained.
// Intended for tests; production shutdown relies on Shutdown plus process
// signals per §5.
func (m *RenderManager) Close() {
	close(m.reqs)
	close(m.jobs)
	m.wg.Wait()
}

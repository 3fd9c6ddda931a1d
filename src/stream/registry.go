package stream

import (
	"log"
	"strings"
	"sync"
	"time"
)

// RequestState is the logical lifecycle of one streamed request.
type RequestState int

const (
	StatePending RequestState = iota // submitted, start frame not yet seen
	StateStreaming
	StateDone
	StateErrored
	StateCancelled
)

func (s RequestState) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// request tracks one in-flight stream and accumulates its chunks in arrival
// order. Chunk seq is recorded as-is; ordering fidelity belongs to the
// transport.
type request struct {
	id        string
	state     RequestState
	buf       strings.Builder
	lastSeq   int
	startedAt time.Time
}

// Registry enforces the single-logical-stream invariant: at most one request
// per requestId, and registering a new request supersedes the previous
// active one. Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	active map[string]*request
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*request)}
}

// Register creates a Pending request and returns the id of the request it
// superseded, if any. The superseded request is discarded here; cancelling
// it on the wire is the caller's job.
func (r *Registry) Register(id string) (superseded string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for old := range r.active {
		if old != id {
			superseded = old
		}
	}
	if superseded != "" {
		delete(r.active, superseded)
		log.Printf("stream: request %s superseded by %s", superseded, id)
	}
	r.active[id] = &request{id: id, state: StatePending, startedAt: time.Now()}
	return superseded
}

// Start moves a pending request into Streaming. Unknown ids are stale
// frames and ignored.
func (r *Registry) Start(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.active[id]
	if !ok {
		return false
	}
	req.state = StateStreaming
	return true
}

// Append records one chunk. Unknown ids are ignored (frames for cancelled or
// superseded requests keep arriving until the server notices).
func (r *Registry) Append(id string, seq int, content string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.active[id]
	if !ok {
		return false
	}
	req.state = StateStreaming
	req.buf.WriteString(content)
	req.lastSeq = seq
	return true
}

// Complete terminates the request and hands back the accumulated text.
func (r *Registry) Complete(id string) (text string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.active[id]
	if !exists {
		return "", false
	}
	delete(r.active, id)
	req.state = StateDone
	log.Printf("stream: request %s done after %s (%d chars)",
		id, time.Since(req.startedAt).Round(time.Millisecond), req.buf.Len())
	return req.buf.String(), true
}

// Fail terminates the request on a server-reported error.
func (r *Registry) Fail(id, code, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.active[id]
	if !ok {
		return false
	}
	delete(r.active, id)
	req.state = StateErrored
	log.Printf("stream: request %s failed: %s %s", id, code, message)
	return true
}

// Cancel terminates the request locally. Returns false if it was not active.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.active[id]
	if !ok {
		return false
	}
	delete(r.active, id)
	req.state = StateCancelled
	return true
}

// Active returns the currently tracked request id, or "".
func (r *Registry) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.active {
		return id
	}
	return ""
}

// Len reports how many requests are tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Package eventloop is the single-threaded coordinator between hotkey
// triggers, the streaming network worker, and the injection pool. All request
// bookkeeping lives on the loop goroutine; other goroutines post into it
// through channels.
package eventloop

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"ai-text-assist/src/api"
	"ai-text-assist/src/bridge"
	"ai-text-assist/src/config"
	"ai-text-assist/src/inject"
	"ai-text-assist/src/stream"
	"ai-text-assist/src/windowctx"
	"ai-text-assist/src/worker"
)

// Canceller sends best-effort upstream cancels over the live stream
// connection. Satisfied by *wsclient.Client.
type Canceller interface {
	SendCancel(requestID string)
}

// Submitter posts requests and cancels to the HTTP API. Satisfied by
// *api.Client.
type Submitter interface {
	Process(ctx context.Context, req api.ProcessRequest) error
	Cancel(ctx context.Context, requestID string) error
}

// DeliveryPool hands completed text to the injection workers. Satisfied by
// *worker.Pool.
type DeliveryPool interface {
	Submit(text string, target *windowctx.Context, cb worker.ResultCallback) bool
	Close()
}

// ClipboardReader supplies the source text for a trigger. Satisfied by
// clipboard.Store.
type ClipboardReader interface {
	Read() (string, error)
}

// Trigger is a hotkey activation posted into the loop.
type Trigger struct {
	Action string
	Win    *windowctx.Context
}

type apiFailure struct {
	requestID string
	err       error
}

// Loop coordinates the request lifecycle: trigger -> submit -> stream ->
// inject. One request is active at a time; a new trigger supersedes the
// previous one.
type Loop struct {
	ws       Canceller
	apiC     Submitter
	clip     ClipboardReader
	registry *stream.Registry
	pool     DeliveryPool
	deadline time.Duration

	triggers  chan Trigger
	apiErrs   chan apiFailure
	deadlines chan string
	injected  chan inject.Result

	// Owned by the Run goroutine.
	contexts map[string]*windowctx.Context
	timers   map[string]*time.Timer
}

// New creates an event loop. The stream deadline defaults to 60s when cfg is
// nil or carries no positive value.
func New(cfg *config.Config, ws Canceller, apiC Submitter, clip ClipboardReader, pool DeliveryPool) *Loop {
	deadlineSec := 60
	if cfg != nil && cfg.StreamDeadlineSec > 0 {
		deadlineSec = cfg.StreamDeadlineSec
	}

	return &Loop{
		ws:        ws,
		apiC:      apiC,
		clip:      clip,
		registry:  stream.NewRegistry(),
		pool:      pool,
		deadline:  time.Duration(deadlineSec) * time.Second,
		triggers:  make(chan Trigger, 4),
		apiErrs:   make(chan apiFailure, 4),
		deadlines: make(chan string, 4),
		injected:  make(chan inject.Result, 4),
		contexts:  make(map[string]*windowctx.Context),
		timers:    make(map[string]*time.Timer),
	}
}

// Trigger posts a hotkey activation into the loop. Drops when the trigger
// queue is full so the hook goroutine never blocks.
func (l *Loop) Trigger(action string, win *windowctx.Context) {
	select {
	case l.triggers <- Trigger{Action: action, Win: win}:
	default:
		log.Printf("eventloop: trigger queue full, dropping %s", action)
	}
}

// Deadline returns the configured per-request stream deadline.
func (l *Loop) Deadline() time.Duration { return l.deadline }

// Run processes triggers and worker events until ctx is cancelled or the
// event channel closes. events is the bridge subscription feed.
func (l *Loop) Run(ctx context.Context, events <-chan bridge.Event) error {
	defer l.pool.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case trig := <-l.triggers:
			l.handleTrigger(ctx, trig)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.handleEvent(ev)
		case fail := <-l.apiErrs:
			if l.registry.Fail(fail.requestID, "submit_failed", fail.err.Error()) {
				log.Printf("eventloop: request %s submit failed: %v", fail.requestID, fail.err)
			}
			l.forget(fail.requestID)
		case id := <-l.deadlines:
			l.handleDeadline(id)
		case res := <-l.injected:
			l.handleInjected(res)
		}
	}
}

func (l *Loop) handleTrigger(ctx context.Context, trig Trigger) {
	text, err := l.clip.Read()
	if err != nil {
		log.Printf("eventloop: clipboard read failed, ignoring %s: %v", trig.Action, err)
		return
	}
	if text == "" {
		log.Printf("eventloop: clipboard empty, ignoring %s", trig.Action)
		return
	}

	id := uuid.NewString()
	if superseded := l.registry.Register(id); superseded != "" {
		log.Printf("eventloop: request %s supersedes %s", id, superseded)
		l.cancelUpstream(superseded)
		l.forget(superseded)
	}
	l.contexts[id] = trig.Win
	l.timers[id] = time.AfterFunc(l.deadline, func() {
		select {
		case l.deadlines <- id:
		default:
		}
	})

	log.Printf("eventloop: submitting %s (%s, %d chars)", id, trig.Action, len(text))
	go func() {
		subCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		req := api.ProcessRequest{RequestID: id, Text: text, Action: trig.Action}
		if err := l.apiC.Process(subCtx, req); err != nil {
			l.apiErrs <- apiFailure{requestID: id, err: err}
		}
	}()
}

func (l *Loop) handleEvent(ev bridge.Event) {
	switch ev.Kind {
	case bridge.EventStateChanged:
		log.Printf("eventloop: connection %s", ev.State)
	case bridge.EventStreamStarted:
		l.registry.Start(ev.RequestID)
	case bridge.EventChunkReceived:
		l.registry.Append(ev.RequestID, ev.Seq, ev.Content)
	case bridge.EventStreamEnded:
		text, ok := l.registry.Complete(ev.RequestID)
		target := l.contexts[ev.RequestID]
		l.forget(ev.RequestID)
		if !ok {
			return
		}
		if !l.pool.Submit(text, target, func(res inject.Result) { l.injected <- res }) {
			log.Printf("eventloop: injection pool full, dropping result for %s", ev.RequestID)
		}
	case bridge.EventStreamFailed:
		l.registry.Fail(ev.RequestID, ev.Code, ev.Message)
		l.forget(ev.RequestID)
	}
}

func (l *Loop) handleDeadline(id string) {
	if !l.registry.Fail(id, "deadline", "stream deadline exceeded") {
		return
	}
	log.Printf("eventloop: request %s exceeded %s deadline", id, l.deadline)
	l.cancelUpstream(id)
	l.forget(id)
}

func (l *Loop) handleInjected(res inject.Result) {
	if res.Success {
		log.Printf("eventloop: injection delivered via %s in %v", res.Method, res.Elapsed)
		return
	}
	log.Printf("eventloop: injection failed: %s", res.Err)
}

// cancelUpstream tells the server to stop producing for a request, over both
// the stream connection and the HTTP API. Both paths are best effort.
func (l *Loop) cancelUpstream(id string) {
	l.ws.SendCancel(id)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.apiC.Cancel(ctx, id); err != nil {
			log.Printf("eventloop: cancel of %s failed: %v", id, err)
		}
	}()
}

// forget drops per-request loop state. Safe for unknown ids.
func (l *Loop) forget(id string) {
	if t, ok := l.timers[id]; ok {
		t.Stop()
		delete(l.timers, id)
	}
	delete(l.contexts, id)
}

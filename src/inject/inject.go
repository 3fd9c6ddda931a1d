package inject

import (
	"log"
	"sync"
	"time"

	"ai-text-assist/src/windowctx"
)

// ErrorKind classifies injection failures. These are typed results, not Go
// errors: every failure degrades a single Inject call and nothing else.
type ErrorKind string

const (
	ErrNone                  ErrorKind = ""
	ErrEmptyInput            ErrorKind = "EmptyInput"
	ErrBusy                  ErrorKind = "Busy"
	ErrClipboardWriteFailed  ErrorKind = "ClipboardWriteFailed"
	ErrClipboardVerifyFailed ErrorKind = "ClipboardVerifyFailed"
	ErrPasteDispatchFailed   ErrorKind = "PasteDispatchFailed"
)

// Method identifies the delivery mechanism used.
type Method string

const MethodClipboard Method = "clipboard"

// Result reports the outcome of one injection.
type Result struct {
	Success bool
	Method  Method
	Elapsed time.Duration
	Err     ErrorKind
}

// ClipboardStore is the shared clipboard capability. The clipboard is a
// non-transactional OS primitive; the Injector compensates with verify and
// retry.
type ClipboardStore interface {
	Write(text string) error
	Read() (string, error)
}

// KeyboardInjector dispatches the paste key combination. PastePrimary is the
// Ctrl+V route, PasteFallback the Shift+Insert alternative some targets
// accept when Ctrl+V is swallowed.
type KeyboardInjector interface {
	PastePrimary() error
	PasteFallback() error
}

type timings struct {
	gateWait    time.Duration // max wait for a concurrent injection to finish
	gatePoll    time.Duration
	minSpacing  time.Duration // minimum gap between injections, end to start
	focusSettle time.Duration
	clipSettle  time.Duration // clipboard propagation latency
	pasteSettle time.Duration
}

func defaultTimings() timings {
	return timings{
		gateWait:    1 * time.Second,
		gatePoll:    50 * time.Millisecond,
		minSpacing:  150 * time.Millisecond,
		focusSettle: 100 * time.Millisecond,
		clipSettle:  20 * time.Millisecond,
		pasteSettle: 100 * time.Millisecond,
	}
}

// Injector delivers text into the focused application via clipboard + paste.
// A single gate serializes injections system-wide: at most one in-flight
// clipboard write at any time.
type Injector struct {
	clip  ClipboardStore
	keys  KeyboardInjector
	query windowctx.Query
	t     timings

	gate sync.Mutex

	lastMu   sync.Mutex
	lastDone time.Time
}

// New creates an Injector. query is used for best-effort target refocus and
// may be nil.
func New(clip ClipboardStore, keys KeyboardInjector, query windowctx.Query) *Injector {
	return &Injector{clip: clip, keys: keys, query: query, t: defaultTimings()}
}

// Inject places text into the target (or currently focused) application.
// Empty input fails fast with no side effects. A concurrent caller waits up
// to one second for the gate, then fails Busy.
func (i *Injector) Inject(text string, target *windowctx.Context) Result {
	if text == "" {
		return Result{Method: MethodClipboard, Err: ErrEmptyInput}
	}

	if !i.acquireGate() {
		log.Printf("Injector: previous injection did not finish in time")
		return Result{Method: MethodClipboard, Err: ErrBusy}
	}
	start := time.Now()
	defer func() {
		i.lastMu.Lock()
		i.lastDone = time.Now()
		i.lastMu.Unlock()
		i.gate.Unlock()
	}()

	i.waitSpacing()

	log.Printf("Injector: delivering %d chars to %s", len(text), target.DisplayName())

	// Focus is best-effort: a failure here must not abort the pipeline.
	if target != nil {
		if !windowctx.Restore(i.query, target) {
			log.Printf("Injector: target focus failed, injecting into active window")
		}
		time.Sleep(i.t.focusSettle)
	}

	if kind := i.writeVerified(text); kind != ErrNone {
		return Result{Method: MethodClipboard, Elapsed: time.Since(start), Err: kind}
	}

	if err := i.keys.PastePrimary(); err != nil {
		log.Printf("Injector: primary paste route failed: %v", err)
		if err := i.keys.PasteFallback(); err != nil {
			log.Printf("Injector: fallback paste route failed: %v", err)
			return Result{Method: MethodClipboard, Elapsed: time.Since(start), Err: ErrPasteDispatchFailed}
		}
		log.Printf("Injector: paste sent via fallback route")
	}
	time.Sleep(i.t.pasteSettle)

	// The previous clipboard contents are not restored: last write wins.
	return Result{Success: true, Method: MethodClipboard, Elapsed: time.Since(start)}
}

// writeVerified writes text to the clipboard and reads it back, retrying the
// write once on mismatch.
func (i *Injector) writeVerified(text string) ErrorKind {
	if err := i.clip.Write(text); err != nil {
		log.Printf("Injector: clipboard write failed: %v", err)
		return ErrClipboardWriteFailed
	}
	time.Sleep(i.t.clipSettle)

	if got, err := i.clip.Read(); err == nil && got == text {
		return ErrNone
	}

	log.Printf("Injector: clipboard verification failed, retrying write")
	if err := i.clip.Write(text); err != nil {
		log.Printf("Injector: clipboard rewrite failed: %v", err)
		return ErrClipboardWriteFailed
	}
	time.Sleep(i.t.clipSettle)

	if got, err := i.clip.Read(); err != nil || got != text {
		log.Printf("Injector: clipboard verification failed after retry")
		return ErrClipboardVerifyFailed
	}
	return ErrNone
}

// acquireGate takes the injection gate, polling for up to gateWait.
func (i *Injector) acquireGate() bool {
	deadline := time.Now().Add(i.t.gateWait)
	for {
		if i.gate.TryLock() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(i.t.gatePoll)
	}
}

// waitSpacing enforces the minimum gap since the end of the previous
// injection. This accommodates clipboard propagation latency; it is a delay,
// never a rejection.
func (i *Injector) waitSpacing() {
	i.lastMu.Lock()
	last := i.lastDone
	i.lastMu.Unlock()
	if last.IsZero() {
		return
	}
	if since := time.Since(last); since < i.t.minSpacing {
		wait := i.t.minSpacing - since
		log.Printf("Injector: waiting %s before next injection", wait.Round(time.Millisecond))
		time.Sleep(wait)
	}
}

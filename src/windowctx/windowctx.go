package windowctx

import (
	"fmt"
	"log"
	"time"
)

// Rect is the window position at capture time.
type Rect struct {
	X      int32
	Y      int32
	Width  int32
	Height int32
}

// Context is an immutable snapshot of a window's identity captured at
// trigger time. Once captured it is only compared or discarded, never
// mutated, so it is safe to share across goroutines without locking.
type Context struct {
	Handle      uintptr
	Title       string
	ClassName   string
	ProcessID   uint32
	ProcessName string // empty when the owning process could not be resolved
	Visible     bool
	Active      bool
	Position    *Rect
	CapturedAt  time.Time
	Trigger     string
}

// Valid reports whether the snapshot identifies a real window: non-zero
// handle and process id, a resolved process name, and at least one of
// title/class name.
func (c *Context) Valid() bool {
	return c != nil &&
		c.Handle != 0 &&
		c.ProcessID != 0 &&
		c.ProcessName != "" &&
		(c.Title != "" || c.ClassName != "")
}

// DisplayName is a short human-readable identity for logging.
func (c *Context) DisplayName() string {
	if c == nil {
		return "<none>"
	}
	if c.Title != "" {
		return fmt.Sprintf("%s (%s)", c.Title, c.ProcessName)
	}
	return fmt.Sprintf("%s (%s)", c.ClassName, c.ProcessName)
}

// SameWindow applies tiered equivalence, first match wins:
//  1. identical non-zero handle
//  2. identical process id and class name (process id non-zero)
//  3. identical process name and title (process name resolved)
//
// The lower tiers tolerate handle churn across window-manager operations.
func SameWindow(a, b *Context) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Handle == b.Handle && a.Handle != 0 {
		return true
	}
	if a.ProcessID == b.ProcessID && a.ClassName == b.ClassName && a.ProcessID != 0 {
		return true
	}
	if a.ProcessName == b.ProcessName && a.Title == b.Title && a.ProcessName != "" {
		return true
	}
	return false
}

// Query is the window-management capability. The Windows implementation
// lives in query_windows.go; other platforms get an explicit failing stub.
type Query interface {
	// Active returns a snapshot of the foreground window. The snapshot may
	// be incomplete; Capture decides validity.
	Active() (*Context, error)
	// Focus asks the window manager to bring the window to the foreground.
	Focus(handle uintptr) error
}

// Capture snapshots the active window and tags it with the trigger source.
// An unresolvable window (zero handle, zero pid, unresolved process, no
// title and no class) is a valid "nothing captured" outcome: nil, not an
// error.
func Capture(q Query, trigger string) *Context {
	if q == nil {
		return nil
	}
	snap, err := q.Active()
	if err != nil {
		log.Printf("windowctx: capture failed: %v", err)
		return nil
	}
	if !snap.Valid() {
		log.Printf("windowctx: active window not capturable, proceeding without context")
		return nil
	}
	ctx := *snap
	ctx.CapturedAt = time.Now()
	ctx.Trigger = trigger
	log.Printf("windowctx: captured %s (trigger=%s)", ctx.DisplayName(), trigger)
	return &ctx
}

// Restore returns focus to a previously captured window. A no-op success if
// the active window already matches; otherwise the focus request's outcome.
// Never panics; every failure degrades to false.
func Restore(q Query, ctx *Context) bool {
	if q == nil || ctx == nil {
		return false
	}
	if cur, err := q.Active(); err == nil && SameWindow(cur, ctx) {
		log.Printf("windowctx: target window already active")
		return true
	}
	if err := q.Focus(ctx.Handle); err != nil {
		log.Printf("windowctx: failed to restore %s: %v", ctx.DisplayName(), err)
		return false
	}
	log.Printf("windowctx: restored focus to %s", ctx.DisplayName())
	return true
}

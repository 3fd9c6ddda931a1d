// Package hotkey registers global key combinations through a low-level
// keyboard hook and dispatches them to a trigger handler. The hook is
// installed once for the whole process; changing the binding set tears the
// hook down and reinstalls it with the new combinations.
package hotkey

import (
	"errors"
	"fmt"
	"log"
	"sync"

	gohook "github.com/robotn/gohook"

	"ai-text-assist/src/windowctx"
)

// HookState describes whether the global keyboard hook is active.
type HookState int

const (
	// Uninstalled means no hook is active and no combinations fire.
	Uninstalled HookState = iota
	// Installed means the hook is active and combinations dispatch.
	Installed
	// Error means a hook install or reinstall failed. The hook stays down
	// until the next explicit Enable or Reload.
	Error
)

func (s HookState) String() string {
	switch s {
	case Uninstalled:
		return "uninstalled"
	case Installed:
		return "installed"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// TriggerHandler receives the action bound to a fired combination together
// with the window context captured at press time. win may be nil when the
// foreground window could not be resolved.
type TriggerHandler func(action string, win *windowctx.Context)

// comboWatcher tracks press state for one registered combination.
type comboWatcher struct {
	combo  string
	action string
	keys   []comboKey
}

// installFunc starts the platform hook and returns its event channel plus a
// teardown function. Swappable in tests.
type installFunc func() (<-chan gohook.Event, func(), error)

func gohookInstall() (<-chan gohook.Event, func(), error) {
	ch := gohook.Start()
	if ch == nil {
		return nil, nil, errors.New("hook start returned nil channel")
	}
	return ch, gohook.End, nil
}

// Manager owns the binding table and the hook lifecycle.
type Manager struct {
	handler TriggerHandler
	query   windowctx.Query
	install installFunc

	mu       sync.Mutex
	bindings map[string]string // combo -> action
	state    HookState
	teardown func()
	quit     chan struct{}
	loopDone chan struct{}
}

// NewManager creates a manager with no bindings and the hook uninstalled.
func NewManager(handler TriggerHandler, query windowctx.Query) *Manager {
	return &Manager{
		handler:  handler,
		query:    query,
		install:  gohookInstall,
		bindings: make(map[string]string),
	}
}

// State reports the current hook state.
func (m *Manager) State() HookState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Bindings returns a copy of the current combo -> action table.
func (m *Manager) Bindings() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.bindings))
	for combo, action := range m.bindings {
		out[combo] = action
	}
	return out
}

// Register binds a combination to an action. If the hook is installed it is
// reinstalled so the new binding takes effect.
func (m *Manager) Register(combo, action string) error {
	if _, err := parseCombo(combo); err != nil {
		return err
	}
	if action == "" {
		return fmt.Errorf("empty action for combo %q", combo)
	}

	m.mu.Lock()
	m.bindings[combo] = action
	needReinstall := m.state == Installed
	m.mu.Unlock()

	log.Printf("[Hotkey] Registered %s -> %s", combo, action)
	if needReinstall {
		return m.reinstall()
	}
	return nil
}

// Unregister removes a binding. Unknown combos are a no-op.
func (m *Manager) Unregister(combo string) error {
	m.mu.Lock()
	_, known := m.bindings[combo]
	delete(m.bindings, combo)
	needReinstall := known && m.state == Installed
	m.mu.Unlock()

	if !known {
		return nil
	}
	log.Printf("[Hotkey] Unregistered %s", combo)
	if needReinstall {
		return m.reinstall()
	}
	return nil
}

// Reload replaces the whole binding table. All combos are validated before
// any change is applied.
func (m *Manager) Reload(bindings map[string]string) error {
	for combo, action := range bindings {
		if _, err := parseCombo(combo); err != nil {
			return err
		}
		if action == "" {
			return fmt.Errorf("empty action for combo %q", combo)
		}
	}

	m.mu.Lock()
	m.bindings = make(map[string]string, len(bindings))
	for combo, action := range bindings {
		m.bindings[combo] = action
	}
	needReinstall := m.state == Installed
	m.mu.Unlock()

	log.Printf("[Hotkey] Reloaded %d binding(s)", len(bindings))
	if needReinstall {
		return m.reinstall()
	}
	return nil
}

// Enable installs the hook. Already-installed is a no-op. An install failure
// leaves the manager in the Error state; there is no automatic retry.
func (m *Manager) Enable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Installed {
		return nil
	}
	return m.installLocked()
}

// Disable tears the hook down. Already-uninstalled is a no-op.
func (m *Manager) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
	m.state = Uninstalled
}

func (m *Manager) reinstall() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
	return m.installLocked()
}

// installLocked starts the hook and the watch goroutine. Caller holds mu.
func (m *Manager) installLocked() error {
	watchers := make([]*comboWatcher, 0, len(m.bindings))
	for combo, action := range m.bindings {
		keys, err := parseCombo(combo)
		if err != nil {
			// Validated at registration time; treat as install failure.
			m.state = Error
			return err
		}
		watchers = append(watchers, &comboWatcher{combo: combo, action: action, keys: keys})
	}

	evCh, teardown, err := m.install()
	if err != nil {
		m.state = Error
		log.Printf("[Hotkey] ERROR: hook install failed: %v", err)
		return fmt.Errorf("hotkey hook install: %w", err)
	}

	m.teardown = teardown
	m.quit = make(chan struct{})
	m.loopDone = make(chan struct{})
	m.state = Installed
	go m.watch(evCh, watchers, m.quit, m.loopDone)

	log.Printf("[Hotkey] Hook installed with %d combination(s)", len(watchers))
	return nil
}

// teardownLocked stops the hook and waits for the watch goroutine to exit.
// Caller holds mu.
func (m *Manager) teardownLocked() {
	if m.teardown != nil {
		m.teardown()
		m.teardown = nil
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.loopDone != nil {
		<-m.loopDone
		m.loopDone = nil
	}
}

// watch consumes hook events until the channel closes or quit is signalled.
// The watchers are owned exclusively by this goroutine.
func (m *Manager) watch(evCh <-chan gohook.Event, watchers []*comboWatcher, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Hotkey] PANIC in hook goroutine: %v", r)
		}
	}()

	for {
		select {
		case ev, ok := <-evCh:
			if !ok {
				log.Printf("[Hotkey] Event channel closed")
				return
			}
			m.handleEvent(ev, watchers)
		case <-quit:
			return
		}
	}
}

func (m *Manager) handleEvent(ev gohook.Event, watchers []*comboWatcher) {
	switch ev.Kind {
	case gohook.KeyDown:
		for _, w := range watchers {
			if !markKey(w.keys, ev.Rawcode, true) {
				continue
			}
			if allPressed(w.keys) {
				log.Printf("[Hotkey] %s fired (%s)", w.combo, w.action)
				resetKeys(w.keys)
				m.fire(w.action)
			}
		}
	case gohook.KeyUp:
		for _, w := range watchers {
			markKey(w.keys, ev.Rawcode, false)
		}
	}
}

// fire captures the foreground window and invokes the handler. Capture is
// best effort; the handler must accept a nil context.
func (m *Manager) fire(action string) {
	win := windowctx.Capture(m.query, action)
	if win == nil {
		log.Printf("[Hotkey] No valid window context for %s", action)
	}
	if m.handler != nil {
		m.handler(action, win)
	}
}

func markKey(keys []comboKey, rawcode uint16, pressed bool) bool {
	for i := range keys {
		for _, code := range keys[i].rawcodes {
			if code == rawcode {
				keys[i].pressed = pressed
				return true
			}
		}
	}
	return false
}

func allPressed(keys []comboKey) bool {
	for i := range keys {
		if !keys[i].pressed {
			return false
		}
	}
	return true
}

func resetKeys(keys []comboKey) {
	for i := range keys {
		keys[i].pressed = false
	}
}

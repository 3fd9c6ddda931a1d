package clipboard

import (
	"sync"

	"golang.design/x/clipboard"
)

var opMu sync.Mutex

// Init must be called once before any clipboard access. Fails on platforms
// without clipboard support (headless Linux without X11, etc.).
func Init() error {
	return clipboard.Init()
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	opMu.Lock()
	defer opMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Read returns the current text contents of the clipboard.
func Read() (string, error) {
	opMu.Lock()
	defer opMu.Unlock()
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// Store adapts this package to the injector's ClipboardStore capability.
type Store struct{}

func (Store) Write(text string) error { return Write(text) }

func (Store) Read() (string, error) { return Read() }

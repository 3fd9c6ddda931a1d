package inject

import (
	"github.com/micmonay/keybd_event"
)

// pasteKeys dispatches paste combinations through synthetic key events.
// keybd_event covers Windows, macOS and X11 Linux; on anything else
// NewKeyboard surfaces the error instead of guessing.
type pasteKeys struct{}

// NewKeyboard returns the synthetic-key paste dispatcher. The probe bonding
// makes unsupported platforms fail at construction rather than on the first
// hotkey.
func NewKeyboard() (KeyboardInjector, error) {
	if _, err := keybd_event.NewKeyBonding(); err != nil {
		return nil, err
	}
	return pasteKeys{}, nil
}

// PastePrimary sends Ctrl+V.
func (pasteKeys) PastePrimary() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	return kb.Launching()
}

// PasteFallback sends Shift+Insert, which some targets honor when they
// swallow Ctrl+V (IMEs, terminals).
func (pasteKeys) PasteFallback() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_INSERT)
	kb.HasSHIFT(true)
	return kb.Launching()
}

package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Rawcodes are Windows virtual-key codes as reported by the gohook event
// stream. Modifiers map to both their left and right variants.
var modifierRawcodes = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN
}

var specialRawcodes = map[string]uint16{
	"space":     32,
	"enter":     13,
	"return":    13,
	"esc":       27,
	"escape":    27,
	"tab":       9,
	"backspace": 8,
	"delete":    46,
	"del":       46,
	"insert":    45,
	"ins":       45,
	"home":      36,
	"end":       35,
	"pageup":    33,
	"pgup":      33,
	"pagedown":  34,
	"pgdn":      34,
	"left":      37,
	"up":        38,
	"right":     39,
	"down":      40,
}

// rawcodesFor maps a normalized key name to its virtual-key rawcodes, or nil
// for an unknown name.
func rawcodesFor(name string) []uint16 {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "win", "super":
		name = "cmd"
	}

	if codes, ok := modifierRawcodes[name]; ok {
		return codes
	}
	if code, ok := specialRawcodes[name]; ok {
		return []uint16{code}
	}

	// Letters A-Z and digits 0-9 share their ASCII uppercase codes.
	if len(name) == 1 {
		c := name[0]
		if c >= 'a' && c <= 'z' {
			return []uint16{uint16(c - 'a' + 'A')}
		}
		if c >= '0' && c <= '9' {
			return []uint16{uint16(c)}
		}
		return nil
	}

	// Function keys F1-F24 are VK 0x70 onwards.
	if name[0] == 'f' {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)}
		}
	}

	return nil
}

// comboKey tracks the pressed state of one key within a combination.
type comboKey struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// parseCombo converts a combination like "Ctrl+Alt+T" into trackable keys.
func parseCombo(combo string) ([]comboKey, error) {
	parts := strings.Split(combo, "+")
	var keys []comboKey
	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		codes := rawcodesFor(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("unknown key %q in combo %q", name, combo)
		}
		keys = append(keys, comboKey{name: name, rawcodes: codes})
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty combo %q", combo)
	}
	return keys, nil
}

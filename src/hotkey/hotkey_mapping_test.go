package hotkey

import (
	"testing"
)

func TestRawcodesFor(t *testing.T) {
	tests := []struct {
		keyName  string
		expected []uint16
	}{
		// Modifier keys
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"win", []uint16{91, 92}},
		{"cmd", []uint16{91, 92}},
		{"super", []uint16{91, 92}},

		// Letter keys
		{"q", []uint16{81}},
		{"e", []uint16{69}},
		{"o", []uint16{79}},
		{"t", []uint16{84}},

		// Number keys
		{"0", []uint16{48}},
		{"1", []uint16{49}},
		{"9", []uint16{57}},

		// Function keys
		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f13", []uint16{124}},
		{"f24", []uint16{135}},

		// Special keys
		{"space", []uint16{32}},
		{"enter", []uint16{13}},
		{"esc", []uint16{27}},
		{"insert", []uint16{45}},

		// Unknown keys
		{"unknown", nil},
		{"f25", nil},
		{"f0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			result := rawcodesFor(tt.keyName)
			if len(result) != len(tt.expected) {
				t.Errorf("rawcodesFor(%q) returned %d rawcodes, expected %d",
					tt.keyName, len(result), len(tt.expected))
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("rawcodesFor(%q)[%d] = %d, expected %d",
						tt.keyName, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseCombo(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Ctrl+Alt+Q", []string{"ctrl", "alt", "q"}},
		{"Ctrl+Shift+O", []string{"ctrl", "shift", "o"}},
		{"Ctrl+alt+e", []string{"ctrl", "alt", "e"}},
		{"Alt+F4", []string{"alt", "f4"}},
		{"Ctrl+Shift+F13", []string{"ctrl", "shift", "f13"}},
		{"Ctrl+Win+E", []string{"ctrl", "cmd", "e"}},
		{"Super+Alt+T", []string{"cmd", "alt", "t"}},
		{" Ctrl + T ", []string{"ctrl", "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			keys, err := parseCombo(tt.input)
			if err != nil {
				t.Fatalf("parseCombo(%q) failed: %v", tt.input, err)
			}
			if len(keys) != len(tt.expected) {
				t.Fatalf("parseCombo(%q) returned %d keys, expected %d",
					tt.input, len(keys), len(tt.expected))
			}
			for i := range keys {
				if keys[i].name != tt.expected[i] {
					t.Errorf("parseCombo(%q)[%d] = %q, expected %q",
						tt.input, i, keys[i].name, tt.expected[i])
				}
				if len(keys[i].rawcodes) == 0 {
					t.Errorf("parseCombo(%q)[%d] has no rawcodes", tt.input, i)
				}
			}
		})
	}
}

func TestParseComboRejectsInvalid(t *testing.T) {
	for _, combo := range []string{"", "+", "Ctrl+Bogus", "NotAKey"} {
		if _, err := parseCombo(combo); err == nil {
			t.Errorf("parseCombo(%q) succeeded, expected error", combo)
		}
	}
}

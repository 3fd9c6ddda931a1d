package main

import (
	"testing"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"ai-text-assist", "-server-host", "10.0.0.5", "-no-hotkeys"},
			out:  []string{"ai-text-assist", "--server-host", "10.0.0.5", "--no-hotkeys"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"ai-text-assist", "-server-port=9090", "-user-id=alice"},
			out:  []string{"ai-text-assist", "--server-port=9090", "--user-id=alice"},
		},
		{
			name: "Leaves double dash and short flags unchanged",
			in:   []string{"ai-text-assist", "--server-host", "-h"},
			out:  []string{"ai-text-assist", "--server-host", "-h"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--server-host", "10.0.0.5", "--server-port", "9090", "--user-id", "alice", "--no-hotkeys"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.serverHost != "10.0.0.5" {
		t.Fatalf("Expected serverHost=10.0.0.5, got %q", opts.serverHost)
	}
	if opts.serverPort != 9090 {
		t.Fatalf("Expected serverPort=9090, got %d", opts.serverPort)
	}
	if opts.userID != "alice" {
		t.Fatalf("Expected userID=alice, got %q", opts.userID)
	}
	if !opts.noHotkeys {
		t.Fatal("Expected noHotkeys=true")
	}
}

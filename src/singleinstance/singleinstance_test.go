package singleinstance

import (
	"testing"
)

func TestAcquireAndPing(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "49600")
	t.Setenv("SINGLEINSTANCE_PORT_END", "49605")

	g, err := Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer g.Release()

	if g.Port() < 49600 || g.Port() > 49605 {
		t.Errorf("Port %d outside configured range", g.Port())
	}

	port, found := detectResident()
	if !found {
		t.Fatal("Expected to detect the resident guard")
	}
	if port != g.Port() {
		t.Errorf("Detected port %d, expected %d", port, g.Port())
	}
}

func TestSecondAcquireFindsFreePort(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "49610")
	t.Setenv("SINGLEINSTANCE_PORT_END", "49612")

	first, err := Acquire()
	if err != nil {
		t.Fatalf("First Acquire failed: %v", err)
	}
	defer first.Release()

	// Range has spare ports, so a second Acquire still succeeds on the
	// next port; exhaustion is what reports ErrAlreadyRunning.
	second, err := Acquire()
	if err != nil {
		t.Fatalf("Second Acquire failed: %v", err)
	}
	defer second.Release()

	if first.Port() == second.Port() {
		t.Errorf("Both guards claimed port %d", first.Port())
	}
}

func TestAcquireExhaustedRangeReportsResident(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "49620")
	t.Setenv("SINGLEINSTANCE_PORT_END", "49620")

	g, err := Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer g.Release()

	if _, err := Acquire(); err != ErrAlreadyRunning {
		t.Fatalf("Expected ErrAlreadyRunning, got %v", err)
	}
}

func TestPortRangeClampAndSwap(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "100")
	t.Setenv("SINGLEINSTANCE_PORT_END", "70000")
	start, end := portRange()
	if start != 1024 || end != 65535 {
		t.Errorf("portRange() = %d,%d, expected clamped 1024,65535", start, end)
	}

	t.Setenv("SINGLEINSTANCE_PORT_START", "50000")
	t.Setenv("SINGLEINSTANCE_PORT_END", "49000")
	start, end = portRange()
	if start != 49000 || end != 50000 {
		t.Errorf("portRange() = %d,%d, expected swapped 49000,50000", start, end)
	}
}

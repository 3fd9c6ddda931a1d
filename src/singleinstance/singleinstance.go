// Package singleinstance guards against two resident copies of the tool
// hooking the keyboard at once. The first instance claims a loopback TCP
// port and answers pings; later instances detect it and bail out.
package singleinstance

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"

	defaultPortStart = 49500
	defaultPortEnd   = 49510
)

// ErrAlreadyRunning means another resident instance holds the guard port.
var ErrAlreadyRunning = errors.New("another instance is already running")

// portRange returns the configured TCP port range. Environment variables:
// SINGLEINSTANCE_PORT_START and SINGLEINSTANCE_PORT_END (integers, inclusive).
// Falls back to defaults when unset/invalid, and clamps to [1024, 65535].
func portRange() (int, int) {
	start := defaultPortStart
	end := defaultPortEnd
	if v := os.Getenv("SINGLEINSTANCE_PORT_START"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			start = n
		}
	}
	if v := os.Getenv("SINGLEINSTANCE_PORT_END"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			end = n
		}
	}
	if start < 1024 {
		start = 1024
	}
	if end > 65535 {
		end = 65535
	}
	if end < start {
		start, end = end, start
	}
	return start, end
}

// Guard holds instance ownership for the life of the process.
type Guard struct {
	ln   net.Listener
	done chan struct{}
}

// Acquire claims the first free port in the configured range. When every
// port is taken and one of them answers a ping, ErrAlreadyRunning is
// returned.
func Acquire() (*Guard, error) {
	start, end := portRange()
	for port := start; port <= end; port++ {
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			continue
		}
		g := &Guard{ln: ln, done: make(chan struct{})}
		go g.serve()
		return g, nil
	}

	if _, found := detectResident(); found {
		return nil, ErrAlreadyRunning
	}
	return nil, fmt.Errorf("no free port in [%d,%d] and no resident detected", start, end)
}

// Port returns the claimed port.
func (g *Guard) Port() int {
	return g.ln.Addr().(*net.TCPAddr).Port
}

// Release gives up instance ownership.
func (g *Guard) Release() {
	close(g.done)
	_ = g.ln.Close()
}

// serve answers pings so a second instance can tell a live resident from a
// stale port squatter.
func (g *Guard) serve() {
	for {
		conn, err := g.ln.Accept()
		if err != nil {
			return
		}
		go answerPing(conn)
	}
}

func answerPing(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	req, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil || req != pingRequest {
		return
	}
	_, _ = conn.Write([]byte(pongResponse))
}

// detectResident scans the port range and returns (port, true) if a resident
// answers a ping.
func detectResident() (int, bool) {
	start, end := portRange()
	for port := start; port <= end; port++ {
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if pingResident(addr, 300*time.Millisecond) {
			return port, true
		}
	}
	return 0, false
}

func pingResident(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(pingRequest)); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

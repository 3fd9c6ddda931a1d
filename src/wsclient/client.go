package wsclient

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"ai-text-assist/src/bridge"
	"ai-text-assist/src/protocol"
)

// State is the connection state machine. It is owned by the network worker
// goroutine; other goroutines observe it but never drive transitions.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

const (
	// Time allowed to write a message or ping to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong after a ping.
	pongWait = 30 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 20 * time.Second

	// Buffered outbound commands; excess is dropped (fire-and-forget).
	sendBuffer = 16
)

// Client keeps one persistent duplex stream alive across failures. All
// transport I/O happens on worker goroutines started by Start; callers talk
// to the worker through SendCancel/Stop, which schedule work rather than
// touching the connection inline.
type Client struct {
	url    string
	header http.Header
	br     *bridge.Bridge
	dialer *websocket.Dialer

	state atomic.Int32
	bo    *backoff

	mu       sync.Mutex
	conn     *websocket.Conn
	running  bool
	stopping bool
	send     chan []byte
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a client for the given ws:// URL. header may carry auth and
// may be nil. Events are delivered through br.
func New(url string, header http.Header, br *bridge.Bridge) *Client {
	return &Client{
		url:    url,
		header: header,
		br:     br,
		dialer: websocket.DefaultDialer,
		bo:     newBackoff(),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Start launches the connection worker. Calling Start on a running client is
// a no-op.
func (c *Client) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopping = false
	c.send = make(chan []byte, sendBuffer)
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.run(done)
}

// Stop requests termination: the stop flag is set, the live connection (if
// any) is force-closed, and the worker exits after its current suspension
// point. No reconnection attempts happen after Stop. Idempotent.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running || c.stopping {
		c.mu.Unlock()
		return
	}
	c.stopping = true
	close(c.stopCh)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Wait blocks until the worker has exited, up to timeout. Returns true if
// the worker finished. Callers must not assume instantaneous termination.
func (c *Client) Wait(timeout time.Duration) bool {
	c.mu.Lock()
	running := c.running
	done := c.done
	c.mu.Unlock()

	if !running || done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// SendCancel schedules a cancel message for requestID onto the worker's
// writer. Outside StateConnected it is a no-op: no transport write happens.
// No acknowledgement is awaited.
func (c *Client) SendCancel(requestID string) {
	if c.State() != StateConnected {
		return
	}
	c.enqueue(protocol.EncodeCancel(requestID))
}

func (c *Client) enqueue(msg []byte) {
	c.mu.Lock()
	send := c.send
	c.mu.Unlock()
	if send == nil {
		return
	}
	select {
	case send <- msg:
	default:
		log.Printf("wsclient: outbound queue full, dropping message")
	}
}

func (c *Client) isStopping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopping
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
	_ = c.br.Publish(bridge.Event{Kind: bridge.EventStateChanged, State: s.String()})
}

func (c *Client) run(done chan struct{}) {
	defer func() {
		c.setState(StateDisconnected)
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(done)
	}()

	for {
		if c.isStopping() {
			return
		}

		c.setState(StateConnecting)
		conn, resp, err := c.dialer.Dial(c.url, c.header)
		if err != nil {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			if c.isStopping() {
				return
			}
			log.Printf("wsclient: connect to %s failed: %v", c.url, err)
			if !c.sleepBackoff() {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		send := c.send
		c.mu.Unlock()

		c.setState(StateConnected)
		c.bo.Reset()
		log.Printf("wsclient: connected to %s", c.url)

		writerQuit := make(chan struct{})
		writerDone := make(chan struct{})
		go c.writePump(conn, send, writerQuit, writerDone)

		c.readLoop(conn)

		close(writerQuit)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
		<-writerDone

		if c.isStopping() {
			return
		}
		if !c.sleepBackoff() {
			return
		}
	}
}

// sleepBackoff waits the next backoff delay. Returns false if Stop was
// requested during the wait.
func (c *Client) sleepBackoff() bool {
	delay := c.bo.Next()
	c.setState(StateReconnecting)
	log.Printf("wsclient: reconnecting in %s", delay)

	c.mu.Lock()
	stopCh := c.stopCh
	c.mu.Unlock()

	select {
	case <-time.After(delay):
		return true
	case <-stopCh:
		return false
	}
}

// readLoop pulls messages until the connection dies. Parse failures drop the
// message and keep reading; only transport errors end the loop.
func (c *Client) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !c.isStopping() {
				log.Printf("wsclient: read error: %v", err)
			}
			return
		}
		frame, ok := protocol.Parse(raw)
		if !ok {
			continue
		}
		c.dispatch(frame)
	}
}

// dispatch maps one recognized frame to exactly one bridge event. Unknown
// types fall through to the default arm and are ignored for forward
// compatibility.
func (c *Client) dispatch(f protocol.Frame) {
	switch f.Type {
	case protocol.FrameStart:
		_ = c.br.Publish(bridge.Event{Kind: bridge.EventStreamStarted, RequestID: f.RequestID})
	case protocol.FrameChunk:
		_ = c.br.Publish(bridge.Event{
			Kind:      bridge.EventChunkReceived,
			RequestID: f.RequestID,
			Seq:       f.Seq,
			Content:   f.Content,
		})
	case protocol.FrameDone:
		_ = c.br.Publish(bridge.Event{Kind: bridge.EventStreamEnded, RequestID: f.RequestID})
	case protocol.FrameError:
		_ = c.br.Publish(bridge.Event{
			Kind:      bridge.EventStreamFailed,
			RequestID: f.RequestID,
			Code:      f.Code,
			Message:   f.Message,
		})
	default:
	}
}

// writePump owns all writes on one connection: queued outbound messages and
// the keepalive ping. A missed pong shows up as a read deadline error in
// readLoop, which tears the connection down.
func (c *Client) writePump(conn *websocket.Conn, send <-chan []byte, quit <-chan struct{}, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("wsclient: write error: %v", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("wsclient: ping error: %v", err)
				return
			}
		case <-quit:
			return
		}
	}
}

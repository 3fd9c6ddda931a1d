package wsclient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-text-assist/src/bridge"
	"ai-text-assist/src/protocol"
)

func newTestClient(t *testing.T, url string) (*Client, <-chan bridge.Event) {
	t.Helper()
	br := bridge.New()
	t.Cleanup(br.Shutdown)
	ch, err := br.Subscribe("test", 64)
	require.NoError(t, err)
	return New(url, nil, br), ch
}

func nextEvent(t *testing.T, ch <-chan bridge.Event, timeout time.Duration) bridge.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return bridge.Event{}
	}
}

// waitForKind pumps events until one of the wanted kind arrives.
func waitForKind(t *testing.T, ch <-chan bridge.Event, kind bridge.EventKind, timeout time.Duration) bridge.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestDispatchStartEmitsExactlyOneEvent(t *testing.T) {
	c, ch := newTestClient(t, "ws://unused")

	c.dispatch(protocol.Frame{Type: protocol.FrameStart, RequestID: "r1"})

	ev := nextEvent(t, ch, time.Second)
	assert.Equal(t, bridge.EventStreamStarted, ev.Kind)
	assert.Equal(t, "r1", ev.RequestID)
	assert.Equal(t, 0, bridge.Drain(ch), "no other event expected")
}

func TestDispatchIgnoresUnknownType(t *testing.T) {
	c, ch := newTestClient(t, "ws://unused")

	c.dispatch(protocol.Frame{Type: "telemetry", RequestID: "r1"})

	assert.Equal(t, 0, bridge.Drain(ch))
}

func TestSendCancelNotConnectedIsNoOp(t *testing.T) {
	c, _ := newTestClient(t, "ws://unused")
	c.send = make(chan []byte, sendBuffer)

	c.state.Store(int32(StateReconnecting))
	c.SendCancel("r1")
	assert.Empty(t, c.send, "no transport write while not connected")

	c.state.Store(int32(StateConnected))
	c.SendCancel("r1")
	assert.Len(t, c.send, 1)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamLifecycle(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		frames := []string{
			`{"type":"start","requestId":"r1"}`,
			`garbage that is not json`,
			`{"no":"type"}`,
			`{"type":"chunk","requestId":"r1","seq":0,"content":"hello "}`,
			`{"type":"chunk","requestId":"r1","seq":1,"content":"world"}`,
			`{"type":"done","requestId":"r1"}`,
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c, ch := newTestClient(t, wsURL(srv))
	c.Start()
	defer func() {
		c.Stop()
		require.True(t, c.Wait(5*time.Second))
	}()

	ev := waitForKind(t, ch, bridge.EventStreamStarted, 5*time.Second)
	assert.Equal(t, "r1", ev.RequestID)

	// The two non-frames between start and the chunks must be silently
	// dropped without disturbing the stream.
	first := waitForKind(t, ch, bridge.EventChunkReceived, 5*time.Second)
	assert.Equal(t, "hello ", first.Content)
	assert.Equal(t, 0, first.Seq)

	second := waitForKind(t, ch, bridge.EventChunkReceived, 5*time.Second)
	assert.Equal(t, "world", second.Content)
	assert.Equal(t, 1, second.Seq)

	waitForKind(t, ch, bridge.EventStreamEnded, 5*time.Second)
	assert.Equal(t, StateConnected, c.State())
}

func TestReconnectAfterServerClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var accepts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepts++
		if accepts == 1 {
			// First connection is dropped immediately to force the
			// reconnect path.
			conn.Close()
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"start","requestId":"r2"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c, ch := newTestClient(t, wsURL(srv))
	c.Start()
	defer func() {
		c.Stop()
		require.True(t, c.Wait(5*time.Second))
	}()

	// connected -> (drop) -> reconnecting -> connected, then the stream
	// starts on the second connection. Backoff start is 1s, so allow slack.
	ev := waitForKind(t, ch, bridge.EventStreamStarted, 10*time.Second)
	assert.Equal(t, "r2", ev.RequestID)
}

func TestStopWhileUnreachable(t *testing.T) {
	// Nothing listens here; the worker should cycle through the backoff
	// path and leave promptly once Stop is requested.
	c, ch := newTestClient(t, "ws://127.0.0.1:1")
	c.Start()

	waitForKind(t, ch, bridge.EventStateChanged, 5*time.Second)
	c.Stop()
	require.True(t, c.Wait(5*time.Second))
	assert.Equal(t, StateDisconnected, c.State())
}

func TestStartStopIdempotent(t *testing.T) {
	c, _ := newTestClient(t, "ws://127.0.0.1:1")
	c.Start()
	c.Start()
	c.Stop()
	c.Stop()
	require.True(t, c.Wait(5*time.Second))
}

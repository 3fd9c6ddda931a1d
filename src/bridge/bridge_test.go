package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribePublish(t *testing.T) {
	b := New()
	defer b.Shutdown()

	ch, err := b.Subscribe("ui", 4)
	require.NoError(t, err)

	require.NoError(t, b.Publish(Event{Kind: EventStreamStarted, RequestID: "r1"}))

	ev := <-ch
	assert.Equal(t, EventStreamStarted, ev.Kind)
	assert.Equal(t, "r1", ev.RequestID)
}

func TestDuplicateSubscriber(t *testing.T) {
	b := New()
	defer b.Shutdown()

	_, err := b.Subscribe("ui", 1)
	require.NoError(t, err)
	_, err = b.Subscribe("ui", 1)
	assert.Error(t, err)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	defer b.Shutdown()

	ch, err := b.Subscribe("ui", 1)
	require.NoError(t, err)
	b.Unsubscribe("ui")

	_, open := <-ch
	assert.False(t, open)
}

func TestPublishAfterShutdown(t *testing.T) {
	b := New()
	_, err := b.Subscribe("ui", 1)
	require.NoError(t, err)
	b.Shutdown()

	assert.Error(t, b.Publish(Event{Kind: EventStateChanged, State: "connected"}))
}

func TestDrain(t *testing.T) {
	b := New()
	defer b.Shutdown()

	ch, err := b.Subscribe("ui", 8)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Publish(Event{Kind: EventChunkReceived, RequestID: "r1", Seq: i}))
	}
	assert.Equal(t, 3, Drain(ch))
}

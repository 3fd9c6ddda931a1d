package wsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffSequence(t *testing.T) {
	b := newBackoff()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, expected := range want {
		assert.Equal(t, expected, b.Next(), "attempt %d", i+1)
	}
}

func TestBackoffReset(t *testing.T) {
	b := newBackoff()
	for i := 0; i < 5; i++ {
		b.Next()
	}
	b.Reset()
	assert.Equal(t, 1*time.Second, b.Next())
}

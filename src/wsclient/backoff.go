package wsclient

import "time"

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 30 * time.Second
	backoffMultiplier = 2
)

// backoff implements the reconnect delay policy: purely exponential, capped,
// reset on successful connection. No jitter, no attempt cap.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// Next returns the delay to wait before the next attempt and advances the
// schedule. The delay is always within [backoffInitial, backoffMax].
func (b *backoff) Next() time.Duration {
	delay := b.current
	b.current = min(b.current*backoffMultiplier, backoffMax)
	return delay
}

// Reset restores the initial delay. Called exactly on transition into
// StateConnected.
func (b *backoff) Reset() {
	b.current = backoffInitial
}

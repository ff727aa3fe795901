package connection

import "time"

// Backoff yields reconnect delays that start at min, double after each
// failure and stop growing at max.
type Backoff struct {
	min     time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff returns a backoff starting at min. A max below min is raised to
// min.
func NewBackoff(min, max time.Duration) *Backoff {
	if min <= 0 {
		min = time.Second
	}
	if max < min {
		max = min
	}
	return &Backoff{min: min, max: max, current: min}
}

// Next returns the delay to wait after a failure and advances the sequence.
func (b *Backoff) Next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset returns the sequence to min after a success.
func (b *Backoff) Reset() { b.current = b.min }

package ratelimit

import "time"

// Option applies a configuration option to the Limiter.
type Option func(*Limiter)

// WithLimit sets the number of hits allowed per window.
func WithLimit(n int) Option {
	return func(l *Limiter) {
		l.limit = n
	}
}

// WithWindow sets the window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

package token

import (
	"io"
	"time"
)

const (
	// DefaultWindow is the length of one signature time window.
	DefaultWindow = 10 * time.Second
	// DefaultDriftWindows is how many past windows Verify accepts when drift is allowed.
	DefaultDriftWindows = 1
)

type options struct {
	reader io.Reader
	now    func() time.Time
	window time.Duration
	drift  int
	canon  Canonicalizer
}

// Option customizes a KeyManager, Signer or Codec.
type Option func(*options)

// WithRandom replaces crypto/rand.Reader as the entropy source (useful for tests).
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		if r != nil {
			o.reader = r
		}
	}
}

// WithNow injects a deterministic clock source (useful for tests).
func WithNow(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.now = fn
		}
	}
}

// WithWindow changes the signature window length. Values under a millisecond are ignored.
func WithWindow(d time.Duration) Option {
	return func(o *options) {
		if d >= time.Millisecond {
			o.window = d
		}
	}
}

// WithDriftWindows sets how many past windows Verify accepts when drift is
// allowed. Future windows are never accepted.
func WithDriftWindows(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.drift = n
		}
	}
}

// WithCanonicalizer sets how non-string params are flattened before signing.
func WithCanonicalizer(c Canonicalizer) Option {
	return func(o *options) {
		if c != nil {
			o.canon = c
		}
	}
}

func defaultNow() time.Time { return time.Now().UTC() }

func applyOptions(opts ...Option) options {
	o := options{
		now:    defaultNow,
		window: DefaultWindow,
		drift:  DefaultDriftWindows,
		canon:  JSONCanonicalizer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

package transport

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PolicyKind selects how the delay between reconnect attempts evolves.
type PolicyKind string

const (
	// PolicyFixed waits the same delay before every attempt.
	PolicyFixed PolicyKind = "fixed"
	// PolicyExponential doubles the delay after each failed attempt up to MaxDelay.
	PolicyExponential PolicyKind = "exponential"
)

const (
	// DefaultReconnectDelay is the delay before the first reconnect attempt.
	DefaultReconnectDelay = 2000 * time.Millisecond
	// DefaultMaxReconnectDelay caps the exponential policy.
	DefaultMaxReconnectDelay = time.Minute
)

// Policy configures reconnection.
type Policy struct {
	Kind     PolicyKind
	Delay    time.Duration
	MaxDelay time.Duration
	// MaxAttempts bounds consecutive failed dials before giving up. The count
	// restarts after every successful connection. 0 means retry forever.
	MaxAttempts int
}

// DefaultPolicy returns the bounded exponential policy.
func DefaultPolicy() Policy {
	return Policy{
		Kind:     PolicyExponential,
		Delay:    DefaultReconnectDelay,
		MaxDelay: DefaultMaxReconnectDelay,
	}
}

// Validate checks the policy fields.
func (p Policy) Validate() error {
	switch p.Kind {
	case PolicyFixed, PolicyExponential:
	default:
		return fmt.Errorf("unknown reconnect policy %q", p.Kind)
	}
	if p.Delay <= 0 {
		return fmt.Errorf("reconnect delay must be > 0, got %s", p.Delay)
	}
	if p.Kind == PolicyExponential && p.MaxDelay < p.Delay {
		return fmt.Errorf("max reconnect delay %s is below reconnect delay %s", p.MaxDelay, p.Delay)
	}
	if p.MaxAttempts < 0 {
		return fmt.Errorf("max reconnect attempts must be >= 0, got %d", p.MaxAttempts)
	}
	return nil
}

// NewBackOff builds a fresh backoff for one Run. The exponential variant has
// no jitter so a retry never fires before Delay has elapsed.
func (p Policy) NewBackOff() backoff.BackOff {
	var b backoff.BackOff
	switch p.Kind {
	case PolicyFixed:
		b = backoff.NewConstantBackOff(p.Delay)
	default:
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.Delay
		eb.RandomizationFactor = 0
		eb.Multiplier = 2
		eb.MaxInterval = p.MaxDelay
		eb.MaxElapsedTime = 0
		eb.Reset()
		b = eb
	}
	return b
}

// Exhausted reports whether failures consecutive failed dials used up MaxAttempts.
func (p Policy) Exhausted(failures int) bool {
	return p.MaxAttempts > 0 && failures >= p.MaxAttempts
}

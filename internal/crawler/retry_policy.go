package crawler

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryMode selects how the wait between failed fetch attempts evolves.
type RetryMode string

// Supported retry modes.
const (
	RetryModeFixed       RetryMode = "fixed"
	RetryModeExponential RetryMode = "exponential"
)

// ParseRetryMode validates a configured retry mode.
func ParseRetryMode(raw string) (RetryMode, error) {
	switch RetryMode(raw) {
	case "", RetryModeFixed:
		return RetryModeFixed, nil
	case RetryModeExponential:
		return RetryModeExponential, nil
	default:
		return "", fmt.Errorf("unknown retry mode %q", raw)
	}
}

// RetryConfig controls RetryPolicy.
type RetryConfig struct {
	Mode     RetryMode
	Delay    time.Duration
	MaxDelay time.Duration
	// AlertAfter is the number of consecutive failures of one batch after which
	// the stall is escalated. Zero disables escalation.
	AlertAfter int
}

// RetryPolicy schedules re-fetches of a failing batch. It never gives up:
// a batch is retried until it succeeds or the context ends.
type RetryPolicy struct {
	cfg RetryConfig
}

// NewRetryPolicy builds a policy, filling unset fields with sane defaults.
func NewRetryPolicy(cfg RetryConfig) *RetryPolicy {
	if cfg.Mode == "" {
		cfg.Mode = RetryModeFixed
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.MaxDelay < cfg.Delay {
		cfg.MaxDelay = cfg.Delay
	}
	return &RetryPolicy{cfg: cfg}
}

// NewBackOff returns a fresh schedule for one batch.
func (p *RetryPolicy) NewBackOff() backoff.BackOff {
	if p.cfg.Mode != RetryModeExponential {
		return backoff.NewConstantBackOff(p.cfg.Delay)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.Delay
	b.MaxInterval = p.cfg.MaxDelay
	b.RandomizationFactor = 0.1
	b.MaxElapsedTime = 0
	b.Reset()
	return &neverStop{BackOff: b, fallback: p.cfg.MaxDelay}
}

// ShouldAlert reports whether failures has just crossed the alert threshold.
func (p *RetryPolicy) ShouldAlert(failures int) bool {
	return p.cfg.AlertAfter > 0 && failures == p.cfg.AlertAfter
}

// Stalled reports whether failures is at or past the alert threshold.
func (p *RetryPolicy) Stalled(failures int) bool {
	return p.cfg.AlertAfter > 0 && failures >= p.cfg.AlertAfter
}

// neverStop replaces backoff.Stop with the capped delay.
type neverStop struct {
	backoff.BackOff
	fallback time.Duration
}

func (n *neverStop) NextBackOff() time.Duration {
	d := n.BackOff.NextBackOff()
	if d == backoff.Stop {
		return n.fallback
	}
	return d
}

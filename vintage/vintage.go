// Package vintage is a compatibility shim for legacy-style test units that
// declare an expected error or a wall-clock timeout instead of asserting
// inside the body.
package vintage

import (
	"errors"
	"fmt"
	"time"

	"code.cloudfoundry.org/clock"
)

// Failure message formats, exported so callers can assert on outcomes.
const (
	ExpectedErrorNotReturned = "vintage: expected error matching %v, unit returned none"
	RanTooLong               = "vintage: unit %s ran longer than its %v timeout"
)

// Config carries the legacy execution options.
type Config struct {
	// Expected, when set, inverts the outcome: the unit passes only when it
	// returns an error matching Expected (errors.Is, so wrapped errors pass
	// the way subtypes did).
	Expected error
	// Timeout, when positive, fails the unit if it runs longer.
	Timeout time.Duration
}

// Runner executes legacy unit functions.
type Runner struct {
	clk clock.Clock
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock replaces the wall clock, letting tests drive timeouts.
func WithClock(clk clock.Clock) RunnerOption {
	return func(r *Runner) {
		if clk != nil {
			r.clk = clk
		}
	}
}

// NewRunner constructs a Runner against the real clock by default.
func NewRunner(opts ...RunnerOption) Runner {
	r := Runner{clk: clock.NewClock()}
	for _, opt := range opts {
		if opt != nil {
			opt(&r)
		}
	}
	return r
}

// Run executes fn under cfg and returns the unit's effective outcome. A
// timed-out unit keeps running in its goroutine; its eventual result is
// discarded.
func (r Runner) Run(name string, cfg Config, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("vintage: unit function is required")
	}

	var err error
	if cfg.Timeout > 0 {
		done := make(chan error, 1)
		go func() {
			done <- runProtected(fn)
		}()
		select {
		case err = <-done:
		case <-r.clk.After(cfg.Timeout):
			return fmt.Errorf(RanTooLong, name, cfg.Timeout)
		}
	} else {
		err = runProtected(fn)
	}

	return applyExpectation(cfg, err)
}

func runProtected(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("vintage: unit panicked: %v", rec)
		}
	}()
	return fn()
}

func applyExpectation(cfg Config, err error) error {
	if cfg.Expected == nil {
		return err
	}
	if err == nil {
		return fmt.Errorf(ExpectedErrorNotReturned, cfg.Expected)
	}
	if errors.Is(err, cfg.Expected) {
		return nil
	}
	return err
}

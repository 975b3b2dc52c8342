// Package retry defines the timing policy of the resilient browser actions.
//
// A Policy is looked up once per session from a Table keyed by the engine's
// speed class and the execution environment, so call sites never branch on
// engine or CI themselves.
package retry

import (
	"fmt"
	"time"
)

// Speed classifies browser engines by how much timing budget they need.
type Speed int

const (
	Fast Speed = iota
	Slow
)

func (s Speed) String() string {
	if s == Slow {
		return "slow"
	}
	return "fast"
}

// SpeedFor maps an engine slowness flag to a Speed.
func SpeedFor(slow bool) Speed {
	if slow {
		return Slow
	}
	return Fast
}

// Environment is where the suite runs.
type Environment int

const (
	Local Environment = iota
	CI
)

func (e Environment) String() string {
	if e == CI {
		return "ci"
	}
	return "local"
}

// EnvironmentFor maps the CI flag to an Environment.
func EnvironmentFor(ci bool) Environment {
	if ci {
		return CI
	}
	return Local
}

// Key selects a Policy.
type Key struct {
	Speed       Speed
	Environment Environment
}

func (k Key) String() string {
	return k.Speed.String() + "/" + k.Environment.String()
}

// Order lists the keys from the smallest to the largest budget.
var Order = []Key{
	{Fast, Local},
	{Slow, Local},
	{Fast, CI},
	{Slow, CI},
}

// Growth is how backoff delays grow with the attempt number.
type Growth int

const (
	Linear Growth = iota
	Exponential
)

func (g Growth) String() string {
	if g == Exponential {
		return "exponential"
	}
	return "linear"
}

// Schedule is the timing of one kind of operation. Attempts are numbered from 1.
type Schedule struct {
	MaxAttempts int

	// BaseTimeout and TimeoutStep give the primary timeout of attempt n as
	// BaseTimeout + n*TimeoutStep.
	BaseTimeout time.Duration
	TimeoutStep time.Duration

	// FallbackTimeout and FallbackStep bound the in-attempt fallback strategy.
	FallbackTimeout time.Duration
	FallbackStep    time.Duration

	// FallbackDelay is waited before the fallback strategy; it grows like Backoff.
	FallbackDelay time.Duration

	// Backoff is the delay after a failed attempt; it grows by Growth up to MaxBackoff.
	Backoff    time.Duration
	Growth     Growth
	MaxBackoff time.Duration

	// Settle is waited after a success before the result is trusted.
	Settle time.Duration

	// PreDelay is waited before every attempt.
	PreDelay time.Duration

	// InitialDelay is waited once before the first attempt.
	InitialDelay time.Duration

	// IdleTimeout bounds the wait for network idleness after a navigation.
	IdleTimeout time.Duration
}

// Timeout returns the primary timeout of the given attempt.
func (s Schedule) Timeout(attempt int) time.Duration {
	return s.BaseTimeout + time.Duration(attempt)*s.TimeoutStep
}

// FallbackTimeoutFor returns the fallback timeout of the given attempt.
func (s Schedule) FallbackTimeoutFor(attempt int) time.Duration {
	return s.FallbackTimeout + time.Duration(attempt)*s.FallbackStep
}

// BackoffFor returns the delay after the given failed attempt.
func (s Schedule) BackoffFor(attempt int) time.Duration {
	return s.grow(s.Backoff, attempt)
}

// FallbackDelayFor returns the delay before the fallback of the given attempt.
func (s Schedule) FallbackDelayFor(attempt int) time.Duration {
	return s.grow(s.FallbackDelay, attempt)
}

func (s Schedule) grow(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 1 {
		return 0
	}
	var d time.Duration
	switch s.Growth {
	case Exponential:
		d = base
		for i := 1; i < attempt; i++ {
			d *= 2
			if s.MaxBackoff > 0 && d >= s.MaxBackoff {
				break
			}
		}
	default:
		d = base * time.Duration(attempt)
	}
	if s.MaxBackoff > 0 && d > s.MaxBackoff {
		d = s.MaxBackoff
	}
	return d
}

// Policy holds the schedules of every resilient operation.
type Policy struct {
	Navigation Schedule
	Element    Schedule
	Click      Schedule
	Fill       Schedule
}

func (p Policy) schedules() map[string]Schedule {
	return map[string]Schedule{
		"navigation": p.Navigation,
		"element":    p.Element,
		"click":      p.Click,
		"fill":       p.Fill,
	}
}

// OrderError reports a table whose budgets shrink along Order.
type OrderError struct {
	Operation string
	Field     string
	Lower     Key
	Higher    Key
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("retry table: %s %s of %s exceeds %s", e.Operation, e.Field, e.Lower, e.Higher)
}

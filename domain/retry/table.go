package retry

import (
	"fmt"
	"sort"
	"time"
)

// Table maps keys to policies.
type Table map[Key]Policy

// Lookup returns the policy of key, falling back to the default table.
func (t Table) Lookup(speed Speed, env Environment) Policy {
	if p, ok := t[Key{speed, env}]; ok {
		return p
	}
	return DefaultTable()[Key{speed, env}]
}

// Clone returns a copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Validate checks that every key is present, every schedule allows at least
// one attempt, and that attempt counts and base timeouts never shrink along Order.
func (t Table) Validate() error {
	for _, k := range Order {
		p, ok := t[k]
		if !ok {
			return fmt.Errorf("retry table: missing policy for %s", k)
		}
		for op, s := range p.schedules() {
			if s.MaxAttempts < 1 {
				return fmt.Errorf("retry table: %s %s allows no attempt", k, op)
			}
		}
	}

	ops := make([]string, 0, 4)
	for op := range t[Order[0]].schedules() {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for i := 1; i < len(Order); i++ {
		lo, hi := t[Order[i-1]].schedules(), t[Order[i]].schedules()
		for _, op := range ops {
			if lo[op].MaxAttempts > hi[op].MaxAttempts {
				return &OrderError{Operation: op, Field: "attempts", Lower: Order[i-1], Higher: Order[i]}
			}
			if lo[op].BaseTimeout > hi[op].BaseTimeout {
				return &OrderError{Operation: op, Field: "base timeout", Lower: Order[i-1], Higher: Order[i]}
			}
		}
	}
	return nil
}

// DefaultTable returns the built-in policies.
func DefaultTable() Table {
	return Table{
		{Fast, Local}: {
			Navigation: Schedule{
				MaxAttempts:     2,
				BaseTimeout:     45 * time.Second,
				TimeoutStep:     20 * time.Second,
				FallbackTimeout: 45 * time.Second,
				FallbackStep:    30 * time.Second,
				FallbackDelay:   2 * time.Second,
				Backoff:         3 * time.Second,
				Growth:          Linear,
				IdleTimeout:     20 * time.Second,
			},
			Element: Schedule{
				MaxAttempts:     2,
				BaseTimeout:     15 * time.Second,
				TimeoutStep:     10 * time.Second,
				FallbackTimeout: 10 * time.Second,
				Backoff:         time.Second,
				Growth:          Linear,
			},
			Click: Schedule{
				MaxAttempts: 2,
				BaseTimeout: 5 * time.Second,
				Backoff:     500 * time.Millisecond,
				Growth:      Linear,
			},
			Fill: Schedule{
				MaxAttempts: 2,
				BaseTimeout: 15 * time.Second,
			},
		},
		{Slow, Local}: {
			Navigation: Schedule{
				MaxAttempts:     4,
				BaseTimeout:     60 * time.Second,
				TimeoutStep:     20 * time.Second,
				FallbackTimeout: 60 * time.Second,
				FallbackStep:    30 * time.Second,
				FallbackDelay:   2 * time.Second,
				Backoff:         3 * time.Second,
				Growth:          Linear,
				Settle:          time.Second,
				IdleTimeout:     30 * time.Second,
			},
			Element: Schedule{
				MaxAttempts:     3,
				BaseTimeout:     25 * time.Second,
				TimeoutStep:     10 * time.Second,
				FallbackTimeout: 15 * time.Second,
				Backoff:         time.Second,
				Growth:          Linear,
				Settle:          500 * time.Millisecond,
			},
			Click: Schedule{
				MaxAttempts: 3,
				BaseTimeout: 10 * time.Second,
				Backoff:     500 * time.Millisecond,
				Growth:      Linear,
				PreDelay:    300 * time.Millisecond,
			},
			Fill: Schedule{
				MaxAttempts: 2,
				BaseTimeout: 25 * time.Second,
				Settle:      200 * time.Millisecond,
			},
		},
		{Fast, CI}: {
			Navigation: Schedule{
				MaxAttempts:     4,
				BaseTimeout:     60 * time.Second,
				TimeoutStep:     20 * time.Second,
				FallbackTimeout: 60 * time.Second,
				FallbackStep:    30 * time.Second,
				FallbackDelay:   5 * time.Second,
				Backoff:         5 * time.Second,
				Growth:          Exponential,
				MaxBackoff:      60 * time.Second,
				IdleTimeout:     30 * time.Second,
			},
			Element: Schedule{
				MaxAttempts:     3,
				BaseTimeout:     25 * time.Second,
				TimeoutStep:     10 * time.Second,
				FallbackTimeout: 15 * time.Second,
				Backoff:         3 * time.Second,
				Growth:          Exponential,
				MaxBackoff:      30 * time.Second,
			},
			Click: Schedule{
				MaxAttempts: 3,
				BaseTimeout: 10 * time.Second,
				Backoff:     time.Second,
				Growth:      Exponential,
				MaxBackoff:  10 * time.Second,
			},
			Fill: Schedule{
				MaxAttempts: 2,
				BaseTimeout: 25 * time.Second,
				Settle:      200 * time.Millisecond,
			},
		},
		{Slow, CI}: {
			Navigation: Schedule{
				MaxAttempts:     6,
				BaseTimeout:     120 * time.Second,
				TimeoutStep:     20 * time.Second,
				FallbackTimeout: 120 * time.Second,
				FallbackStep:    30 * time.Second,
				FallbackDelay:   5 * time.Second,
				Backoff:         5 * time.Second,
				Growth:          Exponential,
				MaxBackoff:      60 * time.Second,
				Settle:          2 * time.Second,
				InitialDelay:    3 * time.Second,
				IdleTimeout:     60 * time.Second,
			},
			Element: Schedule{
				MaxAttempts:     5,
				BaseTimeout:     45 * time.Second,
				TimeoutStep:     10 * time.Second,
				FallbackTimeout: 30 * time.Second,
				Backoff:         3 * time.Second,
				Growth:          Exponential,
				MaxBackoff:      30 * time.Second,
				Settle:          time.Second,
			},
			Click: Schedule{
				MaxAttempts: 5,
				BaseTimeout: 20 * time.Second,
				Backoff:     time.Second,
				Growth:      Exponential,
				MaxBackoff:  10 * time.Second,
				PreDelay:    500 * time.Millisecond,
			},
			Fill: Schedule{
				MaxAttempts: 2,
				BaseTimeout: 45 * time.Second,
				Settle:      500 * time.Millisecond,
			},
		},
	}
}

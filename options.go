// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package looper

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// DefaultSpinThreshold is the default remaining-delay threshold below which
// the loop busy-waits instead of blocking in a timed wait. Busy-waiting
// trades CPU for precision on imminent deadlines, where blocking-wait
// latency and jitter would otherwise overshoot.
const DefaultSpinThreshold = 2 * time.Millisecond

// looperOptions holds configuration options for Looper creation.
type looperOptions struct {
	name           string
	logger         *logiface.Logger[logiface.Event]
	now            func() time.Time
	spinThreshold  time.Duration
	metricsEnabled bool
}

// --- Looper Options ---

// LooperOption configures a Looper instance.
type LooperOption interface {
	applyLooper(*looperOptions) error
}

// looperOptionImpl implements LooperOption.
type looperOptionImpl struct {
	applyLooperFunc func(*looperOptions) error
}

func (l *looperOptionImpl) applyLooper(opts *looperOptions) error {
	return l.applyLooperFunc(opts)
}

// WithName sets a name for the Looper, surfaced in log output.
func WithName(name string) LooperOption {
	return &looperOptionImpl{func(opts *looperOptions) error {
		opts.name = name
		return nil
	}}
}

// WithLogger attaches a structured logger to the Looper. A nil logger is
// valid, and disables logging (logiface loggers are nil-safe).
func WithLogger(logger *logiface.Logger[logiface.Event]) LooperOption {
	return &looperOptionImpl{func(opts *looperOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithSpinThreshold sets the remaining-delay threshold below which the loop
// busy-waits on an imminent deadline rather than blocking. Zero disables
// busy-waiting entirely. See DefaultSpinThreshold.
func WithSpinThreshold(d time.Duration) LooperOption {
	return &looperOptionImpl{func(opts *looperOptions) error {
		if d < 0 {
			return errors.New("looper: spin threshold must be non-negative")
		}
		opts.spinThreshold = d
		return nil
	}}
}

// WithClock sets the monotonic clock used for trigger comparisons and wake
// deadlines. Intended for deterministic tests; the default is [time.Now],
// whose readings carry a monotonic component.
func WithClock(now func() time.Time) LooperOption {
	return &looperOptionImpl{func(opts *looperOptions) error {
		if now == nil {
			return errors.New("looper: clock must be non-nil")
		}
		opts.now = now
		return nil
	}}
}

// WithMetrics enables runtime metrics collection on the Looper.
// When enabled, counters can be read via Looper.Metrics.
func WithMetrics(enabled bool) LooperOption {
	return &looperOptionImpl{func(opts *looperOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// resolveLooperOptions applies LooperOption instances to looperOptions.
func resolveLooperOptions(opts []LooperOption) (*looperOptions, error) {
	cfg := &looperOptions{
		now:           time.Now,
		spinThreshold: DefaultSpinThreshold,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyLooper(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

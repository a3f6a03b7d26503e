// Package resolver implements the hybrid call pattern used for every
// external service: try the primary backend with retries, fall back to
// the secondary, and serve repeated identical requests from a
// content-keyed cache so re-runs over unchanged files cost nothing.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/procaudit-cli/internal/logger"
)

// Mode selects which backends a resolution may use.
type Mode string

const (
	// ModePrimaryOnly never falls back; primary exhaustion is final.
	ModePrimaryOnly Mode = "primary-only"

	// ModeSecondaryOnly skips the primary entirely.
	ModeSecondaryOnly Mode = "secondary-only"

	// ModeHybrid tries the primary first and falls back to the
	// secondary when the primary is exhausted.
	ModeHybrid Mode = "primary-then-secondary"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePrimaryOnly, ModeSecondaryOnly, ModeHybrid:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: unknown resolver mode %q", domain.ErrInvalidInput, s)
}

// Source records where a resolved payload came from.
type Source string

const (
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
	SourceCache     Source = "cache"
)

// Attempt is one backend invocation in a resolution's history.
type Attempt struct {
	// Backend names the invoked backend.
	Backend string

	// Err is the failure message, empty on success.
	Err string

	// Elapsed is the wall time of the call.
	Elapsed time.Duration
}

// Result is a completed resolution.
type Result struct {
	// Source tells which path produced the payload.
	Source Source

	// Payload is the resolved value, backend-specific bytes.
	Payload []byte

	// Attempts lists every backend call made, in order. Empty when the
	// payload was served from cache.
	Attempts []Attempt
}

// ExhaustedError reports a resolution whose every allowed backend
// failed. It carries the full attempt history so callers can attach it
// to the failure they report.
type ExhaustedError struct {
	Attempts []Attempt
	Err      error
}

func (e *ExhaustedError) Error() string { return e.Err.Error() }
func (e *ExhaustedError) Unwrap() error { return e.Err }

// AttemptHistory extracts the attempt history from a resolution error.
// Nil when err did not come from an exhausted resolution.
func AttemptHistory(err error) []Attempt {
	var ex *ExhaustedError
	if errors.As(err, &ex) {
		return ex.Attempts
	}
	return nil
}

// Call is one backend invocation.
type Call func(ctx context.Context) ([]byte, error)

// Backend pairs a call with its display name for attempt histories.
type Backend struct {
	Name string
	Call Call
}

// Options configures a Resolver.
type Options struct {
	// Mode selects the backend strategy. Zero value means ModeHybrid.
	Mode Mode

	// MaxAttempts bounds invocations per backend. Zero means 3.
	MaxAttempts int

	// BaseDelay and MaxDelay shape the capped exponential backoff
	// between attempts against the same backend.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// CallTimeout bounds each individual backend call. Zero disables
	// the per-call timeout.
	CallTimeout time.Duration

	// RatePerSecond and Burst throttle outbound calls across all
	// resolutions sharing this Resolver. Zero rate disables throttling.
	RatePerSecond float64
	Burst         int
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeHybrid
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 500 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 8 * time.Second
	}
	return o
}

// delay computes the backoff before attempt n (1-based; no delay
// before the first attempt).
func (o Options) delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := time.Duration(float64(o.BaseDelay) * math.Pow(2, float64(attempt-2)))
	if d > o.MaxDelay {
		d = o.MaxDelay
	}
	return d
}

// Resolver executes hybrid-resolved external calls. A single Resolver
// is shared by all adapters so the rate limit is global.
type Resolver struct {
	opts    Options
	cache   driven.CallCache
	limiter *rate.Limiter
}

// New creates a Resolver. A nil cache disables caching.
func New(opts Options, cache driven.CallCache) *Resolver {
	opts = opts.withDefaults()
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return &Resolver{opts: opts, cache: cache, limiter: limiter}
}

// Resolve runs the configured strategy for one logical operation.
//
// key is the content-stable cache identity (see Key); an empty key
// disables caching for this call. primary and secondary are the two
// backends; whichever the mode excludes may be the zero Backend.
func (r *Resolver) Resolve(ctx context.Context, key string, primary, secondary Backend) (Result, error) {
	if r.cache != nil && key != "" {
		payload, err := r.cache.Get(ctx, key)
		if err == nil {
			logger.Debug("Resolver cache hit for %s", key)
			return Result{Source: SourceCache, Payload: payload}, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Warn("Cache read failed for %s: %v", key, err)
		}
	}

	var attempts []Attempt

	tryBackend := func(b Backend, source Source) (Result, error) {
		payload, history, err := r.callWithRetry(ctx, b)
		attempts = append(attempts, history...)
		if err != nil {
			return Result{Attempts: attempts}, &ExhaustedError{Attempts: attempts, Err: err}
		}
		res := Result{Source: source, Payload: payload, Attempts: attempts}
		r.store(ctx, key, payload)
		return res, nil
	}

	switch r.opts.Mode {
	case ModePrimaryOnly:
		return tryBackend(primary, SourcePrimary)

	case ModeSecondaryOnly:
		return tryBackend(secondary, SourceSecondary)

	default:
		res, err := tryBackend(primary, SourcePrimary)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return res, err
		}
		// Operations with a single backend fail on primary exhaustion.
		if secondary.Call == nil {
			return res, err
		}
		logger.Debug("Primary %s exhausted, falling back to %s: %v", primary.Name, secondary.Name, err)
		return tryBackend(secondary, SourceSecondary)
	}
}

// callWithRetry invokes one backend up to MaxAttempts times with
// capped exponential backoff between attempts.
func (r *Resolver) callWithRetry(ctx context.Context, b Backend) ([]byte, []Attempt, error) {
	if b.Call == nil {
		return nil, nil, fmt.Errorf("%w: backend %q not configured", domain.ErrAdapterFailed, b.Name)
	}

	var history []Attempt
	var lastErr error

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if d := r.opts.delay(attempt); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return nil, history, ctx.Err()
			}
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, history, err
			}
		}

		callCtx := ctx
		cancel := func() {}
		if r.opts.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.opts.CallTimeout)
		}

		start := time.Now()
		payload, err := b.Call(callCtx)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			history = append(history, Attempt{Backend: b.Name, Elapsed: elapsed})
			return payload, history, nil
		}

		history = append(history, Attempt{Backend: b.Name, Err: err.Error(), Elapsed: elapsed})
		lastErr = err
		if ctx.Err() != nil {
			return nil, history, ctx.Err()
		}
		logger.Debug("Backend %s attempt %d/%d failed: %v", b.Name, attempt, r.opts.MaxAttempts, err)
	}

	return nil, history, fmt.Errorf("%w: %s failed after %d attempts: %v",
		domain.ErrAdapterFailed, b.Name, r.opts.MaxAttempts, lastErr)
}

func (r *Resolver) store(ctx context.Context, key string, payload []byte) {
	if r.cache == nil || key == "" {
		return
	}
	if err := r.cache.Put(ctx, key, payload); err != nil {
		logger.Warn("Cache write failed for %s: %v", key, err)
	}
}

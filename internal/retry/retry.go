// Package retry implements the bounded backoff policy shared by every upstream client.
//
// A Policy describes how long to wait between attempts; a Predicate decides which
// results are worth another attempt. Do combines the two around any call:
//
//	res, err := retry.Do(ctx, retry.Default(), shouldRetry, func(ctx context.Context) (T, error) {
//		return call(ctx)
//	})
//
// When retries run out, Do hands back the last result and error untouched, so the
// caller cannot tell an exhausted retry from a result that was never retried.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// Backoff selects how the delay grows between attempts.
type Backoff string

const (
	BackoffExp       Backoff = "exp"
	BackoffExpJitter Backoff = "exp-jitter"
	BackoffFixed     Backoff = "fixed"
	BackoffNone      Backoff = "none"
)

// ParseBackoff maps a configuration value onto a Backoff.
func ParseBackoff(value string) (Backoff, error) {
	switch b := Backoff(strings.ToLower(strings.TrimSpace(value))); b {
	case BackoffExp, BackoffExpJitter, BackoffFixed, BackoffNone:
		return b, nil
	default:
		return "", fmt.Errorf("unknown backoff %q (want exp|exp-jitter|fixed|none)", value)
	}
}

// Policy bounds the number of retries and the delay before each one.
type Policy struct {
	Backoff    Backoff
	MaxRetries int
	Base       time.Duration
	Cap        time.Duration
	Factor     float64

	// OnRetry, when set, is called before sleeping ahead of retry n (1-based).
	OnRetry func(n int, delay time.Duration)
}

// Default is three retries after the first attempt, growing from 500ms without jitter.
func Default() Policy {
	return Policy{
		Backoff:    BackoffExp,
		MaxRetries: 3,
		Base:       500 * time.Millisecond,
		Cap:        5 * time.Second,
		Factor:     2,
	}
}

// Delay returns the wait before retry n (1-based): Base * Factor^(n-1), capped at Cap.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	switch p.Backoff {
	case BackoffNone:
		return 0
	case BackoffFixed:
		return p.capped(p.Base)
	case BackoffExp, BackoffExpJitter, "":
		factor := p.Factor
		if factor <= 0 {
			factor = 2
		}
		raw := float64(p.Base) * math.Pow(factor, float64(n-1))
		var d time.Duration
		if raw >= math.MaxInt64 {
			d = time.Duration(math.MaxInt64)
		} else {
			d = time.Duration(raw)
		}
		d = p.capped(d)
		if p.Backoff == BackoffExpJitter && d > 0 {
			return time.Duration(rand.Int64N(int64(d)))
		}
		return d
	default:
		return 0
	}
}

// Budget is the longest Do can take when every attempt runs for attempt:
// MaxRetries+1 attempts plus the largest delay before each retry.
func (p Policy) Budget(attempt time.Duration) time.Duration {
	worst := p
	if worst.Backoff == BackoffExpJitter {
		worst.Backoff = BackoffExp
	}
	retries := max(p.MaxRetries, 0)
	total := time.Duration(retries+1) * attempt
	for n := 1; n <= retries; n++ {
		total += worst.Delay(n)
	}
	return total
}

func (p Policy) capped(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if p.Cap > 0 && d > p.Cap {
		return p.Cap
	}
	return d
}

// Predicate reports whether the outcome of an attempt should be retried.
type Predicate[R any] func(result R, err error) bool

// Do runs fn until the predicate declines, MaxRetries is reached or ctx is done.
// The last result is returned unchanged; if ctx ends while waiting the context
// error is returned with the last result.
func Do[R any](ctx context.Context, p Policy, shouldRetry Predicate[R], fn func(context.Context) (R, error)) (R, error) {
	maxRetries := max(p.MaxRetries, 0)
	for n := 0; ; n++ {
		res, err := fn(ctx)
		if n >= maxRetries || !shouldRetry(res, err) {
			return res, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}

		delay := p.Delay(n + 1)
		if p.OnRetry != nil {
			p.OnRetry(n+1, delay)
		}
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return res, ctx.Err()
		case <-timer.C:
		}
	}
}

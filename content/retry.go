package content

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// Strategy selects how the delay between attempts grows.
type Strategy string

const (
	StrategyConstant    Strategy = "constant"
	StrategyExponential Strategy = "exponential"
	StrategyNone        Strategy = "none"
)

// RetryPolicy describes how often and how patiently an upstream call is
// repeated. The zero value makes a single attempt.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
	Strategy Strategy

	// RetryIf filters errors worth retrying; nil retries every error.
	RetryIf func(error) bool
	// Timer replaces the wall clock between attempts.
	Timer retry.Timer
}

// DefaultRetryPolicy makes three attempts one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return ConstantRetry(3, time.Second)
}

func ConstantRetry(attempts uint, delay time.Duration) RetryPolicy {
	return RetryPolicy{Attempts: attempts, Delay: delay, Strategy: StrategyConstant}
}

func ExponentialRetry(attempts uint, base, max time.Duration) RetryPolicy {
	return RetryPolicy{Attempts: attempts, Delay: base, MaxDelay: max, Strategy: StrategyExponential}
}

func NoRetry() RetryPolicy {
	return RetryPolicy{Attempts: 1, Strategy: StrategyNone}
}

func (p RetryPolicy) attempts() uint {
	if p.Strategy == StrategyNone || p.Attempts == 0 {
		return 1
	}
	return p.Attempts
}

// Do runs fn until it succeeds, the policy is exhausted, RetryIf rejects the
// error or ctx is done. It returns the last error. onRetry, when set, is
// called after every failed attempt with the 1-based attempt number.
func (p RetryPolicy) Do(ctx context.Context, fn func() error, onRetry func(attempt uint, err error)) error {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(p.attempts()),
		retry.Delay(p.Delay),
		retry.LastErrorOnly(true),
	}
	switch p.Strategy {
	case StrategyExponential:
		opts = append(opts, retry.DelayType(retry.BackOffDelay))
		if p.MaxDelay > 0 {
			opts = append(opts, retry.MaxDelay(p.MaxDelay))
		}
	default:
		opts = append(opts, retry.DelayType(retry.FixedDelay))
	}
	if p.RetryIf != nil {
		opts = append(opts, retry.RetryIf(p.RetryIf))
	}
	if p.Timer != nil {
		opts = append(opts, retry.WithTimer(p.Timer))
	}
	if onRetry != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			onRetry(n+1, err)
		}))
	}
	return retry.Do(fn, opts...)
}

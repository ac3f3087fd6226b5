// Package ratelimit provides token-bucket limiters keyed by arbitrary strings
// such as a remote address or a bound identity.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter decides whether the caller identified by key may proceed.
// Each successful check consumes one token from the key's bucket.
// A non-nil error means the backing store could not be consulted.
type Limiter interface {
	Check(ctx context.Context, key string) (bool, error)
}

// Config describes a token bucket: Rate tokens are added every Window, up to Burst.
type Config struct {
	Rate   int           `mapstructure:"rate" yaml:"rate"`
	Burst  int           `mapstructure:"burst" yaml:"burst"`
	Window time.Duration `mapstructure:"window" yaml:"window"`
}

// Enabled reports whether the config describes a real limit.
func (c Config) Enabled() bool {
	return c.Rate > 0 && c.Burst > 0 && c.Window > 0
}

// perSecond returns the refill rate in tokens per second.
func (c Config) perSecond() float64 {
	return float64(c.Rate) / c.Window.Seconds()
}

// RefillTime is how long an empty bucket takes to become full again.
func (c Config) RefillTime() time.Duration {
	if !c.Enabled() {
		return 0
	}
	return time.Duration(float64(c.Window) * float64(c.Burst) / float64(c.Rate))
}

// LimitCheckError reports that the limiter backend was unreachable.
type LimitCheckError struct {
	Key string
	Err error
}

func (e *LimitCheckError) Error() string {
	return fmt.Sprintf("rate limit check for %q: %v", e.Key, e.Err)
}

func (e *LimitCheckError) Unwrap() error {
	return e.Err
}

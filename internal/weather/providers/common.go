package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// RetryConfig controls how often a failed attempt is repeated.
// A zero InitialInterval retries immediately.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client *http.Client
	Retry  RetryConfig
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid retry configuration")
)

// tripAfterFetches is how many fully failed fetches in a row open a breaker.
const tripAfterFetches = 3

// newCircuitBreaker trips only after several whole fetches failed back to back, so a
// single fetch always gets every attempt its retry config allows.
func newCircuitBreaker(name string, retry RetryConfig) *gobreaker.CircuitBreaker {
	attempts := uint32(max(retry.MaxRetries, 0) + 1)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfterFetches*attempts
		},
	})
}

// doWithResilience runs attempt up to 1+MaxRetries times behind the circuit breaker.
// The first success wins. An open breaker or a cancelled context ends the loop early.
func doWithResilience[T any](
	ctx context.Context,
	cfg RetryConfig,
	cb *gobreaker.CircuitBreaker,
	attempt func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if cfg.MaxRetries < 0 || cfg.InitialInterval < 0 {
		return zero, errInvalidConfig
	}

	var lastErr error
	for n := 0; ; n++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := cb.Execute(func() (interface{}, error) {
			return attempt(ctx)
		})
		if err == nil {
			v, ok := result.(T)
			if !ok {
				return zero, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return v, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if n >= cfg.MaxRetries {
			return zero, lastErr
		}

		delay := backoffDelay(cfg, n)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	if cfg.InitialInterval <= 0 {
		return 0
	}
	delay := cfg.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
	if cfg.MaxInterval > 0 && delay > cfg.MaxInterval {
		delay = cfg.MaxInterval
	}
	return delay
}

// checkStatus maps non-2xx responses to errors.
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return errRateLimited
	case resp.StatusCode >= 500:
		return errServerError
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}
	return nil
}

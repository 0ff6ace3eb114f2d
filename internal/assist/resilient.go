package assist

import (
	"context"
	"errors"
	"fmt"

	"github.com/quizzard/quizzard/internal/resilience"
)

// StatusError is a non-2xx reply from a provider API.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api status %d: %s", e.Provider, e.Code, e.Body)
}

// isRetryable treats transient transport failures and retryable HTTP
// statuses (rate limits, upstream overload) as worth another attempt.
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return resilience.IsRetryableStatus(se.Code)
	}
	return resilience.IsRetryableTransport(err)
}

// Resilient wraps a provider with retry and a circuit breaker so a flaky or
// rate-limited API degrades to "no suggestion" instead of stalling review.
type Resilient struct {
	inner   Provider
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// NewResilient wraps a provider with LLM-tuned retry settings and a lenient
// breaker.
func NewResilient(inner Provider) *Resilient {
	retry := resilience.LLMRetryConfig()
	retry.IsRetryable = isRetryable
	return &Resilient{
		inner:   inner,
		breaker: resilience.New(resilience.SlowConfig()),
		retry:   retry,
	}
}

func (r *Resilient) Name() string { return r.inner.Name() }

func (r *Resilient) Answer(ctx context.Context, img []byte, question string, options []string) (string, error) {
	return resilience.ExecuteWithResult(r.breaker, func() (string, error) {
		var answer string
		err := resilience.Retry(ctx, r.retry, func() error {
			var callErr error
			answer, callErr = r.inner.Answer(ctx, img, question, options)
			return callErr
		})
		return answer, err
	})
}

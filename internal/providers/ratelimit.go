package providers

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
)

// RateLimited throttles model requests with a token bucket.
// It only delays requests; it never retries a failed one.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps p so that at most rpm requests start per minute.
// If rpm <= 0, p is returned unwrapped.
func NewRateLimited(p Provider, rpm int) Provider {
	if rpm <= 0 {
		return p
	}
	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

func (r *RateLimited) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if r.limiter.Tokens() < 1 {
		slog.Debug("model call rate limited, waiting", "provider", r.Name())
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &ModelCallError{Provider: r.Name(), Err: err}
	}
	return r.Provider.Chat(ctx, req)
}

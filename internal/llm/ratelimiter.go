package llm

import (
	"context"
	"math"
	"sync"
	"time"
)

// RateLimitedProvider wraps a Provider with a token bucket so at most
// rpm extractions start per minute. A burst of rpm is allowed after idle.
type RateLimitedProvider struct {
	provider Provider
	rpm      float64
	now      func() time.Time

	mu       sync.Mutex
	tokens   float64
	lastFill time.Time
}

// NewRateLimitedProvider wraps provider with a limiter allowing at most
// rpm requests per minute. A non-positive rpm disables limiting.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	if rpm <= 0 {
		return provider
	}
	return &RateLimitedProvider{
		provider: provider,
		rpm:      float64(rpm),
		now:      time.Now,
		tokens:   float64(rpm),
		lastFill: time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// reserve takes a token if one is available, otherwise reports how long
// until the next one accrues.
func (r *RateLimitedProvider) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.tokens = math.Min(r.rpm, r.tokens+now.Sub(r.lastFill).Minutes()*r.rpm)
	r.lastFill = now

	if r.tokens >= 1 {
		r.tokens--
		return 0
	}
	d := time.Duration((1 - r.tokens) / r.rpm * float64(time.Minute))
	return max(d, time.Millisecond)
}

func (r *RateLimitedProvider) wait(ctx context.Context) error {
	for {
		delay := r.reserve()
		if delay == 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

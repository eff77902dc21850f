package collector

import (
	"context"

	"golang.org/x/time/rate"

	"PriceLakehouse/internal/frame"
	"PriceLakehouse/internal/model"
)

// RateLimited wraps a provider and spaces out calls with a token bucket.
// A canceled context returns early without calling the provider.
type RateLimited struct {
	P       Provider
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute requests with the given burst. A
// non-positive perMinute disables limiting.
func NewRateLimited(p Provider, perMinute, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	return &RateLimited{P: p, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Name() string { return r.P.Name() }

func (r *RateLimited) History(ctx context.Context, symbol string, w model.Window) (*frame.Raw, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.P.History(ctx, symbol, w)
}

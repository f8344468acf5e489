package embeddings

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited spaces out calls to a provider that enforces request quotas.
type RateLimited struct {
	next    Embedder
	limiter *rate.Limiter
}

// NewRateLimited allows rps requests per second with the given burst.
func NewRateLimited(next Embedder, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Embed(ctx, text)
}

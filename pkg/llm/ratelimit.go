package llm

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/xhad/paperchat/internal/types"
)

// WrapRateLimit spaces calls to e at most rps per second.
func WrapRateLimit(e types.Embedder, rps float64) types.Embedder {
	if e == nil || rps <= 0 {
		return e
	}
	return &limitedEmbedder{
		next:    e,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type limitedEmbedder struct {
	next    types.Embedder
	limiter *rate.Limiter
}

func (l *limitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.Embed(ctx, text)
}

func (l *limitedEmbedder) ModelName() string {
	return l.next.ModelName()
}

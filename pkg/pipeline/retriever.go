package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/internal/types"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
)

const DefaultTopK = 2

var ErrNegativeTopK = errors.New("top_k must not be negative")

type RetrieverConfig struct {
	Embedder types.Embedder
	Store    types.IndexStore
	TopK     int
	Logger   *zap.Logger
}

type Retriever struct {
	embedder types.Embedder
	store    types.IndexStore
	topK     int
	logger   *zap.Logger
}

func NewRetriever(config RetrieverConfig) (*Retriever, error) {
	if config.Embedder == nil || config.Store == nil {
		return nil, errs.Configuration(fmt.Errorf("retriever: embedder and store are required"))
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	return &Retriever{
		embedder: config.Embedder,
		store:    config.Store,
		topK:     config.TopK,
		logger:   logging.OrNop(config.Logger),
	}, nil
}

// Retrieve returns the topK stored chunks most similar to query. A zero
// topK means the configured default. If the query cannot be embedded the
// result is empty and the failure is only logged.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.QueryResult, error) {
	if topK < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeTopK, topK)
	}
	if topK == 0 {
		topK = r.topK
	}
	if strings.TrimSpace(query) == "" {
		return []models.QueryResult{}, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("failed to embed query", zap.Error(err))
		return []models.QueryResult{}, nil
	}

	results, err := r.store.SimilaritySearch(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	r.logger.Info("query executed", zap.Int("results", len(results)), zap.Int("top_k", topK))
	return results, nil
}

func (r *Retriever) DefaultTopK() int {
	return r.topK
}

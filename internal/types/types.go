package types

import (
	"context"

	"github.com/xhad/paperchat/internal/models"
)

// Core interfaces
type SourceFeed interface {
	Fetch(ctx context.Context, limit int) ([]models.Document, error)
	Close()
}

type Extractor interface {
	Extract(ctx context.Context, content []byte) (string, error)
}

type Chunker interface {
	Split(text string) []string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

type IndexStore interface {
	Insert(ctx context.Context, rec models.EmbeddingRecord) (int64, error)
	SimilaritySearch(ctx context.Context, query []float32, topK int) ([]models.QueryResult, error)
	Count(ctx context.Context) (int64, error)
	Close()
}

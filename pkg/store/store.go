// Package store persists embedding records and answers cosine-similarity
// queries over them. Two backends share the same contract: PostgreSQL with
// pgvector, and an embedded SQLite file searched by brute force.
package store

import (
	"errors"
	"fmt"

	"github.com/xhad/paperchat/pkg/errs"
)

const DefaultTableName = "embeddings"

var (
	ErrInvalidTopK       = errors.New("top_k must be a positive integer")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

func checkDim(v []float32, dim int) error {
	if len(v) == 0 {
		return errs.Store(fmt.Errorf("%w: empty vector", ErrDimensionMismatch))
	}
	if dim > 0 && len(v) != dim {
		return errs.Store(fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim))
	}
	return nil
}

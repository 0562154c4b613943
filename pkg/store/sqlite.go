package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
	"github.com/xhad/paperchat/pkg/processor"
	"github.com/xhad/paperchat/pkg/vector"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type SQLiteConfig struct {
	Path      string
	TableName string
	// VectorDim fixes the embedding length. Zero learns it from the first
	// stored vector.
	VectorDim int
	Logger    *zap.Logger
}

// SQLiteStore is an embedded index store. Vectors are kept as pgvector text
// literals and searched exhaustively, which is exact and fine for the corpus
// sizes a single-file store is meant for.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	table  string
	dim    int
	logger *zap.Logger
}

func NewSQLite(ctx context.Context, config SQLiteConfig) (*SQLiteStore, error) {
	if config.Path == "" {
		return nil, errs.Configuration(fmt.Errorf("sqlite path is required"))
	}
	if config.TableName == "" {
		config.TableName = DefaultTableName
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, errs.Configuration(fmt.Errorf("invalid table name %q", config.TableName))
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, errs.Store(fmt.Errorf("failed to open sqlite: %w", err))
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:     db,
		table:  config.TableName,
		dim:    config.VectorDim,
		logger: logging.OrNop(config.Logger),
	}
	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vector TEXT NOT NULL,
			context TEXT NOT NULL,
			description TEXT NOT NULL,
			source TEXT NOT NULL
		)`, s.table)
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return errs.Store(fmt.Errorf("failed to create table: %w", err))
	}

	if s.dim > 0 {
		return nil
	}
	var v pgvector.Vector
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT vector FROM %s ORDER BY id LIMIT 1", s.table)).Scan(&v)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return errs.Store(fmt.Errorf("failed to read vector dimension: %w", err))
	}
	s.dim = len(v.Slice())
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec models.EmbeddingRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDim(rec.Vector, s.dim); err != nil {
		return 0, err
	}

	data := map[string]interface{}{
		"vector":      pgvector.NewVector(vector.Normalize(rec.Vector)),
		"context":     processor.SanitizeText(rec.Context),
		"description": processor.SanitizeText(rec.Description),
		"source":      processor.SanitizeText(rec.Source),
	}
	sqlStr, args, err := builder.BuildInsert(s.table, []map[string]interface{}{data})
	if err != nil {
		return 0, errs.Store(err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, errs.Store(fmt.Errorf("failed to insert embedding: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Store(err)
	}
	if s.dim == 0 {
		s.dim = len(rec.Vector)
	}

	s.logger.Info("inserted embedding", zap.Int64("id", id), zap.String("description", rec.Description))
	return id, nil
}

func (s *SQLiteStore) SimilaritySearch(ctx context.Context, query []float32, topK int) ([]models.QueryResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopK, topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := checkDim(query, s.dim); err != nil {
		return nil, err
	}
	q := vector.Normalize(query)

	where := map[string]interface{}{"_orderby": "id asc"}
	sqlStr, args, err := builder.BuildSelect(s.table, where, []string{"id", "vector", "context", "description", "source"})
	if err != nil {
		return nil, errs.Store(err)
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errs.Store(fmt.Errorf("failed to query embeddings: %w", err))
	}
	defer rows.Close()

	var results []models.QueryResult
	for rows.Next() {
		var (
			r models.QueryResult
			v pgvector.Vector
		)
		if err := rows.Scan(&r.ID, &v, &r.Context, &r.Description, &r.Source); err != nil {
			return nil, errs.Store(fmt.Errorf("failed to scan row: %w", err))
		}
		stored := v.Slice()
		if len(stored) != len(q) {
			return nil, errs.Store(fmt.Errorf("%w: row %d has %d dims", ErrDimensionMismatch, r.ID, len(stored)))
		}
		r.Score = vector.Dot(stored, q)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store(err)
	}

	// Stable: equal scores keep insertion (id) order.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, errs.Store(fmt.Errorf("failed to count embeddings: %w", err))
	}
	return n, nil
}

func (s *SQLiteStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

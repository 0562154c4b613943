package store

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
	"github.com/xhad/paperchat/pkg/processor"
	"github.com/xhad/paperchat/pkg/vector"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	IndexLists  int
	CreateIndex bool
	Logger      *zap.Logger
}

// VectorStore keeps embeddings in PostgreSQL using the pgvector extension.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
	table  string
	logger *zap.Logger
}

func applyDefaults(config *VectorStoreConfig) {
	if config.TableName == "" {
		config.TableName = DefaultTableName
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // text-embedding-ada-002
	}
	if config.IndexLists == 0 {
		config.IndexLists = 100
	}
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	applyDefaults(&config)
	if config.ConnString == "" {
		return nil, errs.Configuration(fmt.Errorf("database connection string is required"))
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, errs.Store(fmt.Errorf("failed to connect to database: %w", err))
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
		table:  pgx.Identifier{config.TableName}.Sanitize(),
		logger: logging.OrNop(config.Logger),
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	vs.logger.Info("connected to vector store", zap.String("table", config.TableName), zap.Int("dim", config.VectorDim))
	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return errs.Store(fmt.Errorf("failed to create vector extension: %w", err))
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			vector vector(%d) NOT NULL,
			context TEXT NOT NULL,
			description TEXT NOT NULL,
			source TEXT NOT NULL
		)`, vs.table, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return errs.Store(fmt.Errorf("failed to create table: %w", err))
	}

	if !vs.config.CreateIndex {
		return nil
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING ivfflat (vector vector_cosine_ops)
		WITH (lists = %d)`,
		pgx.Identifier{vs.config.TableName + "_vector_idx"}.Sanitize(), vs.table, vs.config.IndexLists)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return errs.Store(fmt.Errorf("failed to create index: %w", err))
	}

	return nil
}

// Insert normalizes and sanitizes rec and appends it as a new row.
func (vs *VectorStore) Insert(ctx context.Context, rec models.EmbeddingRecord) (int64, error) {
	if err := checkDim(rec.Vector, vs.config.VectorDim); err != nil {
		return 0, err
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (vector, context, description, source)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, vs.table)

	var id int64
	err := vs.pool.QueryRow(ctx, stmt,
		pgvector.NewVector(vector.Normalize(rec.Vector)),
		processor.SanitizeUTF8(processor.SanitizeText(rec.Context)),
		processor.SanitizeUTF8(processor.SanitizeText(rec.Description)),
		processor.SanitizeUTF8(processor.SanitizeText(rec.Source)),
	).Scan(&id)
	if err != nil {
		return 0, errs.Store(fmt.Errorf("failed to insert embedding: %w", err))
	}

	vs.logger.Info("inserted embedding", zap.Int64("id", id), zap.String("description", rec.Description))
	return id, nil
}

// SimilaritySearch returns the topK rows closest to query by cosine distance.
func (vs *VectorStore) SimilaritySearch(ctx context.Context, query []float32, topK int) ([]models.QueryResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopK, topK)
	}
	if err := checkDim(query, vs.config.VectorDim); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT id, description, context, source,
		       1 - (vector <=> $1) AS cosine_similarity
		FROM %s
		ORDER BY vector <=> $1, id
		LIMIT $2`,
		vs.table)

	vs.logger.Debug("executing similarity query", zap.Int("top_k", topK))

	rows, err := vs.pool.Query(ctx, q, pgvector.NewVector(vector.Normalize(query)), topK)
	if err != nil {
		return nil, errs.Store(fmt.Errorf("failed to query embeddings: %w", err))
	}
	defer rows.Close()

	results := make([]models.QueryResult, 0, topK)
	for rows.Next() {
		var r models.QueryResult
		if err := rows.Scan(&r.ID, &r.Description, &r.Context, &r.Source, &r.Score); err != nil {
			return nil, errs.Store(fmt.Errorf("failed to scan row: %w", err))
		}
		// pgvector yields NaN distance for zero vectors.
		if math.IsNaN(r.Score) {
			r.Score = 0
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store(err)
	}

	return results, nil
}

func (vs *VectorStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", vs.table)).Scan(&n); err != nil {
		return 0, errs.Store(fmt.Errorf("failed to count embeddings: %w", err))
	}
	return n, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
)

const DefaultPapersTable = "papers"

type PostgresConfig struct {
	ConnString string
	Table      string
	Logger     *zap.Logger
}

// PostgresFeed reads PDF blobs from a table with id, content and file_name
// columns.
type PostgresFeed struct {
	pool   *pgxpool.Pool
	table  string
	logger *zap.Logger
}

func NewPostgres(ctx context.Context, config PostgresConfig) (*PostgresFeed, error) {
	if config.ConnString == "" {
		return nil, errs.Configuration(fmt.Errorf("source database connection string is required"))
	}
	if config.Table == "" {
		config.Table = DefaultPapersTable
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source database: %w", err)
	}
	return &PostgresFeed{
		pool:   pool,
		table:  pgx.Identifier{config.Table}.Sanitize(),
		logger: logging.OrNop(config.Logger),
	}, nil
}

func (f *PostgresFeed) Fetch(ctx context.Context, limit int) ([]models.Document, error) {
	query := fmt.Sprintf("SELECT id::text, content, file_name FROM %s ORDER BY id", f.table)
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := f.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query papers: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.FileName); err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	f.logger.Info("fetched papers", zap.Int("count", len(docs)))
	return docs, nil
}

func (f *PostgresFeed) Close() {
	f.pool.Close()
}

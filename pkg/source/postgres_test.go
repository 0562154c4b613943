package source

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/paperchat/pkg/errs"
)

func TestPostgresFeed(t *testing.T) {
	url := os.Getenv("PAPERCHAT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PAPERCHAT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	feed, err := NewPostgres(ctx, PostgresConfig{ConnString: url, Table: "test_papers"})
	require.NoError(t, err)
	defer feed.Close()

	_, err = feed.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS test_papers (id SERIAL PRIMARY KEY, content BYTEA, file_name TEXT)`)
	require.NoError(t, err)
	defer feed.pool.Exec(ctx, `DROP TABLE test_papers`)
	_, err = feed.pool.Exec(ctx, `INSERT INTO test_papers (content, file_name) VALUES ('\x2550', 'a.pdf'), ('\x2551', 'b.pdf')`)
	require.NoError(t, err)

	docs, err := feed.Fetch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].FileName)
	assert.NotEmpty(t, docs[0].ID)

	docs, err = feed.Fetch(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestNewPostgres_RequiresConnString(t *testing.T) {
	_, err := NewPostgres(context.Background(), PostgresConfig{})
	assert.True(t, errs.IsConfiguration(err))
}

package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/paperchat/pkg/errs"
)

type fakeClient struct {
	mu     sync.Mutex
	calls  int
	inputs []string
	vec    []float32
	err    error
}

func (c *fakeClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.inputs = append(c.inputs, texts...)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), c.vec...)
	}
	return out, nil
}

func TestEmbed(t *testing.T) {
	client := &fakeClient{vec: []float32{0.1, 0.2, 0.3}}
	emb, err := NewEmbedder(client, EmbedderConfig{Model: "test-model"})
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "test-model", emb.ModelName())
	assert.Equal(t, []string{"hello world"}, client.inputs)
}

func TestEmbed_ErrorIsEmbeddingError(t *testing.T) {
	cause := errors.New("quota exceeded")
	emb, err := NewEmbedder(&fakeClient{err: cause}, EmbedderConfig{})
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Nil(t, vec)
	assert.True(t, errs.IsEmbedding(err))
	assert.ErrorIs(t, err, cause)
}

func TestEmbed_EmptyVectorIsError(t *testing.T) {
	emb, err := NewEmbedder(&fakeClient{vec: []float32{}}, EmbedderConfig{})
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "hello")
	assert.True(t, errs.IsEmbedding(err))
}

func TestNewEmbedder_NilClient(t *testing.T) {
	_, err := NewEmbedder(nil, EmbedderConfig{})
	assert.True(t, errs.IsConfiguration(err))
}

func TestNewEmbedderWithConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config EmbedderConfig
	}{
		{"openai without key", EmbedderConfig{Provider: "openai"}},
		{"gemini without key", EmbedderConfig{Provider: "gemini"}},
		{"unknown provider", EmbedderConfig{Provider: "word2vec"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmbedderWithConfig(tt.config)
			assert.True(t, errs.IsConfiguration(err))
		})
	}
}

func TestDefaultEmbeddingModel(t *testing.T) {
	assert.Equal(t, "text-embedding-ada-002", defaultEmbeddingModel(ProviderOpenAI))
	assert.Equal(t, "nomic-embed-text:latest", defaultEmbeddingModel(ProviderOllama))
	assert.Equal(t, "text-embedding-004", defaultEmbeddingModel(ProviderGemini))
}

func TestWrapLRUCache(t *testing.T) {
	client := &fakeClient{vec: []float32{1, 2}}
	emb, err := NewEmbedder(client, EmbedderConfig{Model: "m"})
	require.NoError(t, err)

	cached := WrapLRUCache(emb, 10, time.Minute)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "same text")
	require.NoError(t, err)
	first[0] = 99 // callers may mutate their copy

	second, err := cached.Embed(ctx, "same text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, second)

	_, err = cached.Embed(ctx, "other text")
	require.NoError(t, err)

	assert.Equal(t, 2, client.calls)
	assert.Equal(t, "m", cached.ModelName())
}

func TestWrapLRUCache_DoesNotCacheErrors(t *testing.T) {
	client := &fakeClient{err: errors.New("down")}
	emb, err := NewEmbedder(client, EmbedderConfig{})
	require.NoError(t, err)

	cached := WrapLRUCache(emb, 10, time.Minute)
	_, err = cached.Embed(context.Background(), "x")
	assert.Error(t, err)
	_, err = cached.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 2, client.calls)
}

func TestWrapDisabled(t *testing.T) {
	emb, err := NewEmbedder(&fakeClient{vec: []float32{1}}, EmbedderConfig{})
	require.NoError(t, err)

	assert.Same(t, emb, WrapLRUCache(emb, 0, time.Minute))
	assert.Same(t, emb, WrapRateLimit(emb, 0))
}

func TestWrapRateLimit_HonoursContext(t *testing.T) {
	client := &fakeClient{vec: []float32{1}}
	emb, err := NewEmbedder(client, EmbedderConfig{})
	require.NoError(t, err)

	limited := WrapRateLimit(emb, 0.001)

	_, err = limited.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Embed(ctx, "second")
	assert.Error(t, err)
	assert.Equal(t, 1, client.calls)
}

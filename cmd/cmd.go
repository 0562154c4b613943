package main

import (
	"context"
	"fmt"

	"github.com/xhad/paperchat/internal/types"
	cfgPkg "github.com/xhad/paperchat/pkg/config"
	"github.com/xhad/paperchat/pkg/extractor"
	"github.com/xhad/paperchat/pkg/llm"
	"github.com/xhad/paperchat/pkg/pipeline"
	"github.com/xhad/paperchat/pkg/processor"
	"github.com/xhad/paperchat/pkg/source"
	"github.com/xhad/paperchat/pkg/store"
	"go.uber.org/zap"
)

func newEmbedder(c *cfgPkg.Config, logger *zap.Logger) (types.Embedder, error) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  c.Embedder.Provider,
		Model:     c.Embedder.Model,
		BaseURL:   c.Embedder.BaseURL,
		APIKey:    c.Embedder.APIKey,
		RateLimit: c.Embedder.RateLimit,
		CacheSize: c.Embedder.CacheSize,
		CacheTTL:  c.Embedder.CacheTTL,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return emb, nil
}

func newStore(ctx context.Context, c *cfgPkg.Config, logger *zap.Logger) (types.IndexStore, error) {
	var (
		st  types.IndexStore
		err error
	)
	switch c.Database.Driver {
	case "sqlite":
		st, err = store.NewSQLite(ctx, store.SQLiteConfig{
			Path:      c.Database.Path,
			TableName: c.Database.TableName,
			VectorDim: c.Database.VectorDim,
			Logger:    logger,
		})
	default:
		st, err = store.NewWithConfig(ctx, store.VectorStoreConfig{
			ConnString:  c.Database.ConnString(),
			TableName:   c.Database.TableName,
			VectorDim:   c.Database.VectorDim,
			IndexLists:  c.Database.IndexLists,
			CreateIndex: c.Database.CreateIndex,
			Logger:      logger,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	return st, nil
}

func newSource(ctx context.Context, c *cfgPkg.Config, logger *zap.Logger, onPage func(string)) (types.SourceFeed, error) {
	var (
		feed types.SourceFeed
		err  error
	)
	switch c.Source.Kind {
	case source.KindDir:
		feed, err = source.NewDir(source.DirConfig{
			Root:    c.Source.Dir,
			Pattern: c.Source.Pattern,
			Logger:  logger,
		})
	case source.KindWeb:
		feed, err = source.NewWeb(source.WebConfig{
			BaseURL:        c.Source.Web.BaseURL,
			MaxDepth:       c.Source.Web.MaxDepth,
			RateLimit:      c.Source.Web.RateLimit,
			IgnorePatterns: c.Source.Web.IgnorePatterns,
			OnProgress:     onPage,
			Logger:         logger,
		})
	case source.KindS3:
		feed, err = source.NewS3(ctx, source.S3Config{
			Bucket:    c.Source.S3.Bucket,
			Prefix:    c.Source.S3.Prefix,
			Region:    c.Source.S3.Region,
			Endpoint:  c.Source.S3.Endpoint,
			AccessKey: c.Source.S3.AccessKey,
			SecretKey: c.Source.S3.SecretKey,
			Logger:    logger,
		})
	default:
		feed, err = source.NewPostgres(ctx, source.PostgresConfig{
			ConnString: c.Source.Database.ConnString(),
			Table:      c.Source.Table,
			Logger:     logger,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s source: %w", c.Source.Kind, err)
	}
	return feed, nil
}

func newChatEngine(c *cfgPkg.Config, logger *zap.Logger) (*llm.ChatEngine, error) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}
	return engine, nil
}

func newOrchestrator(feed types.SourceFeed, emb types.Embedder, st types.IndexStore, c *cfgPkg.Config, logger *zap.Logger) (*pipeline.Orchestrator, error) {
	return pipeline.NewWithConfig(pipeline.Config{
		Source: feed,
		Extractor: extractor.NewWithConfig(extractor.ExtractorConfig{
			ScratchDir: c.Processor.ScratchDir,
			Logger:     logger,
		}),
		Chunker:  processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: c.Processor.ChunkSize}),
		Embedder: emb,
		Store:    st,
		Logger:   logger,
	})
}

func newRetriever(emb types.Embedder, st types.IndexStore, c *cfgPkg.Config, logger *zap.Logger) (*pipeline.Retriever, error) {
	return pipeline.NewRetriever(pipeline.RetrieverConfig{
		Embedder: emb,
		Store:    st,
		TopK:     c.Retrieval.TopK,
		Logger:   logger,
	})
}

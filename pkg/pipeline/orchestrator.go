// Package pipeline turns source PDFs into stored embeddings and answers
// similarity queries against them.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/internal/types"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
)

type Config struct {
	Source    types.SourceFeed
	Extractor types.Extractor
	Chunker   types.Chunker
	Embedder  types.Embedder
	Store     types.IndexStore
	Logger    *zap.Logger
	// OnProgress is called after every document.
	OnProgress func(Outcome)
}

type Orchestrator struct {
	config Config
	logger *zap.Logger
}

func NewWithConfig(config Config) (*Orchestrator, error) {
	switch {
	case config.Source == nil:
		return nil, errs.Configuration(fmt.Errorf("pipeline: source is required"))
	case config.Extractor == nil:
		return nil, errs.Configuration(fmt.Errorf("pipeline: extractor is required"))
	case config.Chunker == nil:
		return nil, errs.Configuration(fmt.Errorf("pipeline: chunker is required"))
	case config.Embedder == nil:
		return nil, errs.Configuration(fmt.Errorf("pipeline: embedder is required"))
	case config.Store == nil:
		return nil, errs.Configuration(fmt.Errorf("pipeline: store is required"))
	}
	return &Orchestrator{config: config, logger: logging.OrNop(config.Logger)}, nil
}

// WithProgress returns a copy of o that reports to fn instead of the
// configured OnProgress.
func (o *Orchestrator) WithProgress(fn func(Outcome)) *Orchestrator {
	c := *o
	c.config.OnProgress = fn
	return &c
}

// ProcessFirst indexes the first document the source yields.
func (o *Orchestrator) ProcessFirst(ctx context.Context) Outcome {
	docs, err := o.config.Source.Fetch(ctx, 1)
	if err != nil {
		o.logger.Error("failed to fetch documents", zap.Error(err))
		return Outcome{State: StateNoData, Err: err}
	}
	if len(docs) == 0 {
		o.logger.Info("no documents found")
		return Outcome{State: StateNoData}
	}

	out := o.processDocument(ctx, docs[0])
	o.progress(out)
	return out
}

// ProcessAll indexes every document the source yields, in order. A failing
// document is recorded and the run moves on to the next one.
func (o *Orchestrator) ProcessAll(ctx context.Context) *BatchReport {
	report := &BatchReport{RunID: uuid.New(), Started: time.Now()}
	logger := o.logger.With(zap.String("run_id", report.RunID.String()))

	docs, err := o.config.Source.Fetch(ctx, 0)
	if err != nil {
		logger.Error("failed to fetch documents", zap.Error(err))
		report.Err = err
	}

	for _, doc := range docs {
		if ctx.Err() != nil {
			logger.Warn("batch cancelled", zap.Int("processed", len(report.Outcomes)), zap.Int("total", len(docs)))
			break
		}
		out := o.processDocument(ctx, doc)
		report.Outcomes = append(report.Outcomes, out)
		o.progress(out)
	}

	report.Finished = time.Now()
	logger.Info("batch finished",
		zap.Int("documents", len(report.Outcomes)),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("skipped", report.Skipped()),
		zap.Int("failed", report.Failed()),
		zap.Duration("duration", report.Duration()))
	return report
}

func (o *Orchestrator) progress(out Outcome) {
	if o.config.OnProgress != nil {
		o.config.OnProgress(out)
	}
}

func (o *Orchestrator) processDocument(ctx context.Context, doc models.Document) Outcome {
	out := Outcome{DocumentID: doc.ID, FileName: doc.FileName}
	logger := o.logger.With(zap.String("document", doc.ID), zap.String("file", doc.FileName))

	logger.Info("extracting text")
	text, err := o.config.Extractor.Extract(ctx, doc.Content)
	if err != nil {
		logger.Error("extraction failed", zap.Error(err))
		out.State, out.Err = StateFailed, errs.Extraction(err)
		return out
	}
	if strings.TrimSpace(text) == "" {
		logger.Info("no text found")
		out.State = StateSkipped
		return out
	}

	chunks := o.config.Chunker.Split(text)
	out.Chunks = len(chunks)
	if len(chunks) == 0 {
		out.State = StateSkipped
		return out
	}
	logger.Info("split text", zap.Int("chunks", len(chunks)))

	for i, chunk := range chunks {
		vec, err := o.config.Embedder.Embed(ctx, chunk)
		if err != nil {
			logger.Error("embedding failed", zap.Int("chunk", i+1), zap.Error(err))
			out.State, out.Err = StateFailed, errs.Embedding(err)
			return out
		}

		rec := models.EmbeddingRecord{
			Vector:      vec,
			Context:     chunk,
			Description: fmt.Sprintf("Chunk %d of %s", i+1, doc.FileName),
			Source:      doc.FileName,
		}
		if _, err := o.config.Store.Insert(ctx, rec); err != nil {
			logger.Error("insert failed", zap.Int("chunk", i+1), zap.Error(err))
			out.FailedInserts++
			continue
		}
		out.Inserted++
		logger.Debug("stored chunk", zap.Int("chunk", i+1), zap.Int("of", len(chunks)))
	}

	out.State = StateDone
	logger.Info("document indexed", zap.Int("inserted", out.Inserted), zap.Int("failed_inserts", out.FailedInserts))
	return out
}

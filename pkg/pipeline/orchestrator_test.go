package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/processor"
	"github.com/xhad/paperchat/pkg/store"
)

func newOrchestrator(t *testing.T, src *fakeSource, emb *fakeEmbedder, st *memStore) *Orchestrator {
	t.Helper()
	o, err := NewWithConfig(Config{
		Source:    src,
		Extractor: fakeExtractor{},
		Chunker:   processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 1000}),
		Embedder:  emb,
		Store:     st,
	})
	require.NoError(t, err)
	return o
}

func TestProcessFirst(t *testing.T) {
	tests := []struct {
		name     string
		docs     []models.Document
		fetchErr error
		state    State
		message  string
		inserted int
	}{
		{
			name:    "no documents",
			state:   StateNoData,
			message: "No PDF data found.",
		},
		{
			name:     "fetch error",
			fetchErr: errors.New("connection refused"),
			state:    StateNoData,
			message:  "No PDF data found.",
		},
		{
			name:    "whitespace text",
			docs:    []models.Document{{ID: "1", FileName: "blank.pdf", Content: []byte("   ")}},
			state:   StateSkipped,
			message: "No text found in the PDF.",
		},
		{
			name:     "indexed",
			docs:     []models.Document{{ID: "1", FileName: "a.pdf", Content: []byte(words(2500))}, {ID: "2", FileName: "b.pdf", Content: []byte("ignored")}},
			state:    StateDone,
			message:  "PDF processed and embeddings inserted.",
			inserted: 3,
		},
		{
			name:    "extraction error",
			docs:    []models.Document{{ID: "1", FileName: "bad.pdf", Content: []byte("fail")}},
			state:   StateFailed,
			message: "Error processing PDF: extraction error: malformed pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &memStore{}
			o := newOrchestrator(t, &fakeSource{docs: tt.docs, err: tt.fetchErr}, &fakeEmbedder{}, st)

			out := o.ProcessFirst(context.Background())
			assert.Equal(t, tt.state, out.State)
			assert.Equal(t, tt.message, out.Message())
			assert.Equal(t, tt.inserted, out.Inserted)
			assert.Len(t, st.records, tt.inserted)
		})
	}
}

func TestProcessFirst_ChunkRecords(t *testing.T) {
	st := &memStore{}
	o := newOrchestrator(t, &fakeSource{docs: []models.Document{{ID: "7", FileName: "paper.pdf", Content: []byte(words(2500))}}}, &fakeEmbedder{}, st)

	out := o.ProcessFirst(context.Background())
	require.Equal(t, StateDone, out.State)
	assert.Equal(t, 3, out.Chunks)
	assert.Equal(t, "7", out.DocumentID)

	require.Len(t, st.records, 3)
	assert.Equal(t, []string{"Chunk 1 of paper.pdf", "Chunk 2 of paper.pdf", "Chunk 3 of paper.pdf"}, st.descriptions())
	assert.Len(t, strings.Fields(st.records[0].Context), 1000)
	assert.Len(t, strings.Fields(st.records[1].Context), 1000)
	assert.Len(t, strings.Fields(st.records[2].Context), 500)
	assert.Equal(t, "paper.pdf", st.records[2].Source)

	var rebuilt []string
	for _, r := range st.records {
		rebuilt = append(rebuilt, r.Context)
	}
	assert.Equal(t, words(2500), strings.Join(rebuilt, " "))
}

func TestProcessFirst_EmbeddingFailureAbortsDocument(t *testing.T) {
	st := &memStore{}
	emb := &fakeEmbedder{failOn: "w1500"}
	o := newOrchestrator(t, &fakeSource{docs: []models.Document{{ID: "1", FileName: "a.pdf", Content: []byte(words(2500))}}}, emb, st)

	out := o.ProcessFirst(context.Background())
	assert.Equal(t, StateFailed, out.State)
	assert.True(t, errs.IsEmbedding(out.Err))
	assert.Equal(t, 1, out.Inserted)
	assert.Equal(t, 2, emb.calls, "no chunks embedded after the failure")
	assert.Equal(t, []string{"Chunk 1 of a.pdf"}, st.descriptions(), "earlier inserts are kept")
	assert.True(t, strings.HasPrefix(out.Message(), "Error processing PDF: "))
}

func TestProcessFirst_InsertFailureContinues(t *testing.T) {
	st := &memStore{failOn: "Chunk 2 of a.pdf"}
	o := newOrchestrator(t, &fakeSource{docs: []models.Document{{ID: "1", FileName: "a.pdf", Content: []byte(words(2500))}}}, &fakeEmbedder{}, st)

	out := o.ProcessFirst(context.Background())
	assert.Equal(t, StateDone, out.State)
	assert.Equal(t, 2, out.Inserted)
	assert.Equal(t, 1, out.FailedInserts)
	assert.Equal(t, []string{"Chunk 1 of a.pdf", "Chunk 3 of a.pdf"}, st.descriptions())
}

func TestProcessAll_FailureIsolation(t *testing.T) {
	st := &memStore{}
	docs := []models.Document{
		{ID: "1", FileName: "one.pdf", Content: []byte(words(1200))},
		{ID: "2", FileName: "two.pdf", Content: []byte("fail")},
		{ID: "3", FileName: "three.pdf", Content: []byte(words(10))},
	}
	var progressed []string
	o, err := NewWithConfig(Config{
		Source:     &fakeSource{docs: docs},
		Extractor:  fakeExtractor{},
		Chunker:    processor.NewWithConfig(processor.ProcessorConfig{}),
		Embedder:   &fakeEmbedder{},
		Store:      st,
		OnProgress: func(out Outcome) { progressed = append(progressed, out.DocumentID) },
	})
	require.NoError(t, err)

	report := o.ProcessAll(context.Background())
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, "All PDFs processed and embeddings inserted.", report.Message())
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 0, report.Skipped())
	assert.NotEmpty(t, report.RunID.String())
	assert.False(t, report.Finished.Before(report.Started))

	assert.Equal(t, StateDone, report.Outcomes[0].State)
	assert.Equal(t, StateFailed, report.Outcomes[1].State)
	assert.True(t, errs.IsExtraction(report.Outcomes[1].Err))
	assert.Equal(t, StateDone, report.Outcomes[2].State)

	assert.Equal(t, []string{"Chunk 1 of one.pdf", "Chunk 2 of one.pdf", "Chunk 1 of three.pdf"}, st.descriptions())
	assert.Equal(t, []string{"1", "2", "3"}, progressed)
}

func TestProcessAll_Empty(t *testing.T) {
	o := newOrchestrator(t, &fakeSource{}, &fakeEmbedder{}, &memStore{})

	report := o.ProcessAll(context.Background())
	assert.Empty(t, report.Outcomes)
	assert.Equal(t, "No PDF data found.", report.Message())

	o = newOrchestrator(t, &fakeSource{err: errors.New("boom")}, &fakeEmbedder{}, &memStore{})
	report = o.ProcessAll(context.Background())
	assert.Equal(t, "No PDF data found.", report.Message())
	assert.EqualError(t, report.Err, "boom")
}

func TestProcessAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var seen int
	o, err := NewWithConfig(Config{
		Source: &fakeSource{docs: []models.Document{
			{ID: "1", FileName: "a.pdf", Content: []byte("alpha")},
			{ID: "2", FileName: "b.pdf", Content: []byte("beta")},
		}},
		Extractor: fakeExtractor{},
		Chunker:   processor.NewWithConfig(processor.ProcessorConfig{}),
		Embedder:  &fakeEmbedder{},
		Store:     &memStore{},
		OnProgress: func(Outcome) {
			seen++
			cancel()
		},
	})
	require.NoError(t, err)

	report := o.ProcessAll(ctx)
	assert.Len(t, report.Outcomes, 1)
	assert.Equal(t, 1, seen)
}

func TestProcessAll_SQLiteStore(t *testing.T) {
	st, err := store.NewSQLite(context.Background(), store.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer st.Close()

	o, err := NewWithConfig(Config{
		Source: &fakeSource{docs: []models.Document{
			{ID: "1", FileName: "a.pdf", Content: []byte(words(30))},
			{ID: "2", FileName: "b.pdf", Content: []byte("fail")},
			{ID: "3", FileName: "c.pdf", Content: []byte("nul\x00terminated text")},
		}},
		Extractor: fakeExtractor{},
		Chunker:   processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 10}),
		Embedder:  &fakeEmbedder{},
		Store:     st,
	})
	require.NoError(t, err)

	report := o.ProcessAll(context.Background())
	assert.Equal(t, 2, report.Succeeded())

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	r, err := NewRetriever(RetrieverConfig{Embedder: &fakeEmbedder{}, Store: st})
	require.NoError(t, err)
	results, err := r.Retrieve(context.Background(), "nul\x00terminated text", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Chunk 1 of c.pdf", results[0].Description)
	assert.Equal(t, "nulterminated text", results[0].Context)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestNewWithConfig_Validation(t *testing.T) {
	_, err := NewWithConfig(Config{})
	assert.True(t, errs.IsConfiguration(err))
}

func TestWithProgress(t *testing.T) {
	var original, replaced int
	o, err := NewWithConfig(Config{
		Source:     &fakeSource{docs: []models.Document{{ID: "1", FileName: "a.pdf", Content: []byte("alpha beta")}}},
		Extractor:  fakeExtractor{},
		Chunker:    processor.NewWithConfig(processor.ProcessorConfig{}),
		Embedder:   &fakeEmbedder{},
		Store:      &memStore{},
		OnProgress: func(Outcome) { original++ },
	})
	require.NoError(t, err)

	o.WithProgress(func(Outcome) { replaced++ }).ProcessAll(context.Background())
	assert.Equal(t, 0, original)
	assert.Equal(t, 1, replaced)

	o.ProcessFirst(context.Background())
	assert.Equal(t, 1, original)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/xhad/paperchat/internal/models"
)

type fakeSource struct {
	docs []models.Document
	err  error
}

func (s *fakeSource) Fetch(_ context.Context, limit int) ([]models.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && len(s.docs) > limit {
		return s.docs[:limit], nil
	}
	return s.docs, nil
}

func (s *fakeSource) Close() {}

// fakeExtractor treats the document bytes as its text; "fail" triggers an error.
type fakeExtractor struct{}

func (fakeExtractor) Extract(_ context.Context, content []byte) (string, error) {
	if string(content) == "fail" {
		return "", errors.New("malformed pdf")
	}
	return string(content), nil
}

type fakeEmbedder struct {
	mu     sync.Mutex
	failOn string
	calls  int
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("quota exceeded")
	}
	h := fnv.New32a()
	h.Write([]byte(text))
	sum := h.Sum32()
	return []float32{float32(sum%97) + 1, float32(sum%89) + 1, 1}, nil
}

func (e *fakeEmbedder) ModelName() string { return "fake" }

type memStore struct {
	mu      sync.Mutex
	records []models.EmbeddingRecord
	failOn  string
	err     error
	results []models.QueryResult
}

func (s *memStore) Insert(_ context.Context, rec models.EmbeddingRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && rec.Description == s.failOn {
		return 0, fmt.Errorf("insert %s: connection reset", rec.Description)
	}
	rec.ID = int64(len(s.records) + 1)
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *memStore) SimilaritySearch(_ context.Context, _ []float32, topK int) ([]models.QueryResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > topK {
		return s.results[:topK], nil
	}
	return s.results, nil
}

func (s *memStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *memStore) Close() {}

func (s *memStore) descriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.records {
		out = append(out, r.Description)
	}
	return out
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

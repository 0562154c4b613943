package models

// Document is a raw PDF pulled from a source feed.
type Document struct {
	ID       string
	FileName string
	Content  []byte
}

// EmbeddingRecord is one persisted chunk: its vector plus the text it came from.
type EmbeddingRecord struct {
	ID          int64
	Vector      []float32
	Context     string
	Description string
	Source      string
}

// QueryResult is a similarity search hit. Score is the cosine similarity.
type QueryResult struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Context     string  `json:"context"`
	Source      string  `json:"source"`
	Score       float64 `json:"score"`
}

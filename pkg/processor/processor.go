package processor

import (
	"strings"
)

// DefaultChunkSize is the number of words per chunk.
const DefaultChunkSize = 1000

type ProcessorConfig struct {
	ChunkSize int
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}

	return Processor{
		config: config,
	}
}

func (p Processor) ChunkSize() int {
	return p.config.ChunkSize
}

// Split breaks text into consecutive windows of ChunkSize words. Words are
// rejoined with single spaces; the last window may be shorter. Text without
// any words yields nil.
func (p Processor) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	size := p.config.ChunkSize
	chunks := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}

	return chunks
}

package processor_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/paperchat/pkg/processor"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestNewWithConfigDefaults(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})
	assert.Equal(t, processor.DefaultChunkSize, p.ChunkSize())

	p = processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: -5})
	assert.Equal(t, processor.DefaultChunkSize, p.ChunkSize())
}

func TestSplit_ChunkSizes(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 1000})

	chunks := p.Split(words(2500))

	require.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[0]), 1000)
	assert.Len(t, strings.Fields(chunks[1]), 1000)
	assert.Len(t, strings.Fields(chunks[2]), 500)
}

func TestSplit_Empty(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 10})

	tests := []string{"", "   ", "\n\t  \r\n"}
	for _, text := range tests {
		t.Run(fmt.Sprintf("%q", text), func(t *testing.T) {
			assert.Empty(t, p.Split(text))
		})
	}
}

func TestSplit_PreservesWordSequence(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		chunkSize int
	}{
		{"exact multiple", words(30), 10},
		{"remainder", words(31), 10},
		{"single chunk", words(5), 10},
		{"chunk size one", words(7), 1},
		{"messy whitespace", "alpha\tbeta\n\ngamma   delta \r\n epsilon", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: tt.chunkSize})
			chunks := p.Split(tt.text)

			var rejoined []string
			for i, chunk := range chunks {
				fields := strings.Fields(chunk)
				if i < len(chunks)-1 {
					assert.Len(t, fields, tt.chunkSize)
				} else {
					assert.LessOrEqual(t, len(fields), tt.chunkSize)
					assert.NotEmpty(t, fields)
				}
				assert.Equal(t, strings.Join(fields, " "), chunk, "words must be single-space separated")
				rejoined = append(rejoined, fields...)
			}
			assert.Equal(t, strings.Fields(tt.text), rejoined)
		})
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a\x00b", "ab"},
		{"\x00\x00lead", "lead"},
		{"trail\x00", "trail"},
		{"ünï\x00cödé", "ünïcödé"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := processor.SanitizeText(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "\x00")
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "valid ✓", processor.SanitizeUTF8("valid ✓"))
	assert.Equal(t, "ab", processor.SanitizeUTF8("a\xffb"))
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/xhad/paperchat/pkg/errs"
)

// geminiClient adapts the Gemini embedding API to langchaingo's
// embeddings.EmbedderClient.
type geminiClient struct {
	apiKey string
	model  string
}

func newGeminiClient(apiKey, model string) (*geminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errs.Configuration(fmt.Errorf("gemini embedder requires an api key"))
	}
	return &geminiClient{apiKey: apiKey, model: model}, nil
}

func (g *geminiClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}

	resp, err := client.Models.EmbedContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

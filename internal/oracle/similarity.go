package oracle

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Similarity scores how close a spoken answer is to the expected answer.
// Implementations return a value in [0, 1].
type Similarity interface {
	Score(ctx context.Context, studentAnswer, expectedAnswer string) (float64, error)
}

// EmbeddingSimilarity computes cosine similarity between text embeddings from
// an OpenAI-compatible API.
type EmbeddingSimilarity struct {
	api   *openai.Client
	model openai.EmbeddingModel
	log   zerolog.Logger
}

// NewEmbeddingSimilarity creates an embedding-backed similarity oracle.
// baseURL may be empty to use the default API endpoint.
func NewEmbeddingSimilarity(apiKey, baseURL, model string, log zerolog.Logger) *EmbeddingSimilarity {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &EmbeddingSimilarity{
		api:   openai.NewClientWithConfig(cfg),
		model: openai.EmbeddingModel(model),
		log:   log.With().Str("component", "similarity_oracle").Logger(),
	}
}

// Score embeds both texts in one request and returns their cosine similarity
// clamped to [0, 1].
func (s *EmbeddingSimilarity) Score(ctx context.Context, studentAnswer, expectedAnswer string) (float64, error) {
	resp, err := s.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{studentAnswer, expectedAnswer},
		Model: s.model,
	})
	if err != nil {
		return 0, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) < 2 {
		return 0, fmt.Errorf("embedding response has %d vectors, want 2", len(resp.Data))
	}

	sim := Cosine(resp.Data[0].Embedding, resp.Data[1].Embedding)
	s.log.Debug().Float64("similarity", sim).Msg("Answer scored")
	return sim, nil
}

// UnavailableSimilarity is the stand-in used when no embedding provider is
// configured. Every score attempt fails, which the caller degrades to zero.
type UnavailableSimilarity struct{}

// Score always reports the provider as unconfigured.
func (UnavailableSimilarity) Score(context.Context, string, string) (float64, error) {
	return 0, fmt.Errorf("similarity provider not configured")
}

// Cosine returns the cosine similarity of two vectors, clamped to [0, 1].
// Mismatched or zero-magnitude vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Min(1, math.Max(0, sim))
}

// Package embedding turns text into embedding vectors with a bounded
// in-memory cache in front of the LLM client.
package embedding

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"golang.org/x/sync/semaphore"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
)

// DefaultMaxConcurrency bounds concurrent embedding calls to the LLM backend.
const DefaultMaxConcurrency = 4

// Service generates embeddings, consulting the cache before calling the
// backend. Concurrent backend calls are bounded by a semaphore.
type Service struct {
	llmClient gollem.LLMClient
	cache     *Cache
	sem       *semaphore.Weighted
	threshold float64
}

type ServiceOption func(*Service)

// WithCache replaces the default cache, mainly for tuning capacity.
func WithCache(cache *Cache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithMaxConcurrency bounds in-flight backend calls.
func WithMaxConcurrency(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithSimilarityThreshold sets the near-duplicate cache hit threshold.
func WithSimilarityThreshold(threshold float64) ServiceOption {
	return func(s *Service) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

func NewService(llmClient gollem.LLMClient, options ...ServiceOption) *Service {
	s := &Service{
		llmClient: llmClient,
		cache:     NewCache(DefaultCacheCapacity),
		sem:       semaphore.NewWeighted(DefaultMaxConcurrency),
		threshold: DefaultSimilarityThreshold,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Embed returns the embedding vector for text. Cache hits (exact first, then
// near-duplicate) skip the backend entirely.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, goerr.New("cannot embed empty text")
	}

	if emb := s.cache.Get(text); emb != nil {
		return emb, nil
	}
	if emb, _ := s.cache.GetSimilar(text, s.threshold); emb != nil {
		return emb, nil
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, goerr.Wrap(err, "embedding canceled while waiting for slot")
	}
	defer s.sem.Release(1)

	embeddings, err := s.llmClient.GenerateEmbedding(ctx, model.EmbeddingDimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("no embedding returned")
	}

	result := make([]float32, len(embeddings[0]))
	for i, v := range embeddings[0] {
		result[i] = float32(v)
	}

	s.cache.Put(text, result)
	return result, nil
}

// CacheStats exposes cache counters for the stats endpoint.
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

package embedding_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"

	"github.com/medscribe-lab/medscribe/pkg/service/embedding"
)

type mockLLMSession struct{}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return &gollem.Response{Texts: []string{"{}"}}, nil
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) { return nil, nil }

func (s *mockLLMSession) AppendHistory(*gollem.History) error { return nil }

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient counts embedding calls so cache behavior is observable.
type mockLLMClient struct {
	calls     atomic.Int64
	embedding []float64
	err       error
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return &mockLLMSession{}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	emb := c.embedding
	if emb == nil {
		emb = []float64{0.1, 0.2, 0.3}
	}
	return [][]float64{emb}, nil
}

func TestCache(t *testing.T) {
	t.Run("Get returns nil on miss and hit after Put", func(t *testing.T) {
		cache := embedding.NewCache(10)

		gt.Value(t, cache.Get("patient note")).Nil()

		cache.Put("patient note", []float32{1, 2, 3})
		got := cache.Get("patient note")
		gt.Array(t, got).Length(3)
		gt.Value(t, got[0]).Equal(float32(1))
	})

	t.Run("Get is case and whitespace insensitive", func(t *testing.T) {
		cache := embedding.NewCache(10)
		cache.Put("Patient Reports Headache", []float32{1})

		gt.Value(t, cache.Get("  patient reports headache ")).NotNil()
	})

	t.Run("GetSimilar matches near-duplicate text", func(t *testing.T) {
		cache := embedding.NewCache(10)
		base := "patient reports mild headache and nausea since last tuesday morning visit"
		cache.Put(base, []float32{1, 2})

		// One token differs out of eleven.
		similar := "patient reports mild headache and nausea since last wednesday morning visit"
		emb, ratio := cache.GetSimilar(similar, 0.8)
		gt.Value(t, emb).NotNil()
		gt.Number(t, ratio).Greater(0.79)

		emb, _ = cache.GetSimilar("entirely unrelated sentence about weather", 0.8)
		gt.Value(t, emb).Nil()
	})

	t.Run("GetSimilar exact match reports ratio 1", func(t *testing.T) {
		cache := embedding.NewCache(10)
		cache.Put("same text", []float32{1})

		_, ratio := cache.GetSimilar("same text", 0.95)
		gt.Number(t, ratio).Equal(1.0)
	})

	t.Run("Put is idempotent", func(t *testing.T) {
		cache := embedding.NewCache(10)
		cache.Put("once", []float32{1})
		cache.Put("once", []float32{9, 9, 9})

		got := cache.Get("once")
		gt.Array(t, got).Length(1)
		gt.Value(t, got[0]).Equal(float32(1))
	})

	t.Run("eviction trims to 80% keeping recently accessed", func(t *testing.T) {
		cache := embedding.NewCache(10)
		for i := 0; i < 10; i++ {
			cache.Put(fmt.Sprintf("entry %d", i), []float32{float32(i)})
		}

		// Touch entry 0 so it is the most recently accessed.
		gt.Value(t, cache.Get("entry 0")).NotNil()

		// The 11th insert overflows capacity and triggers eviction.
		cache.Put("entry 10", []float32{10})

		stats := cache.Stats()
		gt.Number(t, stats.Entries).Equal(8)
		gt.Value(t, cache.Get("entry 0")).NotNil()
		gt.Value(t, cache.Get("entry 10")).NotNil()
		gt.Value(t, cache.Get("entry 1")).Nil()
	})

	t.Run("Stats tracks hit rate", func(t *testing.T) {
		cache := embedding.NewCache(10)
		cache.Put("known", []float32{1})

		cache.Get("known")
		cache.Get("unknown")

		stats := cache.Stats()
		gt.Number(t, stats.Hits).Equal(int64(1))
		gt.Number(t, stats.Misses).Equal(int64(1))
		gt.Number(t, stats.HitRate).Equal(0.5)
	})
}

func TestService(t *testing.T) {
	t.Run("Embed calls backend once per distinct text", func(t *testing.T) {
		llm := &mockLLMClient{}
		svc := embedding.NewService(llm)
		ctx := context.Background()

		first, err := svc.Embed(ctx, "patient reports headache")
		gt.NoError(t, err).Required()
		gt.Array(t, first).Length(3)
		gt.Value(t, first[0]).Equal(float32(0.1))

		second, err := svc.Embed(ctx, "patient reports headache")
		gt.NoError(t, err).Required()
		gt.Value(t, second[0]).Equal(first[0])

		gt.Number(t, llm.calls.Load()).Equal(int64(1))
	})

	t.Run("Embed rejects empty text", func(t *testing.T) {
		svc := embedding.NewService(&mockLLMClient{})
		_, err := svc.Embed(context.Background(), "")
		gt.Value(t, err).NotNil()
	})

	t.Run("Embed propagates backend errors", func(t *testing.T) {
		llm := &mockLLMClient{err: fmt.Errorf("backend down")}
		svc := embedding.NewService(llm)

		_, err := svc.Embed(context.Background(), "some text")
		gt.Value(t, err).NotNil()
	})
}

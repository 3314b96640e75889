package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medscribe-lab/medscribe/pkg/service/embedding"
	"github.com/medscribe-lab/medscribe/pkg/usecase"
)

type Server struct {
	router     *chi.Mux
	uc         *usecase.UseCases
	cacheStats func() embedding.CacheStats
}

type Options func(*Server)

// WithCacheStats exposes embedding cache counters on the stats endpoint.
func WithCacheStats(fn func() embedding.CacheStats) Options {
	return func(s *Server) {
		s.cacheStats = fn
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/extract", extractHandler(s.uc))
		r.Post("/extractions/{transcriptID}/approve", approveHandler(s.uc))
		r.Get("/stats", statsHandler(s.uc, s.cacheStats))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/medscribe-lab/medscribe/pkg/cli/config"
	httpctrl "github.com/medscribe-lab/medscribe/pkg/controller/http"
	"github.com/medscribe-lab/medscribe/pkg/service/contextsel"
	"github.com/medscribe-lab/medscribe/pkg/service/embedding"
	"github.com/medscribe-lab/medscribe/pkg/service/evaluate"
	"github.com/medscribe-lab/medscribe/pkg/service/extract"
	"github.com/medscribe-lab/medscribe/pkg/service/rerank"
	"github.com/medscribe-lab/medscribe/pkg/service/search"
	"github.com/medscribe-lab/medscribe/pkg/usecase"
	"github.com/medscribe-lab/medscribe/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var pipelineCfg config.Pipeline

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MEDSCRIBE_ADDR"),
			Destination: &addr,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := pipelineCfg.Configure(); err != nil {
				return goerr.Wrap(err, "failed to load pipeline configuration")
			}
			logging.Default().Info("Pipeline configuration loaded", "pipeline", pipelineCfg)

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure Gemini client")
			}
			if llmClient == nil {
				return goerr.New("gemini-project is required for serve")
			}

			embedOpts := []embedding.ServiceOption{
				embedding.WithMaxConcurrency(pipelineCfg.MaxConcurrency()),
				embedding.WithSimilarityThreshold(pipelineCfg.SimilarityThreshold()),
			}
			if capacity := pipelineCfg.CacheCapacity(); capacity > 0 {
				embedOpts = append(embedOpts, embedding.WithCache(embedding.NewCache(capacity)))
			}
			embedSvc := embedding.NewService(llmClient, embedOpts...)

			store := search.NewStore(repo.Vector(), embedSvc)

			extractor, err := extract.New(llmClient, extract.WithRefinement(pipelineCfg.Refinement()))
			if err != nil {
				return goerr.Wrap(err, "failed to initialize extraction service")
			}

			evaluator, err := evaluate.New(llmClient, evaluate.WithAggregation(pipelineCfg.Aggregation()))
			if err != nil {
				return goerr.Wrap(err, "failed to initialize evaluation service")
			}

			ucOpts := []usecase.Option{
				usecase.WithConfidenceRules(pipelineCfg.Rules()),
				usecase.WithTuning(pipelineCfg.Tuning()),
				usecase.WithSelector(contextsel.NewSelector(
					contextsel.WithMaxTokens(pipelineCfg.MaxTokens()),
					contextsel.WithMinRelevance(pipelineCfg.MinRelevance()),
				)),
			}
			if pipelineCfg.RerankEnabled() {
				ucOpts = append(ucOpts, usecase.WithScorer(rerank.NewLLMScorer(llmClient)))
			} else {
				logging.Default().Info("Context reranking disabled")
			}

			uc := usecase.New(repo, store, extractor, evaluator, ucOpts...)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithCacheStats(embedSvc.CacheStats)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

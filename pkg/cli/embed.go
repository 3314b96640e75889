package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/medscribe-lab/medscribe/pkg/cli/config"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
	"github.com/medscribe-lab/medscribe/pkg/service/embedding"
	"github.com/medscribe-lab/medscribe/pkg/service/search"
	"github.com/medscribe-lab/medscribe/pkg/usecase"
	"github.com/medscribe-lab/medscribe/pkg/utils/logging"
)

// embedItem is one entry of the backfill dump file.
type embedItem struct {
	RecordID string `json:"record_id"`
	Kind     string `json:"kind"`
	Text     string `json:"text"`
}

func cmdEmbed() *cli.Command {
	var input string
	var owner string
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var pipelineCfg config.Pipeline

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Usage:       "Path to a JSON dump of records to index",
			Required:    true,
			Sources:     cli.EnvVars("MEDSCRIBE_EMBED_INPUT"),
			Destination: &input,
		},
		&cli.StringFlag{
			Name:        "owner",
			Usage:       "Owner partition to index into (use reference-pool for shared example cases)",
			Required:    true,
			Sources:     cli.EnvVars("MEDSCRIBE_EMBED_OWNER"),
			Destination: &owner,
		},
	}

	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)

	return &cli.Command{
		Name:  "embed",
		Usage: "Backfill the vector index from a JSON dump of transcripts and extractions",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ownerID := types.OwnerID(owner)
			if err := ownerID.Validate(); err != nil {
				return err
			}

			if err := pipelineCfg.Configure(); err != nil {
				return goerr.Wrap(err, "failed to load pipeline configuration")
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return goerr.Wrap(err, "failed to read input file", goerr.V("path", input))
			}
			var items []embedItem
			if err := json.Unmarshal(data, &items); err != nil {
				return goerr.Wrap(err, "failed to parse input file", goerr.V("path", input))
			}

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
				return goerr.New("gemini-project is required for embed")
			}

			embedSvc := embedding.NewService(llmClient,
				embedding.WithMaxConcurrency(pipelineCfg.MaxConcurrency()),
				embedding.WithSimilarityThreshold(pipelineCfg.SimilarityThreshold()),
			)
			store := search.NewStore(repo.Vector(), embedSvc)

			// Extraction and evaluation stages are not exercised by backfill.
			uc := usecase.New(repo, store, nil, nil)

			var indexed, failed int
			for i, item := range items {
				kind := types.RecordKind(item.Kind)
				if err := kind.Validate(); err != nil {
					logging.Default().Warn("skipping record with invalid kind",
						"index", i, "kind", item.Kind)
					failed++
					continue
				}

				recordID := types.RecordID(item.RecordID)
				if recordID == "" {
					recordID = model.NewRecordID()
				}

				if err := uc.EmbedRecord(ctx, ownerID, recordID, kind, item.Text); err != nil {
					logging.Default().Warn("failed to index record",
						"index", i, "record_id", recordID, "error", err)
					failed++
					continue
				}
				indexed++
			}

			stats := embedSvc.CacheStats()
			color.New(color.FgGreen, color.Bold).Printf("✓ indexed %d records into %s\n", indexed, owner)
			if failed > 0 {
				color.New(color.FgRed).Printf("✗ %d records failed\n", failed)
			}
			color.New(color.Faint).Printf("embedding cache: %d hits, %d misses\n", stats.Hits, stats.Misses)

			if failed > 0 {
				return goerr.New("some records failed to index",
					goerr.V("indexed", indexed), goerr.V("failed", failed))
			}
			return nil
		},
	}
}

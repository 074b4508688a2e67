package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	appartwork "github.com/inkwell-studio/artwork-pipeline/internal/application/artwork"
	"github.com/inkwell-studio/artwork-pipeline/internal/config"
	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
	mysqlp "github.com/inkwell-studio/artwork-pipeline/internal/infra/db/mysql"
	postgresp "github.com/inkwell-studio/artwork-pipeline/internal/infra/db/postgres"
	visionai "github.com/inkwell-studio/artwork-pipeline/internal/infra/vision/openai"
)

// artworkctl: perintah ops satu tembakan terhadap pipeline, pakai config
// yang sama dengan server.

type env struct {
	cfg     *config.Config
	batches *mysqlp.BatchRepository
	items   *mysqlp.ItemRepository
	legacy  domain.ItemRepository
	close   func()
}

func connect(ctx context.Context, configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}
	e := &env{
		cfg:     cfg,
		batches: mysqlp.NewBatchRepository(db),
		items:   mysqlp.NewItemRepository(db),
		close:   func() { db.Close() },
	}
	if cfg.Legacy.Enabled {
		pg, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		e.legacy = postgresp.NewItemRepository(pg)
		e.close = func() { pg.Close(); db.Close() }
	}
	return e, nil
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "artworkctl",
		Short:         "Operational commands for the artwork pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config.yaml")

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute batch item counts and fix drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx, configPath)
			if err != nil {
				return err
			}
			defer e.close()

			rec := &appartwork.Reconciler{Batches: e.batches, Primary: e.items, Legacy: e.legacy}
			corrected, err := rec.Reconcile(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("corrected %d batch(es)\n", corrected)
			return nil
		},
	}

	var batchID string
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run vision analysis over a batch's unanalyzed images",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchID == "" {
				return fmt.Errorf("--batch is required")
			}
			ctx := cmd.Context()
			e, err := connect(ctx, configPath)
			if err != nil {
				return err
			}
			defer e.close()

			items, err := e.items.ListByBatch(ctx, domain.BatchID(batchID))
			if err != nil {
				return err
			}
			pending := make([]*domain.Item, 0, len(items))
			for _, it := range items {
				if it.IsImage() && !it.Analyzed() {
					pending = append(pending, it)
				}
			}
			if len(pending) == 0 {
				fmt.Println("nothing to analyze")
				return nil
			}

			svc := &appartwork.AnalysisService{
				Vision:    visionai.NewClient(e.cfg.OpenAI.APIKey, e.cfg.OpenAI.Model, e.cfg.OpenAI.BaseURL, e.cfg.Pipeline.CallTimeout),
				Persister: &appartwork.Persister{Primary: e.items, Fallback: e.legacy},
				GroupSize: e.cfg.Pipeline.AnalyzeConcurrency,
				OnGroupDone: func(done, total int) {
					fmt.Printf("analyzed %d/%d\n", done, total)
				},
			}
			ok, total := svc.AnalyzeAll(ctx, pending)
			fmt.Printf("done: %d/%d succeeded\n", ok, total)
			return nil
		},
	}
	analyzeCmd.Flags().StringVar(&batchID, "batch", "", "batch id")

	searchCmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Free-text search across batches and analysis results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx, configPath)
			if err != nil {
				return err
			}
			defer e.close()

			svc := appartwork.NewSearchService(e.batches, e.items, e.legacy, e.cfg.Pipeline.SearchCacheTTL)
			batches, err := svc.Query(ctx, args[0])
			if err != nil {
				return err
			}
			for _, b := range batches {
				fmt.Printf("%s\t%s\t%s\t(%d items)\n", b.ID, b.Label, b.CustomerName, b.TotalItems)
			}
			return nil
		},
	}

	root.AddCommand(reconcileCmd, analyzeCmd, searchCmd)

	if err := root.Execute(); err != nil {
		log.SetFlags(0)
		log.Println(err)
		os.Exit(1)
	}
}

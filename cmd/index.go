package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/indexer"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed freelancers and jobs that have no stored embedding yet",
	Run: func(cmd *cobra.Command, _ []string) {
		runIndex(cmd)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().BoolP("watch", "w", false, "keep running and index on the indexer.schedule until interrupted")
	indexCmd.Flags().Int("batch", 0, "records per kind and pass (default indexer.batch)")
}

func runIndex(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	batch := config.Indexer.Batch
	if cmd.Flags().Changed("batch") {
		batch, _ = cmd.Flags().GetInt("batch")
	}

	deps, err := buildComponents(ctx, config, log)
	if err != nil {
		log.Fatal("building components", zap.Error(err))
	}
	defer deps.close()

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		scheduler := indexer.NewScheduler(deps.indexer, config.Indexer.Schedule, batch, log)
		if err := scheduler.Start(ctx); err != nil {
			log.Fatal("starting the scheduler", zap.Error(err))
		}
		<-ctx.Done()
		scheduler.Stop()
		return
	}

	report, err := deps.indexer.IndexPending(ctx, batch)
	if err != nil {
		log.Fatal("indexing failed", zap.Error(err))
	}

	log.Info("index pass finished",
		zap.Int("freelancers_indexed", report.Freelancers.Indexed),
		zap.Int("freelancers_failed", report.Freelancers.Failed),
		zap.Int("jobs_indexed", report.Jobs.Indexed),
		zap.Int("jobs_failed", report.Jobs.Failed),
	)
}

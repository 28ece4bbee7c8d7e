package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/api"
	"github.com/spigell/gigmatch/internal/indexer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default server.addr)")
	serveCmd.Flags().Bool("with-indexer", false, "run the index scheduler next to the API")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.indexer", serveCmd.Flags().Lookup("with-indexer"))
}

func runServe() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	log.Info("starting the api", zap.String("version", version))

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	deps, err := buildComponents(ctx, config, log)
	if err != nil {
		log.Fatal("building components", zap.Error(err))
	}
	defer deps.close()

	if config.Server.Indexer {
		scheduler := indexer.NewScheduler(deps.indexer, config.Indexer.Schedule, config.Indexer.Batch, log)
		if err := scheduler.Start(ctx); err != nil {
			log.Fatal("starting the scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	// Only the postgres driver reports health.
	pinger, _ := deps.store.(api.Pinger)

	handler := api.NewHandler(deps.ranker, deps.indexer, pinger, api.Defaults{
		Limit:     config.Matching.DefaultLimit,
		Threshold: config.Matching.Threshold,
	}, log)

	if err := api.Serve(ctx, config.Server.Addr, api.NewRouter(handler, log), log); err != nil {
		log.Error("serving failed", zap.Error(err))
	}
}

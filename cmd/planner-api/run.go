package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/stepfree/access-planner/internal/api_server"
	"github.com/stepfree/access-planner/internal/client"
	"github.com/stepfree/access-planner/internal/config"
	"github.com/stepfree/access-planner/internal/geocontext"
	handlers "github.com/stepfree/access-planner/internal/handlers/v1alpha1"
	"github.com/stepfree/access-planner/internal/orchestrator"
	"github.com/stepfree/access-planner/internal/service"
	"github.com/stepfree/access-planner/internal/store"
	"github.com/stepfree/access-planner/pkg/archive"
)

const shutdownTimeout = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the planner api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, teardown, err := setup()
		if err != nil {
			return err
		}
		defer teardown()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")
		zap.S().Infof("Using config: %s", cfg)

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		store := store.NewStore(db)
		defer store.Close()

		if err := store.InitialMigration(); err != nil {
			zap.S().Fatalw("running initial migration", "error", err)
		}

		deps, err := newDependencies(cfg)
		if err != nil {
			zap.S().Fatalw("building pipeline dependencies", "error", err)
		}

		orch := orchestrator.New(store, deps,
			orchestrator.WithBatchSize(cfg.Pipeline.BatchSize),
			orchestrator.WithBatchDelay(cfg.Pipeline.BatchDelay),
			orchestrator.WithFetchParallelism(cfg.Pipeline.FetchParallelism),
			orchestrator.WithMaxImages(cfg.Pipeline.MaxImages),
		)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		reaper := orchestrator.NewReaper(store, orch.Registry(), cfg.Pipeline.StaleAfter, cfg.Pipeline.ReaperInterval)
		go reaper.Run(ctx)

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			h := handlers.NewServiceHandler(service.NewEvaluationService(store, orch))
			server := apiserver.New(cfg, h, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("Error running server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("Error running metrics server", "error", err)
			}
		}()

		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := orch.Registry().Shutdown(shutdownCtx); err != nil {
			zap.S().Warnw("evaluations still running at shutdown", "running", orch.Registry().Len(), "error", err)
		}

		return nil
	},
}

func newDependencies(cfg *config.Config) (orchestrator.Dependencies, error) {
	llm := client.NewLLMClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.TextModel, cfg.LLM.VisionModel, cfg.LLM.Timeout)
	listing := client.NewListingClient(cfg.Listing.SearchURL, cfg.Listing.SearchAPIKey, cfg.Geo.UserAgent, cfg.Listing.MaxPageSize, cfg.Listing.FetchTimeout)

	checks, err := geocontext.NewRunners(geocontext.Sources{
		Counter:          client.NewOverpassClient(cfg.Geo.OverpassURL, cfg.Geo.UserAgent, cfg.Geo.OverpassRPS, cfg.Geo.Timeout),
		Elevation:        client.NewElevationClient(cfg.Geo.ElevationURL, cfg.Geo.Timeout),
		AirQuality:       client.NewOpenAQClient(cfg.Geo.OpenAQURL, cfg.Geo.OpenAQAPIKey, cfg.Geo.Timeout),
		Radius:           cfg.Geo.RadiusMeters,
		AirQualityRadius: cfg.Geo.AQRadius,
	}, llm)
	if err != nil {
		return orchestrator.Dependencies{}, err
	}

	deps := orchestrator.Dependencies{
		Generator: llm,
		Analyzer:  llm,
		Images:    listing,
		Fetcher:   client.NewImageFetcher(cfg.Geo.UserAgent, cfg.Listing.MaxImageSize, cfg.Listing.ImageTimeout),
		Geocoder:  client.NewNominatimClient(cfg.Geo.NominatimURL, cfg.Geo.UserAgent, cfg.Geo.Timeout),
		Checks:    checks,
	}

	if cfg.S3.Enabled() {
		archiver, err := archive.NewMinioArchiver(
			archive.WithEndpoint(cfg.S3.Endpoint),
			archive.WithBucket(cfg.S3.Bucket),
			archive.WithRegion(cfg.S3.Region),
			archive.WithPrefix(cfg.S3.Prefix),
			archive.WithAccessKey(cfg.S3.AccessKey),
			archive.WithSecretKey(cfg.S3.SecretKey),
			archive.WithSSL(cfg.S3.UseSSL),
		)
		if err != nil {
			return orchestrator.Dependencies{}, err
		}
		deps.Archiver = archiver
		zap.S().Infow("archiving terminal evaluations", "bucket", cfg.S3.Bucket)
	}

	return deps, nil
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}

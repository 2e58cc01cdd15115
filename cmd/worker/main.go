package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/edvin/sitebuilder/internal/activity"
	"github.com/edvin/sitebuilder/internal/config"
	"github.com/edvin/sitebuilder/internal/db"
	"github.com/edvin/sitebuilder/internal/logging"
	"github.com/edvin/sitebuilder/internal/metrics"
	"github.com/edvin/sitebuilder/internal/model"
	"github.com/edvin/sitebuilder/internal/provider"
	"github.com/edvin/sitebuilder/internal/recovery"
	"github.com/edvin/sitebuilder/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPoolMetrics(prometheus.DefaultRegisterer, "worker", pool)

	dialOpts, err := cfg.TemporalClientOptions()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	if dialOpts.ConnectionOptions.TLS != nil {
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, model.TaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})

	// Register activities
	providerClient := provider.NewClient(cfg.ProviderAPIURL, cfg.ProviderToken, cfg.ProviderTeamID, cfg.ProviderAliasDomain)
	if !cfg.ProviderEnabled() {
		logger.Warn().Msg("no deployment provider token configured, deployments will be simulated")
	}

	w.RegisterActivity(activity.NewDeployStore(pool, cfg.AppBaseURL, cfg.ProviderEnabled(), cfg.ProviderAliasDomain))
	w.RegisterActivity(activity.NewProvider(logger, providerClient, pool))
	w.RegisterActivity(activity.NewRecovery(pool, recovery.NewEngine(recovery.DefaultRules()...)))

	var snapshotStore activity.ObjectPutter
	if cfg.SnapshotsEnabled() {
		snapshotStore = activity.NewSnapshotS3Client(cfg.SnapshotS3Endpoint, cfg.SnapshotS3Region, cfg.SnapshotS3AccessKey, cfg.SnapshotS3SecretKey)
		logger.Info().Str("bucket", cfg.SnapshotBucket).Msg("file snapshots enabled")
	}
	w.RegisterActivity(activity.NewSnapshot(pool, snapshotStore, cfg.SnapshotBucket))

	// Register workflows
	w.RegisterWorkflow(workflow.ProjectDeployWorkflow)
	w.RegisterWorkflow(workflow.DeployWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, pool.Ping)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", model.TaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

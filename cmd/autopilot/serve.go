package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/data"
	"github.com/devricklin/inbox-autopilot/internal/server"
	"github.com/devricklin/inbox-autopilot/internal/service"
	"github.com/devricklin/inbox-autopilot/internal/tracing"
)

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook receiver and approval API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on start")
	return cmd
}

func runServe(skipMigrate bool) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Prompts != nil && cfg.Prompts.Source != "" {
		log.Info("prompts loaded", zap.String("path", cfg.Prompts.Source))
	}
	if cfg.Completion.APIKey == "" {
		log.Warn("OPENAI_API_KEY not set, every message will be queued for review")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName, Version, log)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if !skipMigrate {
		if err := data.Migrate(db); err != nil {
			return err
		}
	}
	log.Info("database ready", zap.String("driver", db.Driver))

	repos := data.NewRepositories(db, cfg.ToDataOptions())
	ucs := newUsecases(cfg, repos, log)

	ingest := service.NewIngestService(ucs.Pipeline, cfg.ToIngestConfig(), log)
	cron, err := service.NewCronRunner(repos.Dedup, repos.Message, service.DefaultCronConfig(), log)
	if err != nil {
		return err
	}
	cron.Start()

	srv := server.NewServer(server.Config{
		ListenAddr:  cfg.Server.ListenAddr,
		AppSecret:   cfg.Meta.AppSecret,
		VerifyToken: cfg.Meta.VerifyToken,
		APIToken:    cfg.Server.APIToken,
	}, ingest, ucs.Approval, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err = <-errCh:
		if err != nil {
			log.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http shutdown", zap.Error(serr))
	}
	if serr := ingest.Shutdown(shutdownCtx); serr != nil {
		log.Warn("in-flight deliveries abandoned", zap.Error(serr))
	}
	cron.Stop()
	if serr := shutdownTracing(shutdownCtx); serr != nil {
		log.Warn("tracing shutdown", zap.Error(serr))
	}
	return err
}

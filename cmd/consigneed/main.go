package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/internal/acquire"
	"github.com/Hk-V1/consignee-renamer/internal/common"
	"github.com/Hk-V1/consignee-renamer/internal/extract"
	"github.com/Hk-V1/consignee-renamer/internal/metrics"
	"github.com/Hk-V1/consignee-renamer/internal/pipeline"
	"github.com/Hk-V1/consignee-renamer/internal/report"
	"github.com/Hk-V1/consignee-renamer/internal/repository"
	"github.com/Hk-V1/consignee-renamer/internal/rules"
	"github.com/Hk-V1/consignee-renamer/internal/server"
)

func main() {
	// Env + config
	cfg := common.LoadConfig()

	// Logger
	logger, err := common.NewLogger(cfg.Log)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()
	log := logger.Sugar()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Extraction rules
	r, err := rules.Load(cfg.Pipeline.RulesPath)
	if err != nil {
		log.Fatalf("loading rules: %v", err)
	}

	acquirer := acquire.NewAcquirer(acquire.Config{MaxPDFPages: r.MaxPDFPages}, logger)
	fields, err := extract.New(r, logger)
	if err != nil {
		log.Fatalf("compiling extraction rules: %v", err)
	}

	m := metrics.NewMetrics()
	proc := pipeline.NewProcessor(pipeline.Config{
		ScratchRoot: cfg.Pipeline.ScratchRoot,
		KeepStaging: cfg.Pipeline.KeepStaging,
	}, r, acquirer, fields, m, logger)

	// Run history, on when a DSN is configured
	var historyRepo repository.RunRepository
	if cfg.History.DSN != "" {
		db, pool, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.History.DSN,
			MaxConns:        cfg.History.MaxConns,
			MaxConnLifetime: cfg.History.MaxConnLifetime,
			DialTimeout:     cfg.History.DialTimeout,
		}, logger)
		if err != nil {
			log.Fatalf("opening history store: %v", err)
		}
		defer repository.Close(db, pool, logger)

		if err := repository.HealthCheck(ctx, db, cfg.History.DialTimeout, logger); err != nil {
			log.Fatalf("history store health failed: %v", err)
		}
		if err := repository.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("preparing history schema: %v", err)
		}
		log.Infow("history store OK")
		historyRepo = repository.NewRunRepository(db, logger)
	}

	manager := server.NewRunManager(cfg.Server.MaxActiveRuns, logger)
	handler := server.NewHandler(server.HandlerConfig{
		UploadRoot:     cfg.Pipeline.ScratchRoot,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Capabilities:   acquirer.Capabilities(),
	}, proc, manager, historyRepo, report.NewService(logger), logger)

	srv := server.NewServer(cfg.Server.HTTPAddr, handler, manager, m, cfg.Log.Level == "debug", logger)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("http serve: %v", err)
		}
	}()
	log.Infof("http serving on %s", cfg.Server.HTTPAddr)

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	fmt.Println("stopped.")
}

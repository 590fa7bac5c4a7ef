package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"certledger/internal/audit"
	audithandler "certledger/internal/audit/handler"
	auditkafka "certledger/internal/audit/kafka"
	certhandler "certledger/internal/certificate/handler"
	certservice "certledger/internal/certificate/service"
	certstore "certledger/internal/certificate/store"
	"certledger/internal/extraction"
	"certledger/internal/ingestion"
	ingesthandler "certledger/internal/ingestion/handler"
	"certledger/internal/ledger"
	"certledger/internal/ledger/anchor"
	"certledger/internal/platform/config"
	"certledger/internal/platform/httpserver"
	"certledger/internal/platform/logger"
	"certledger/internal/platform/metrics"
	"certledger/internal/platform/postgres"
	"certledger/internal/platform/redis"
	"certledger/internal/stats"
	statshandler "certledger/internal/stats/handler"
	httptransport "certledger/internal/transport/http"
	"certledger/internal/verification"
	verifyhandler "certledger/internal/verification/handler"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal feature packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		db      *sql.DB
		records certstore.Store
		trail   audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		certPG := certstore.NewPostgres(db)
		auditPG := audit.NewPostgresStore(db)
		if err := certPG.Migrate(ctx); err != nil {
			return err
		}
		if err := auditPG.Migrate(ctx); err != nil {
			return err
		}
		records, trail = certPG, auditPG
	} else {
		log.Warn("DATABASE_URL not set; using in-memory stores")
		records, trail = certstore.NewInMemory(), audit.NewInMemoryStore()
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Integrity ledger.
	var ledgerClient ledger.Client
	switch cfg.Ledger.Mode {
	case config.LedgerModeEthereum:
		ledgerClient, err = ledger.NewEthereumClient(ctx, cfg.Ledger.URL,
			cfg.Ledger.ContractAddress, cfg.Ledger.PrivateKey,
			cfg.Ledger.VerifyTimeout, cfg.Ledger.AnchorTimeout, log)
		if err != nil {
			return err
		}
	case config.LedgerModeNone:
		ledgerClient = ledger.Disabled{}
	default:
		ledgerClient = ledger.NewHTTPClient(cfg.Ledger.URL,
			cfg.Ledger.VerifyTimeout, cfg.Ledger.AnchorTimeout, log)
	}
	if redisClient != nil && cfg.Ledger.VerifyCacheTTL > 0 {
		ledgerClient = ledger.NewVerifyCache(ledgerClient, redisClient.Client, cfg.Ledger.VerifyCacheTTL, log)
	}

	anchors := anchor.NewDispatcher(ledgerClient, cfg.Anchor.Workers, cfg.Anchor.QueueSize, log, anchor.NewMetrics())
	defer anchors.Close()

	// Audit trail, with optional Kafka fan-out.
	var sink audit.Sink
	var kafkaPub *auditkafka.Publisher
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafkaPub, err = auditkafka.NewPublisher(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, log)
		if err != nil {
			return err
		}
		sink = kafkaPub
	}
	recorder := audit.NewRecorder(trail, sink, log)

	var extractor extraction.Client
	if cfg.Extraction.Mock {
		log.Warn("extraction mock enabled; documents are not parsed")
		extractor = extraction.Mock{}
	} else {
		extractor = extraction.NewHTTPClient(cfg.Extraction.URL, cfg.Extraction.Timeout, log)
	}

	verifier := verification.NewService(extractor, records, ledgerClient, recorder, log, verification.NewMetrics())
	pipeline := ingestion.NewPipeline(records, anchors, recorder, log, ingestion.NewMetrics(),
		cfg.Ingestion.ParseTimeout, cfg.Ingestion.MaxRowErrors)
	certificates := certservice.New(records, anchors, recorder, log)
	dashboard := stats.NewService(records, trail)

	procMetrics := metrics.New()
	health := map[string]httptransport.HealthCheck{}
	if db != nil {
		health["postgres"] = db.PingContext
	}
	if redisClient != nil {
		health["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Handlers: []httptransport.Registrar{
			verifyhandler.New(verifier, log, cfg.Ingestion.MaxUploadBytes),
			ingesthandler.New(pipeline, log, cfg.Ingestion.MaxUploadBytes),
			certhandler.New(certificates, log),
			audithandler.New(recorder, log),
			statshandler.New(dashboard, log),
		},
		Metrics:      procMetrics,
		HealthChecks: health,
		Logger:       log,
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("certledger listening", "addr", cfg.Addr, "ledger_mode", string(cfg.Ledger.Mode))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	anchors.Close()
	if kafkaPub != nil {
		if err := kafkaPub.Close(shutdownCtx); err != nil {
			log.Warn("kafka close", "error", err)
		}
	}
	return nil
}

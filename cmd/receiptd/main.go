// Command receiptd watches an inbox directory, reconstructs every receipt
// dropped into it and records the prices.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/receiptradar/internal/backend"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/core"
	"github.com/joseph-ayodele/receiptradar/internal/core/async"
	"github.com/joseph-ayodele/receiptradar/internal/core/llm"
	"github.com/joseph-ayodele/receiptradar/internal/core/llm/provider"
	"github.com/joseph-ayodele/receiptradar/internal/core/ocr"
	"github.com/joseph-ayodele/receiptradar/internal/ingest"
	"github.com/joseph-ayodele/receiptradar/internal/metrics"
	"github.com/joseph-ayodele/receiptradar/internal/pricing"
)

const healthInterval = 15 * time.Second

func main() {
	zlogger, _ := zap.NewProduction()
	defer func() { _ = zlogger.Sync() }()
	log := zlogger.Sugar()

	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := common.NewLogger(cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, logger); err != nil {
		log.Fatalf("receiptd: %v", err)
	}
	log.Info("stopped")
}

func run(ctx context.Context, cfg *common.Config, log *zap.SugaredLogger, logger *slog.Logger) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	b, err := backend.Open(ctx, cfg, logger, backend.WithMetrics(m), backend.WithMigrate())
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Warnw("backend close", "error", err)
		}
	}()
	if err := b.Ping(ctx); err != nil {
		return err
	}
	log.Infow("backend ready", "driver", b.Driver, "cache", b.Cache != nil)

	vision, closeVision, err := provider.New(ctx, cfg.Vision, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeVision() }()

	engine := ocr.NewEngine(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         cfg.OCR.PSM,
	}, nil, logger)
	parser := llm.NewHybridParser(vision, engine, cfg.OCR.MinConfidence, logger)

	opts := []core.ProcessorOption{
		core.WithOutbox(cfg.Daemon.OutboxDir),
		core.WithMetrics(m),
	}
	if b.Cache != nil {
		opts = append(opts, core.WithInvalidator(b.Cache))
	}
	if cfg.Daemon.StoreID != "" {
		storeID := uuid.MustParse(cfg.Daemon.StoreID)
		userID := uuid.MustParse(cfg.Daemon.UserID)
		if _, err := b.Users.Register(ctx, userID); err != nil {
			return err
		}
		recorder := pricing.NewRecorder(b.History, logger, m)
		opts = append(opts, core.WithRecording(recorder, storeID, userID))
		if b.Receipts != nil {
			opts = append(opts, core.WithReceiptSaver(b.Receipts))
		}
		log.Infow("price recording enabled", "store_id", storeID, "user_id", userID)
	}
	if err := os.MkdirAll(cfg.Daemon.InboxDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Daemon.OutboxDir, 0o755); err != nil {
		return err
	}
	processor := core.NewProcessor(parser, logger, opts...)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Daemon.Workers),
		async.WithQueueSize(cfg.Daemon.QueueSize),
		async.WithProcessTimeout(cfg.Daemon.ProcessTimeout),
		async.WithMetrics(m),
	)
	enqueue := func(ctx context.Context, path string) error {
		return queue.Enqueue(ctx, async.Job{Path: path})
	}

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Daemon.GRPCAddr)
	if err != nil {
		return err
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Errorw("grpc serve", "error", err)
		}
	}()
	log.Infow("grpc health serving", "addr", cfg.Daemon.GRPCAddr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.Daemon.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics serve", "error", err)
		}
	}()
	log.Infow("metrics serving", "addr", cfg.Daemon.MetricsAddr)

	go probeHealth(ctx, b, hs, log)

	dedup := ingest.NewDeduper()
	_, stats, err := ingest.SweepDirectory(ctx, cfg.Daemon.InboxDir, dedup, enqueue, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warnw("initial sweep", "error", err)
	}
	log.Infow("initial sweep done", "matched", stats.Matched, "queued", stats.Succeeded, "duplicates", stats.Deduplicated)

	paths, werrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:    []string{cfg.Daemon.InboxDir},
		Debounce: cfg.Daemon.Debounce,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	log.Infow("watching inbox", "dir", cfg.Daemon.InboxDir, "outbox", cfg.Daemon.OutboxDir)

	for paths != nil || werrs != nil {
		select {
		case path, ok := <-paths:
			if !ok {
				paths = nil
				continue
			}
			_, dup, err := dedup.Check(path)
			switch {
			case err != nil:
				log.Warnw("hash failed", "path", path, "error", err)
			case dup:
				log.Infow("duplicate skipped", "path", path)
			default:
				if err := enqueue(ctx, path); err != nil {
					log.Warnw("enqueue failed", "path", path, "error", err)
				}
			}
		case err, ok := <-werrs:
			if !ok {
				werrs = nil
				continue
			}
			log.Warnw("watcher error", "error", err)
		}
	}

	log.Info("shutting down...")
	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Daemon.ProcessTimeout)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	return nil
}

// probeHealth flips the gRPC health status with backend reachability.
func probeHealth(ctx context.Context, b *backend.Backend, hs *health.Server, log *zap.SugaredLogger) {
	t := time.NewTicker(healthInterval)
	defer t.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := b.Ping(pingCtx)
			cancel()
			if ok := err == nil; ok != serving {
				serving = ok
				if ok {
					hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
					log.Info("backend recovered")
				} else {
					hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
					log.Warnw("backend unreachable", "error", err)
				}
			}
		}
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpc_adapter "github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/adapter/in/grpc"
	http_adapter "github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/adapter/in/http"
	memory_adapter "github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/adapter/out/memory"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/adapter/out/notify"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/config"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/telemetry"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
	"github.com/JoeShih716/mem-transfer-ledger/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化 logger
	log, level, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log, level); err != nil {
		log.Error("ledger exited with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("ledger exited")
}

// newAdminMux metrics 與執行期間調整 log level (GET/PUT /log/level)
func newAdminMux(level zap.AtomicLevel) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/log/level", level)
	return mux
}

func run(cfg config.Config, log *zap.Logger, level zap.AtomicLevel) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing (optional)
	if cfg.Tracing.Enabled {
		shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTracer(sctx); err != nil {
				log.Warn("failed to shutdown tracer", zap.Error(err))
			}
		}()
		log.Info("tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))
	}

	// 4. 通知 sink 與派送器
	sink, closers, err := buildSinks(ctx, cfg.Notification, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("failed to close notification sink", zap.Error(err))
			}
		}
	}()

	dispatcher, err := notify.NewDispatcher(sink, notify.DispatcherConfig{
		Workers:        cfg.Notification.Workers,
		QueueSize:      cfg.Notification.QueueSize,
		Timeout:        cfg.Notification.Timeout,
		EnqueueTimeout: cfg.Notification.EnqueueTimeout,
	}, log.Named("dispatcher"))
	if err != nil {
		return err
	}
	dispatcher.Start()
	// 在 sink 關閉前送完剩下的通知
	defer dispatcher.Stop()

	// 5. 帳本與 UseCase
	store, err := memory_adapter.NewAccountStore()
	if err != nil {
		return err
	}
	svc := usecase.NewTransferService(store, dispatcher, log.Named("transfer"))
	for _, seed := range cfg.SeedAccounts {
		if _, err := svc.CreateAccount(ctx, seed.ID, seed.Balance); err != nil {
			return fmt.Errorf("failed to seed account %s: %w", seed.ID, err)
		}
	}
	log.Info("ledger ready", zap.Int("accounts", len(cfg.SeedAccounts)))

	errCh := make(chan error, 3)

	// 6. gRPC Server
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Addr, err)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.UnaryLoggingInterceptor(log.Named("grpc"))))
	grpc_adapter.RegisterLedgerServiceServer(grpcServer, grpc_adapter.NewServer(svc))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	go func() {
		log.Info("starting grpc server", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// 7. HTTP Server
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           http_adapter.NewRouter(http_adapter.NewHandler(svc), log.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("starting http server", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// 8. Metrics Server
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           newAdminMux(level),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("starting metrics server", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// Graceful Shutdown
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down servers")
	case serveErr = <-errCh:
		log.Error("server failed, shutting down", zap.Error(serveErr))
	}

	healthServer.Shutdown()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		log.Warn("failed to shutdown http server", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(sctx); err != nil {
			log.Warn("failed to shutdown metrics server", zap.Error(err))
		}
	}
	grpcServer.GracefulStop()

	log.Info("servers stopped",
		zap.Int("accounts", len(svc.Accounts(sctx))),
		zap.Stringer("total_balance", svc.TotalBalance(sctx)),
	)
	return serveErr
}

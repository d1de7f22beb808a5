package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/slicetally/internal/broadcast"
	"github.com/mmynk/slicetally/internal/config"
	"github.com/mmynk/slicetally/internal/groupstore"
	"github.com/mmynk/slicetally/internal/httpapi"
	"github.com/mmynk/slicetally/internal/metrics"
	"github.com/mmynk/slicetally/internal/middleware"
	"github.com/mmynk/slicetally/internal/persistence"
	"github.com/mmynk/slicetally/internal/pubsub"
	"github.com/mmynk/slicetally/internal/service"
	"github.com/mmynk/slicetally/internal/storage"
	"github.com/mmynk/slicetally/internal/storage/jsonfile"
	"github.com/mmynk/slicetally/internal/storage/sqlite"
	"github.com/mmynk/slicetally/pkg/api/apiconnect"
	"github.com/mmynk/slicetally/pkg/logging"
)

func main() {
	logging.Setup()

	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	state := persistence.LoadOrEmpty(ctx, backend)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store := groupstore.New(
		groupstore.WithState(state),
		groupstore.WithAuditLimit(cfg.AuditLogLimit),
	)
	subs := pubsub.NewRegistry(
		pubsub.WithSendTimeout(cfg.SubscriberSendTimeout),
		pubsub.WithKeepAlive(cfg.SubscriberKeepAlive),
		pubsub.WithRecorder(m),
	)
	bc := broadcast.New(store, subs)
	writer := persistence.NewWriter(store, backend,
		persistence.WithDebounce(cfg.SnapshotDebounce),
		persistence.WithRecorder(m),
	)
	store.Observe(bc)
	store.Observe(writer)
	store.Observe(m)
	m.RegisterGauges(store.GroupCount, subs.Count)

	rpcPath, rpcHandler := apiconnect.NewGroupServiceHandler(
		service.NewGroupService(store, bc),
		connect.WithInterceptors(middleware.NewLoggingInterceptor()),
	)

	staticDir, err := filepath.Abs(cfg.StaticPath)
	if err != nil {
		return fmt.Errorf("resolve static path: %w", err)
	}
	slog.Info("Serving static files", "path", staticDir)

	router := httpapi.NewRouter(httpapi.Options{
		Store:       store,
		Broadcaster: bc,
		StaticDir:   staticDir,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		RPCPath:     rpcPath,
		RPCHandler:  rpcHandler,
	})

	// h2c serves HTTP/2 without TLS, which Connect streaming needs.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(middleware.CORS(router), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end when the process is told to stop.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	// The writer outlives the server so changes made while draining still
	// reach the final snapshot.
	writerCtx, stopWriter := context.WithCancel(context.Background())
	defer stopWriter()
	g.Go(func() error {
		return writer.Run(writerCtx)
	})

	g.Go(func() error {
		slog.Info("Server starting",
			"address", srv.Addr,
			"url", fmt.Sprintf("http://localhost%s", srv.Addr),
			"storage", cfg.StorageDriver,
			"groups", store.GroupCount(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		defer stopWriter()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Graceful shutdown incomplete", "error", err)
			return srv.Close()
		}
		return nil
	})

	return g.Wait()
}

func openBackend(cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		slog.Info("Storage initialized", "driver", cfg.StorageDriver, "database", cfg.DBPath)
		return store, nil
	default:
		store, err := jsonfile.New(cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		slog.Info("Storage initialized", "driver", cfg.StorageDriver, "path", cfg.DataPath)
		return store, nil
	}
}

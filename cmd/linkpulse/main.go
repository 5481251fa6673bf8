// Package main запускает HTTP и gRPC серверы linkpulse.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tempizhere/linkpulse/internal/admission"
	"github.com/tempizhere/linkpulse/internal/app"
	"github.com/tempizhere/linkpulse/internal/config"
	"github.com/tempizhere/linkpulse/internal/geo"
	grpcserver "github.com/tempizhere/linkpulse/internal/grpc"
	"github.com/tempizhere/linkpulse/internal/identity"
	"github.com/tempizhere/linkpulse/internal/log"
	"github.com/tempizhere/linkpulse/internal/metrics"
	"github.com/tempizhere/linkpulse/internal/middleware"
	"github.com/tempizhere/linkpulse/internal/repository"
	"github.com/tempizhere/linkpulse/internal/service"
	"github.com/tempizhere/linkpulse/internal/stats"
	"go.uber.org/zap"
)

// JWTIssuer - издатель токенов подтверждённых вызывающих
const JWTIssuer = "linkpulse"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}

	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("failed to create logger: %w", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	_ = logger.Sync()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, dialect, err := app.NewDB(ctx, cfg.DatabaseDSN, cfg.SQLitePath)
	if err != nil {
		return err
	}
	logger.Info("Database ready", zap.String("dialect", dialect.String()))

	repo := repository.NewSQLRepository(db, dialect, logger)
	defer repo.Close()
	m := metrics.New()

	enricherOpts := []geo.Option{
		geo.WithTimeout(cfg.GeoTimeout),
		geo.WithMetrics(m),
	}
	if cfg.GeoRPS > 0 {
		enricherOpts = append(enricherOpts, geo.WithRateLimit(cfg.GeoRPS, 1))
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, geo cache misses will fall through", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		enricherOpts = append(enricherOpts, geo.WithCache(geo.NewRedisCache(rdb, geo.DefaultCacheTTL, logger)))
	}

	recorder := service.NewRecorder(repo)
	enricher := geo.NewEnricher(geo.NewIPAPIClient(cfg.GeoLookupURL, cfg.GeoTimeout), recorder, logger, enricherOpts...)
	resolver := service.NewResolver(repo, recorder, enricher, logger)
	aggregator := stats.NewAggregator(repo, cfg.StatsTopReferrers, cfg.StatsRecentClicks)

	verifier := identity.Chain{identity.NewAPIKeyVerifier(repo)}
	if cfg.JWTSecret != "" {
		verifier = append(verifier, identity.NewJWTVerifier(cfg.JWTSecret, JWTIssuer))
	}

	// Один контроллер на процесс: HTTP и gRPC делят окна вызывающих
	controller := admission.NewController(cfg.RateLimitWindow)
	tiers := middleware.Tiers{
		Anonymous: admission.Tier{Name: "anonymous", Max: cfg.RateLimitAnonymous},
		Verified:  admission.Tier{Name: "verified", Max: cfg.RateLimitVerified},
	}

	proxies, err := middleware.NewProxyTrust(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr: cfg.RunAddr,
		Handler: app.NewRouter(app.NewApp(resolver, aggregator, repo, m, logger), app.RouterConfig{
			Admission:      controller,
			Tiers:          tiers,
			Verifier:       verifier,
			Metrics:        m,
			TrustedSubnet:  cfg.TrustedSubnet,
			TrustedProxies: proxies,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpcserver.NewGRPCServer(grpcserver.NewServer(aggregator, repo, logger), grpcserver.Options{
		Admission:     controller,
		Tiers:         tiers,
		Verifier:      verifier,
		Metrics:       m,
		TrustedSubnet: cfg.TrustedSubnet,
		Logger:        logger,
	})

	var grpcListener net.Listener
	if cfg.GRPCAddr != "" {
		grpcListener, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
		}
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.RunAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if grpcListener != nil {
		go func() {
			logger.Info("Starting gRPC server", zap.String("addr", cfg.GRPCAddr))
			if err := grpcServer.Serve(grpcListener); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}
	grpcServer.GracefulStop()

	// Дожидаемся фоновых запросов геолокации, пока база ещё открыта
	done := make(chan struct{})
	go func() {
		enricher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("Geo enrichment did not finish before shutdown")
	}

	return runErr
}

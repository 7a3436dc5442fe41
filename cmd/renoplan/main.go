package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/casainvest/renoplan/internal/config"
	dbRedis "github.com/casainvest/renoplan/internal/db/redis"
	logpkg "github.com/casainvest/renoplan/internal/logger"
	"github.com/casainvest/renoplan/internal/metrics"
	locationrepo "github.com/casainvest/renoplan/internal/repository/location"
	"github.com/casainvest/renoplan/internal/repository/locationpg"
	chiTransport "github.com/casainvest/renoplan/internal/transport/chi"
	openaiEngine "github.com/casainvest/renoplan/internal/transport/openai"
	consultuc "github.com/casainvest/renoplan/internal/usecase/consult"
	healthuc "github.com/casainvest/renoplan/internal/usecase/health"
	"github.com/casainvest/renoplan/internal/version"
)

func main() {
	// Optional .env for local development; real deployments use the process env.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting renoplan API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("engine_model", cfg.Engine.Model),
	)

	ctx := context.Background()

	// Catalog storage: one repository per driver, same contract.
	var (
		catalog    consultuc.CatalogReader
		pinger     healthuc.DBPinger
		closeStore func()
	)
	switch cfg.Storage.Driver {
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Storage.Addrs,
			Username: cfg.Storage.Username,
			Password: cfg.Storage.Password,
			DB:       cfg.Storage.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Storage.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Storage not ready", zap.Error(err))
		}
		catalog = locationrepo.New(store, cfg.Storage.KeyPrefix)
		pinger = store
		closeStore = store.Close
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
		if err != nil {
			logger.Fatal("Failed to create postgres pool", zap.Error(err))
		}
		repo := locationpg.New(pool)
		if err := repo.WaitForReady(ctx, time.Duration(cfg.Storage.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Storage not ready", zap.Error(err))
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to ensure schema", zap.Error(err))
		}
		catalog = repo
		pinger = repo
		closeStore = repo.Close
	default:
		logger.Fatal("Unknown storage driver", zap.String("driver", cfg.Storage.Driver))
	}
	defer closeStore()
	logger.Info("Connected to catalog storage")

	// Register metrics explicitly (no init())
	metrics.RegisterEngineMetrics()
	metrics.RegisterConsultMetrics()

	engine := openaiEngine.NewEngine(&openaiEngine.Config{
		APIKey:       cfg.Engine.APIKey,
		BaseURL:      cfg.Engine.BaseURL,
		Model:        cfg.Engine.Model,
		Temperature:  cfg.Engine.Temperature,
		MaxRetries:   cfg.Engine.MaxRetries,
		RetryBackoff: time.Duration(cfg.Engine.RetryBackoffMs) * time.Millisecond,
		Provider:     "openai",
		Logger:       logger,
	})

	consultSvc := consultuc.New(catalog, engine, consultuc.Policy{
		MaxConcurrent:  cfg.Pipeline.MaxConcurrent,
		LaunchInterval: time.Duration(cfg.Pipeline.LaunchInterval()) * time.Millisecond,
		EngineTimeout:  time.Duration(cfg.Engine.TimeoutSec) * time.Second,
		GeoStrict:      cfg.Pipeline.GeoStrict,
	}, logger)

	healthSvc := healthuc.New(pinger, engine)

	server := chiTransport.NewServer(consultSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chiTransport.PrivateKeyAuthMiddleware(cfg.Auth.PrivateKey, cfg.Auth.Required))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

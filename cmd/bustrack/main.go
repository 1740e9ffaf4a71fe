package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bustrack/internal/broadcast"
	"bustrack/internal/config"
	"bustrack/internal/handler"
	"bustrack/internal/hub"
	"bustrack/internal/journey"
	"bustrack/internal/metrics"
	"bustrack/internal/middleware"
	"bustrack/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting bustrack server",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"redis_enabled", cfg.RedisEnabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	journeyStore := dialStore(ctx, cfg, logger)

	collector := metrics.NewCollector()
	wsHub := hub.NewHub(logger)

	publishers := []broadcast.Publisher{wsHub}
	if cfg.RedisEnabled {
		bridge, err := broadcast.NewRedisBridge(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Error("redis bridge unavailable, continuing without it", "error", err)
		} else {
			defer bridge.Close()
			publishers = append(publishers, bridge)
		}
	}
	gateway := broadcast.NewGateway(collector, logger, publishers...)

	stateMachine := journey.NewStateMachine(journeyStore, gateway, logger)
	pipeline := journey.NewPipeline(journeyStore, gateway, collector, logger)
	seatLedger := journey.NewSeatLedger(journeyStore, collector, logger)

	journeyHandler := handler.NewJourneyHandler(journeyStore, pipeline, stateMachine, seatLedger, logger)
	wsHandler := handler.NewWSHandler(wsHub, collector, logger)
	healthHandler := handler.NewHealthHandler(journeyStore, wsHub)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/journeys", journeyHandler.CreateJourney)
	mux.HandleFunc("GET /v1/journeys/{id}", journeyHandler.GetJourney)
	mux.HandleFunc("POST /v1/journeys/{id}/status", journeyHandler.UpdateStatus)
	mux.HandleFunc("POST /v1/journeys/{id}/location", journeyHandler.SubmitLocation)

	mux.HandleFunc("POST /v1/journeys/{id}/seats", journeyHandler.InitializeSeats)
	mux.HandleFunc("PUT /v1/journeys/{id}/seats", journeyHandler.BulkReplaceSeats)
	mux.HandleFunc("POST /v1/journeys/{id}/seats/occupy", journeyHandler.OccupySeat)
	mux.HandleFunc("POST /v1/journeys/{id}/seats/free", journeyHandler.FreeSeat)
	mux.HandleFunc("GET /v1/journeys/{id}/seats/map", journeyHandler.SeatMap)

	mux.HandleFunc("GET /v1/buses/active", journeyHandler.ListActiveBuses)
	mux.HandleFunc("GET /v1/buses/{id}/location", journeyHandler.GetBusLocation)
	mux.HandleFunc("GET /v1/buses/{id}/seats", journeyHandler.GetSeatStatus)

	mux.HandleFunc("POST /v1/admin/journeys/{id}/status", journeyHandler.ForceStatus)
	mux.HandleFunc("GET /v1/admin/journeys", journeyHandler.ListAllJourneys)

	mux.HandleFunc("/v1/ws", wsHandler.ServeWS)

	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.HandleFunc("GET /readyz", healthHandler.Readyz)
	mux.Handle("GET /metrics", collector.Handler())

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow, logger)

	var root http.Handler = mux
	root = middleware.WithPrincipal(root)
	root = rateLimiter.Middleware(root)
	root = handler.GzipMiddleware(root)
	root = handler.CORSMiddleware(root)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      root,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go wsHub.Run(ctx)

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// dialStore connects to Mongo, falling back to the in-memory demo store
// when allowed. The chosen implementation is injected once here; nothing
// downstream branches on connectivity.
func dialStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) store.JourneyStore {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTimeout)
	defer cancel()

	mongoStore, err := store.Dial(dialCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.MaxPathSamples)
	if err == nil {
		logger.Info("connected to mongodb", "database", cfg.MongoDatabase)
		return mongoStore
	}

	if !cfg.FallbackToMemory {
		logger.Error("mongodb unavailable and fallback disabled", "error", err)
		os.Exit(1)
	}

	logger.Warn("mongodb unavailable, using in-memory demo store", "error", err)
	mem := store.NewMemoryStore(cfg.MaxPathSamples)
	if cfg.SeedDemoData {
		mem.Seed(store.DemoJourneys())
	}
	return mem
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brewcast.app/captioner/common/id"
	"brewcast.app/captioner/common/logger"
	"brewcast.app/captioner/common/otel"
	"brewcast.app/captioner/core/config"
	"brewcast.app/captioner/core/db"
	"brewcast.app/captioner/internal/generation"
	"brewcast.app/captioner/internal/http/handler"
	"brewcast.app/captioner/internal/http/middleware"
	httprouter "brewcast.app/captioner/internal/http/router"
	"brewcast.app/captioner/internal/pipeline"
	"brewcast.app/captioner/internal/retrieval"
	"brewcast.app/captioner/internal/store"
	"brewcast.app/captioner/internal/trending"
	"brewcast.app/captioner/internal/voice"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// indexRebuildInterval is how often the retrieval index picks up newly
// ingested documents.
const indexRebuildInterval = 15 * time.Minute

// Documents older than corpusRetention stop reflecting how the audience
// talks today; a daily sweep drops them and rebuilds the index.
const (
	corpusRetention     = 180 * 24 * time.Hour
	corpusSweepInterval = 24 * time.Hour
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "captioner starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		slog.InfoContext(ctx, "redis connected")
	} else {
		slog.WarnContext(ctx, "redis not configured, caption history is in-process only")
	}

	stores := store.NewStores(database, redisClient)

	if redisClient == nil {
		// In-process history starts empty; replay stored hashes so a restart
		// does not reopen the door to repeats.
		if err := store.WarmHistory(ctx, stores.Brands(), stores.Captions(), stores.History()); err != nil {
			slog.WarnContext(ctx, "failed to warm caption history", "error", err)
		}
	}

	retriever := retrieval.NewRetriever(stores.Documents())
	if err := retriever.Rebuild(ctx); err != nil {
		slog.ErrorContext(ctx, "initial index build failed", "error", err)
		os.Exit(1)
	}

	chain, err := generation.NewChainFromConfig(cfg.Providers, cfg.Engine.TrendingSeed)
	if err != nil {
		slog.ErrorContext(ctx, "failed to assemble provider chain", "error", err)
		os.Exit(1)
	}

	keywords, err := trending.NewSource(stores.Keywords(), cfg.Engine.TrendingPolicy, cfg.Engine.TrendingSeed)
	if err != nil {
		slog.ErrorContext(ctx, "failed to configure trending source", "error", err)
		os.Exit(1)
	}

	engine := pipeline.New(
		stores.Brands(),
		stores.Captions(),
		stores.Usage(),
		stores.History(),
		retriever,
		chain,
		keywords,
		voice.NewEnforcer(cfg.Engine.MinViableLen, cfg.Engine.MinAlwaysUse),
		pipeline.Config{
			TopK:          cfg.Engine.TopK,
			DedupAttempts: cfg.Engine.DedupAttempts,
			MaxTokens:     cfg.Engine.MaxTokens,
		},
	)

	rebuildCtx, stopRebuild := context.WithCancel(ctx)
	defer stopRebuild()
	go rebuildLoop(rebuildCtx, retriever)
	go sweepLoop(rebuildCtx, stores.Documents(), retriever)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, engine, stores)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, engine *pipeline.Pipeline, stores *store.Stores) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router,
		handler.NewCaptionHandler(engine),
		handler.NewBrandHandler(stores.Brands()),
		handler.NewUsageHandler(stores.Usage()),
	)

	return router
}

func rebuildLoop(ctx context.Context, retriever *retrieval.Retriever) {
	ticker := time.NewTicker(indexRebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := retriever.RefreshIfStale(ctx); err != nil {
				slog.ErrorContext(ctx, "index refresh failed", "error", err)
			}
		}
	}
}

func sweepLoop(ctx context.Context, docs store.DocumentStore, retriever *retrieval.Retriever) {
	ticker := time.NewTicker(corpusSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := docs.DeleteOlderThan(ctx, time.Now().UTC().Add(-corpusRetention))
			if err != nil {
				slog.ErrorContext(ctx, "corpus sweep failed", "error", err)
				continue
			}
			if deleted == 0 {
				continue
			}
			slog.InfoContext(ctx, "stale documents pruned", "deleted", deleted)
			if err := retriever.Rebuild(ctx); err != nil {
				slog.ErrorContext(ctx, "index rebuild after sweep failed", "error", err)
			}
		}
	}
}

const banner = `
██████╗ ██████╗ ███████╗██╗    ██╗ ██████╗ █████╗ ███████╗████████╗
██╔══██╗██╔══██╗██╔════╝██║    ██║██╔════╝██╔══██╗██╔════╝╚══██╔══╝
██████╔╝██████╔╝█████╗  ██║ █╗ ██║██║     ███████║███████╗   ██║
██╔══██╗██╔══██╗██╔══╝  ██║███╗██║██║     ██╔══██║╚════██║   ██║
██████╔╝██║  ██║███████╗╚███╔███╔╝╚██████╗██║  ██║███████║   ██║
╚═════╝ ╚═╝  ╚═╝╚══════╝ ╚══╝╚══╝  ╚═════╝╚═╝  ╚═╝╚══════╝   ╚═╝
`

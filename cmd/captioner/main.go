package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"brewcast.app/captioner/common/id"
	"brewcast.app/captioner/common/logger"
	"brewcast.app/captioner/core/config"
	"brewcast.app/captioner/core/db"
	"brewcast.app/captioner/internal/generation"
	"brewcast.app/captioner/internal/model"
	"brewcast.app/captioner/internal/pipeline"
	"brewcast.app/captioner/internal/retrieval"
	"brewcast.app/captioner/internal/store"
	"brewcast.app/captioner/internal/trending"
	"brewcast.app/captioner/internal/voice"
	"github.com/redis/go-redis/v9"
)

// Batch caption generation for content calendars: generate N artifacts for
// one brand and dump them as JSON.
func main() {
	var (
		brandID   = flag.Int64("brand", 0, "brand profile ID; 0 resolves by name or the single active brand")
		brandName = flag.String("brand-name", "", "brand name lookup when no ID is given")
		platform  = flag.String("platform", "instagram", "target platform")
		keyword   = flag.String("keyword", "", "keyword override; empty picks a trending keyword per caption")
		scenario  = flag.String("scenario", "", "content scenario (education, engagement, promotion)")
		provider  = flag.String("provider", "", "provider override; empty uses the brand preference and fallback order")
		count     = flag.Int("count", 1, "number of captions to generate")
		outPath   = flag.String("out", "", "output file; empty writes to stdout")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	logger.Setup(cfg)

	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()
	}

	stores := store.NewStores(database, redisClient)

	retriever := retrieval.NewRetriever(stores.Documents())
	if err := retriever.Rebuild(ctx); err != nil {
		slog.ErrorContext(ctx, "index build failed", "error", err)
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

	artifacts := make([]*model.CaptionArtifact, 0, *count)
	for i := 0; i < *count; i++ {
		artifact, err := engine.Generate(ctx, pipeline.GenerateRequest{
			BrandID:   *brandID,
			BrandName: *brandName,
			Platform:  *platform,
			Keyword:   *keyword,
			Scenario:  *scenario,
			Provider:  *provider,
		})
		if err != nil {
			slog.ErrorContext(ctx, "generation failed", "index", i, "error", err)
			os.Exit(1)
		}
		artifacts = append(artifacts, artifact)
		slog.InfoContext(ctx, "caption generated",
			"index", i+1,
			"provider", artifact.Provider,
			"method", string(artifact.Method))
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create output file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(artifacts); err != nil {
		slog.ErrorContext(ctx, "failed to write output", "error", err)
		os.Exit(1)
	}
}

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

	"github.com/examforge/arena/internal/ai"
	"github.com/examforge/arena/internal/arena"
	"github.com/examforge/arena/internal/leaderboard"
	"github.com/examforge/arena/internal/platform/cache"
	"github.com/examforge/arena/internal/platform/config"
	"github.com/examforge/arena/internal/platform/database"
	"github.com/examforge/arena/internal/predictor"
	"github.com/examforge/arena/internal/qbank"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.ApplySchema(ctx); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	// The cache is an optimization. Without it, leaderboard reads hit
	// the database directly.
	var boardCache *cache.Cache
	if c, err := cache.New(ctx, cfg.Cache.URL); err != nil {
		slog.Warn("cache unavailable, continuing without it", "error", err)
	} else {
		boardCache = c
		defer c.Close()
	}

	chain := ai.NewChain()
	if cfg.HasAIClient() {
		chain.Register("openai", ai.NewOpenAIClient(cfg.AI.APIKey,
			ai.WithBaseURL(cfg.AI.BaseURL),
			ai.WithModel(cfg.AI.Model),
			ai.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second}),
		))
	}

	bank, err := qbank.NewPostgresStore(db.Pool)
	if err != nil {
		slog.Error("failed to create question store", "error", err)
		os.Exit(1)
	}
	if cfg.Bank.SeedOnStart {
		seeder, err := qbank.NewSeeder(bank, cfg.Bank.SeedPath)
		if err != nil {
			slog.Error("failed to load question seeds", "error", err)
			os.Exit(1)
		}
		for exam, subjects := range qbank.ExamSubjects {
			for _, subject := range subjects {
				if err := seeder.SeedIfNeeded(ctx, exam, subject); err != nil {
					slog.Error("failed to seed question bank",
						"exam", exam, "subject", subject, "error", err)
					os.Exit(1)
				}
			}
		}
	}

	boards := leaderboard.NewEngine(leaderboard.EngineConfig{
		Store:    leaderboard.NewPostgresStore(db),
		Cache:    boardCache,
		CacheTTL: time.Duration(cfg.Cache.LeaderboardTTL) * time.Second,
		Logger:   logger,
	})
	store := arena.NewPostgresStore(db)
	engine := arena.NewEngine(arena.EngineConfig{
		Store:       store,
		Bank:        bank,
		AI:          maybeChain(chain),
		Leaderboard: boards,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: newMux(&server{
			engine:  engine,
			boards:  boards,
			predict: predictor.NewService(store),
			bank:    bank,
			ready: func(r *http.Request) error {
				return db.HealthCheck(r.Context())
			},
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// maybeChain returns nil when no completion client is registered so
// callers fall straight to template text.
func maybeChain(chain *ai.Chain) ai.Client {
	if !chain.HasClient() {
		return nil
	}
	return chain
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

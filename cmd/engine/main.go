package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/solacechat/engine/internal/crisis"
	"github.com/solacechat/engine/internal/delivery"
	"github.com/solacechat/engine/internal/engine"
	"github.com/solacechat/engine/internal/generator"
	"github.com/solacechat/engine/internal/memory"
	"github.com/solacechat/engine/internal/models"
	"github.com/solacechat/engine/internal/pacing"
	"github.com/solacechat/engine/internal/relationship"
	"github.com/solacechat/engine/internal/storage"
	"github.com/solacechat/engine/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStore()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStore(dbConfig)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize the generation collaborator
	var gen generator.Generator
	if cfg.OpenAI.APIKey != "" {
		gen = generator.NewGPTGenerator(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			logger,
		)
	} else {
		logger.Warn("No OpenAI API key configured, using static generator")
		gen = generator.NewStaticGenerator()
	}

	tz, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		logger.Fatal("Failed to load timezone", zap.Error(err), zap.String("timezone", cfg.Engine.Timezone))
	}

	profiles := make(map[string]models.TypingProfile, len(cfg.Typing))
	for name, tc := range cfg.Typing {
		profiles[name] = models.TypingProfile{
			BaseDelay:          time.Duration(tc.BaseDelayMs) * time.Millisecond,
			CharacterVariation: time.Duration(tc.CharacterVariationMs) * time.Millisecond,
			PunctuationPause:   time.Duration(tc.PunctuationPauseMs) * time.Millisecond,
			ThinkingPauses:     tc.ThinkingPauses,
		}
	}

	eng := engine.New(
		crisis.NewScorer(logger),
		memory.NewStore(store, logger),
		relationship.NewTracker(store, logger),
		pacing.NewSimulator(logger),
		gen,
		store,
		engine.Config{
			MemoryLimit:       cfg.Engine.MemoryLimit,
			GenerationTimeout: time.Duration(cfg.Engine.GenerationTimeoutMs) * time.Millisecond,
			TrustDeltaNormal:  cfg.Engine.TrustDeltaNormal,
			TrustDeltaCrisis:  cfg.Engine.TrustDeltaCrisis,
			Timezone:          tz,
			Profiles:          profiles,
			DefaultProfile:    profiles["default"],
		},
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng.StartSessionSweeper(ctx,
		time.Duration(cfg.Engine.SweepIntervalMin)*time.Minute,
		time.Duration(cfg.Engine.SessionIdleMinutes)*time.Minute)

	// Initialize the Telegram delivery adapter
	bot, err := delivery.NewTelegramBot(cfg.Telegram.Token, eng, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	if err := bot.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}

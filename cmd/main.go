package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vinylgrove/companion/adapters/agent"
	"github.com/vinylgrove/companion/domain/conversation"
	"github.com/vinylgrove/companion/domain/game"
	"github.com/vinylgrove/companion/internal/api"
	"github.com/vinylgrove/companion/internal/config"
	"github.com/vinylgrove/companion/internal/observability"
	"github.com/vinylgrove/companion/usecase"
)

func main() {
	root := &cobra.Command{
		Use:   "companion",
		Short: "Conversation sync daemon for the desktop companion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	// Conversation state and its derived views
	store := conversation.NewStore()
	tracker := game.NewTracker()

	agentBase := agent.HTTPBase(cfg.AgentURL)
	companion := usecase.NewCompanion(agentBase, http.DefaultClient, logger, metrics)
	if err := companion.Select(cfg.CharacterID); err != nil {
		return err
	}

	// Agent transport and stream ingestion
	client := agent.NewClient(cfg.AgentURL, logger)
	ingestor := usecase.NewIngestor(client, store, cfg.ChatEndpoint, logger,
		usecase.WithTurnTimeout(cfg.TurnTimeout),
		usecase.WithIngestMetrics(metrics),
		usecase.WithTurnObserver(func(m conversation.Message) {
			tracker.Observe(m, time.Now())
		}),
	)
	ingestor.Start()
	defer ingestor.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		logger.Warn("Agent connection failed, will serve local state only", zap.Error(err))
	}
	defer client.Close()

	// Server reconciliation and idle decay
	reconciler := usecase.NewReconciler(agentBase, http.DefaultClient, store, companion, logger,
		usecase.WithSyncInterval(cfg.SyncInterval),
		usecase.WithSyncMetrics(metrics),
		usecase.WithHistoryObserver(func(m conversation.Message) {
			tracker.Observe(m, time.Now())
		}),
	)
	go reconciler.Run(ctx)
	go companion.RunDecay(ctx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, api.Deps{
		Store:     store,
		Ingestor:  ingestor,
		Companion: companion,
		Tracker:   tracker,
		Metrics:   metrics,
		Logger:    logger,
	})

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Companion daemon started",
		zap.String("port", cfg.Port),
		zap.String("agent", cfg.AgentURL))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited")
	return nil
}

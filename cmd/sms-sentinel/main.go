package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/sms-spam-sentinel/internal/config"
	"github.com/mikey/sms-spam-sentinel/internal/core"
	"github.com/mikey/sms-spam-sentinel/internal/di"
	"github.com/mikey/sms-spam-sentinel/internal/ingest"
	"github.com/mikey/sms-spam-sentinel/internal/notify"
	"github.com/mikey/sms-spam-sentinel/internal/server"
	"go.uber.org/zap"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	coordinator *ingest.Coordinator,
	dispatcher *notify.Dispatcher,
	httpServer *server.Server,
	store core.MessageStore,
	llmClient core.LLMClient,
) error {
	defer logger.Sync()

	// Pick up anything left unclassified by a previous run, then sweep the
	// gateway backlog.
	ctx := context.Background()
	scanLimit := di.ScanLimit(cfg)

	if n, err := coordinator.ClassifyPending(ctx, scanLimit); err != nil {
		logger.Error("Failed to classify pending messages", zap.Error(err))
	} else if n > 0 {
		logger.Info("Classified messages pending from previous run", zap.Int("count", n))
	}

	if _, err := coordinator.ScanBacklog(ctx, scanLimit); err != nil {
		logger.Error("Initial backlog scan failed", zap.Error(err))
	}

	dispatcher.StartDrainLoop()
	httpServer.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	dispatcher.Stop()

	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

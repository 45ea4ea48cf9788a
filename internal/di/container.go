package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/sms-spam-sentinel/internal/adapters/notifychannel"
	"github.com/mikey/sms-spam-sentinel/internal/adapters/source"
	"github.com/mikey/sms-spam-sentinel/internal/config"
	"github.com/mikey/sms-spam-sentinel/internal/core"
	"github.com/mikey/sms-spam-sentinel/internal/factory"
	"github.com/mikey/sms-spam-sentinel/internal/ingest"
	"github.com/mikey/sms-spam-sentinel/internal/logging"
	"github.com/mikey/sms-spam-sentinel/internal/notify"
	"github.com/mikey/sms-spam-sentinel/internal/server"
	"github.com/mikey/sms-spam-sentinel/internal/textclass"
	"github.com/mikey/sms-spam-sentinel/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		config.New,
		logging.InitLogger,

		func(logger *zap.Logger) *utils.TextProcessor {
			return factory.NewTextProcessorFactory(logger).CreateTextProcessor()
		},

		factory.NewLLMFactory,
		factory.NewStoreFactory,

		func(f *factory.LLMFactory) (core.LLMClient, error) {
			return f.CreateLLMClient()
		},
		func(f *factory.StoreFactory) (core.MessageStore, error) {
			return f.CreateMessageStore()
		},

		func() *textclass.Scorer {
			return textclass.NewScorer()
		},

		func(cfg *config.Config, scorer *textclass.Scorer, llmClient core.LLMClient, logger *zap.Logger) (*core.ClassifierService, error) {
			timeout, err := cfg.GetDuration("llm.timeout")
			if err != nil {
				return nil, fmt.Errorf("invalid llm.timeout: %w", err)
			}
			return core.NewClassifierService(
				scorer,
				llmClient,
				logger,
				cfg.GetFloat64("spam.trust_threshold"),
				timeout,
			), nil
		},

		func(cfg *config.Config, logger *zap.Logger) (core.NotificationChannel, error) {
			notifyCfg := cfg.GetNotify()
			if !notifyCfg.Enabled || notifyCfg.WebhookURL == "" {
				logger.Info("Notification channel not configured, alerts suppressed")
				return nil, nil
			}
			timeout, err := cfg.GetDuration("notify.send_timeout")
			if err != nil {
				return nil, fmt.Errorf("invalid notify.send_timeout: %w", err)
			}
			return notifychannel.NewWebhookChannel(notifyCfg.WebhookURL, notifyCfg.AuthToken, timeout, logger), nil
		},

		func(cfg *config.Config, store core.MessageStore, channel core.NotificationChannel, textProc *utils.TextProcessor, logger *zap.Logger) (*notify.Dispatcher, error) {
			notifyCfg := cfg.GetNotify()
			sendDelay, err := cfg.GetDuration("notify.send_delay")
			if err != nil {
				return nil, fmt.Errorf("invalid notify.send_delay: %w", err)
			}
			drainFreq, err := cfg.GetDuration("notify.drain_frequency")
			if err != nil {
				return nil, fmt.Errorf("invalid notify.drain_frequency: %w", err)
			}
			return notify.NewDispatcher(store, channel, textProc, logger, notify.Options{
				MaxAttempts:    notifyCfg.MaxAttempts,
				QueueCapacity:  notifyCfg.QueueCapacity,
				SendDelay:      sendDelay,
				DrainFrequency: drainFreq,
				MaxBodyLen:     notifyCfg.MaxBodyLen,
				MaxReasonLen:   notifyCfg.MaxReasonLen,
			}), nil
		},

		func(cfg *config.Config, logger *zap.Logger) (core.MessageSource, error) {
			gatewayURL := cfg.GetString("source.gateway_url")
			if gatewayURL == "" {
				return nil, nil
			}
			timeout, err := cfg.GetDuration("source.timeout")
			if err != nil {
				return nil, fmt.Errorf("invalid source.timeout: %w", err)
			}
			return source.NewGatewaySource(gatewayURL, timeout, logger), nil
		},

		func(store core.MessageStore, src core.MessageSource, classifier *core.ClassifierService, dispatcher *notify.Dispatcher, logger *zap.Logger) *ingest.Coordinator {
			return ingest.NewCoordinator(store, src, classifier, dispatcher, logger)
		},

		func(cfg *config.Config, coordinator *ingest.Coordinator, store core.MessageStore, logger *zap.Logger) *server.Server {
			return server.NewServer(coordinator, store, logger, cfg.GetString("server.listen_address"))
		},
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}

// ScanLimit reads the configured backlog scan limit with a sane floor
func ScanLimit(cfg *config.Config) int {
	limit := cfg.GetInt("source.scan_limit")
	if limit <= 0 {
		limit = 100
	}
	return limit
}

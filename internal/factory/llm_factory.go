package factory

import (
	"fmt"

	"github.com/mikey/sms-spam-sentinel/internal/adapters/bedrock"
	"github.com/mikey/sms-spam-sentinel/internal/adapters/gemini"
	"github.com/mikey/sms-spam-sentinel/internal/adapters/openai"
	"github.com/mikey/sms-spam-sentinel/internal/config"
	"github.com/mikey/sms-spam-sentinel/internal/core"
	"github.com/mikey/sms-spam-sentinel/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates the configured AI adjudicator client
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates the adjudicator for the configured provider,
// wrapped with the shared rate limiter. Returns nil (and no error) when no
// provider is configured or its credentials are absent: adjudication is then
// simply skipped.
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmCfg := f.cfg.GetLLM()

	var (
		client core.LLMClient
		err    error
	)
	switch llmCfg.Provider {
	case "", "none":
		f.logger.Info("No LLM provider configured, classification is deterministic-only")
		return nil, nil
	case "openai":
		if f.cfg.GetOpenAI().APIKey == "" {
			f.logger.Warn("OpenAI API key missing, adjudication disabled")
			return nil, nil
		}
		client, err = openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	case "gemini":
		if f.cfg.GetGemini().APIKey == "" {
			f.logger.Warn("Gemini API key missing, adjudication disabled")
			return nil, nil
		}
		client, err = gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	case "bedrock":
		client, err = bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmCfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	gap, err := f.cfg.GetDuration("llm.rate_limit")
	if err != nil {
		return nil, fmt.Errorf("invalid llm.rate_limit: %w", err)
	}

	return core.NewRateLimitedClient(client, gap), nil
}

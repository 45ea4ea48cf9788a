package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mikey/sms-spam-sentinel/internal/config"
	"github.com/mikey/sms-spam-sentinel/internal/core"
	"github.com/mikey/sms-spam-sentinel/internal/factory"
	"github.com/mikey/sms-spam-sentinel/internal/logging"
	"github.com/mikey/sms-spam-sentinel/internal/textclass"
	"github.com/mikey/sms-spam-sentinel/internal/utils"
	"go.uber.org/zap"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "none", "LLM provider (none, openai, gemini, bedrock)")
	maxBodySize = flag.Int("max-body-size", 1024, "Maximum message size to send to the LLM")
	rateLimit   = flag.Duration("rate-limit", 2*time.Second, "Minimum gap between LLM calls")
	llmTimeout  = flag.Duration("llm-timeout", 5*time.Second, "Timeout for each LLM call")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4o-mini", "OpenAI model name")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Classification flags
	trustThreshold = flag.Float64("trust-threshold", 0.7, "Deterministic confidence below which the LLM adjudicates")

	// Input flags
	text      = flag.String("text", "", "Message text to classify (use -file or stdin if not set)")
	inputFile = flag.String("file", "", "Input file with the message text")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog   = flag.Bool("json-log", false, "Output logs in JSON format")
	exitCode  = flag.Bool("exit-code", false, "Exit 1 when the message is classified as spam")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	body, err := readInput()
	if err != nil {
		logger.Fatal("Failed to read message text", zap.Error(err))
	}
	if body == "" {
		logger.Fatal("No message text provided")
	}

	cfg := configFromFlags()

	textProcessor := utils.NewTextProcessor(logger)
	llmClient, err := factory.NewLLMFactory(cfg, logger, textProcessor).CreateLLMClient()
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	classifier := core.NewClassifierService(
		textclass.NewScorer(),
		llmClient,
		logger,
		*trustThreshold,
		*llmTimeout,
	)

	result := classifier.Classify(context.Background(), body)

	verdict := "HAM"
	if result.IsSpam {
		verdict = "SPAM"
	}
	fmt.Printf("Verdict:    %s\n", verdict)
	fmt.Printf("Confidence: %.0f%%\n", result.Confidence*100)
	fmt.Printf("Reason:     %s\n", result.Reason)

	if closer, ok := llmClient.(interface{ Close() error }); ok {
		closer.Close()
	}

	if *exitCode && result.IsSpam {
		os.Exit(1)
	}
}

// readInput takes the message text from -text, -file or stdin, in that order
func readInput() (string, error) {
	if *text != "" {
		return *text, nil
	}
	if *inputFile != "" {
		data, err := os.ReadFile(*inputFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// configFromFlags builds a configuration snapshot from command line flags
func configFromFlags() *config.Config {
	v := config.NewEmptyViper()
	v.Set("llm.provider", *provider)
	v.Set("llm.max_body_size", *maxBodySize)
	v.Set("llm.rate_limit", rateLimit.String())
	v.Set("llm.timeout", llmTimeout.String())
	v.Set("openai.api_key", *openaiAPIKey)
	v.Set("openai.model_name", *openaiModelName)
	v.Set("gemini.api_key", *geminiAPIKey)
	v.Set("gemini.model_name", *geminiModelName)
	v.Set("bedrock.region", *bedrockRegion)
	v.Set("bedrock.model_id", *bedrockModelID)
	v.Set("spam.trust_threshold", *trustThreshold)
	return config.NewFromViper(v)
}

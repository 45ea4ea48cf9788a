package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LocalScorer is the deterministic, network-free first pass
type LocalScorer interface {
	ScoreText(text string) *ClassificationResult
}

// ClassifierService fuses the deterministic scorer with the optional AI
// adjudicator into a single verdict. Classify never fails: every failure
// path degrades to a cheaper classifier.
type ClassifierService struct {
	scorer         LocalScorer
	llmClient      LLMClient
	logger         *zap.Logger
	trustThreshold float64
	llmTimeout     time.Duration
}

// NewClassifierService creates a new classifier service. llmClient may be nil,
// in which case classification is deterministic-only.
func NewClassifierService(
	scorer LocalScorer,
	llmClient LLMClient,
	logger *zap.Logger,
	trustThreshold float64,
	llmTimeout time.Duration,
) *ClassifierService {
	return &ClassifierService{
		scorer:         scorer,
		llmClient:      llmClient,
		logger:         logger,
		trustThreshold: trustThreshold,
		llmTimeout:     llmTimeout,
	}
}

// Classify runs the scorer first and, when the deterministic confidence is
// below the trust threshold, asks the adjudicator for a second opinion. A
// successful adjudication overrides the local score; any adjudication failure
// falls back to the keyword-ratio heuristic.
func (s *ClassifierService) Classify(ctx context.Context, text string) *ClassificationResult {
	local := s.scorer.ScoreText(text)

	if s.llmClient == nil || local.Confidence >= s.trustThreshold {
		return local
	}

	llmCtx := ctx
	if s.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, s.llmTimeout)
		defer cancel()
	}

	result, err := s.llmClient.AnalyzeText(llmCtx, text)
	if err != nil {
		s.logger.Warn("AI adjudication failed, using keyword fallback",
			zap.Error(err),
			zap.Float64("local_confidence", local.Confidence))
		return keywordFallback(text)
	}

	s.logger.Debug("AI adjudication overrode local score",
		zap.Bool("is_spam", result.IsSpam),
		zap.Float64("confidence", result.Confidence),
		zap.Float64("local_confidence", local.Confidence))

	return result
}

// Keyword fallback tunables. The confidence ceiling sits below anything the
// deterministic scorer can report for a clear-cut message, reflecting the
// fallback's lower trust.
const (
	fallbackSpamRatio      = 0.1
	fallbackConfidenceCap  = 0.6
	fallbackConfidenceBase = 0.3
)

var fallbackKeywords = map[string]struct{}{
	"free": {}, "win": {}, "winner": {}, "won": {}, "cash": {}, "prize": {},
	"urgent": {}, "offer": {}, "claim": {}, "click": {}, "congratulations": {},
	"lottery": {}, "guaranteed": {}, "limited": {}, "deal": {}, "discount": {},
	"expires": {}, "jackpot": {}, "reward": {}, "lucky": {},
}

// keywordFallback classifies by the fraction of tokens on a fixed spam
// keyword list. Used only when the adjudicator was needed but unavailable.
func keywordFallback(text string) *ClassificationResult {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return &ClassificationResult{
			IsSpam:     false,
			Confidence: fallbackConfidenceBase,
			Reason:     "keyword heuristic: empty message",
		}
	}

	hits := 0
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,!?:;\"'()")
		if _, ok := fallbackKeywords[tok]; ok {
			hits++
		}
	}

	ratio := float64(hits) / float64(len(tokens))
	isSpam := ratio > fallbackSpamRatio

	confidence := fallbackConfidenceBase + ratio
	if confidence > fallbackConfidenceCap {
		confidence = fallbackConfidenceCap
	}

	reason := "keyword heuristic: no significant spam vocabulary"
	if hits > 0 {
		reason = fmt.Sprintf("keyword heuristic: %d of %d token(s) on spam list", hits, len(tokens))
	}

	return &ClassificationResult{
		IsSpam:     isSpam,
		Confidence: confidence,
		Reason:     reason,
	}
}

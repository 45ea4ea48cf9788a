package textclass

import (
	"fmt"
	"strings"

	"github.com/mikey/sms-spam-sentinel/internal/core"
)

// Scoring weights. Spam indicators push the running score up from the neutral
// 0.5, legitimacy indicators pull it down; the score is clamped to [0,1].
const (
	weightPerSpamKeyword  = 0.08
	maxSpamKeywordBoost   = 0.30
	weightPhishing        = 0.12
	weightUrgency         = 0.10
	weightCapitals        = 0.10
	weightExclamations    = 0.08
	weightBareLink        = 0.10
	weightShortener       = 0.05
	weightOTP             = 0.35
	weightBanking         = 0.20
	weightMoneyWithBank   = 0.10
	weightPerLegitFamily  = 0.05
	urgencyThreshold      = 2.0
	capitalRatioThreshold = 0.40
	minLettersForCapitals = 10
	exclamationThreshold  = 3
)

// Scorer turns extracted features into a spam verdict without any I/O.
type Scorer struct{}

// NewScorer creates a deterministic scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ScoreText extracts features from text and scores them
func (s *Scorer) ScoreText(text string) *core.ClassificationResult {
	return s.Score(Extract(text))
}

// Score converts a feature set into a classification. Confidence grows
// linearly with the score's distance from the 0.5 decision boundary:
// |score-0.5|*2, so it is 0 at the boundary and approaches 1 at the extremes.
func (s *Scorer) Score(f Features) *core.ClassificationResult {
	score := 0.5
	var spamReasons, legitReasons []string

	keywordHits := f.PromoHits
	if keywordHits > 0 {
		boost := float64(keywordHits) * weightPerSpamKeyword
		if boost > maxSpamKeywordBoost {
			boost = maxSpamKeywordBoost
		}
		score += boost
		spamReasons = append(spamReasons, fmt.Sprintf("%d spam keyword(s)", keywordHits))
	}

	if f.PhishingHits > 0 {
		score += weightPhishing
		spamReasons = append(spamReasons, "phishing vocabulary")
	}

	if f.UrgencyScore >= urgencyThreshold {
		score += weightUrgency
		spamReasons = append(spamReasons, "urgent language")
	}

	if f.AlphaCount >= minLettersForCapitals && f.CapitalRatio > capitalRatioThreshold {
		score += weightCapitals
		spamReasons = append(spamReasons, "excessive capitalization")
	}

	if f.ExclamationCount >= exclamationThreshold {
		score += weightExclamations
		spamReasons = append(spamReasons, "excessive punctuation")
	}

	if f.HasURL && f.BankingHits == 0 {
		score += weightBareLink
		if f.HasShortener {
			score += weightShortener
		}
		spamReasons = append(spamReasons, "link without transactional context")
	}

	if f.HasOTPPattern {
		score -= weightOTP
		legitReasons = append(legitReasons, "OTP/verification code")
	}

	if f.BankingHits > 0 {
		score -= weightBanking
		legitReasons = append(legitReasons, "banking transaction")
		if f.MoneyMentions > 0 {
			score -= weightMoneyWithBank
		}
	}

	if f.DeliveryHits > 0 {
		legitReasons = append(legitReasons, "delivery/booking update")
	}

	score -= float64(f.LegitFamilies) * weightPerLegitFamily

	score = clamp01(score)

	isSpam := score > 0.5
	confidence := (score - 0.5) * 2
	if confidence < 0 {
		confidence = -confidence
	}

	return &core.ClassificationResult{
		IsSpam:     isSpam,
		Confidence: confidence,
		Reason:     buildReason(isSpam, spamReasons, legitReasons),
	}
}

func buildReason(isSpam bool, spamReasons, legitReasons []string) string {
	if isSpam && len(spamReasons) > 0 {
		return strings.Join(spamReasons, ", ")
	}
	if !isSpam && len(legitReasons) > 0 {
		return strings.Join(legitReasons, ", ")
	}
	if len(spamReasons) == 0 && len(legitReasons) == 0 {
		return "no strong spam or legitimacy indicators"
	}
	// Indicators fired but the other side won out on weight.
	all := append(append([]string{}, spamReasons...), legitReasons...)
	return "mixed signals: " + strings.Join(all, ", ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package textclass

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreNeutralIsPureHam(t *testing.T) {
	result := NewScorer().Score(Features{})

	assert.False(t, result.IsSpam)
	assert.Zero(t, result.Confidence)
	assert.NotEmpty(t, result.Reason)
}

func TestConfidenceIsBoundaryDistance(t *testing.T) {
	scorer := NewScorer()
	bodies := []string{
		"",
		"Hey, are we still on for lunch?",
		"Your OTP is 654321. Do not share. Valid for 10 min.",
		"URGENT! You won $1,000,000! Click here NOW!!!",
		"Rs.1500 debited from A/c XX1234. Available bal: Rs.5000",
		"FREE FREE FREE win a prize, guaranteed cashback, click here bit.ly/x!!!",
	}

	for _, body := range bodies {
		result := scorer.ScoreText(body)
		assert.GreaterOrEqual(t, result.Confidence, 0.0, body)
		assert.LessOrEqual(t, result.Confidence, 1.0, body)
		assert.NotEmpty(t, result.Reason, body)
	}
}

func TestScoreOTPMessageIsHam(t *testing.T) {
	result := NewScorer().ScoreText("Your OTP is 654321. Do not share. Valid for 10 min.")

	require.False(t, result.IsSpam)
	assert.GreaterOrEqual(t, result.Confidence, 0.7)
	assert.Contains(t, result.Reason, "OTP")
}

func TestScoreLotteryMessageIsSpam(t *testing.T) {
	result := NewScorer().ScoreText("URGENT! You won $1,000,000! Click here NOW!!!")

	require.True(t, result.IsSpam)
	assert.GreaterOrEqual(t, result.Confidence, 0.6)

	reason := strings.ToLower(result.Reason)
	assert.Contains(t, reason, "spam keyword")
	assert.Contains(t, reason, "urgent")
	assert.Contains(t, reason, "capitalization")
}

func TestScoreBankDebitIsHam(t *testing.T) {
	// Banking vocabulary dominates despite the money mentions.
	result := NewScorer().ScoreText("Rs.1500 debited from A/c XX1234. Available bal: Rs.5000")

	require.False(t, result.IsSpam)
	assert.Contains(t, result.Reason, "banking")
}

func TestScoreTieGoesToHam(t *testing.T) {
	// Nothing fires: score sits exactly on the 0.5 boundary.
	result := NewScorer().Score(Features{})
	assert.False(t, result.IsSpam)
}

func TestScoreClampsToUnitInterval(t *testing.T) {
	heavy := Features{
		PromoHits:        20,
		PhishingHits:     5,
		UrgencyScore:     10,
		CapitalRatio:     1,
		AlphaCount:       50,
		ExclamationCount: 10,
		HasURL:           true,
		HasShortener:     true,
	}
	result := NewScorer().Score(heavy)
	assert.True(t, result.IsSpam)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestScoreBareLinkCountsWithoutBankingContext(t *testing.T) {
	withBank := NewScorer().Score(Features{HasURL: true, BankingHits: 1})
	withoutBank := NewScorer().Score(Features{HasURL: true})

	assert.False(t, withBank.IsSpam)
	assert.True(t, withoutBank.IsSpam)
}

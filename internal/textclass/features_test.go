package textclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractNeutralText(t *testing.T) {
	f := Extract("Hey, are we still on for lunch tomorrow?")

	assert.False(t, f.HasURL)
	assert.False(t, f.HasShortener)
	assert.False(t, f.HasPhoneNumber)
	assert.Zero(t, f.MoneyMentions)
	assert.Zero(t, f.UrgencyScore)
	assert.False(t, f.HasOTPPattern)
	assert.Zero(t, f.BankingHits)
	assert.Zero(t, f.PromoHits)
	assert.Zero(t, f.PhishingHits)
	assert.Equal(t, 1, f.QuestionCount)
}

func TestExtractEmptyText(t *testing.T) {
	f := Extract("")
	assert.Equal(t, Features{}, f)
}

func TestExtractURLs(t *testing.T) {
	assert.True(t, Extract("Visit https://example.com for details").HasURL)
	assert.True(t, Extract("go to www.deals.com now").HasURL)
	assert.True(t, Extract("check offers.example.xyz").HasURL)

	f := Extract("click bit.ly/win123")
	assert.True(t, f.HasShortener)
}

func TestExtractPhoneNumber(t *testing.T) {
	assert.True(t, Extract("Call +91 98765 43210 today").HasPhoneNumber)
	assert.False(t, Extract("Your code is 1234").HasPhoneNumber)
}

func TestExtractMoneyMentions(t *testing.T) {
	assert.Equal(t, 2, Extract("Rs.1500 debited, balance Rs.5000").MoneyMentions)
	assert.Equal(t, 1, Extract("You won $1,000,000 cash").MoneyMentions)
	assert.Equal(t, 1, Extract("claim 50 lakh today").MoneyMentions)
	assert.Zero(t, Extract("see you at 5").MoneyMentions)
}

func TestExtractUrgency(t *testing.T) {
	f := Extract("URGENT! Act fast, offer expires now!!!")
	// Vocabulary hits plus a capped bonus for repeated exclamations.
	assert.GreaterOrEqual(t, f.UrgencyScore, 3.0)

	calm := Extract("see you whenever you like")
	assert.Zero(t, calm.UrgencyScore)
}

func TestExclamationBonusIsCapped(t *testing.T) {
	f := Extract("wow!!!!!!!!!!!!!!!!!!!!")
	assert.LessOrEqual(t, f.UrgencyScore, maxExclamationBonus)
}

func TestExtractOTP(t *testing.T) {
	assert.True(t, Extract("Your OTP is 654321. Do not share.").HasOTPPattern)
	assert.True(t, Extract("Use verification code 9981").HasOTPPattern)
	assert.False(t, Extract("lunch at noon?").HasOTPPattern)
}

func TestExtractBankingVocabulary(t *testing.T) {
	f := Extract("Rs.1500 debited from A/c XX1234. Available bal: Rs.5000")
	assert.GreaterOrEqual(t, f.BankingHits, 2)
	assert.Equal(t, 1, f.LegitFamilies)
}

func TestExtractDeliveryVocabulary(t *testing.T) {
	f := Extract("Your order has been shipped, tracking ABC123")
	assert.GreaterOrEqual(t, f.DeliveryHits, 2)
}

func TestCapitalRatioAlphabeticOnly(t *testing.T) {
	// Digits and punctuation must not dilute the ratio.
	f := Extract("ABC 123 !!! def")
	assert.InDelta(t, 0.5, f.CapitalRatio, 0.001)
	assert.Equal(t, 6, f.AlphaCount)
}

func TestFamiliesAreIndependent(t *testing.T) {
	// A message can trip spam and legitimacy families at once.
	f := Extract("URGENT: Rs.5000 credited, verify your account at bit.ly/x")
	assert.Positive(t, f.BankingHits)
	assert.Positive(t, f.PhishingHits)
	assert.True(t, f.HasShortener)
}

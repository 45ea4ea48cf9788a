package textclass

import (
	"regexp"
	"strings"
	"unicode"
)

// Polarity tags a pattern family as a spam or a legitimacy indicator
type Polarity int

const (
	PolaritySpam Polarity = iota
	PolarityLegit
)

// PatternFamily is one named group of related indicators. New families can be
// added to the list below without touching the scoring algorithm.
type PatternFamily struct {
	Family   string
	Pattern  *regexp.Regexp
	Polarity Polarity
}

const (
	familyURL       = "url"
	familyShortener = "shortener"
	familyPhone     = "phone"
	familyMoney     = "money"
	familyUrgency   = "urgency"
	familyPromo     = "promo"
	familyPhishing  = "phishing"
	familyOTP       = "otp"
	familyBanking   = "banking"
	familyDelivery  = "delivery"
)

var patternFamilies = []PatternFamily{
	{
		Family:   familyURL,
		Pattern:  regexp.MustCompile(`(?i)(?:https?://|www\.)\S+|\b[a-z0-9][a-z0-9-]*\.(?:com|net|org|in|io|co|me|info|xyz|ly)\b`),
		Polarity: PolaritySpam,
	},
	{
		Family:   familyShortener,
		Pattern:  regexp.MustCompile(`(?i)\b(?:bit\.ly|tinyurl\.com|goo\.gl|t\.co|ow\.ly|is\.gd|rb\.gy|cutt\.ly|tiny\.cc)\b`),
		Polarity: PolaritySpam,
	},
	{
		Family:   familyPhone,
		Pattern:  regexp.MustCompile(`\+?\d[\d\s().-]{8,}\d`),
		Polarity: PolaritySpam,
	},
	{
		Family:   familyMoney,
		Pattern:  regexp.MustCompile(`(?i)(?:[$€£₹]|\brs\.?|\binr\b|\busd\b)\s*[\d,]+(?:\.\d+)?|\b\d[\d,]*\s*(?:rupees|dollars|lakh|crore|million|billion)\b`),
		Polarity: PolaritySpam,
	},
	{
		Family:   familyUrgency,
		Pattern:  regexp.MustCompile(`(?i)\b(?:urgent(?:ly)?|immediately|hurry|asap|now|today only|last chance|limited time|act fast|expir(?:es?|ing|ed)|final notice|don'?t miss)\b`),
		Polarity: PolaritySpam,
	},
	{
		Family:   familyPromo,
		Pattern:  regexp.MustCompile(`(?i)\b(?:congratulations?|winner|won|free|prize|lottery|jackpot|claim|cashback|guaranteed|selected|lucky draw|bonus|exclusive offer|special offer|discount|click here|buy now|subscribe)\b`),
		Polarity: PolaritySpam,
	},
	{
		Family:   familyPhishing,
		Pattern:  regexp.MustCompile(`(?i)\b(?:verify your|confirm your|update your|suspended|blocked|deactivated|re-?activate|kyc|password expired|unusual activity|click to unblock)\b`),
		Polarity: PolaritySpam,
	},
	{
		Family:   familyOTP,
		Pattern:  regexp.MustCompile(`(?i)\b(?:otp|one[- ]time password|verification code|security code|passcode|2fa code)\b`),
		Polarity: PolarityLegit,
	},
	{
		Family:   familyBanking,
		Pattern:  regexp.MustCompile(`(?i)\b(?:debited|credited|withdrawn|deposited|a/c|acct|account no|balance|bal|txn|transaction|upi|neft|imps|rtgs|atm|statement|emi)\b`),
		Polarity: PolarityLegit,
	},
	{
		Family:   familyDelivery,
		Pattern:  regexp.MustCompile(`(?i)\b(?:delivered|delivery|shipped|out for delivery|tracking|courier|order(?:ed)?|booking|pnr|flight|ticket|arriving|reservation)\b`),
		Polarity: PolarityLegit,
	},
}

// Features is the set of linguistic signals extracted from a message body.
// Ratios are in [0,1], counts are non-negative. Features are orthogonal:
// every family is evaluated independently.
type Features struct {
	HasURL           bool
	HasShortener     bool
	HasPhoneNumber   bool
	MoneyMentions    int
	UrgencyScore     float64
	CapitalRatio     float64
	ExclamationCount int
	QuestionCount    int
	AlphaCount       int
	HasOTPPattern    bool
	BankingHits      int
	DeliveryHits     int
	PromoHits        int
	PhishingHits     int
	LegitFamilies    int
}

// Extra exclamation marks beyond the first add to the urgency score, capped
// so punctuation abuse alone cannot dominate the vocabulary signal.
const maxExclamationBonus = 2.0

// Extract computes the feature set for a message body. It is pure and never
// fails: text that matches nothing yields zero-valued features.
func Extract(text string) Features {
	var f Features

	hits := make(map[string]int, len(patternFamilies))
	for _, fam := range patternFamilies {
		n := len(fam.Pattern.FindAllString(text, -1))
		hits[fam.Family] = n
		if n > 0 && fam.Polarity == PolarityLegit {
			f.LegitFamilies++
		}
	}

	f.HasURL = hits[familyURL] > 0
	f.HasShortener = hits[familyShortener] > 0
	f.HasPhoneNumber = hits[familyPhone] > 0
	f.MoneyMentions = hits[familyMoney]
	f.HasOTPPattern = hits[familyOTP] > 0
	f.BankingHits = hits[familyBanking]
	f.DeliveryHits = hits[familyDelivery]
	f.PromoHits = hits[familyPromo]
	f.PhishingHits = hits[familyPhishing]

	f.ExclamationCount = strings.Count(text, "!")
	f.QuestionCount = strings.Count(text, "?")

	bonus := 0.0
	if f.ExclamationCount > 1 {
		bonus = float64(f.ExclamationCount-1) * 0.5
		if bonus > maxExclamationBonus {
			bonus = maxExclamationBonus
		}
	}
	f.UrgencyScore = float64(hits[familyUrgency]) + bonus

	f.AlphaCount, f.CapitalRatio = capitalRatio(text)

	return f
}

// capitalRatio is the share of upper-case letters among alphabetic runes only,
// so digits and punctuation do not dilute the signal.
func capitalRatio(text string) (int, float64) {
	letters, uppers := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters == 0 {
		return 0, 0
	}
	return letters, float64(uppers) / float64(letters)
}

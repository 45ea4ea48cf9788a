// Package llmjson extracts and validates the JSON verdict that LLM providers
// are instructed to return. Providers sometimes wrap the object in prose, so
// parsing scans for the outermost braces before unmarshalling.
package llmjson

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mikey/sms-spam-sentinel/internal/core"
)

type rawVerdict struct {
	IsSpam     *bool    `json:"is_spam"`
	Confidence *float64 `json:"confidence"`
	Reason     *string  `json:"reason"`
}

// ParseVerdict extracts a {is_spam, confidence, reason} object from raw model
// output. Any missing field, malformed JSON or non-finite confidence is an
// error; the caller is expected to fall back, not retry.
func ParseVerdict(responseText string) (*core.ClassificationResult, error) {
	jsonStr, err := extractJSON(responseText)
	if err != nil {
		return nil, err
	}

	var v rawVerdict
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}

	if v.IsSpam == nil {
		return nil, fmt.Errorf("LLM response missing is_spam field")
	}
	if v.Confidence == nil {
		return nil, fmt.Errorf("LLM response missing confidence field")
	}
	if math.IsNaN(*v.Confidence) || math.IsInf(*v.Confidence, 0) {
		return nil, fmt.Errorf("LLM response confidence is not finite")
	}

	confidence := *v.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	reason := ""
	if v.Reason != nil {
		reason = strings.TrimSpace(*v.Reason)
	}
	if reason == "" {
		reason = "no explanation provided by model"
	}

	return &core.ClassificationResult{
		IsSpam:     *v.IsSpam,
		Confidence: confidence,
		Reason:     reason,
	}, nil
}

// extractJSON returns the substring between the first '{' and the last '}'
func extractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object found in LLM response")
	}
	return text[start : end+1], nil
}

package core

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps an LLMClient with a minimum inter-call gap. The
// limiter is the single shared cursor serializing adjudication calls; a
// burst of one means every call waits its turn.
type RateLimitedClient struct {
	inner   LLMClient
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps inner so that consecutive calls are spaced at
// least gap apart. A non-positive gap disables limiting.
func NewRateLimitedClient(inner LLMClient, gap time.Duration) *RateLimitedClient {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if gap > 0 {
		limiter = rate.NewLimiter(rate.Every(gap), 1)
	}
	return &RateLimitedClient{inner: inner, limiter: limiter}
}

// AnalyzeText waits for the rate limiter before delegating to the wrapped
// client. Context cancellation during the wait aborts the call.
func (c *RateLimitedClient) AnalyzeText(ctx context.Context, text string) (*ClassificationResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.inner.AnalyzeText(ctx, text)
}

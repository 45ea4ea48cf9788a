// Package notifychannel delivers spam alerts to an external webhook endpoint.
package notifychannel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mikey/sms-spam-sentinel/internal/core"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// WebhookChannel posts alert payloads to an HTTP endpoint. Sends run through
// a circuit breaker so a dead endpoint fails fast instead of burning the full
// timeout on every queued entry.
type WebhookChannel struct {
	url       string
	authToken string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// ackResponse is the expected acknowledgment shape. Delivery only counts as
// a success when the endpoint explicitly acknowledges it.
type ackResponse struct {
	Ack bool `json:"ack"`
}

// NewWebhookChannel creates a webhook channel. timeout bounds each send.
func NewWebhookChannel(url, authToken string, timeout time.Duration, logger *zap.Logger) *WebhookChannel {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "notify-webhook",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Webhook circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &WebhookChannel{
		url:       url,
		authToken: authToken,
		client:    &http.Client{Timeout: timeout},
		breaker:   breaker,
		logger:    logger,
	}
}

// Send delivers a formatted alert. A nil error means the endpoint
// acknowledged delivery.
func (c *WebhookChannel) Send(ctx context.Context, payload string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.post(ctx, payload)
	})
	return err
}

func (c *WebhookChannel) post(ctx context.Context, payload string) error {
	body, err := json.Marshal(map[string]string{"text": payload})
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert endpoint returned status %d", resp.StatusCode)
	}

	var ack ackResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("failed to decode acknowledgment: %w", err)
	}
	if !ack.Ack {
		return fmt.Errorf("alert endpoint did not acknowledge delivery")
	}

	return nil
}

var _ core.NotificationChannel = (*WebhookChannel)(nil)

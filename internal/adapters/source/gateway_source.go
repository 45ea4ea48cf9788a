// Package source polls an SMS gateway's REST API for historical messages.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mikey/sms-spam-sentinel/internal/core"
	"go.uber.org/zap"
)

// GatewaySource implements the MessageSource interface against an SMS
// gateway exposing GET {base}/messages?limit=N.
type GatewaySource struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

type gatewayMessage struct {
	ID          string `json:"id"`
	Sender      string `json:"sender"`
	Body        string `json:"body"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// NewGatewaySource creates a source backed by the gateway at baseURL
func NewGatewaySource(baseURL string, timeout time.Duration, logger *zap.Logger) *GatewaySource {
	return &GatewaySource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Messages returns up to limit historical messages from the gateway
func (s *GatewaySource) Messages(ctx context.Context, limit int) ([]*core.IncomingMessage, error) {
	url := fmt.Sprintf("%s/messages?limit=%d", s.baseURL, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var raw []gatewayMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	messages := make([]*core.IncomingMessage, 0, len(raw))
	for _, m := range raw {
		messages = append(messages, &core.IncomingMessage{
			ID:        m.ID,
			Sender:    m.Sender,
			Body:      m.Body,
			Timestamp: time.UnixMilli(m.TimestampMs),
		})
	}

	s.logger.Debug("Fetched gateway backlog", zap.Int("count", len(messages)))

	return messages, nil
}

var _ core.MessageSource = (*GatewaySource)(nil)

// Package ingest accepts messages into the pipeline: persist, classify,
// persist the verdict, notify.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/sms-spam-sentinel/internal/core"
	"go.uber.org/zap"
)

// EventKind distinguishes coordinator events
type EventKind string

const (
	// EventStored fires after a message is durably inserted
	EventStored EventKind = "stored"
	// EventUpdated fires after a verdict is persisted
	EventUpdated EventKind = "updated"
)

// Event is delivered to subscribers as messages move through the pipeline
type Event struct {
	Kind    EventKind
	Message *core.Message
}

// Classifier is the classification entry point the coordinator drives
type Classifier interface {
	Classify(ctx context.Context, text string) *core.ClassificationResult
}

// Notifier delivers spam alerts
type Notifier interface {
	NotifySpam(ctx context.Context, msg *core.Message) bool
}

// Coordinator runs the store -> classify -> notify sequence for each message.
// Storage is never rolled back: a message that fails classification or
// notification stays stored with whatever verdict was last computed.
type Coordinator struct {
	store      core.MessageStore
	source     core.MessageSource
	classifier Classifier
	notifier   Notifier
	logger     *zap.Logger

	mu          sync.RWMutex
	subscribers []func(Event)
}

// NewCoordinator creates an ingestion coordinator. source may be nil when no
// gateway is configured; ScanBacklog is then a no-op.
func NewCoordinator(
	store core.MessageStore,
	source core.MessageSource,
	classifier Classifier,
	notifier Notifier,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		store:      store,
		source:     source,
		classifier: classifier,
		notifier:   notifier,
		logger:     logger,
	}
}

// Subscribe registers a callback for pipeline events
func (c *Coordinator) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Coordinator) emit(ev Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, fn := range c.subscribers {
		fn(ev)
	}
}

// OnNewMessage accepts a freshly arrived message: assign an id, persist as
// unclassified, classify, persist the verdict, notify on spam. Only a
// persistence failure is returned as an error.
func (c *Coordinator) OnNewMessage(ctx context.Context, sender, body string, arrivedAt time.Time) (*core.Message, error) {
	msg := &core.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Body:      body,
		ArrivedAt: arrivedAt,
		Verdict:   core.VerdictUnclassified,
	}
	return msg, c.process(ctx, msg)
}

// ScanBacklog pulls up to limit messages from the message source, skipping
// ids already stored, and runs the full pipeline on the rest. A per-message
// failure is logged and the scan continues. Returns the count of newly
// processed messages.
func (c *Coordinator) ScanBacklog(ctx context.Context, limit int) (int, error) {
	if c.source == nil {
		c.logger.Debug("No message source configured, skipping backlog scan")
		return 0, nil
	}

	incoming, err := c.source.Messages(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch backlog: %w", err)
	}

	processed := 0
	for _, in := range incoming {
		msg := &core.Message{
			ID:        in.ID,
			Sender:    in.Sender,
			Body:      in.Body,
			ArrivedAt: in.Timestamp,
			Verdict:   core.VerdictUnclassified,
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}

		err := c.process(ctx, msg)
		if errors.Is(err, core.ErrDuplicate) {
			continue
		}
		if err != nil {
			c.logger.Error("Backlog item failed, continuing",
				zap.Error(err),
				zap.String("message_id", msg.ID))
			continue
		}
		processed++
	}

	c.logger.Info("Backlog scan complete",
		zap.Int("fetched", len(incoming)),
		zap.Int("processed", processed))

	return processed, nil
}

// ClassifyPending classifies up to limit stored messages that are still
// unclassified, e.g. left over from a run interrupted mid-pipeline.
func (c *Coordinator) ClassifyPending(ctx context.Context, limit int) (int, error) {
	pending, err := c.store.ListUnclassified(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unclassified messages: %w", err)
	}

	processed := 0
	for _, msg := range pending {
		if err := c.classifyAndFinish(ctx, msg); err != nil {
			c.logger.Error("Pending message failed, continuing",
				zap.Error(err),
				zap.String("message_id", msg.ID))
			continue
		}
		processed++
	}
	return processed, nil
}

// process inserts a message and runs the rest of the pipeline. Insertion of
// an already-stored id returns ErrDuplicate untouched.
func (c *Coordinator) process(ctx context.Context, msg *core.Message) error {
	if err := c.store.Insert(ctx, msg); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			return err
		}
		return fmt.Errorf("failed to store message: %w", err)
	}
	c.emit(Event{Kind: EventStored, Message: msg})

	return c.classifyAndFinish(ctx, msg)
}

// classifyAndFinish runs classify -> persist verdict -> notify for a stored
// message
func (c *Coordinator) classifyAndFinish(ctx context.Context, msg *core.Message) error {
	result := c.classifier.Classify(ctx, msg.Body)

	if err := c.store.UpdateVerdict(ctx, msg.ID, result.IsSpam, result.Confidence, result.Reason); err != nil {
		return fmt.Errorf("failed to persist verdict: %w", err)
	}

	msg.Verdict = core.VerdictHam
	if result.IsSpam {
		msg.Verdict = core.VerdictSpam
	}
	msg.Confidence = result.Confidence
	msg.Reason = result.Reason
	msg.ClassifiedAt = time.Now()

	c.emit(Event{Kind: EventUpdated, Message: msg})

	c.logger.Info("Message classified",
		zap.String("message_id", msg.ID),
		zap.String("verdict", string(msg.Verdict)),
		zap.Float64("confidence", msg.Confidence))

	if result.IsSpam && c.notifier != nil {
		c.notifier.NotifySpam(ctx, msg)
	}
	return nil
}

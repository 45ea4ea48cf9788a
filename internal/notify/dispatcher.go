// Package notify formats and delivers spam alerts, queueing failed sends for
// bounded retry.
package notify

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/sms-spam-sentinel/internal/core"
	"github.com/mikey/sms-spam-sentinel/internal/utils"
	"go.uber.org/zap"
)

// Options are the dispatcher tunables
type Options struct {
	MaxAttempts    int
	QueueCapacity  int
	SendDelay      time.Duration
	DrainFrequency time.Duration
	MaxBodyLen     int
	MaxReasonLen   int
}

// DrainStats reports the outcome of one queue drain
type DrainStats struct {
	// Processed is the number of entries delivered successfully
	Processed int
	// Failed is the number of entries dropped after exhausting retries
	Failed int
}

// Dispatcher owns the notification retry queue. NotifySpam never fails
// outward: a failed send becomes a queue entry, and the queue is drained in
// FIFO order with paced sends and a bounded attempt count per entry.
type Dispatcher struct {
	store    core.MessageStore
	channel  core.NotificationChannel
	textProc *utils.TextProcessor
	logger   *zap.Logger
	opts     Options

	draining atomic.Bool
	stopCh   chan struct{}
}

// NewDispatcher creates a notification dispatcher. channel may be nil, in
// which case notifications are suppressed entirely.
func NewDispatcher(
	store core.MessageStore,
	channel core.NotificationChannel,
	textProc *utils.TextProcessor,
	logger *zap.Logger,
	opts Options,
) *Dispatcher {
	return &Dispatcher{
		store:    store,
		channel:  channel,
		textProc: textProc,
		logger:   logger,
		opts:     opts,
		stopCh:   make(chan struct{}),
	}
}

// NotifySpam sends an alert for a spam verdict. Returns true only when the
// channel acknowledged delivery; on failure the alert is queued for retry.
func (d *Dispatcher) NotifySpam(ctx context.Context, msg *core.Message) bool {
	if d.channel == nil {
		return false
	}

	payload := d.formatAlert(msg.Sender, msg.Body, msg.ArrivedAt, msg.Confidence, msg.Reason)

	if err := d.channel.Send(ctx, payload); err != nil {
		d.logger.Warn("Alert send failed, queueing for retry",
			zap.Error(err),
			zap.String("message_id", msg.ID))
		d.enqueue(ctx, msg)
		return false
	}

	d.logger.Info("Spam alert delivered", zap.String("message_id", msg.ID))
	return true
}

// enqueue adds a retry entry, evicting the oldest entry when the queue is at
// capacity
func (d *Dispatcher) enqueue(ctx context.Context, msg *core.Message) {
	size, err := d.store.QueueSize(ctx)
	if err != nil {
		d.logger.Error("Failed to read queue size", zap.Error(err))
	} else if size >= d.opts.QueueCapacity {
		oldest, err := d.store.OldestQueued(ctx)
		if err == nil {
			if err := d.store.RemoveFromQueue(ctx, oldest.ID); err != nil {
				d.logger.Error("Failed to evict oldest queue entry", zap.Error(err))
			} else {
				d.logger.Warn("Notification queue full, evicted oldest entry",
					zap.String("evicted_message_id", oldest.MessageID))
			}
		}
	}

	entry := &core.QueueEntry{
		ID:        uuid.NewString(),
		MessageID: msg.ID,
		Sender:    msg.Sender,
		Body:      msg.Body,
		Timestamp: msg.ArrivedAt,
		Attempts:  0,
	}
	if err := d.store.EnqueueNotification(ctx, entry); err != nil {
		d.logger.Error("Failed to enqueue notification", zap.Error(err),
			zap.String("message_id", msg.ID))
	}
}

// DrainQueue processes all currently-queued entries in FIFO order. A
// concurrent call while a drain is running is a no-op returning zero stats,
// so the same entry is never sent twice.
func (d *Dispatcher) DrainQueue(ctx context.Context) DrainStats {
	if d.channel == nil {
		return DrainStats{}
	}
	if !d.draining.CompareAndSwap(false, true) {
		d.logger.Debug("Drain already in progress, skipping")
		return DrainStats{}
	}
	defer d.draining.Store(false)

	entries, err := d.store.ListQueue(ctx, d.opts.MaxAttempts)
	if err != nil {
		d.logger.Error("Failed to list notification queue", zap.Error(err))
		return DrainStats{}
	}

	var stats DrainStats
	for i, entry := range entries {
		if i > 0 && d.opts.SendDelay > 0 {
			select {
			case <-time.After(d.opts.SendDelay):
			case <-ctx.Done():
				return stats
			}
		}

		if err := d.channel.Send(ctx, d.entryAlert(ctx, entry)); err != nil {
			d.retryOrDrop(ctx, entry, err, &stats)
			continue
		}

		if err := d.store.RemoveFromQueue(ctx, entry.ID); err != nil {
			d.logger.Error("Failed to remove delivered queue entry", zap.Error(err))
		}
		stats.Processed++
	}

	if stats.Processed > 0 || stats.Failed > 0 {
		d.logger.Info("Notification queue drained",
			zap.Int("processed", stats.Processed),
			zap.Int("failed", stats.Failed))
	}
	return stats
}

// retryOrDrop increments the attempt counter and drops the entry once the
// maximum attempt count is reached. Dropped entries count as failed exactly
// once.
func (d *Dispatcher) retryOrDrop(ctx context.Context, entry *core.QueueEntry, sendErr error, stats *DrainStats) {
	if err := d.store.IncrementAttempt(ctx, entry.ID); err != nil {
		d.logger.Error("Failed to increment attempt count", zap.Error(err))
		return
	}

	if entry.Attempts+1 >= d.opts.MaxAttempts {
		if err := d.store.RemoveFromQueue(ctx, entry.ID); err != nil {
			d.logger.Error("Failed to drop exhausted queue entry", zap.Error(err))
			return
		}
		stats.Failed++
		d.logger.Warn("Dropped notification after exhausting retries",
			zap.Error(sendErr),
			zap.String("message_id", entry.MessageID),
			zap.Int("attempts", entry.Attempts+1))
		return
	}

	d.logger.Debug("Notification retry failed, re-queued",
		zap.Error(sendErr),
		zap.String("message_id", entry.MessageID),
		zap.Int("attempts", entry.Attempts+1))
}

// entryAlert rebuilds the alert payload for a queued entry. The stored
// message supplies confidence and reason when it is still available.
func (d *Dispatcher) entryAlert(ctx context.Context, entry *core.QueueEntry) string {
	confidence, reason := 0.0, "spam detected"
	if msg, err := d.store.Get(ctx, entry.MessageID); err == nil {
		confidence, reason = msg.Confidence, msg.Reason
	}
	return d.formatAlert(entry.Sender, entry.Body, entry.Timestamp, confidence, reason)
}

// formatAlert renders the bounded-length alert text. Body and reason are
// truncated independently.
func (d *Dispatcher) formatAlert(sender, body string, ts time.Time, confidence float64, reason string) string {
	return fmt.Sprintf("Spam alert\nFrom: %s\nTime: %s\nConfidence: %.0f%%\nReason: %s\nMessage: %s",
		sender,
		ts.Format(time.RFC3339),
		confidence*100,
		d.textProc.Truncate(reason, d.opts.MaxReasonLen),
		d.textProc.Truncate(body, d.opts.MaxBodyLen),
	)
}

// StartDrainLoop drains the queue on a fixed interval until Stop is called
func (d *Dispatcher) StartDrainLoop() {
	if d.channel == nil || d.opts.DrainFrequency <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(d.opts.DrainFrequency)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.DrainQueue(context.Background())
			case <-d.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the background drain loop
func (d *Dispatcher) Stop() {
	close(d.stopCh)
}

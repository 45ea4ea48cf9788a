package core

import (
	"context"
)

// LLMClient defines the interface for the external AI adjudication service
type LLMClient interface {
	// AnalyzeText asks the model whether the given message text is spam
	AnalyzeText(ctx context.Context, text string) (*ClassificationResult, error)
}

// MessageStore defines the interface for durable message and queue persistence
type MessageStore interface {
	// Insert stores a new message. Returns ErrDuplicate if the id exists.
	Insert(ctx context.Context, msg *Message) error

	// UpdateVerdict overwrites the classification of a stored message
	UpdateVerdict(ctx context.Context, id string, isSpam bool, confidence float64, reason string) error

	// Get retrieves a message by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Message, error)

	// ListUnclassified returns up to limit messages still awaiting a verdict
	ListUnclassified(ctx context.Context, limit int) ([]*Message, error)

	// EnqueueNotification appends a retry entry to the notification queue
	EnqueueNotification(ctx context.Context, entry *QueueEntry) error

	// ListQueue returns queued entries with fewer than maxAttempts attempts,
	// oldest first
	ListQueue(ctx context.Context, maxAttempts int) ([]*QueueEntry, error)

	// QueueSize returns the number of queued entries
	QueueSize(ctx context.Context) (int, error)

	// OldestQueued returns the oldest queued entry, or ErrNotFound
	OldestQueued(ctx context.Context) (*QueueEntry, error)

	// IncrementAttempt bumps the attempt counter and stamps the attempt time
	IncrementAttempt(ctx context.Context, queueID string) error

	// RemoveFromQueue deletes a queue entry
	RemoveFromQueue(ctx context.Context, queueID string) error
}

// MessageSource defines the interface to the external component that holds
// past messages (e.g. an SMS gateway's inbox)
type MessageSource interface {
	// Messages returns up to limit historical messages, newest first
	Messages(ctx context.Context, limit int) ([]*IncomingMessage, error)
}

// NotificationChannel defines the interface for the external alert channel
type NotificationChannel interface {
	// Send delivers a formatted alert. A nil error means the channel
	// explicitly acknowledged delivery.
	Send(ctx context.Context, payload string) error
}

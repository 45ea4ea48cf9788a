package core

import (
	"time"
)

// Verdict is the classification state of a message
type Verdict string

const (
	VerdictUnclassified Verdict = "unclassified"
	VerdictSpam         Verdict = "spam"
	VerdictHam          Verdict = "ham"
)

// Message represents a single SMS message as it moves through the pipeline
type Message struct {
	ID           string
	Sender       string
	Body         string
	ArrivedAt    time.Time
	Verdict      Verdict
	Confidence   float64
	Reason       string
	ClassifiedAt time.Time
}

// ClassificationResult represents the outcome of a classification pass
type ClassificationResult struct {
	IsSpam     bool
	Confidence float64
	Reason     string
}

// QueueEntry is a spam alert waiting to be retried after a failed send.
// Entries are owned exclusively by the notification dispatcher.
type QueueEntry struct {
	ID          string
	MessageID   string
	Sender      string
	Body        string
	Timestamp   time.Time
	Attempts    int
	LastAttempt time.Time
}

// IncomingMessage is a message as reported by the external message source,
// before it has been accepted into the store.
type IncomingMessage struct {
	ID        string
	Sender    string
	Body      string
	Timestamp time.Time
}

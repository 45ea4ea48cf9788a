package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mikey/sms-spam-sentinel/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the MessageStore interface,
// used for tests and single-run setups that need no durability.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]*core.Message
	queue    []*core.QueueEntry
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		messages: make(map[string]*core.Message),
		logger:   logger,
	}
}

// Insert stores a new message. Returns ErrDuplicate if the id exists.
func (s *MemoryStore) Insert(ctx context.Context, msg *core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[msg.ID]; ok {
		return core.ErrDuplicate
	}

	stored := *msg
	s.messages[msg.ID] = &stored
	return nil
}

// UpdateVerdict overwrites the classification of a stored message
func (s *MemoryStore) UpdateVerdict(ctx context.Context, id string, isSpam bool, confidence float64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return core.ErrNotFound
	}

	msg.Verdict = core.VerdictHam
	if isSpam {
		msg.Verdict = core.VerdictSpam
	}
	msg.Confidence = confidence
	msg.Reason = reason
	msg.ClassifiedAt = time.Now()
	return nil
}

// Get retrieves a message by id
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, core.ErrNotFound
	}

	copied := *msg
	return &copied, nil
}

// ListUnclassified returns up to limit messages still awaiting a verdict,
// oldest arrival first
func (s *MemoryStore) ListUnclassified(ctx context.Context, limit int) ([]*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*core.Message
	for _, msg := range s.messages {
		if msg.Verdict == core.VerdictUnclassified {
			copied := *msg
			pending = append(pending, &copied)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].ArrivedAt.Before(pending[j].ArrivedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// EnqueueNotification appends a retry entry to the notification queue
func (s *MemoryStore) EnqueueNotification(ctx context.Context, entry *core.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	s.queue = append(s.queue, &stored)
	return nil
}

// ListQueue returns queued entries with fewer than maxAttempts attempts, FIFO
func (s *MemoryStore) ListQueue(ctx context.Context, maxAttempts int) ([]*core.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.QueueEntry
	for _, entry := range s.queue {
		if entry.Attempts < maxAttempts {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out, nil
}

// QueueSize returns the number of queued entries
func (s *MemoryStore) QueueSize(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queue), nil
}

// OldestQueued returns the oldest queued entry
func (s *MemoryStore) OldestQueued(ctx context.Context) (*core.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.queue) == 0 {
		return nil, core.ErrNotFound
	}
	copied := *s.queue[0]
	return &copied, nil
}

// IncrementAttempt bumps the attempt counter and stamps the attempt time
func (s *MemoryStore) IncrementAttempt(ctx context.Context, queueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.queue {
		if entry.ID == queueID {
			entry.Attempts++
			entry.LastAttempt = time.Now()
			return nil
		}
	}
	return core.ErrNotFound
}

// RemoveFromQueue deletes a queue entry
func (s *MemoryStore) RemoveFromQueue(ctx context.Context, queueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.queue {
		if entry.ID == queueID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

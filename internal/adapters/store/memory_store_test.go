package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/sms-spam-sentinel/internal/core"
)

func newMessage(id string, arrivedAt time.Time) *core.Message {
	return &core.Message{
		ID:        id,
		Sender:    "Mom",
		Body:      "call me",
		ArrivedAt: arrivedAt,
		Verdict:   core.VerdictUnclassified,
	}
}

func TestMemoryStoreInsertAndGet(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	msg := newMessage("m1", time.Now())
	require.NoError(t, s.Insert(ctx, msg))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Mom", got.Sender)
	assert.Equal(t, core.VerdictUnclassified, got.Verdict)

	// Mutating the caller's copy must not leak into the store.
	msg.Sender = "changed"
	got, err = s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Mom", got.Sender)
}

func TestMemoryStoreInsertDuplicate(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newMessage("m1", time.Now())))
	err := s.Insert(ctx, newMessage("m1", time.Now()))
	assert.ErrorIs(t, err, core.ErrDuplicate)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStoreUpdateVerdict(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newMessage("m1", time.Now())))
	require.NoError(t, s.UpdateVerdict(ctx, "m1", true, 0.9, "promo vocabulary"))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, core.VerdictSpam, got.Verdict)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, "promo vocabulary", got.Reason)
	assert.False(t, got.ClassifiedAt.IsZero())

	err = s.UpdateVerdict(ctx, "missing", false, 0.5, "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStoreListUnclassifiedOrdering(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.Insert(ctx, newMessage("newer", base.Add(time.Minute))))
	require.NoError(t, s.Insert(ctx, newMessage("older", base)))
	require.NoError(t, s.Insert(ctx, newMessage("classified", base.Add(-time.Minute))))
	require.NoError(t, s.UpdateVerdict(ctx, "classified", false, 0.8, "ok"))

	pending, err := s.ListUnclassified(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "older", pending[0].ID)
	assert.Equal(t, "newer", pending[1].ID)

	limited, err := s.ListUnclassified(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "older", limited[0].ID)
}

func queueEntry(id, messageID string) *core.QueueEntry {
	return &core.QueueEntry{
		ID:        id,
		MessageID: messageID,
		Sender:    "VK-PROMO",
		Body:      "spam body",
		Timestamp: time.Now(),
	}
}

func TestMemoryStoreQueueFIFO(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.EnqueueNotification(ctx, queueEntry("q1", "m1")))
	require.NoError(t, s.EnqueueNotification(ctx, queueEntry("q2", "m2")))

	size, err := s.QueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	oldest, err := s.OldestQueued(ctx)
	require.NoError(t, err)
	assert.Equal(t, "q1", oldest.ID)

	entries, err := s.ListQueue(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "q1", entries[0].ID)
	assert.Equal(t, "q2", entries[1].ID)
}

func TestMemoryStoreQueueAttemptFiltering(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.EnqueueNotification(ctx, queueEntry("q1", "m1")))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.IncrementAttempt(ctx, "q1"))
	}

	entries, err := s.ListQueue(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The exhausted entry still occupies queue capacity until removed.
	size, err := s.QueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestMemoryStoreRemoveFromQueue(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.EnqueueNotification(ctx, queueEntry("q1", "m1")))
	require.NoError(t, s.RemoveFromQueue(ctx, "q1"))

	size, err := s.QueueSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)

	assert.ErrorIs(t, s.RemoveFromQueue(ctx, "q1"), core.ErrNotFound)
	assert.ErrorIs(t, s.IncrementAttempt(ctx, "q1"), core.ErrNotFound)

	_, err = s.OldestQueued(ctx)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

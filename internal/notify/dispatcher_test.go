package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/sms-spam-sentinel/internal/adapters/store"
	"github.com/mikey/sms-spam-sentinel/internal/core"
	"github.com/mikey/sms-spam-sentinel/internal/utils"
)

// fakeChannel fails the first failures sends, then succeeds
type fakeChannel struct {
	mu       sync.Mutex
	failures int
	sent     []string
}

func (c *fakeChannel) Send(ctx context.Context, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("channel unavailable")
	}
	c.sent = append(c.sent, payload)
	return nil
}

func testOptions() Options {
	return Options{
		MaxAttempts:   3,
		QueueCapacity: 2,
		SendDelay:     0,
		MaxBodyLen:    160,
		MaxReasonLen:  120,
	}
}

func newTestDispatcher(t *testing.T, channel core.NotificationChannel) (*Dispatcher, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(zap.NewNop())
	d := NewDispatcher(st, channel, utils.NewTextProcessor(zap.NewNop()), zap.NewNop(), testOptions())
	return d, st
}

func spamMessage(id string) *core.Message {
	return &core.Message{
		ID:         id,
		Sender:     "VK-PROMO",
		Body:       "You won a prize! Click here now",
		ArrivedAt:  time.Now(),
		Verdict:    core.VerdictSpam,
		Confidence: 0.9,
		Reason:     "2 spam keyword(s), urgent language",
	}
}

func TestNotifySpamDeliversOnHealthyChannel(t *testing.T) {
	channel := &fakeChannel{}
	d, st := newTestDispatcher(t, channel)

	ok := d.NotifySpam(context.Background(), spamMessage("m1"))

	assert.True(t, ok)
	size, _ := st.QueueSize(context.Background())
	assert.Zero(t, size)

	require.Len(t, channel.sent, 1)
	assert.Contains(t, channel.sent[0], "VK-PROMO")
	assert.Contains(t, channel.sent[0], "90%")
}

func TestNotifySpamQueuesOnFailure(t *testing.T) {
	channel := &fakeChannel{failures: 1}
	d, st := newTestDispatcher(t, channel)

	ok := d.NotifySpam(context.Background(), spamMessage("m1"))

	assert.False(t, ok)
	entries, err := st.ListQueue(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m1", entries[0].MessageID)
	assert.Zero(t, entries[0].Attempts)
}

func TestNotifySpamSuppressedWithoutChannel(t *testing.T) {
	d, st := newTestDispatcher(t, nil)

	ok := d.NotifySpam(context.Background(), spamMessage("m1"))

	assert.False(t, ok)
	size, _ := st.QueueSize(context.Background())
	assert.Zero(t, size)
}

func TestQueueEvictsOldestAtCapacity(t *testing.T) {
	channel := &fakeChannel{failures: 10}
	d, st := newTestDispatcher(t, channel)

	for _, id := range []string{"m1", "m2", "m3"} {
		d.NotifySpam(context.Background(), spamMessage(id))
	}

	entries, err := st.ListQueue(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "m2", entries[0].MessageID)
	assert.Equal(t, "m3", entries[1].MessageID)
}

func TestDrainQueueDeliversQueuedEntries(t *testing.T) {
	channel := &fakeChannel{failures: 1}
	d, st := newTestDispatcher(t, channel)

	d.NotifySpam(context.Background(), spamMessage("m1"))

	stats := d.DrainQueue(context.Background())

	assert.Equal(t, 1, stats.Processed)
	assert.Zero(t, stats.Failed)
	size, _ := st.QueueSize(context.Background())
	assert.Zero(t, size)
}

func TestDrainQueueDropsEntryAfterMaxAttempts(t *testing.T) {
	channel := &fakeChannel{failures: 10}
	d, st := newTestDispatcher(t, channel)

	d.NotifySpam(context.Background(), spamMessage("m1"))

	first := d.DrainQueue(context.Background())
	assert.Zero(t, first.Processed)
	assert.Zero(t, first.Failed)

	second := d.DrainQueue(context.Background())
	assert.Zero(t, second.Failed)

	// Third failed attempt exhausts the retry budget: dropped, reported
	// failed exactly once.
	third := d.DrainQueue(context.Background())
	assert.Equal(t, 1, third.Failed)

	size, _ := st.QueueSize(context.Background())
	assert.Zero(t, size)

	fourth := d.DrainQueue(context.Background())
	assert.Zero(t, fourth.Processed)
	assert.Zero(t, fourth.Failed)
}

// blockingChannel parks every send until released
type blockingChannel struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingChannel) Send(ctx context.Context, payload string) error {
	c.entered <- struct{}{}
	<-c.release
	return nil
}

func TestDrainQueueIsNotReentrant(t *testing.T) {
	channel := &blockingChannel{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	d, st := newTestDispatcher(t, channel)

	require.NoError(t, st.EnqueueNotification(context.Background(), &core.QueueEntry{
		ID:        "q1",
		MessageID: "m1",
		Sender:    "VK-PROMO",
		Body:      "spam body",
		Timestamp: time.Now(),
	}))

	done := make(chan DrainStats, 1)
	go func() {
		done <- d.DrainQueue(context.Background())
	}()

	// Wait until the first drain is mid-send, then race a second drain.
	<-channel.entered
	concurrent := d.DrainQueue(context.Background())
	assert.Zero(t, concurrent.Processed)
	assert.Zero(t, concurrent.Failed)

	size, _ := st.QueueSize(context.Background())
	assert.Equal(t, 1, size)

	close(channel.release)
	first := <-done
	assert.Equal(t, 1, first.Processed)
}

func TestAlertBodyIsTruncated(t *testing.T) {
	channel := &fakeChannel{}
	d, _ := newTestDispatcher(t, channel)

	msg := spamMessage("m1")
	msg.Body = strings.Repeat("a", 500)
	d.NotifySpam(context.Background(), msg)

	require.Len(t, channel.sent, 1)
	assert.Less(t, len(channel.sent[0]), 400)
	assert.Contains(t, channel.sent[0], "…")
}

package ingest

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
)

// stubClassifier flags anything containing "win" as spam
type stubClassifier struct{}

func (stubClassifier) Classify(ctx context.Context, text string) *core.ClassificationResult {
	if strings.Contains(strings.ToLower(text), "win") {
		return &core.ClassificationResult{IsSpam: true, Confidence: 0.9, Reason: "promo vocabulary"}
	}
	return &core.ClassificationResult{IsSpam: false, Confidence: 0.8, Reason: "no spam indicators"}
}

type recordingNotifier struct {
	mu       sync.Mutex
	notified []string
}

func (n *recordingNotifier) NotifySpam(ctx context.Context, msg *core.Message) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, msg.ID)
	return true
}

// stubSource returns a fixed batch of incoming messages
type stubSource struct {
	batch []*core.IncomingMessage
	err   error
}

func (s *stubSource) Messages(ctx context.Context, limit int) ([]*core.IncomingMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && len(s.batch) > limit {
		return s.batch[:limit], nil
	}
	return s.batch, nil
}

func newTestCoordinator(source core.MessageSource) (*Coordinator, *store.MemoryStore, *recordingNotifier) {
	st := store.NewMemoryStore(zap.NewNop())
	notifier := &recordingNotifier{}
	c := NewCoordinator(st, source, stubClassifier{}, notifier, zap.NewNop())
	return c, st, notifier
}

func TestOnNewMessageStoresAndClassifies(t *testing.T) {
	c, st, notifier := newTestCoordinator(nil)

	msg, err := c.OnNewMessage(context.Background(), "VK-PROMO", "Win a free prize", time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)

	assert.Equal(t, core.VerdictSpam, msg.Verdict)
	assert.Equal(t, 0.9, msg.Confidence)

	stored, err := st.Get(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.VerdictSpam, stored.Verdict)
	assert.Equal(t, "promo vocabulary", stored.Reason)

	assert.Equal(t, []string{msg.ID}, notifier.notified)
}

func TestOnNewMessageHamSkipsNotification(t *testing.T) {
	c, st, notifier := newTestCoordinator(nil)

	msg, err := c.OnNewMessage(context.Background(), "Mom", "dinner at 7?", time.Now())
	require.NoError(t, err)

	assert.Equal(t, core.VerdictHam, msg.Verdict)
	assert.Empty(t, notifier.notified)

	stored, err := st.Get(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, core.VerdictHam, stored.Verdict)
}

func TestOnNewMessageEmitsEvents(t *testing.T) {
	c, _, _ := newTestCoordinator(nil)

	var kinds []EventKind
	c.Subscribe(func(ev Event) {
		kinds = append(kinds, ev.Kind)
	})

	_, err := c.OnNewMessage(context.Background(), "Mom", "dinner at 7?", time.Now())
	require.NoError(t, err)

	assert.Equal(t, []EventKind{EventStored, EventUpdated}, kinds)
}

func TestScanBacklogProcessesNewMessages(t *testing.T) {
	source := &stubSource{batch: []*core.IncomingMessage{
		{ID: "in-1", Sender: "VK-PROMO", Body: "Win big today", Timestamp: time.Now()},
		{ID: "in-2", Sender: "Mom", Body: "call me", Timestamp: time.Now()},
	}}
	c, st, notifier := newTestCoordinator(source)

	processed, err := c.ScanBacklog(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	spam, err := st.Get(context.Background(), "in-1")
	require.NoError(t, err)
	assert.Equal(t, core.VerdictSpam, spam.Verdict)

	assert.Equal(t, []string{"in-1"}, notifier.notified)
}

func TestScanBacklogSkipsAlreadyStored(t *testing.T) {
	source := &stubSource{batch: []*core.IncomingMessage{
		{ID: "in-1", Sender: "Mom", Body: "call me", Timestamp: time.Now()},
	}}
	c, _, _ := newTestCoordinator(source)

	first, err := c.ScanBacklog(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	// Same batch again: the id is already stored, nothing new to process.
	second, err := c.ScanBacklog(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, second)
}

func TestScanBacklogWithoutSourceIsNoop(t *testing.T) {
	c, _, _ := newTestCoordinator(nil)

	processed, err := c.ScanBacklog(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestScanBacklogReturnsSourceError(t *testing.T) {
	source := &stubSource{err: errors.New("gateway unreachable")}
	c, _, _ := newTestCoordinator(source)

	_, err := c.ScanBacklog(context.Background(), 10)
	assert.ErrorContains(t, err, "gateway unreachable")
}

func TestScanBacklogAssignsIDWhenMissing(t *testing.T) {
	source := &stubSource{batch: []*core.IncomingMessage{
		{Sender: "Mom", Body: "call me", Timestamp: time.Now()},
	}}
	c, st, _ := newTestCoordinator(source)

	processed, err := c.ScanBacklog(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	pending, err := st.ListUnclassified(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestClassifyPendingResumesInterruptedMessages(t *testing.T) {
	c, st, notifier := newTestCoordinator(nil)

	// Simulate a previous run that stored messages but never classified them.
	require.NoError(t, st.Insert(context.Background(), &core.Message{
		ID: "p-1", Sender: "VK-PROMO", Body: "Win now", ArrivedAt: time.Now(),
		Verdict: core.VerdictUnclassified,
	}))
	require.NoError(t, st.Insert(context.Background(), &core.Message{
		ID: "p-2", Sender: "Mom", Body: "call me", ArrivedAt: time.Now(),
		Verdict: core.VerdictUnclassified,
	}))

	processed, err := c.ClassifyPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	pending, err := st.ListUnclassified(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Equal(t, []string{"p-1"}, notifier.notified)
}

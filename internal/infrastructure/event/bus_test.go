package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/persistence"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler records what it handles
type testHandler struct {
	name    string
	err     error
	panics  bool
	block   chan struct{}
	mu      sync.Mutex
	handled []shared.Notification
}

func (h *testHandler) Name() string { return h.name }

func (h *testHandler) Handle(_ context.Context, n shared.Notification) error {
	if h.block != nil {
		<-h.block
	}
	if h.panics {
		panic("subscriber bug")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, n)
	return h.err
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

type outcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *outcomeCounter) RecordNotification(notificationType, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[notificationType+"/"+outcome]++
}

func (c *outcomeCounter) get(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

func note(typ string) shared.Notification {
	tenantID := uuid.New()
	return shared.NewNotification(typ, &tenantID, map[string]any{"order_id": uuid.NewString()})
}

func stopNotifier(t *testing.T, n *ChannelNotifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, n.Stop(ctx))
}

func TestChannelNotifier_FansOutByType(t *testing.T) {
	n := NewChannelNotifier(DefaultChannelNotifierConfig(), nil)
	orders := &testHandler{name: "orders"}
	all := &testHandler{name: "all"}
	n.Subscribe(orders, shared.NotificationOrderCreated)
	n.Subscribe(all)
	require.NoError(t, n.Start(context.Background()))

	n.Publish(context.Background(), note(shared.NotificationOrderCreated))
	n.Publish(context.Background(), note(shared.NotificationSyncJobFailed))
	stopNotifier(t, n)

	assert.Equal(t, 1, orders.count())
	assert.Equal(t, 2, all.count())
}

func TestChannelNotifier_HandlerFailuresAreIsolated(t *testing.T) {
	n := NewChannelNotifier(DefaultChannelNotifierConfig(), nil)
	metrics := &outcomeCounter{}
	n.SetMetrics(metrics)

	broken := &testHandler{name: "broken", panics: true}
	failing := &testHandler{name: "failing", err: errors.New("disk full")}
	healthy := &testHandler{name: "healthy"}
	n.Subscribe(broken)
	n.Subscribe(failing)
	n.Subscribe(healthy)
	require.NoError(t, n.Start(context.Background()))

	n.Publish(context.Background(), note(shared.NotificationInventoryAdjusted))
	stopNotifier(t, n)

	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, 1, metrics.get("inventory.adjusted/queued"))
	assert.Equal(t, 2, metrics.get("inventory.adjusted/failed"))
	assert.Equal(t, 1, metrics.get("inventory.adjusted/delivered"))
}

func TestChannelNotifier_DropsWhenFull(t *testing.T) {
	n := NewChannelNotifier(ChannelNotifierConfig{BufferSize: 2}, nil)
	metrics := &outcomeCounter{}
	n.SetMetrics(metrics)

	// Not started: the queue fills up and Publish must still return at once.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			n.Publish(context.Background(), note(shared.NotificationOrderCreated))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}

	assert.Equal(t, int64(3), n.Dropped())
	assert.Equal(t, 3, metrics.get("order.created/dropped"))
	assert.Equal(t, 2, metrics.get("order.created/queued"))
}

func TestChannelNotifier_StopDrainsAndRejectsLatePublish(t *testing.T) {
	n := NewChannelNotifier(DefaultChannelNotifierConfig(), nil)
	release := make(chan struct{})
	slow := &testHandler{name: "slow", block: release}
	n.Subscribe(slow)
	require.NoError(t, n.Start(context.Background()))

	for i := 0; i < 3; i++ {
		n.Publish(context.Background(), note(shared.NotificationOrderCreated))
	}
	close(release)
	stopNotifier(t, n)
	assert.Equal(t, 3, slow.count(), "queued notifications are delivered before Stop returns")

	n.Publish(context.Background(), note(shared.NotificationOrderCreated))
	assert.Equal(t, int64(1), n.Dropped())
	require.NoError(t, n.Stop(context.Background()), "stopping twice is a no-op")
}

func TestChannelNotifier_PublishIgnoresCallerCancellation(t *testing.T) {
	n := NewChannelNotifier(DefaultChannelNotifierConfig(), nil)
	seen := make(chan error, 1)
	n.Subscribe(&contextRecorder{seen: seen})
	require.NoError(t, n.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	n.Publish(ctx, note(shared.NotificationOrderCreated))
	cancel()

	select {
	case err := <-seen:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
	stopNotifier(t, n)
}

// contextRecorder reports the context state seen by the handler
type contextRecorder struct {
	seen chan error
}

func (p *contextRecorder) Name() string { return "context-recorder" }

func (p *contextRecorder) Handle(ctx context.Context, _ shared.Notification) error {
	p.seen <- ctx.Err()
	return nil
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	typed := &testHandler{name: "typed"}
	wildcard := &testHandler{name: "wildcard"}
	r.Register(typed, shared.NotificationOrderCreated, shared.NotificationSyncJobFailed)
	r.Register(wildcard)

	assert.Equal(t, []shared.NotificationHandler{typed, wildcard}, r.GetHandlers(shared.NotificationOrderCreated))
	assert.Equal(t, []shared.NotificationHandler{wildcard}, r.GetHandlers(shared.NotificationInventoryBroadcast))
	assert.Equal(t, 2, r.Len())

	r.Unregister(typed)
	assert.Equal(t, []shared.NotificationHandler{wildcard}, r.GetHandlers(shared.NotificationOrderCreated))
	assert.Equal(t, 1, r.Len())
}

func TestEventLogSubscriber(t *testing.T) {
	db, err := persistence.OpenSQLite(persistence.MemoryDSN(uuid.NewString()), persistence.Options{})
	require.NoError(t, err)
	defer db.Close()

	repo := persistence.NewGormEventLogRepository(db.DB)
	sub := NewEventLogSubscriber(repo)
	ctx := context.Background()

	n := note(shared.NotificationOrderCreated)
	require.NoError(t, sub.Handle(ctx, n))
	require.NoError(t, sub.Handle(ctx, n), "redelivery is ignored")

	entries, err := repo.List(ctx, n.TenantID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, n.ID, entries[0].ID)
	assert.Equal(t, shared.NotificationOrderCreated, entries[0].Type)
	assert.JSONEq(t, `{"order_id":"`+n.Payload["order_id"].(string)+`"}`, string(entries[0].Payload))
}

type capturedPublish struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeAMQPChannel struct {
	published []capturedPublish
	err       error
}

func (c *fakeAMQPChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.published = append(c.published, capturedPublish{exchange: exchange, key: key, msg: msg})
	return c.err
}

func TestAMQPForwarder(t *testing.T) {
	ch := &fakeAMQPChannel{}
	f := NewAMQPForwarder(ch, "")
	n := note(shared.NotificationSyncJobCompleted)

	require.NoError(t, f.Handle(context.Background(), n))
	require.Len(t, ch.published, 1)

	got := ch.published[0]
	assert.Equal(t, DefaultExchange, got.exchange)
	assert.Equal(t, shared.NotificationSyncJobCompleted, got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, n.ID.String(), got.msg.MessageId)

	var decoded shared.Notification
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, n.ID, decoded.ID)
	assert.Equal(t, n.Type, decoded.Type)

	ch.err = amqp.ErrClosed
	assert.ErrorIs(t, f.Handle(context.Background(), n), amqp.ErrClosed)
	assert.NoError(t, f.Close())
}

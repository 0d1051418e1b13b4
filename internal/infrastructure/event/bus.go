// Package event fans notifications out to subscribers in the background:
// the audit log, an AMQP exchange and any in-process observer.
package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omnisync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Delivery outcomes reported to MetricsRecorder
const (
	OutcomeQueued    = "queued"
	OutcomeDropped   = "dropped"
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// DefaultBufferSize is the notification queue capacity
const DefaultBufferSize = 256

// MetricsRecorder counts notifications by type and outcome
type MetricsRecorder interface {
	RecordNotification(notificationType, outcome string)
}

// ChannelNotifierConfig holds notifier configuration
type ChannelNotifierConfig struct {
	// BufferSize bounds the queue; Publish drops once it is full
	BufferSize int
	// HandlerTimeout bounds one handler call
	HandlerTimeout time.Duration
}

// DefaultChannelNotifierConfig returns default configuration
func DefaultChannelNotifierConfig() ChannelNotifierConfig {
	return ChannelNotifierConfig{
		BufferSize:     DefaultBufferSize,
		HandlerTimeout: 10 * time.Second,
	}
}

type envelope struct {
	ctx          context.Context
	notification shared.Notification
}

// ChannelNotifier implements shared.Notifier with a bounded queue drained by
// one dispatcher goroutine. Publish never blocks: when the queue is full the
// notification is dropped and counted.
type ChannelNotifier struct {
	config   ChannelNotifierConfig
	registry *HandlerRegistry
	logger   *zap.Logger
	metrics  MetricsRecorder

	queue   chan envelope
	mu      sync.RWMutex
	closed  bool
	started atomic.Bool
	dropped atomic.Int64
	wg      sync.WaitGroup
}

// NewChannelNotifier creates a new notifier
func NewChannelNotifier(config ChannelNotifierConfig, logger *zap.Logger) *ChannelNotifier {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChannelNotifier{
		config:   config,
		registry: NewHandlerRegistry(),
		logger:   logger,
		queue:    make(chan envelope, config.BufferSize),
	}
}

// SetMetrics sets the outcome counter
func (n *ChannelNotifier) SetMetrics(m MetricsRecorder) {
	n.metrics = m
}

// Subscribe registers a handler for the given types, or for all types when none are given
func (n *ChannelNotifier) Subscribe(handler shared.NotificationHandler, types ...string) {
	n.registry.Register(handler, types...)
	n.logger.Debug("notification handler subscribed",
		zap.String("handler", handler.Name()),
		zap.Strings("types", types),
	)
}

// Unsubscribe removes a handler
func (n *ChannelNotifier) Unsubscribe(handler shared.NotificationHandler) {
	n.registry.Unregister(handler)
}

// Publish enqueues the notification without blocking. The caller's context
// values travel with it; its cancellation does not.
func (n *ChannelNotifier) Publish(ctx context.Context, notification shared.Notification) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.drop(notification, "notifier stopped")
		return
	}
	select {
	case n.queue <- envelope{ctx: context.WithoutCancel(ctx), notification: notification}:
		n.record(notification.Type, OutcomeQueued)
	default:
		n.drop(notification, "queue full")
	}
}

// Dropped returns how many notifications were discarded
func (n *ChannelNotifier) Dropped() int64 {
	return n.dropped.Load()
}

// Start launches the dispatcher
func (n *ChannelNotifier) Start(ctx context.Context) error {
	if !n.started.CompareAndSwap(false, true) {
		return nil
	}
	n.wg.Add(1)
	go n.dispatch()
	n.logger.Info("notifier started",
		zap.Int("buffer_size", n.config.BufferSize),
		zap.Int("handlers", n.registry.Len()),
	)
	return nil
}

// Stop closes the queue and waits for queued notifications to be delivered
func (n *ChannelNotifier) Stop(ctx context.Context) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	if !n.started.Load() {
		return nil
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		n.logger.Info("notifier stopped", zap.Int64("dropped", n.dropped.Load()))
		return nil
	case <-ctx.Done():
		n.logger.Warn("notifier stop timed out", zap.Int("pending", len(n.queue)))
		return ctx.Err()
	}
}

func (n *ChannelNotifier) dispatch() {
	defer n.wg.Done()
	for env := range n.queue {
		for _, handler := range n.registry.GetHandlers(env.notification.Type) {
			if err := n.deliver(env.ctx, handler, env.notification); err != nil {
				n.record(env.notification.Type, OutcomeFailed)
				n.logger.Error("notification handler failed",
					zap.String("handler", handler.Name()),
					zap.String("type", env.notification.Type),
					zap.String("notification_id", env.notification.ID.String()),
					zap.Error(err),
				)
				continue
			}
			n.record(env.notification.Type, OutcomeDelivered)
		}
	}
}

// deliver calls one handler, turning a panic into an error
func (n *ChannelNotifier) deliver(ctx context.Context, handler shared.NotificationHandler, notification shared.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	if n.config.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.config.HandlerTimeout)
		defer cancel()
	}
	return handler.Handle(ctx, notification)
}

func (n *ChannelNotifier) drop(notification shared.Notification, reason string) {
	n.dropped.Add(1)
	n.record(notification.Type, OutcomeDropped)
	n.logger.Warn("notification dropped",
		zap.String("type", notification.Type),
		zap.String("notification_id", notification.ID.String()),
		zap.String("reason", reason),
	)
}

func (n *ChannelNotifier) record(notificationType, outcome string) {
	if n.metrics != nil {
		n.metrics.RecordNotification(notificationType, outcome)
	}
}

var _ shared.Notifier = (*ChannelNotifier)(nil)

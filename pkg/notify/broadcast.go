package notify

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Topics a subscriber can listen on. TopicAll receives every level.
const (
	TopicAll     = "all"
	TopicError   = string(LevelError)
	TopicSuccess = string(LevelSuccess)
)

// ErrShutdown is returned when subscribing to a stopped Broadcaster.
var ErrShutdown = errors.New("broadcaster is shut down")

// Broadcaster provides publish/subscribe delivery of notifications to
// in-process listeners such as the terminal UI.
type Broadcaster struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
	bufferSize  int
}

// Subscription represents a subscription to a topic
type Subscription struct {
	topic     string
	channel   chan Notification
	b         *Broadcaster
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once // Ensures channel is only closed once
}

// NewBroadcaster creates a Broadcaster whose subscribers buffer up to
// bufferSize notifications. Slow subscribers miss messages instead of blocking
// the publisher.
func NewBroadcaster(bufferSize int) *Broadcaster {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Broadcaster{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a new subscription to a topic. It ends when ctx is
// cancelled, Unsubscribe is called or the Broadcaster shuts down.
func (b *Broadcaster) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil, ErrShutdown
	}
	b.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan Notification, b.bufferSize),
		b:       b,
		ctx:     subCtx,
		cancel:  cancel,
	}

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription]bool)
	}
	b.subscribers[topic][sub] = true
	b.mu.Unlock()

	// Monitor context cancellation
	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.cancel()
			sub.close()
		}
	}()

	return sub, nil
}

// Publish sends a notification to the subscribers of its level and of TopicAll.
func (b *Broadcaster) Publish(n Notification) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.shutdownMu.Unlock()

	// Snapshot the subscribers so a concurrent Unsubscribe cannot modify the
	// map while we iterate.
	b.mu.RLock()
	var subs []*Subscription
	for _, topic := range []string{string(n.Level), TopicAll} {
		for sub := range b.subscribers[topic] {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(n)
	}
}

func (b *Broadcaster) NotifyError(msg string) {
	b.Publish(Notification{Level: LevelError, Message: msg, Time: time.Now()})
}

func (b *Broadcaster) NotifySuccess(msg string) {
	b.Publish(Notification{Level: LevelSuccess, Message: msg, Time: time.Now()})
}

// GetSubscriberCount returns the number of subscribers for a topic
func (b *Broadcaster) GetSubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Shutdown closes all subscriptions and stops delivery.
func (b *Broadcaster) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for topic := range b.subscribers {
		for sub := range b.subscribers[topic] {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()
}

// Channel returns the subscription's message channel
func (s *Subscription) Channel() <-chan Notification {
	return s.channel
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	if s.b.subscribers[s.topic] != nil {
		delete(s.b.subscribers[s.topic], s)
		if len(s.b.subscribers[s.topic]) == 0 {
			delete(s.b.subscribers, s.topic)
		}
	}

	s.close()
}

// deliver performs a non-blocking send. A send on a channel closed by a
// concurrent Unsubscribe is recovered.
func (s *Subscription) deliver(n Notification) {
	defer func() { _ = recover() }()
	select {
	case s.channel <- n:
	default:
		// Channel full, skip (non-blocking)
	}
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}

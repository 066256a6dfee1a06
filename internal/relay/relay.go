package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"
)

var errSubscriptionClosed = errors.New("subscription channel closed")

type logger interface {
	Debugf(format string, v ...any)
	Errorf(format string, v ...any)
}

// message is the payload exchanged on the cross-process channel. Only the
// topic travels; subscribers re-read the collections themselves.
type message struct {
	Type string `json:"type"`
}

const publishTimeout = 2 * time.Second

// Bus fans a topic announcement out to every subscriber in this process and,
// best effort, to other processes listening on the same Redis channel.
// Delivery is at-least-once and unordered; handlers must be idempotent
// full re-readers.
type Bus struct {
	rdb     *redis.Client
	channel string
	logger  logger

	mu     sync.Mutex
	subs   map[string]map[int]func()
	nextID int
	diag   func(op string, err error)
}

// NewBus creates a bus. rdb may be nil, in which case announcements stay
// within the process.
func NewBus(rdb *redis.Client, channel string, logger logger) *Bus {
	return &Bus{
		rdb:     rdb,
		channel: channel,
		logger:  logger,
		subs:    map[string]map[int]func(){},
	}
}

// SetDiagnostic installs an observer for swallowed publish failures.
func (b *Bus) SetDiagnostic(fn func(op string, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.diag = fn
}

// Subscribe registers handler for topic and returns its unsubscribe function.
// The handler runs on whichever goroutine announces or receives the topic.
func (b *Bus) Subscribe(topic string, handler func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = map[int]func(){}
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Announce dispatches topic to local subscribers synchronously, then posts it
// to the cross-process channel without waiting. A failed or impossible
// publish is swallowed: remote listeners simply miss this round.
func (b *Bus) Announce(topic string) {
	b.dispatch(topic)

	if b.rdb == nil {
		return
	}
	payload, err := json.Marshal(message{Type: topic})
	if err != nil {
		b.logger.Errorf("Announce: Error marshalling message for topic: %s, err: %v", topic, err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
			b.logger.Debugf("Announce: Error publishing topic: %s to channel: %s, err: %v", topic, b.channel, err)
			b.report("publish", err)
		}
	}()
}

// Run consumes the cross-process channel and dispatches received topics to
// local subscribers until ctx is done. With no Redis client it returns
// immediately and the bus stays local-only.
func (b *Bus) Run(ctx context.Context) {
	if b.rdb == nil {
		return
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.Debugf("Run: Error closing subscription to channel: %s, err: %v", b.channel, err)
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				b.logger.Errorf("Run: Subscription channel closed: %s", b.channel)
				b.report("subscribe", errSubscriptionClosed)
				return
			}
			var msg message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.logger.Debugf("Run: Dropping malformed message on channel: %s, payload: %s, err: %v", b.channel, m.Payload, err)
				b.report("receive", err)
				continue
			}
			if msg.Type != "" {
				b.dispatch(msg.Type)
			}
		}
	}
}

func (b *Bus) dispatch(topic string) {
	b.mu.Lock()
	handlers := make([]func(), 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}

func (b *Bus) report(op string, err error) {
	b.mu.Lock()
	diag := b.diag
	b.mu.Unlock()
	if diag != nil {
		diag(op, err)
	}
}

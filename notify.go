package lendkit

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RoleChangedChannel is the Redis channel RedisNotifier publishes on.
const RoleChangedChannel = "lendkit:role_changed"

// Notifier is told about every committed role change.
// Active sessions keep their snapshot; subscribers decide whether to refresh.
type Notifier interface {
	RoleChanged(ctx context.Context, event RoleChangeEvent) error
}

// Broadcaster fans role changes out to in-process subscribers.
// Subscribers are called synchronously, in subscription order.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(context.Context, RoleChangeEvent)
	order  []int
}

// NewBroadcaster creates a Broadcaster without subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]func(context.Context, RoleChangeEvent)),
	}
}

// Subscribe registers fn and returns the function that removes it.
//
// Example:
//
//	unsubscribe := broadcaster.Subscribe(func(ctx context.Context, ev lendkit.RoleChangeEvent) {
//	    logger.Info("role changed", "user", ev.UserID, "role", ev.NewRole)
//	})
//	defer unsubscribe()
func (b *Broadcaster) Subscribe(fn func(context.Context, RoleChangeEvent)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// RoleChanged implements Notifier.
func (b *Broadcaster) RoleChanged(ctx context.Context, event RoleChangeEvent) error {
	b.mu.RLock()
	fns := make([]func(context.Context, RoleChangeEvent), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, event)
	}
	return nil
}

// RedisNotifier publishes role changes as JSON on a Redis channel so other
// processes can react to them.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisNotifier creates a notifier publishing on RoleChangedChannel.
func NewRedisNotifier(client redis.UniversalClient) *RedisNotifier {
	return &RedisNotifier{client: client, channel: RoleChangedChannel}
}

// Channel returns the channel events are published on.
func (n *RedisNotifier) Channel() string {
	return n.channel
}

// RoleChanged implements Notifier.
func (n *RedisNotifier) RoleChanged(ctx context.Context, event RoleChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

// Subscribe listens for role changes published by any RedisNotifier and calls
// fn for each one until ctx is done. Malformed messages are skipped.
func (n *RedisNotifier) Subscribe(ctx context.Context, fn func(context.Context, RoleChangeEvent)) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event RoleChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			fn(ctx, event)
		}
	}
}

// MultiNotifier forwards every event to several notifiers and returns the
// first error after all of them ran.
type MultiNotifier []Notifier

// RoleChanged implements Notifier.
func (m MultiNotifier) RoleChanged(ctx context.Context, event RoleChangeEvent) error {
	var first error
	for _, n := range m {
		if err := n.RoleChanged(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

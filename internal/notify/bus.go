// Package notify delivers change notifications for resource locators to
// registered observers.
//
// Mutations publish the request locator after their transaction commits.
// Observers subscribe to a locator and also receive notifications for every
// descendant locator: an observer of content://a/tracks sees a change to
// content://a/tracks/5 but not one to content://a/trackpoints.
//
// Delivery is asynchronous and FIFO. Bus.Run dispatches queued changes in
// the order they were published, which is commit order.
package notify

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Change is a single published notification.
type Change struct {
	// URI is the locator the mutation was addressed to.
	URI string

	// Seq increases by one per published change.
	Seq uint64
}

// Observer receives changes.
type Observer func(Change)

type subscription struct {
	prefix string
	fn     Observer
}

// Bus queues change notifications and fans them out to observers.
type Bus struct {
	queue  *changeQueue
	logger zerolog.Logger

	mu     sync.RWMutex
	subs   map[uint64]subscription
	nextID uint64
}

// NewBus creates a bus that logs dropped or failed deliveries to logger.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		queue:  newChangeQueue(),
		logger: logger.With().Str("component", "notify").Logger(),
		subs:   make(map[uint64]subscription),
	}
}

// NotifyChange publishes a change to uri. It never blocks. Changes published
// after Close are dropped.
func (b *Bus) NotifyChange(uri string) {
	if !b.queue.Enqueue(Change{URI: uri}) {
		b.logger.Debug().Str("uri", uri).Msg("bus closed, dropping change")
	}
}

// Subscribe registers fn for changes to uri and its descendants. The returned
// function removes the subscription.
func (b *Bus) Subscribe(uri string, fn Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[id] = subscription{prefix: strings.TrimSuffix(uri, "/"), fn: fn}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Pending returns the number of changes waiting for dispatch.
func (b *Bus) Pending() int {
	return b.queue.Len()
}

// Run dispatches queued changes until ctx is cancelled or the bus is closed
// and drained. It returns ctx.Err() on cancellation and nil after Close.
func (b *Bus) Run(ctx context.Context) error {
	for {
		if c, ok := b.queue.TryDequeue(); ok {
			b.dispatch(c)
			continue
		}
		if b.queue.drained() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.queue.Wait():
		}
	}
}

// Close stops accepting changes. Run returns once the queue is drained.
func (b *Bus) Close() {
	b.queue.Close()
}

func (b *Bus) dispatch(c Change) {
	type target struct {
		id uint64
		fn Observer
	}

	b.mu.RLock()
	targets := make([]target, 0, len(b.subs))
	for id, sub := range b.subs {
		if matches(sub.prefix, c.URI) {
			targets = append(targets, target{id: id, fn: sub.fn})
		}
	}
	b.mu.RUnlock()

	// Subscription order.
	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	for _, t := range targets {
		b.deliver(t.fn, c)
	}
}

func (b *Bus) deliver(fn Observer, c Change) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Str("uri", c.URI).Interface("panic", r).Msg("observer panicked")
		}
	}()
	fn(c)
}

// matches reports whether uri is prefix or one of its descendants.
func matches(prefix, uri string) bool {
	if uri == prefix {
		return true
	}
	return strings.HasPrefix(uri, prefix+"/")
}

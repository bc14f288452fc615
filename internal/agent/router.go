package agent

import (
	"sync"
	"sync/atomic"

	"github.com/sunwell/studio/internal/stream"
)

// subIDs issues process-wide unique subscription ids, so a stale handle
// from an earlier session can never alias a live one.
var subIDs atomic.Int64

// Subscription is one consumer's view of a session's event stream. Events
// arrives in stream order; the channel closes when the session ends or the
// subscriber is removed, and Status then yields the final outcome.
type Subscription struct {
	id     int64
	events chan stream.Event
	status chan Status
}

// Events returns the subscriber's event channel. It is closed exactly once.
func (s *Subscription) Events() <-chan stream.Event {
	return s.events
}

// Status returns a channel that yields the session's final Status after
// the event channel closes. It yields nothing if the subscriber was
// removed before the session ended.
func (s *Subscription) Status() <-chan Status {
	return s.status
}

// router fans events out to subscribers in order. Each subscriber gets a
// bounded channel; when a slow subscriber's buffer fills, the oldest
// buffered event is dropped to make room, so delivery never blocks the
// stream and every delivered event arrives at most once and in order.
type router struct {
	mu      sync.Mutex
	subs    map[int64]*Subscription
	bufSize int

	// closed flips when the session reaches a terminal state; afterwards
	// no further events are delivered and new subscribers get an
	// already-closed channel plus the final status.
	closed bool
	final  Status
}

func newRouter(bufSize int) *router {
	if bufSize < 1 {
		bufSize = 1
	}
	return &router{
		subs:    make(map[int64]*Subscription),
		bufSize: bufSize,
	}
}

func newSubscription(bufSize int) *Subscription {
	if bufSize < 1 {
		bufSize = 1
	}
	return &Subscription{
		id:     subIDs.Add(1),
		events: make(chan stream.Event, bufSize),
		status: make(chan Status, 1),
	}
}

// adopt registers subscriptions created before the session started, so
// consumers that subscribed ahead of a run see its very first event.
func (r *router) adopt(subs []*Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range subs {
		r.subs[sub.id] = sub
	}
}

// Subscribe registers a consumer. After the session has ended the returned
// subscription carries a closed event channel and the final status, so
// late subscribers learn the outcome instead of blocking.
func (r *router) Subscribe() *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := newSubscription(r.bufSize)

	if r.closed {
		close(sub.events)
		sub.status <- r.final
		close(sub.status)
		return sub
	}

	r.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a consumer and closes its channels. Unknown or
// already-removed subscriptions are ignored.
func (r *router) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub.id]; !ok {
		return
	}
	delete(r.subs, sub.id)
	close(sub.events)
	close(sub.status)
}

// Deliver sends ev to every live subscriber. Events arriving after Close
// are discarded.
func (r *router) Deliver(ev stream.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	for _, sub := range r.subs {
		for {
			select {
			case sub.events <- ev:
			default:
				// Buffer full: evict the oldest event and retry.
				select {
				case <-sub.events:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close seals the router with the session's final status. Every live
// subscriber's event channel closes and the status is delivered once.
// Later Deliver calls become no-ops; later Close calls are ignored.
func (r *router) Close(final Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.final = final

	for id, sub := range r.subs {
		delete(r.subs, id)
		close(sub.events)
		sub.status <- final
		close(sub.status)
	}
}

package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/louisbranch/baranex/internal/platform/id"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// ErrClosed is returned by Next once the subscription or hub is closed.
var ErrClosed = errors.New("subscription closed")

// Exporter receives every locally published change.
type Exporter func(Change)

// Hub delivers changes to in-process subscribers.
type Hub struct {
	mu        sync.Mutex
	subs      map[*Subscription]struct{}
	exporters []Exporter
	closed    bool

	buffer int
	clock  func() time.Time
	newID  func() (string, error)
	onDrop func()
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithDropHook registers a callback invoked for every dropped change.
func WithDropHook(fn func()) HubOption {
	return func(h *Hub) { h.onDrop = fn }
}

// WithClock overrides the time source used to stamp changes.
func WithClock(clock func() time.Time) HubOption {
	return func(h *Hub) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHub builds an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:   map[*Subscription]struct{}{},
		buffer: DefaultBuffer,
		clock:  time.Now,
		newID:  id.NewID,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddExporter registers fn to receive local publishes.
func (h *Hub) AddExporter(fn Exporter) {
	if h == nil || fn == nil {
		return
	}
	h.mu.Lock()
	h.exporters = append(h.exporters, fn)
	h.mu.Unlock()
}

// Publish stamps c, delivers it locally and hands it to exporters. A nil hub
// discards the change.
func (h *Hub) Publish(c Change) {
	if h == nil {
		return
	}
	if c.ID == "" {
		if changeID, err := h.newID(); err == nil {
			c.ID = changeID
		}
	}
	if c.At.IsZero() {
		c.At = h.clock().UTC()
	}
	exporters := h.deliver(c)
	for _, export := range exporters {
		export(c)
	}
}

// Inject delivers a change received from another instance without
// re-exporting it.
func (h *Hub) Inject(c Change) {
	if h == nil {
		return
	}
	h.deliver(c)
}

func (h *Hub) deliver(c Change) []Exporter {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	for sub := range h.subs {
		if sub.filter.Matches(c) {
			if sub.push(c) && h.onDrop != nil {
				h.onDrop()
			}
		}
	}
	return append([]Exporter(nil), h.exporters...)
}

// Subscribe registers a subscriber for changes matching filter.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	sub := &Subscription{
		hub:    h,
		filter: filter,
		limit:  h.buffer,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.closeLocked()
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close releases every subscription; later publishes are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		sub.closeLocked()
		delete(h.subs, sub)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub)
	sub.closeLocked()
}

// Subscription is one subscriber's bounded change queue. When the queue is
// full the oldest pending change is dropped.
type Subscription struct {
	hub    *Hub
	filter Filter
	limit  int

	mu      sync.Mutex
	queue   []Change
	closed  bool
	notify  chan struct{}
	done    chan struct{}
	dropped atomic.Int64
}

// push enqueues c and reports whether an older change was dropped.
func (s *Subscription) push(c Change) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	dropped := false
	if len(s.queue) >= s.limit {
		s.queue = s.queue[1:]
		s.dropped.Add(1)
		dropped = true
	}
	s.queue = append(s.queue, c)
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return dropped
}

// Next blocks until a change is available, the context ends or the
// subscription closes.
func (s *Subscription) Next(ctx context.Context) (Change, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			c := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return c, nil
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return Change{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Change{}, ctx.Err()
		case <-s.done:
		case <-s.notify:
		}
	}
}

// Dropped returns how many changes were discarded for this subscriber.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unregisters the subscription. Pending changes are discarded.
func (s *Subscription) Close() {
	if s.hub == nil {
		return
	}
	s.hub.remove(s)
}

// closeLocked must be called with the hub lock held.
func (s *Subscription) closeLocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
}

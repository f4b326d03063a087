package preview

import (
	"errors"
	"sync"
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("framepreview: subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe is called with an unknown id.
	ErrSubscriberNotFound = errors.New("framepreview: subscriber id not found")

	// ErrNotifierClosed is returned when subscribing to a closed notifier.
	ErrNotifierClosed = errors.New("framepreview: notifier is closed")
)

// RedrawNotifier fans the "new frame available" signal out to display
// consumers.
//
// Every subscriber owns a 1-slot signal channel. Signal performs a
// non-blocking send per subscriber: when a redraw is already pending the new
// signal coalesces into it, never queues. A consumer that wakes always reads
// the latest frame from the slot, so intermediate signals carry nothing
// worth keeping.
//
// Thread-safety: all methods safe for concurrent use.
type RedrawNotifier struct {
	mu      sync.Mutex
	subs    map[string]chan struct{}
	stats   map[string]*subscriberCounters
	signals uint64
	closed  bool
}

type subscriberCounters struct {
	delivered uint64
	coalesced uint64
}

// NewRedrawNotifier creates an empty notifier.
func NewRedrawNotifier() *RedrawNotifier {
	return &RedrawNotifier{
		subs:  make(map[string]chan struct{}),
		stats: make(map[string]*subscriberCounters),
	}
}

// Subscribe registers id and returns its signal channel. The channel closes
// on Unsubscribe or Close; a closed receive means the producer side is gone
// and the consumer should exit its redraw loop.
func (n *RedrawNotifier) Subscribe(id string) (<-chan struct{}, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, ErrNotifierClosed
	}
	if _, exists := n.subs[id]; exists {
		return nil, ErrSubscriberExists
	}

	ch := make(chan struct{}, 1)
	n.subs[id] = ch
	n.stats[id] = &subscriberCounters{}
	return ch, nil
}

// Unsubscribe removes id and closes its channel, waking a blocked consumer.
func (n *RedrawNotifier) Unsubscribe(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch, exists := n.subs[id]
	if !exists {
		return ErrSubscriberNotFound
	}
	delete(n.subs, id)
	delete(n.stats, id)
	close(ch)
	return nil
}

// Signal marks a new frame available for every subscriber. Non-blocking,
// fire-and-forget; no-op after Close.
func (n *RedrawNotifier) Signal() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.signals++
	for id, ch := range n.subs {
		select {
		case ch <- struct{}{}:
			n.stats[id].delivered++
		default:
			n.stats[id].coalesced++
		}
	}
}

// Close removes every subscriber, closing their channels, and rejects
// further subscriptions. Idempotent.
func (n *RedrawNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		close(ch)
		delete(n.subs, id)
		delete(n.stats, id)
	}
}

// Stats returns a snapshot of signal and per-subscriber counters.
func (n *RedrawNotifier) Stats() NotifierStats {
	n.mu.Lock()
	defer n.mu.Unlock()

	subscribers := make(map[string]SubscriberStats, len(n.stats))
	for id, c := range n.stats {
		subscribers[id] = SubscriberStats{
			Delivered: c.delivered,
			Coalesced: c.coalesced,
		}
	}
	return NotifierStats{
		Signals:     n.signals,
		Subscribers: subscribers,
	}
}

package broadcast

import (
	"sync"
	"time"

	"github.com/dyike/StockScout/internal/models"
)

// Subscription is the live binding between a request id and its single
// event listener. The handle stops yielding events once superseded by a
// newer subscription or explicitly unsubscribed.
type Subscription struct {
	requestID string
	events    chan models.LogEvent
	done      chan struct{}
	closeOnce sync.Once
}

// Events yields published events in publish order.
func (s *Subscription) Events() <-chan models.LogEvent {
	return s.events
}

// Done is closed when the subscription has been superseded or removed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Broadcaster routes progress events to at most one subscriber per request
// identifier. Delivery is best effort: no subscriber means the event is
// dropped, a full buffer means the event is dropped.
type Broadcaster struct {
	mu          sync.RWMutex
	subs        map[string]*Subscription
	bufferSize  int
	drainWindow time.Duration
}

type Option func(*Broadcaster)

func WithBufferSize(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

func WithDrainWindow(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.drainWindow = d
		}
	}
}

func NewBroadcaster(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		subs:        make(map[string]*Subscription),
		bufferSize:  256,
		drainWindow: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers the caller as the listener for requestID. A previous
// subscription for the same id is silently superseded: its handle stops
// receiving further events and its Done channel closes.
func (b *Broadcaster) Subscribe(requestID string) *Subscription {
	sub := &Subscription{
		requestID: requestID,
		events:    make(chan models.LogEvent, b.bufferSize),
		done:      make(chan struct{}),
	}

	b.mu.Lock()
	prev := b.subs[requestID]
	b.subs[requestID] = sub
	b.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	return sub
}

// Unsubscribe removes sub if it is still the active listener for its
// request id. A superseded handle is a no-op here.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	if b.subs[sub.requestID] == sub {
		delete(b.subs, sub.requestID)
	}
	b.mu.Unlock()
	sub.close()
}

// Publish delivers event to the current subscriber of requestID, if any.
// After a terminal event the subscription is dropped once the drain window
// elapses, so a stream never outlives its request by more than that window.
func (b *Broadcaster) Publish(requestID string, event models.LogEvent) {
	b.mu.RLock()
	sub := b.subs[requestID]
	b.mu.RUnlock()
	if sub == nil {
		return
	}

	select {
	case <-sub.done:
		return
	default:
	}

	select {
	case sub.events <- event:
	case <-sub.done:
	default:
		// Buffer full: drop, streaming is best effort.
	}

	if event.Terminal() {
		time.AfterFunc(b.drainWindow, func() { b.Unsubscribe(sub) })
	}
}

// SubscriberCount reports how many request ids currently have a listener.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

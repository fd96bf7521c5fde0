package notifications

import (
	"sync"

	"portal/internal/models"
	"portal/internal/observability"
)

const defaultFeedBuffer = 16

// Filter selects the events a feed subscriber receives. The zero value
// matches every profile.
type Filter struct {
	ProfileID string
}

func (f Filter) matches(event models.ProfileEvent) bool {
	return f.ProfileID == "" || f.ProfileID == event.SubjectID()
}

// Feed is an in-process change feed. Delivery never blocks the publisher:
// a subscriber whose buffer is full misses the event.
type Feed struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[*Subscription]struct{})}
}

// Subscription is a live registration on a Feed.
type Subscription struct {
	feed   *Feed
	filter Filter
	ch     chan models.ProfileEvent
	once   sync.Once
}

// C yields matching events. It is closed by Unsubscribe or Feed.Close.
func (s *Subscription) C() <-chan models.ProfileEvent {
	return s.ch
}

// Unsubscribe releases the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.feed.remove(s)
}

// Subscribe registers a subscriber with the given filter. buffer <= 0 uses a default.
func (f *Feed) Subscribe(filter Filter, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultFeedBuffer
	}
	s := &Subscription{feed: f, filter: filter, ch: make(chan models.ProfileEvent, buffer)}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(s.ch)
		return s
	}
	f.subs[s] = struct{}{}
	observability.FeedSubscribers.Inc()
	return s
}

func (f *Feed) remove(s *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[s]; !ok {
		return
	}
	delete(f.subs, s)
	observability.FeedSubscribers.Dec()
	s.once.Do(func() { close(s.ch) })
}

// Deliver fans an event out to matching subscribers.
func (f *Feed) Deliver(event models.ProfileEvent, _ []byte) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for s := range f.subs {
		if !s.filter.matches(event) {
			continue
		}
		select {
		case s.ch <- event:
		default:
			observability.FeedDrops.Inc()
		}
	}
}

// Len is the number of active subscriptions.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for s := range f.subs {
		delete(f.subs, s)
		observability.FeedSubscribers.Dec()
		s.once.Do(func() { close(s.ch) })
	}
}

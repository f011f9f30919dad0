// Package events carries change notifications between the persistence core
// and the editor surface: title changes, save-state transitions, and list
// invalidations.
package events

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/halim714/markpress/pkg/interfaces"
)

// Bus is an in-process event broker.
//
// Concurrency model: a single internal loop goroutine owns the subscriber
// set. Public methods communicate with the loop through channels, so no
// mutexes are required. Publish never blocks: a subscriber whose buffer is
// full misses the event.
type Bus struct {
	subscribeCh   chan chan interfaces.Event
	unsubscribeCh chan chan interfaces.Event
	publishCh     chan interfaces.Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

const subscriberBuffer = 64

// NewBus starts the broker loop.
func NewBus() *Bus {
	b := &Bus{
		subscribeCh:   make(chan chan interfaces.Event),
		unsubscribeCh: make(chan chan interfaces.Event),
		publishCh:     make(chan interfaces.Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

var _ interfaces.EventBus = (*Bus)(nil)

func (b *Bus) run() {
	defer close(b.stopped)

	subscribers := make(map[chan interfaces.Event]struct{})

	for {
		select {
		case <-b.stopCh:
			for ch := range subscribers {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			subscribers[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := subscribers[ch]; ok {
				delete(subscribers, ch)
				close(ch)
			}

		case evt := <-b.publishCh:
			for ch := range subscribers {
				select {
				case ch <- evt:
				default:
					// subscriber buffer full, drop rather than stall saves
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(subscribers)
		}
	}
}

// Subscribe registers a listener. The returned cancel func detaches it and
// closes the channel; calling cancel more than once is safe.
func (b *Bus) Subscribe() (<-chan interfaces.Event, func()) {
	ch := make(chan interfaces.Event, subscriberBuffer)
	if b.closed.Load() {
		close(ch)
		return ch, func() {}
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
		return ch, func() {}
	}

	var once atomic.Bool
	cancel := func() {
		if !once.CompareAndSwap(false, true) {
			return
		}
		select {
		case b.unsubscribeCh <- ch:
		case <-b.stopped:
		}
	}
	return ch, cancel
}

// Publish delivers evt to every subscriber without blocking the caller.
func (b *Bus) Publish(evt interfaces.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- evt:
	case <-b.stopped:
	}
}

// SubscriberCount reports the number of attached listeners.
func (b *Bus) SubscriberCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Bus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// PublishTitleChanged is a convenience wrapper for the title change event.
func (b *Bus) PublishTitleChanged(id uuid.UUID, title string) {
	b.Publish(interfaces.Event{
		Type:    interfaces.EventTitleChanged,
		Payload: interfaces.TitleChanged{ID: id, Title: title},
	})
}

// PublishSaveStatus is a convenience wrapper for save-state transitions.
func (b *Bus) PublishSaveStatus(id uuid.UUID, state interfaces.SaveState, err error) {
	b.Publish(interfaces.Event{
		Type:    interfaces.EventSaveStatus,
		Payload: interfaces.SaveStatus{ID: id, State: state, Err: err},
	})
}

// PublishListChanged signals that the document set changed.
func (b *Bus) PublishListChanged() {
	b.Publish(interfaces.Event{
		Type:    interfaces.EventDocumentListChanged,
		Payload: interfaces.DocumentListChanged{},
	})
}

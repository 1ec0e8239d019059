package events

import (
	"errors"
	"sync"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

const defaultBufferSize = 16

// Bus is a notification-keyed event delivery system. Subscribing without
// names receives every notification.
type Bus struct {
	lk     sync.Mutex
	subs   map[domain.Notification][]*sub
	all    []*sub
	buffer int
}

var _ usecase.EventBus = (*Bus)(nil)

// NewBus returns an in-process event bus
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[domain.Notification][]*sub),
		buffer: defaultBufferSize,
	}
}

// Emit delivers the event to every matching subscriber. Subscribers that stop
// draining their channel block the emitter.
func (b *Bus) Emit(name domain.Notification, payload any) {
	b.lk.Lock()
	defer b.lk.Unlock()

	event := usecase.Event{Name: name, Payload: payload}
	for _, s := range b.subs[name] {
		s.ch <- event
	}
	for _, s := range b.all {
		s.ch <- event
	}
}

// Subscribe creates a new subscription. Failing to drain the channel will
// cause emitters to get blocked.
func (b *Bus) Subscribe(names ...domain.Notification) (usecase.Subscription, error) {
	b.lk.Lock()
	defer b.lk.Unlock()

	for _, name := range names {
		if name == "" {
			return nil, errors.New("subscribe called with empty notification name")
		}
	}

	out := &sub{
		ch:    make(chan usecase.Event, b.buffer),
		names: names,
		drop:  b.dropSubscriber,
	}
	if len(names) == 0 {
		b.all = append(b.all, out)
		return out, nil
	}
	for _, name := range names {
		b.subs[name] = append(b.subs[name], out)
	}
	return out, nil
}

func (b *Bus) dropSubscriber(s *sub) {
	b.lk.Lock()
	defer b.lk.Unlock()

	if len(s.names) == 0 {
		b.all = remove(b.all, s)
		return
	}
	for _, name := range s.names {
		b.subs[name] = remove(b.subs[name], s)
		if len(b.subs[name]) == 0 {
			delete(b.subs, name)
		}
	}
}

func remove(subs []*sub, s *sub) []*sub {
	for i, cur := range subs {
		if cur == s {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

type sub struct {
	ch    chan usecase.Event
	names []domain.Notification
	drop  func(s *sub)
	once  sync.Once
}

func (s *sub) Out() <-chan usecase.Event {
	return s.ch
}

func (s *sub) Close() error {
	s.once.Do(func() {
		go func() {
			// drain the event channel, will return when closed and drained.
			// this unblocks emitters waiting on this channel.
			for range s.ch {
			}
		}()

		s.drop(s)
		close(s.ch)
	})
	return nil
}

var _ usecase.Subscription = (*sub)(nil)

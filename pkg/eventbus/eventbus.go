// Package eventbus is a small synchronous publish/subscribe hub. A Bus is
// built once at program start and handed to whoever needs it.
package eventbus

import (
	"fmt"
	"sync"

	"sorso/pkg/logger"
)

type Topic string

const (
	// SessionChanged carries a SessionChange
	SessionChanged Topic = "session_changed"
	// ReservationConfirmed carries the confirmed reservation
	ReservationConfirmed Topic = "reservation_confirmed"
	// AvailabilityRefreshed carries the reloaded counts of one event
	AvailabilityRefreshed Topic = "availability_refreshed"
)

// SessionChange is the payload of SessionChanged
type SessionChange struct {
	Active bool
	UserID string
}

type Handler func(payload interface{})

type subscription struct {
	id      uint64
	handler Handler
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	nextID uint64
	closed bool
	log    *logger.Logger
}

type Option func(*Bus)

// WithLogger sets where recovered handler panics are reported
func WithLogger(l *logger.Logger) Option {
	return func(b *Bus) { b.log = l }
}

func New(opts ...Option) *Bus {
	b := &Bus{subs: make(map[Topic][]subscription), log: logger.Discard()}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithComponent("eventbus")
	return b
}

// On subscribes h to topic and returns a func that removes it. Calling the
// returned func more than once is harmless.
func (b *Bus) On(topic Topic, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.off(topic, id) })
	}
}

func (b *Bus) off(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[topic]
	for i, s := range list {
		if s.id == id {
			b.subs[topic] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Emit calls every handler of topic in subscription order on the caller's
// goroutine. Handlers may subscribe or unsubscribe while being called.
func (b *Bus) Emit(topic Topic, payload interface{}) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := make([]Handler, len(b.subs[topic]))
	for i, s := range b.subs[topic] {
		handlers[i] = s.handler
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.call(topic, h, payload)
	}
}

func (b *Bus) call(topic Topic, h Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "topic", string(topic), "panic", fmt.Sprint(r))
		}
	}()
	h(payload)
}

// Close drops every subscription; later Emit and On calls do nothing
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[Topic][]subscription)
}

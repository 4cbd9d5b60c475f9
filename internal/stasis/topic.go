// Package stasis provides the in-process message bus the bridge
// consumes from: topics with per-subscription ordered delivery, and a
// router for named application handlers.
package stasis

import "sync"

// Handler receives every message published to a topic after the
// subscription was taken. Handlers run on the subscription's delivery
// goroutine, so a slow handler delays its own subscription only.
type Handler func(sub *Subscription, event any)

// ManagerMessage is the raw shape of a manager (AMI) event on a topic.
// Fields is the flat "Key: Value" blob, lines separated by CR/LF. An
// empty Event name means the message has no AMI representation.
type ManagerMessage struct {
	Event  string
	Fields string
}

// finalMessage is the end-of-subscription sentinel. It is always the
// last message a subscription delivers.
type finalMessage struct {
	sub *Subscription
}

// Topic fans published messages out to its subscriptions. Delivery is
// FIFO per subscription and asynchronous with respect to Publish.
type Topic struct {
	name string

	mu   sync.Mutex
	subs []*Subscription
}

// NewTopic creates an empty topic. The name is informational.
func NewTopic(name string) *Topic {
	return &Topic{name: name}
}

// Name returns the topic name.
func (t *Topic) Name() string {
	return t.name
}

// Subscribe attaches handler to the topic and starts its delivery
// goroutine. Messages published before Subscribe are not replayed.
func (t *Topic) Subscribe(handler Handler) *Subscription {
	sub := newSubscription(t, handler)

	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()

	return sub
}

// Publish enqueues event on every current subscription and returns
// without waiting for delivery.
func (t *Topic) Publish(event any) {
	t.mu.Lock()
	subs := make([]*Subscription, len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, sub := range subs {
		sub.enqueue(event)
	}
}

func (t *Topic) remove(sub *Subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s == sub {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

// Subscription is one handler's attachment to a topic. Its queue is
// unbounded so publishers never block on a slow handler.
type Subscription struct {
	topic   *Topic
	handler Handler

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []any
	closed bool

	done chan struct{}
}

func newSubscription(t *Topic, handler Handler) *Subscription {
	sub := &Subscription{
		topic:   t,
		handler: handler,
		done:    make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)
	go sub.deliver()
	return sub
}

// Final reports whether event is this subscription's
// end-of-subscription sentinel. After the handler returns from the
// sentinel no further messages are delivered.
func (s *Subscription) Final(event any) bool {
	fm, ok := event.(*finalMessage)
	return ok && fm.sub == s
}

// Unsubscribe detaches the subscription from its topic and enqueues the
// final sentinel. It does not wait for pending deliveries.
func (s *Subscription) Unsubscribe() {
	s.topic.remove(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.queue = append(s.queue, &finalMessage{sub: s})
	s.cond.Signal()
}

// Join blocks until the handler has returned from the final sentinel.
func (s *Subscription) Join() {
	<-s.done
}

// UnsubscribeAndJoin unsubscribes and waits for the delivery goroutine
// to finish. On return the handler is guaranteed not to run again.
func (s *Subscription) UnsubscribeAndJoin() {
	s.Unsubscribe()
	s.Join()
}

func (s *Subscription) enqueue(event any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, event)
	s.cond.Signal()
}

func (s *Subscription) deliver() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 {
			s.cond.Wait()
		}
		event := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.handler(s, event)

		if s.Final(event) {
			close(s.done)
			return
		}
	}
}

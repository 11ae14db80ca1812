// Package mailbox provides an unbounded FIFO queue drained by a single
// consumer goroutine.
//
// Producers never block on Push, so an event loop can fan a message out to
// many mailboxes without waiting on slow consumers. Close drops anything not
// yet delivered; once Close returns, no new delivery starts.
package mailbox

import "sync"

// Mailbox is an unbounded queue of T with one consumer.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}
	done   chan struct{}
}

// New returns an open, empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends v. It reports false when the mailbox is closed.
func (m *Mailbox[T]) Push(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, v)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of undelivered items.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close discards undelivered items and stops Run. It is idempotent.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.items = nil
	close(m.done)
}

// Closed reports whether Close has been called.
func (m *Mailbox[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Run delivers items to fn in push order until the mailbox is closed.
// It must be called from exactly one goroutine.
func (m *Mailbox[T]) Run(fn func(T)) {
	for {
		v, ok := m.next()
		if !ok {
			return
		}
		fn(v)
	}
}

// next blocks until an item is available or the mailbox closes.
func (m *Mailbox[T]) next() (T, bool) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			var zero T
			return zero, false
		}
		if len(m.items) > 0 {
			v := m.items[0]
			var zero T
			m.items[0] = zero
			m.items = m.items[1:]
			m.mu.Unlock()
			return v, true
		}
		m.mu.Unlock()

		select {
		case <-m.signal:
		case <-m.done:
		}
	}
}

package orchestration

import (
	"sync"

	"github.com/koscakluka/ema-voice/core/events"
)

// mailbox is the unbounded inbound queue of the event loop. Posting never
// blocks, collaborators call back from inside loop steps.
type mailbox struct {
	mu     sync.Mutex
	items  []events.Event
	closed bool

	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

// post enqueues event and reports whether the mailbox still accepts events.
func (m *mailbox) post(event events.Event) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, event)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// drain takes every queued event in arrival order.
func (m *mailbox) drain() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.items = nil
}

func (m *mailbox) ready() <-chan struct{} { return m.signal }

package main

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/koscakluka/ema-voice/core/events"
)

type sender interface {
	Send(msg tea.Msg)
}

// intentBridge forwards session intents to the UI in order without blocking
// the session's event loop.
type intentBridge struct {
	mu      sync.Mutex
	pending []events.Event
	closed  bool
	signal  chan struct{}
	done    chan struct{}
}

func newIntentBridge(target sender) *intentBridge {
	b := &intentBridge{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go b.forward(target)
	return b
}

func (b *intentBridge) push(event events.Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.pending = append(b.pending, event)
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *intentBridge) forward(target sender) {
	for {
		select {
		case <-b.done:
			return
		case <-b.signal:
		}

		b.mu.Lock()
		pending := b.pending
		b.pending = nil
		b.mu.Unlock()

		for _, event := range pending {
			target.Send(intentMsg{event: event})
		}
	}
}

func (b *intentBridge) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
}

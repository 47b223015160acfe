package conversations

import (
	"slices"
	"sync"
)

// Log is the insertion-ordered transcript shown to the user.
type Log struct {
	turns []Turn
	mu    sync.RWMutex
}

// Append adds turn to the end of the log. Blank turns are rejected and
// Append reports false.
func (l *Log) Append(turn Turn) bool {
	if IsBlank(turn.Text) {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turn)
	return true
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Clear removes all stored turns
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}

// Turns returns a copy of the stored turns, oldest first.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.turns)
}

// Values is an iterator that goes over all the stored turns starting from the
// earliest towards the latest
func (l *Log) Values(yield func(Turn) bool) {
	for _, turn := range l.Turns() {
		if !yield(turn) {
			return
		}
	}
}

// RValues goes over all the stored turns starting from the latest towards the
// earliest
func (l *Log) RValues(yield func(Turn) bool) {
	for _, turn := range slices.Backward(l.Turns()) {
		if !yield(turn) {
			return
		}
	}
}

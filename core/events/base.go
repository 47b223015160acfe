package events

import "time"

type Kind string

// Event is a discrete occurrence delivered to (or emitted by) the session
// event loop. Concrete events are plain values, receivers switch on the
// concrete type.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

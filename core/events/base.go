package events

import "time"

// Kind names an event type. Kinds are dot-namespaced by the component that
// emits them (see the package doc for the full catalogue).
type Kind string

// Event is what the session's event stream carries. Concrete events embed
// Base and add their payload fields.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the kind and emission time shared by every event.
type Base struct {
	kind       Kind
	observedAt time.Time
}

// NewBase stamps a new event with the current wall-clock time.
func NewBase(kind Kind) Base {
	return Base{kind: kind, observedAt: time.Now()}
}

func (b Base) Kind() Kind { return b.kind }

// Timestamp is when the event was emitted, not when the underlying audio was
// captured.
func (b Base) Timestamp() time.Time { return b.observedAt }

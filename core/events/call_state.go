package events

const (
	// KindCallStateChanged identifies controller state transitions.
	KindCallStateChanged Kind = "call_state.changed"
	// KindInactivityElapsed identifies an expired Listening inactivity window.
	KindInactivityElapsed Kind = "call_state.inactivity_elapsed"
)

// CallStateChanged marks a transition of the call controller. State carries
// the controller's string rendering of the new state.
type CallStateChanged struct {
	Base
	State string
}

// NewCallStateChanged creates a call state transition event.
func NewCallStateChanged(state string) CallStateChanged {
	return CallStateChanged{Base: NewBase(KindCallStateChanged), State: state}
}

// InactivityElapsed marks a Listening period that saw no speech activity for
// the full inactivity window.
type InactivityElapsed struct{ Base }

// NewInactivityElapsed creates an inactivity event.
func NewInactivityElapsed() InactivityElapsed {
	return InactivityElapsed{Base: NewBase(KindInactivityElapsed)}
}

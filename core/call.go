package voicecall

import (
	"slices"
	"sync"
	"time"

	"github.com/lingualive/tutor-core/core/events"
)

// callController owns the turn-taking state machine. Each operation names the
// states it may fire from; requests from any other state are dropped, never
// errors. That makes every operation safe to call from late or stale
// callbacks of components that were already torn down.
type callController struct {
	mu    sync.Mutex
	state CallState

	inactivity *inactivityTimer

	emitEvent eventEmitter
}

func newCallController(inactivityTimeout time.Duration, onInactivity func()) *callController {
	c := &callController{
		state:     CallStateIdle,
		emitEvent: noopEventEmitter,
	}
	c.inactivity = newInactivityTimer(inactivityTimeout, onInactivity)
	return c
}

func (c *callController) SetEventEmitter(emitEvent eventEmitter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if emitEvent != nil {
		c.emitEvent = emitEvent
	} else {
		c.emitEvent = noopEventEmitter
	}
}

func (c *callController) State() CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartListening hands the turn to the user at call start.
func (c *callController) StartListening() bool {
	return c.transition([]CallState{CallStateIdle}, CallStateListening)
}

// StartProcessing claims the turn for answering a finished user utterance.
func (c *callController) StartProcessing() bool {
	return c.transition([]CallState{CallStateListening}, CallStateProcessing)
}

// StartSpeaking hands the turn to the assistant. Speaking straight from
// listening happens for unprompted utterances like the inactivity nudge.
func (c *callController) StartSpeaking() bool {
	return c.transition([]CallState{CallStateListening, CallStateProcessing}, CallStateSpeaking)
}

// FinishSpeaking returns the turn to the user after playback, or after an
// answer could not be produced.
func (c *callController) FinishSpeaking() bool {
	return c.transition([]CallState{CallStateSpeaking, CallStateProcessing}, CallStateListening)
}

// Reset ends the call from whatever state it is in. Returns false when no
// call was in progress.
func (c *callController) Reset() bool {
	return c.transition([]CallState{CallStateListening, CallStateProcessing, CallStateSpeaking}, CallStateIdle)
}

// NoteActivity records that the user was heard, pushing the inactivity
// deadline back while listening.
func (c *callController) NoteActivity() {
	c.inactivity.Reset()
}

func (c *callController) transition(from []CallState, to CallState) bool {
	c.mu.Lock()
	if !slices.Contains(from, c.state) {
		c.mu.Unlock()
		return false
	}
	c.state = to

	// The inactivity timer only runs while the user holds the turn. Arm and
	// disarm inside the critical section, so the timer effects of two
	// transitions land in the same order as the transitions themselves.
	if to == CallStateListening {
		c.inactivity.Arm()
	} else {
		c.inactivity.Disarm()
	}

	emitEvent := c.emitEvent
	c.mu.Unlock()

	emitEvent(events.NewCallStateChanged(string(to)))
	return true
}

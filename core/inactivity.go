package voicecall

import (
	"sync"
	"time"
)

// InactivityTimeout is how long the call listens without hearing anything
// before prompting the user.
const InactivityTimeout = 10 * time.Second

// inactivityTimer is a single-shot timer scoped to one listening stretch.
// Every arm or reset invalidates previously scheduled firings, so a timer
// from a stretch that already ended can never fire into the next one.
type inactivityTimer struct {
	timeout   time.Duration
	onElapsed func()

	mu         sync.Mutex
	generation int
	armed      bool

	afterFunc func(d time.Duration, f func()) *time.Timer
}

func newInactivityTimer(timeout time.Duration, onElapsed func()) *inactivityTimer {
	if onElapsed == nil {
		onElapsed = func() {}
	}
	return &inactivityTimer{
		timeout:   timeout,
		onElapsed: onElapsed,
		afterFunc: time.AfterFunc,
	}
}

func (t *inactivityTimer) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.armed = true
	generation := t.generation
	t.afterFunc(t.timeout, func() { t.elapsed(generation) })
}

// Reset pushes the deadline back. Does nothing while disarmed; hearing the
// user only matters while the call is actually listening.
func (t *inactivityTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed {
		return
	}
	t.generation++
	generation := t.generation
	t.afterFunc(t.timeout, func() { t.elapsed(generation) })
}

func (t *inactivityTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.armed = false
}

func (t *inactivityTimer) elapsed(generation int) {
	t.mu.Lock()
	if generation != t.generation || !t.armed {
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.mu.Unlock()

	t.onElapsed()
}

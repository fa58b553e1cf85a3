package voicecall

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lingualive/tutor-core/core/events"
)

func newTestController(onInactivity func()) *callController {
	controller := newCallController(InactivityTimeout, onInactivity)
	// Keep scheduled firings out of unit tests; they are triggered by hand.
	controller.inactivity.afterFunc = func(time.Duration, func()) *time.Timer {
		return time.NewTimer(time.Hour)
	}
	return controller
}

func TestControllerWalksTheHappyPath(t *testing.T) {
	controller := newTestController(nil)

	steps := []struct {
		name string
		op   func() bool
		want CallState
	}{
		{"start listening", controller.StartListening, CallStateListening},
		{"start processing", controller.StartProcessing, CallStateProcessing},
		{"start speaking", controller.StartSpeaking, CallStateSpeaking},
		{"finish speaking", controller.FinishSpeaking, CallStateListening},
		{"reset", controller.Reset, CallStateIdle},
	}

	for _, step := range steps {
		if !step.op() {
			t.Fatalf("expected %s to apply", step.name)
		}
		if got := controller.State(); got != step.want {
			t.Fatalf("expected state %s after %s, got %s", step.want, step.name, got)
		}
	}
}

func TestControllerDropsIllegalTransitions(t *testing.T) {
	controller := newTestController(nil)

	// Nothing is legal from idle except starting to listen.
	for name, op := range map[string]func() bool{
		"processing from idle":      controller.StartProcessing,
		"speaking from idle":        controller.StartSpeaking,
		"finish speaking from idle": controller.FinishSpeaking,
		"reset without call":        controller.Reset,
	} {
		if op() {
			t.Fatalf("expected %s to be dropped", name)
		}
		if got := controller.State(); got != CallStateIdle {
			t.Fatalf("expected state to stay idle after %s, got %s", name, got)
		}
	}

	controller.StartListening()
	if controller.StartListening() {
		t.Fatalf("expected a second start to be dropped")
	}
	if controller.FinishSpeaking() {
		t.Fatalf("expected finish speaking from listening to be dropped")
	}

	// A stale playback-ended callback after the call ended must not restart
	// listening.
	controller.Reset()
	if controller.FinishSpeaking() {
		t.Fatalf("expected finish speaking after reset to be dropped")
	}
	if got := controller.State(); got != CallStateIdle {
		t.Fatalf("expected state to stay idle, got %s", got)
	}
}

func TestControllerSpeaksDirectlyFromListening(t *testing.T) {
	controller := newTestController(nil)

	controller.StartListening()
	if !controller.StartSpeaking() {
		t.Fatalf("expected speaking from listening to apply for unprompted utterances")
	}
}

func TestControllerEmitsStateChanges(t *testing.T) {
	controller := newTestController(nil)

	states := []string{}
	controller.SetEventEmitter(func(event events.Event) {
		if typedEvent, ok := event.(events.CallStateChanged); ok {
			states = append(states, typedEvent.State)
		}
	})

	controller.StartListening()
	controller.StartProcessing()
	controller.StartProcessing() // dropped, must not emit
	controller.Reset()

	want := []string{"listening", "processing", "idle"}
	if len(states) != len(want) {
		t.Fatalf("expected %d state changes, got %v", len(want), states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected state changes %v, got %v", want, states)
		}
	}
}

func TestControllerInactivityOnlyArmedWhileListening(t *testing.T) {
	fired := 0
	controller := newCallController(InactivityTimeout, func() { fired++ })

	pending := []func(){}
	controller.inactivity.afterFunc = func(_ time.Duration, f func()) *time.Timer {
		pending = append(pending, f)
		return time.NewTimer(time.Hour)
	}

	controller.StartListening()
	if len(pending) != 1 {
		t.Fatalf("expected the timer armed on listening, got %d scheduled", len(pending))
	}

	// The turn moves on before the deadline; the old firing must be void.
	controller.StartProcessing()
	pending[0]()
	if fired != 0 {
		t.Fatalf("expected no firing after leaving listening, got %d", fired)
	}

	controller.FinishSpeaking()
	if len(pending) != 2 {
		t.Fatalf("expected the timer rearmed on listening, got %d scheduled", len(pending))
	}
	pending[1]()
	if fired != 1 {
		t.Fatalf("expected the armed timer to fire, got %d", fired)
	}
}

func TestControllerActivityPushesDeadlineBack(t *testing.T) {
	fired := 0
	controller := newCallController(InactivityTimeout, func() { fired++ })

	pending := []func(){}
	controller.inactivity.afterFunc = func(_ time.Duration, f func()) *time.Timer {
		pending = append(pending, f)
		return time.NewTimer(time.Hour)
	}

	controller.StartListening()
	controller.NoteActivity()

	if len(pending) != 2 {
		t.Fatalf("expected activity to rearm the timer, got %d scheduled", len(pending))
	}

	pending[0]()
	if fired != 0 {
		t.Fatalf("expected the superseded firing to be void, got %d", fired)
	}
	pending[1]()
	if fired != 1 {
		t.Fatalf("expected the fresh firing to count, got %d", fired)
	}
}

func TestControllerTimerEffectsFollowTransitionOrder(t *testing.T) {
	for range 100 {
		var fired atomic.Int32
		controller := newCallController(InactivityTimeout, func() { fired.Add(1) })

		var pendingMu sync.Mutex
		pending := []func(){}
		controller.inactivity.afterFunc = func(_ time.Duration, f func()) *time.Timer {
			pendingMu.Lock()
			pending = append(pending, f)
			pendingMu.Unlock()
			return time.NewTimer(time.Hour)
		}

		controller.StartListening()
		controller.StartProcessing()
		controller.StartSpeaking()

		// Playback ends while a final transcript races to claim the turn. No
		// matter how the two transitions interleave, the call ends up
		// processing and the timer must end up disarmed.
		done := make(chan struct{})
		go func() {
			controller.FinishSpeaking()
			close(done)
		}()
		for !controller.StartProcessing() {
			runtime.Gosched()
		}
		<-done

		pendingMu.Lock()
		scheduled := pending
		pendingMu.Unlock()
		for _, fire := range scheduled {
			fire()
		}
		if got := fired.Load(); got != 0 {
			t.Fatalf("expected no firing while processing, got %d", got)
		}
	}
}

func TestControllerActivityIgnoredWhileNotListening(t *testing.T) {
	controller := newCallController(InactivityTimeout, nil)

	pending := []func(){}
	controller.inactivity.afterFunc = func(_ time.Duration, f func()) *time.Timer {
		pending = append(pending, f)
		return time.NewTimer(time.Hour)
	}

	controller.NoteActivity()
	if len(pending) != 0 {
		t.Fatalf("expected no timer while idle, got %d scheduled", len(pending))
	}
}

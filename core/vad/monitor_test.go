package vad

import (
	"encoding/binary"
	"fmt"
	"testing"
	"time"
)

// scriptedAnalyzer returns a fixed loudness level per read.
type scriptedAnalyzer struct {
	level  int16
	err    error
	closed bool
}

func (a *scriptedAnalyzer) TimeDomainSamples(buf []int16) (int, error) {
	if a.err != nil {
		return 0, a.err
	}
	for i := range buf {
		buf[i] = a.level
	}
	return len(buf), nil
}

func (a *scriptedAnalyzer) Close() error {
	a.closed = true
	return nil
}

// monitorHarness drives the monitor's sampling frame by frame on a fake clock.
type monitorHarness struct {
	monitor  *Monitor
	analyzer *scriptedAnalyzer
	clock    time.Time
}

func newMonitorHarness(t *testing.T, opts ...MonitorOption) *monitorHarness {
	t.Helper()

	h := &monitorHarness{
		monitor:  NewMonitor(opts...),
		analyzer: &scriptedAnalyzer{},
		clock:    time.Unix(1000, 0),
	}
	h.monitor.analyzer = h.analyzer
	h.monitor.now = func() time.Time { return h.clock }
	return h
}

// advance simulates d of frames at the given loudness level.
func (h *monitorHarness) advance(d time.Duration, level int16) {
	h.analyzer.level = level
	for elapsed := time.Duration(0); elapsed < d; elapsed += frameInterval {
		h.clock = h.clock.Add(frameInterval)
		h.monitor.sample()
	}
}

const (
	loud  = int16(8000) // well above the 0-255 threshold after RMS scaling
	quiet = int16(0)
)

func TestMonitorConfirmsOnsetAfterStartDelay(t *testing.T) {
	starts := 0
	h := newMonitorHarness(t, WithSpeechStartedCallback(func(float64) { starts++ }))

	h.advance(200*time.Millisecond, loud)
	if starts != 0 {
		t.Fatalf("expected no onset before the start delay elapses, got %d", starts)
	}
	if h.monitor.IsSpeaking() {
		t.Fatalf("expected monitor not to be speaking yet")
	}

	h.advance(200*time.Millisecond, loud)
	if starts != 1 {
		t.Fatalf("expected exactly one onset after sustained loudness, got %d", starts)
	}
	if !h.monitor.IsSpeaking() {
		t.Fatalf("expected monitor to be speaking after confirmed onset")
	}

	// Staying loud must not re-fire the onset.
	h.advance(500*time.Millisecond, loud)
	if starts != 1 {
		t.Fatalf("expected onset to fire once, got %d", starts)
	}
}

func TestMonitorIgnoresTransientNoiseSpike(t *testing.T) {
	starts := 0
	h := newMonitorHarness(t, WithSpeechStartedCallback(func(float64) { starts++ }))

	h.advance(100*time.Millisecond, loud)
	h.advance(100*time.Millisecond, quiet)
	h.advance(100*time.Millisecond, loud)
	h.advance(100*time.Millisecond, quiet)

	if starts != 0 {
		t.Fatalf("expected noise spikes shorter than the start delay to be ignored, got %d onsets", starts)
	}
}

func TestMonitorConfirmsEndAfterEndDelay(t *testing.T) {
	ends := 0
	h := newMonitorHarness(t, WithSpeechEndedCallback(func() { ends++ }))

	h.advance(400*time.Millisecond, loud)
	if !h.monitor.IsSpeaking() {
		t.Fatalf("expected onset to be confirmed")
	}

	h.advance(900*time.Millisecond, quiet)
	if ends != 0 {
		t.Fatalf("expected no end before the end delay elapses, got %d", ends)
	}

	h.advance(200*time.Millisecond, quiet)
	if ends != 1 {
		t.Fatalf("expected exactly one end after sustained silence, got %d", ends)
	}
	if h.monitor.IsSpeaking() {
		t.Fatalf("expected monitor to stop speaking after confirmed end")
	}
}

func TestMonitorBriefDipDoesNotEndSpeech(t *testing.T) {
	ends := 0
	h := newMonitorHarness(t, WithSpeechEndedCallback(func() { ends++ }))

	h.advance(400*time.Millisecond, loud)
	h.advance(600*time.Millisecond, quiet) // mid-sentence pause, under the end delay
	h.advance(200*time.Millisecond, loud)
	h.advance(600*time.Millisecond, quiet)

	if ends != 0 {
		t.Fatalf("expected dips shorter than the end delay to be ignored, got %d ends", ends)
	}
	if !h.monitor.IsSpeaking() {
		t.Fatalf("expected monitor to still be speaking through brief dips")
	}
}

func TestMonitorStartFailsWhenStreamCannotBeAnalyzed(t *testing.T) {
	monitor := NewMonitor()
	analyzer := &scriptedAnalyzer{err: fmt.Errorf("device revoked")}

	if err := monitor.Start(analyzer); err == nil {
		t.Fatalf("expected start to fail when the stream cannot be analyzed")
	}
}

func TestMonitorStopIsIdempotentAndReleasesAnalyzer(t *testing.T) {
	monitor := NewMonitor()
	analyzer := &scriptedAnalyzer{}

	if err := monitor.Start(analyzer); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	monitor.Stop()
	monitor.Stop()

	if !analyzer.closed {
		t.Fatalf("expected stop to release the analyzer")
	}
	if monitor.IsSpeaking() {
		t.Fatalf("expected speaking state to reset on stop")
	}
	if got := monitor.CurrentVolume(); got != 0 {
		t.Fatalf("expected volume to reset on stop, got %f", got)
	}
}

func TestStreamAnalyzerKeepsMostRecentSamples(t *testing.T) {
	analyzer := NewStreamAnalyzer(4)

	frame := make([]byte, 12)
	for i, sample := range []int16{1, 2, 3, 4, 5, 6} {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(sample))
	}
	analyzer.Push(frame)

	buf := make([]int16, 8)
	n, err := analyzer.TimeDomainSamples(buf)
	if err != nil {
		t.Fatalf("expected read to succeed, got %v", err)
	}
	if n != 4 {
		t.Fatalf("expected the window size worth of samples, got %d", n)
	}
	for i, want := range []int16{3, 4, 5, 6} {
		if buf[i] != want {
			t.Fatalf("expected most recent samples [3 4 5 6], got %v", buf[:n])
		}
	}
}

func TestStreamAnalyzerClosedReadsFail(t *testing.T) {
	analyzer := NewStreamAnalyzer(4)
	_ = analyzer.Close()

	if _, err := analyzer.TimeDomainSamples(make([]int16, 4)); err == nil {
		t.Fatalf("expected reads after close to fail")
	}
}

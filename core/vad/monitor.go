// Package vad implements voice activity detection over a live audio input:
// RMS loudness sampling at frame cadence and debounced speech-start/speech-end
// edge detection.
package vad

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	// SpeechThreshold is the loudness (0-255 RMS scale) above which a frame
	// counts as speech.
	SpeechThreshold = 30.0
	// SpeechStartDelay is how long loudness must stay above the threshold
	// before an onset is confirmed. Debounces transient noise spikes.
	SpeechStartDelay = 300 * time.Millisecond
	// SpeechEndDelay is how long loudness must stay below the threshold after
	// a confirmed onset before the utterance counts as ended. Debounces
	// mid-sentence pauses.
	SpeechEndDelay = 1000 * time.Millisecond

	// frameInterval approximates display-refresh cadence for the polling loop.
	frameInterval = 16 * time.Millisecond
)

// Analyzer provides point-in-time access to recent time-domain samples of a
// live input stream.
type Analyzer interface {
	// TimeDomainSamples fills buf with the most recent samples and reports how
	// many were written. Zero samples is valid (treated as silence); an error
	// means the stream can no longer be analyzed.
	TimeDomainSamples(buf []int16) (int, error)
	Close() error
}

type MonitorOptions struct {
	// SpeechStartedCallback fires once per confirmed onset with the loudness
	// observed at confirmation.
	SpeechStartedCallback func(volume float64)
	// SpeechEndedCallback fires once per confirmed utterance end.
	SpeechEndedCallback func()

	Threshold  float64
	StartDelay time.Duration
	EndDelay   time.Duration
}

type MonitorOption func(*MonitorOptions)

func WithSpeechStartedCallback(callback func(volume float64)) MonitorOption {
	return func(o *MonitorOptions) { o.SpeechStartedCallback = callback }
}

func WithSpeechEndedCallback(callback func()) MonitorOption {
	return func(o *MonitorOptions) { o.SpeechEndedCallback = callback }
}

func WithThreshold(threshold float64) MonitorOption {
	return func(o *MonitorOptions) { o.Threshold = threshold }
}

func WithStartDelay(delay time.Duration) MonitorOption {
	return func(o *MonitorOptions) { o.StartDelay = delay }
}

func WithEndDelay(delay time.Duration) MonitorOption {
	return func(o *MonitorOptions) { o.EndDelay = delay }
}

// Monitor polls an Analyzer at frame cadence and classifies sustained loudness
// against silence into speech edge events. One monitor serves one call
// session; construct a fresh one per Start/Stop cycle.
type Monitor struct {
	analyzer Analyzer
	options  MonitorOptions
	buf      []int16

	mu              sync.Mutex
	speaking        bool
	speechStartedAt time.Time
	lastSpeechAt    time.Time
	volume          float64

	now func() time.Time

	startMu  sync.Mutex
	stopOnce *sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewMonitor(opts ...MonitorOption) *Monitor {
	options := MonitorOptions{
		Threshold:  SpeechThreshold,
		StartDelay: SpeechStartDelay,
		EndDelay:   SpeechEndDelay,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Monitor{
		options: options,
		buf:     make([]int16, 1024),
		now:     time.Now,
	}
}

// Start acquires the analyzer and begins the polling loop. Fails without
// side effects when the stream cannot be analyzed.
func (m *Monitor) Start(analyzer Analyzer) error {
	if analyzer == nil {
		return fmt.Errorf("analyzer is required")
	}

	m.startMu.Lock()
	defer m.startMu.Unlock()

	if m.stopCh != nil {
		return fmt.Errorf("monitor already started")
	}

	if _, err := analyzer.TimeDomainSamples(m.buf); err != nil {
		return fmt.Errorf("failed to analyze input stream: %w", err)
	}

	m.analyzer = analyzer
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	m.stopOnce = &sync.Once{}

	go m.loop(m.stopCh, m.done)
	return nil
}

// Stop cancels the polling loop and releases the analyzer. Safe to call
// multiple times and before Start.
func (m *Monitor) Stop() {
	m.startMu.Lock()
	stopOnce := m.stopOnce
	stopCh := m.stopCh
	done := m.done
	analyzer := m.analyzer
	m.startMu.Unlock()

	if stopOnce == nil {
		return
	}

	stopOnce.Do(func() {
		close(stopCh)
		<-done
		if analyzer != nil {
			_ = analyzer.Close()
		}

		m.mu.Lock()
		m.speaking = false
		m.speechStartedAt = time.Time{}
		m.lastSpeechAt = time.Time{}
		m.volume = 0
		m.mu.Unlock()
	})
}

// CurrentVolume reads a point-in-time RMS loudness, independent of the edge
// state machine. Returns the last polled value; 0 before the first frame.
func (m *Monitor) CurrentVolume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// IsSpeaking reports whether the monitor currently considers the user to be
// speaking (onset confirmed, end not yet confirmed).
func (m *Monitor) IsSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

func (m *Monitor) loop(stopCh chan struct{}, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if ok := m.sample(); !ok {
				return
			}
		}
	}
}

// sample runs one polling frame. Returns false when the stream can no longer
// be analyzed.
func (m *Monitor) sample() bool {
	n, err := m.analyzer.TimeDomainSamples(m.buf)
	if err != nil {
		return false
	}

	volume := rms(m.buf[:n])
	now := m.now()

	m.mu.Lock()
	m.volume = volume

	var onSpeechStarted func(volume float64)
	var onSpeechEnded func()

	if volume > m.options.Threshold {
		if !m.speaking {
			if m.speechStartedAt.IsZero() {
				m.speechStartedAt = now
			} else if now.Sub(m.speechStartedAt) > m.options.StartDelay {
				m.speaking = true
				onSpeechStarted = m.options.SpeechStartedCallback
			}
		}
		m.lastSpeechAt = now
	} else {
		if m.speaking {
			if !m.lastSpeechAt.IsZero() && now.Sub(m.lastSpeechAt) > m.options.EndDelay {
				m.speaking = false
				m.speechStartedAt = time.Time{}
				onSpeechEnded = m.options.SpeechEndedCallback
			}
		} else {
			m.speechStartedAt = time.Time{}
		}
	}
	m.mu.Unlock()

	if onSpeechStarted != nil {
		onSpeechStarted(volume)
	}
	if onSpeechEnded != nil {
		onSpeechEnded()
	}

	return true
}

// rms computes root-mean-square amplitude normalized to the 0-255 scale the
// speech threshold is calibrated against.
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	sum := 0.0
	for _, sample := range samples {
		normalized := float64(sample) / 32768
		sum += normalized * normalized
	}
	return math.Sqrt(sum/float64(len(samples))) * 255
}

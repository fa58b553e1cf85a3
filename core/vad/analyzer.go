package vad

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// StreamAnalyzer adapts a push-style capture client (frames arriving through a
// callback) to the Monitor's pull-style Analyzer interface. It keeps a ring of
// the most recent samples.
type StreamAnalyzer struct {
	mu     sync.Mutex
	window []int16
	head   int
	filled int
	closed bool
}

// NewStreamAnalyzer creates an analyzer holding windowSize recent samples.
// windowSize <= 0 falls back to 1024 samples (~64ms at 16kHz).
func NewStreamAnalyzer(windowSize int) *StreamAnalyzer {
	if windowSize <= 0 {
		windowSize = 1024
	}
	return &StreamAnalyzer{window: make([]int16, windowSize)}
}

// Push ingests a little-endian 16-bit PCM frame from the capture device.
// Frames arriving after Close are dropped.
func (a *StreamAnalyzer) Push(pcm []byte) {
	sampleCount := len(pcm) / 2
	if sampleCount == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	for i := range sampleCount {
		a.window[a.head] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		a.head = (a.head + 1) % len(a.window)
		if a.filled < len(a.window) {
			a.filled++
		}
	}
}

func (a *StreamAnalyzer) TimeDomainSamples(buf []int16) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, fmt.Errorf("analyzer closed")
	}

	start := (a.head - a.filled + len(a.window)) % len(a.window)
	n := 0
	for i := 0; i < a.filled && n < len(buf); i++ {
		buf[n] = a.window[(start+i)%len(a.window)]
		n++
	}
	return n, nil
}

func (a *StreamAnalyzer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/lingualive/tutor-core/core/audio"
)

type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	pendingAudio []byte
	marks        []playbackMark
	paused       bool

	mu      sync.Mutex
	audioMu sync.Mutex
	marksMu sync.Mutex
}

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	c.ClearBuffer()
	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.pendingAudio = append(c.pendingAudio, audio...)
	return nil
}

// ClearBuffer drops all queued audio and fires every pending mark, so that a
// waiter blocked in AwaitMark is released when playback is cut short.
func (c *playbackClient) ClearBuffer() {
	c.audioMu.Lock()
	c.pendingAudio = make([]byte, 0)
	c.audioMu.Unlock()

	c.marksMu.Lock()
	flushed := c.marks
	c.marks = nil
	c.marksMu.Unlock()

	if len(flushed) > 0 {
		go func() {
			for _, mark := range flushed {
				mark.callback(mark.name)
			}
		}()
	}
}

func (c *playbackClient) Pause() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.paused = true
}

func (c *playbackClient) Resume() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.paused = false
}

// AwaitMark blocks until all audio queued before this call has been played.
func (c *playbackClient) AwaitMark() error {
	wg := sync.WaitGroup{}
	wg.Add(1)
	_ = c.Mark("", func(string) { wg.Done() })
	wg.Wait()
	return nil
}

// Mark registers a callback fired once playback reaches the current end of the
// queued audio.
func (c *playbackClient) Mark(mark string, callback func(string)) error {
	c.audioMu.Lock()
	position := len(c.pendingAudio)
	c.audioMu.Unlock()

	c.marksMu.Lock()
	defer c.marksMu.Unlock()
	c.marks = append(c.marks, playbackMark{
		name:     mark,
		position: position,
		callback: callback,
	})
	return nil
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	c.device.Uninit()
	c.device = nil

	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		c.audioMu.Lock()
		consumed := 0
		if !c.paused && len(c.pendingAudio) > 0 {
			need := int(frameCount) * bytesPerFrame
			consumed = min(need, len(c.pendingAudio))
			_ = copy(pOutput, c.pendingAudio[:consumed])
			c.pendingAudio = c.pendingAudio[consumed:]
		}
		c.audioMu.Unlock()

		// Marks are confirmed on every callback, even when nothing was
		// consumed: a mark registered after the buffer drained already sits
		// at position zero and must still fire.
		c.confirmMarks(consumed)
	}
}

func (c *playbackClient) confirmMarks(consumed int) {
	c.marksMu.Lock()
	passedMarks := 0
	for i, mark := range c.marks {
		if mark.position > consumed {
			c.marks[i].position -= consumed
		} else {
			passedMarks++
		}
	}

	toCall := []playbackMark{}
	if passedMarks > 0 {
		toCall = c.marks[:passedMarks]
		c.marks = c.marks[passedMarks:]
	}
	c.marksMu.Unlock()

	if len(toCall) > 0 {
		go func() {
			for _, mark := range toCall {
				mark.callback(mark.name)
			}
		}()
	}
}

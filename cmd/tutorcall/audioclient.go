package main

import (
	"context"
	"sync/atomic"

	voicecall "github.com/lingualive/tutor-core/core"
)

// mutingAudioClient drops captured frames while muted, so the rest of the
// pipeline sees silence without the capture device being torn down.
type mutingAudioClient struct {
	voicecall.AudioClient

	muted atomic.Bool
}

func (c *mutingAudioClient) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	return c.AudioClient.StartCapture(ctx, func(frame []byte) {
		if c.muted.Load() {
			return
		}
		onAudio(frame)
	})
}

func (c *mutingAudioClient) ToggleMute() {
	c.muted.Store(!c.muted.Load())
}

func (c *mutingAudioClient) Muted() bool {
	return c.muted.Load()
}

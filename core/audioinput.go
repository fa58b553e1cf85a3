package voicecall

import (
	"context"
	"fmt"

	"github.com/lingualive/tutor-core/core/audio"
)

// AudioClient is a full-duplex audio device: microphone capture on one side,
// speaker playback on the other.
type AudioClient interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error

	SendAudio(audio []byte) error
	ClearBuffer()
	AwaitMark() error

	EncodingInfo() audio.EncodingInfo
}

// audioInput is the capture facade. Nil-safe: an unconfigured input accepts
// all calls and does nothing, so text-only sessions need no special casing.
type audioInput struct {
	client AudioClient

	onAudio func(audio []byte)
}

func newAudioInput(client AudioClient, onAudio func(audio []byte)) *audioInput {
	return &audioInput{
		client:  client,
		onAudio: onAudio,
	}
}

func (a *audioInput) set(client AudioClient) {
	if a != nil {
		a.client = client
	}
}

func (a *audioInput) Start(ctx context.Context) error {
	if !a.isConfigured() {
		return nil
	}

	if err := a.client.StartCapture(ctx, a.onAudio); err != nil {
		return fmt.Errorf("failed to start audio capture: %w", err)
	}
	return nil
}

func (a *audioInput) Stop() error {
	if !a.isConfigured() {
		return nil
	}

	if err := a.client.StopCapture(); err != nil {
		return fmt.Errorf("failed to stop audio capture: %w", err)
	}
	return nil
}

func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	if !a.isConfigured() {
		return audio.GetDefaultEncodingInfo()
	}

	encodingInfo := a.client.EncodingInfo()
	if encodingInfo.IsZero() {
		return audio.GetDefaultEncodingInfo()
	}
	return encodingInfo
}

func (a *audioInput) isConfigured() bool {
	return a != nil && a.client != nil
}

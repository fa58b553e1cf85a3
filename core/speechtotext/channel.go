package speechtotext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lingualive/tutor-core/core/audio"
)

const (
	// networkRestartDelay spaces out reconnect attempts after a connectivity
	// failure so a flapping link is not hammered.
	networkRestartDelay = 1000 * time.Millisecond
	// streamRestartDelay reopens the stream quickly after the recognizer ends
	// it on its own while the channel is still wanted.
	streamRestartDelay = 100 * time.Millisecond
)

// RecognitionClient is a streaming speech recognizer the channel can open,
// feed audio to, and close.
type RecognitionClient interface {
	Transcribe(ctx context.Context, opts ...TranscriptionOption) error
	SendAudio(audio []byte) error
	Close() error
}

type ChannelOptions struct {
	InterimTranscriptCallback func(transcript string)
	FinalTranscriptCallback   func(transcript string)
	SpeechStartedCallback     func()
	SpeechEndedCallback       func()

	// ErrorCallback surfaces stream failures the channel recovers from on its
	// own. Informational; the channel keeps the stream alive regardless.
	ErrorCallback func(err error)

	Language string
}

type ChannelOption func(*ChannelOptions)

func WithChannelInterimTranscriptCallback(callback func(transcript string)) ChannelOption {
	return func(o *ChannelOptions) { o.InterimTranscriptCallback = callback }
}

func WithChannelFinalTranscriptCallback(callback func(transcript string)) ChannelOption {
	return func(o *ChannelOptions) { o.FinalTranscriptCallback = callback }
}

func WithChannelSpeechStartedCallback(callback func()) ChannelOption {
	return func(o *ChannelOptions) { o.SpeechStartedCallback = callback }
}

func WithChannelSpeechEndedCallback(callback func()) ChannelOption {
	return func(o *ChannelOptions) { o.SpeechEndedCallback = callback }
}

func WithChannelErrorCallback(callback func(err error)) ChannelOption {
	return func(o *ChannelOptions) { o.ErrorCallback = callback }
}

func WithChannelLanguage(language string) ChannelOption {
	return func(o *ChannelOptions) { o.Language = language }
}

// Channel keeps a recognition stream continuously open for the duration of a
// call. Streaming recognizers end their streams on their own (timeouts,
// connection drops, silence cutoffs); the channel reopens the stream whenever
// that happens while it is still wanted, so callers see one uninterrupted
// transcription session.
type Channel struct {
	client  RecognitionClient
	options ChannelOptions

	encodingInfo audio.EncodingInfo
	ctx          context.Context

	wanted atomic.Bool

	mu         sync.Mutex
	generation int

	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewChannel(client RecognitionClient, opts ...ChannelOption) *Channel {
	options := ChannelOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return &Channel{
		client:    client,
		options:   options,
		afterFunc: time.AfterFunc,
	}
}

// Start opens the recognition stream. Fails without side effects when the
// stream cannot be opened; recovery only applies to streams that were
// successfully open at least once.
func (c *Channel) Start(ctx context.Context, encodingInfo audio.EncodingInfo) error {
	if c.client == nil {
		return fmt.Errorf("recognition client is required")
	}

	c.mu.Lock()
	if c.wanted.Load() {
		c.mu.Unlock()
		return fmt.Errorf("channel already started")
	}
	c.ctx = ctx
	c.encodingInfo = encodingInfo
	c.generation++
	c.mu.Unlock()

	if err := c.open(ctx); err != nil {
		return fmt.Errorf("failed to open recognition stream: %w", err)
	}

	c.wanted.Store(true)
	return nil
}

// SendAudio forwards a captured audio frame to the open stream. Frames sent
// while the channel is stopped or mid-restart are dropped.
func (c *Channel) SendAudio(audio []byte) error {
	if !c.wanted.Load() {
		return nil
	}

	if err := c.client.SendAudio(audio); err != nil {
		return fmt.Errorf("failed to forward audio to recognition stream: %w", err)
	}
	return nil
}

// Stop tears down the stream and cancels any pending reopen. Safe to call
// multiple times.
func (c *Channel) Stop() error {
	if !c.wanted.Swap(false) {
		return nil
	}

	c.mu.Lock()
	c.generation++
	c.mu.Unlock()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close recognition stream: %w", err)
	}
	return nil
}

func (c *Channel) open(ctx context.Context) error {
	return c.client.Transcribe(ctx,
		WithLanguage(c.options.Language),
		WithEncodingInfo(c.encodingInfo),
		WithInterimTranscriptCallback(c.invokeInterimTranscript),
		WithFinalTranscriptCallback(c.invokeFinalTranscript),
		WithSpeechStartedCallback(c.invokeSpeechStarted),
		WithSpeechEndedCallback(c.invokeSpeechEnded),
		WithStreamEndedCallback(c.handleStreamEnded),
	)
}

func (c *Channel) invokeInterimTranscript(transcript string) {
	if c.options.InterimTranscriptCallback != nil {
		c.options.InterimTranscriptCallback(transcript)
	}
}

func (c *Channel) invokeFinalTranscript(transcript string) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}
	if c.options.FinalTranscriptCallback != nil {
		c.options.FinalTranscriptCallback(transcript)
	}
}

func (c *Channel) invokeSpeechStarted() {
	if c.options.SpeechStartedCallback != nil {
		c.options.SpeechStartedCallback()
	}
}

func (c *Channel) invokeSpeechEnded() {
	if c.options.SpeechEndedCallback != nil {
		c.options.SpeechEndedCallback()
	}
}

// handleStreamEnded schedules a single reopen per stream termination:
// connectivity failures back off for networkRestartDelay, clean ends reopen
// after streamRestartDelay.
func (c *Channel) handleStreamEnded(err error) {
	if err != nil && c.options.ErrorCallback != nil {
		c.options.ErrorCallback(err)
	}

	if !c.wanted.Load() {
		return
	}

	delay := streamRestartDelay
	if errors.Is(err, ErrNetwork) {
		delay = networkRestartDelay
	}

	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	c.afterFunc(delay, func() { c.restart(generation) })
}

func (c *Channel) restart(generation int) {
	c.mu.Lock()
	if generation != c.generation || !c.wanted.Load() {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.mu.Unlock()

	if err := c.open(ctx); err != nil {
		// The reopen itself failed; treat it like another connectivity
		// failure so the stream keeps trying while wanted.
		c.handleStreamEnded(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
}

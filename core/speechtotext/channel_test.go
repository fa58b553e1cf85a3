package speechtotext

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lingualive/tutor-core/core/audio"
)

type stubRecognitionClient struct {
	transcribeCalls atomic.Int32
	transcribeErr   error
	lastOptions     TranscriptionOptions

	sentFrames atomic.Int32
	closeCalls atomic.Int32
}

func (s *stubRecognitionClient) Transcribe(_ context.Context, opts ...TranscriptionOption) error {
	s.transcribeCalls.Add(1)
	if s.transcribeErr != nil {
		return s.transcribeErr
	}

	options := TranscriptionOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	s.lastOptions = options
	return nil
}

func (s *stubRecognitionClient) SendAudio([]byte) error {
	s.sentFrames.Add(1)
	return nil
}

func (s *stubRecognitionClient) Close() error {
	s.closeCalls.Add(1)
	return nil
}

// immediateTimers replaces the channel's timer with one that records the
// requested delay and fires synchronously.
func immediateTimers(delays *[]time.Duration) func(time.Duration, func()) *time.Timer {
	return func(d time.Duration, f func()) *time.Timer {
		*delays = append(*delays, d)
		f()
		return time.NewTimer(0)
	}
}

// heldTimers records scheduled callbacks without running them.
func heldTimers(pending *[]func()) func(time.Duration, func()) *time.Timer {
	return func(_ time.Duration, f func()) *time.Timer {
		*pending = append(*pending, f)
		return time.NewTimer(time.Hour)
	}
}

func TestChannelDropsBlankFinalTranscripts(t *testing.T) {
	client := &stubRecognitionClient{}
	finals := []string{}
	channel := NewChannel(client,
		WithChannelFinalTranscriptCallback(func(transcript string) {
			finals = append(finals, transcript)
		}),
	)

	if err := channel.Start(context.Background(), audio.GetDefaultEncodingInfo()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	client.lastOptions.FinalTranscriptCallback("   ")
	client.lastOptions.FinalTranscriptCallback("")
	client.lastOptions.FinalTranscriptCallback("  hello there  ")

	if len(finals) != 1 || finals[0] != "hello there" {
		t.Fatalf("expected only the trimmed non-blank final, got %v", finals)
	}
}

func TestChannelReopensQuicklyAfterCleanStreamEnd(t *testing.T) {
	client := &stubRecognitionClient{}
	delays := []time.Duration{}
	channel := NewChannel(client)
	channel.afterFunc = immediateTimers(&delays)

	if err := channel.Start(context.Background(), audio.GetDefaultEncodingInfo()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	client.lastOptions.StreamEndedCallback(nil)

	if got := client.transcribeCalls.Load(); got != 2 {
		t.Fatalf("expected the stream to reopen once, got %d opens", got)
	}
	if len(delays) != 1 || delays[0] != streamRestartDelay {
		t.Fatalf("expected a single reopen after %v, got %v", streamRestartDelay, delays)
	}
}

func TestChannelBacksOffAfterNetworkFailure(t *testing.T) {
	client := &stubRecognitionClient{}
	delays := []time.Duration{}
	reportedErrs := atomic.Int32{}
	channel := NewChannel(client,
		WithChannelErrorCallback(func(error) { reportedErrs.Add(1) }),
	)
	channel.afterFunc = immediateTimers(&delays)

	if err := channel.Start(context.Background(), audio.GetDefaultEncodingInfo()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	client.lastOptions.StreamEndedCallback(fmt.Errorf("%w: connection reset", ErrNetwork))

	if got := client.transcribeCalls.Load(); got != 2 {
		t.Fatalf("expected the stream to reopen once, got %d opens", got)
	}
	if len(delays) != 1 || delays[0] != networkRestartDelay {
		t.Fatalf("expected the reopen to back off for %v, got %v", networkRestartDelay, delays)
	}
	if got := reportedErrs.Load(); got != 1 {
		t.Fatalf("expected the failure to be reported once, got %d", got)
	}
}

func TestChannelDoesNotReopenAfterStop(t *testing.T) {
	client := &stubRecognitionClient{}
	pending := []func(){}
	channel := NewChannel(client)
	channel.afterFunc = heldTimers(&pending)

	if err := channel.Start(context.Background(), audio.GetDefaultEncodingInfo()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	// Stream ends right as the channel is being stopped; the scheduled
	// reopen must be a no-op.
	client.lastOptions.StreamEndedCallback(nil)
	if err := channel.Stop(); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	for _, fire := range pending {
		fire()
	}

	if got := client.transcribeCalls.Load(); got != 1 {
		t.Fatalf("expected no reopen after stop, got %d opens", got)
	}
	if got := client.closeCalls.Load(); got != 1 {
		t.Fatalf("expected the client to be closed once, got %d", got)
	}

	// A stream ending after stop must not schedule anything either.
	client.lastOptions.StreamEndedCallback(nil)
	if len(pending) != 1 {
		t.Fatalf("expected no reopen scheduled after stop, got %d", len(pending))
	}
}

func TestChannelDropsAudioWhileStopped(t *testing.T) {
	client := &stubRecognitionClient{}
	channel := NewChannel(client)

	if err := channel.SendAudio([]byte{0, 0}); err != nil {
		t.Fatalf("expected audio before start to be dropped silently, got %v", err)
	}
	if got := client.sentFrames.Load(); got != 0 {
		t.Fatalf("expected no frames forwarded before start, got %d", got)
	}
}

func TestChannelStartFailureLeavesChannelStopped(t *testing.T) {
	client := &stubRecognitionClient{transcribeErr: fmt.Errorf("no api key")}
	channel := NewChannel(client)

	if err := channel.Start(context.Background(), audio.GetDefaultEncodingInfo()); err == nil {
		t.Fatalf("expected start to fail when the stream cannot be opened")
	}
	if channel.wanted.Load() {
		t.Fatalf("expected a failed start to leave the channel stopped")
	}
}

func TestChannelStopIsIdempotent(t *testing.T) {
	client := &stubRecognitionClient{}
	channel := NewChannel(client)

	if err := channel.Start(context.Background(), audio.GetDefaultEncodingInfo()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	if err := channel.Stop(); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	if err := channel.Stop(); err != nil {
		t.Fatalf("expected repeated stop to be a no-op, got %v", err)
	}
	if got := client.closeCalls.Load(); got != 1 {
		t.Fatalf("expected the client to be closed once, got %d", got)
	}
}

package voicecall

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lingualive/tutor-core/core/audio"
	"github.com/lingualive/tutor-core/core/events"
	"github.com/lingualive/tutor-core/core/texttospeech"
)

const (
	// speechWordsPerMinute is the speaking rate used to estimate utterance
	// duration when the audio length is not known upfront.
	speechWordsPerMinute = 150

	playbackProgressInterval = 100 * time.Millisecond
)

// AudioSink is the playback side of an audio device.
type AudioSink interface {
	SendAudio(audio []byte) error
	ClearBuffer()
	// AwaitMark blocks until audio queued so far has been played out.
	AwaitMark() error
}

type SpeakOptions struct {
	// Audio carries an already-synthesized rendition of the text. When set,
	// it is played directly instead of going through the synthesizer.
	Audio []byte

	// EndedCallback fires when the utterance finishes or is stopped.
	EndedCallback func()
	// ErrorCallback fires when the utterance fails. Per utterance, exactly
	// one of EndedCallback and ErrorCallback fires, exactly once.
	ErrorCallback func(err error)
}

type SpeakOption func(*SpeakOptions)

func WithPrerenderedAudio(audio []byte) SpeakOption {
	return func(o *SpeakOptions) { o.Audio = audio }
}

func WithSpeakEndedCallback(callback func()) SpeakOption {
	return func(o *SpeakOptions) { o.EndedCallback = callback }
}

func WithSpeakErrorCallback(callback func(err error)) SpeakOption {
	return func(o *SpeakOptions) { o.ErrorCallback = callback }
}

// SpeechOutput plays one assistant utterance at a time: markdown-stripped
// text goes through the synthesizer (or arrives prerendered), audio goes to
// the sink, and a progress clock reports playback position while it plays.
// Without a sink or synthesizer it degrades to pacing the call by estimated
// duration, so text-only setups still take turns naturally.
type SpeechOutput struct {
	synthesizer texttospeech.Synthesizer
	sink        AudioSink
	encoding    audio.EncodingInfo

	emitEvent eventEmitter

	mu      sync.Mutex
	current *utterance

	progressInterval time.Duration
	now              func() time.Time
}

type utterance struct {
	text        string
	durationSec float64
	startedAt   time.Time

	pauseMu   sync.Mutex
	pausedAt  time.Time
	pausedFor time.Duration

	cancel  context.CancelFunc
	done    chan struct{}
	endOnce sync.Once
	options SpeakOptions
}

func (u *utterance) pause(now time.Time) {
	u.pauseMu.Lock()
	defer u.pauseMu.Unlock()
	if !u.pausedAt.IsZero() {
		return
	}
	u.pausedAt = now
}

func (u *utterance) resume(now time.Time) {
	u.pauseMu.Lock()
	defer u.pauseMu.Unlock()
	if u.pausedAt.IsZero() {
		return
	}
	u.pausedFor += now.Sub(u.pausedAt)
	u.pausedAt = time.Time{}
}

// elapsedSec is the playback position, with time spent paused excluded.
func (u *utterance) elapsedSec(now time.Time) float64 {
	u.pauseMu.Lock()
	defer u.pauseMu.Unlock()
	end := now
	if !u.pausedAt.IsZero() {
		end = u.pausedAt
	}
	return end.Sub(u.startedAt).Seconds() - u.pausedFor.Seconds()
}

func newSpeechOutput(synthesizer texttospeech.Synthesizer, sink AudioSink, encoding audio.EncodingInfo) *SpeechOutput {
	return &SpeechOutput{
		synthesizer:      synthesizer,
		sink:             sink,
		encoding:         encoding,
		emitEvent:        noopEventEmitter,
		progressInterval: playbackProgressInterval,
		now:              time.Now,
	}
}

func (s *SpeechOutput) SetEventEmitter(emitEvent eventEmitter) {
	if emitEvent != nil {
		s.emitEvent = emitEvent
	} else {
		s.emitEvent = noopEventEmitter
	}
}

func (s *SpeechOutput) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Speak starts playback of one utterance. It returns ErrSpeechBusy while a
// previous utterance is still playing; any failure after playback starts is
// delivered through the error callback instead of a return value.
func (s *SpeechOutput) Speak(ctx context.Context, text string, opts ...SpeakOption) error {
	options := SpeakOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	clean := CleanMarkdown(text)
	if clean == "" {
		// Nothing speakable; the utterance ends before it starts.
		if options.EndedCallback != nil {
			options.EndedCallback()
		}
		return nil
	}

	durationSec := estimateDurationSec(clean)
	if options.Audio != nil {
		if bps := s.encoding.BytesPerSecond(); bps > 0 {
			durationSec = float64(len(options.Audio)) / float64(bps)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	u := &utterance{
		text:        clean,
		durationSec: durationSec,
		startedAt:   s.now(),
		cancel:      cancel,
		done:        make(chan struct{}),
		options:     options,
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		cancel()
		return ErrSpeechBusy
	}
	s.current = u
	s.mu.Unlock()

	s.emitEvent(events.NewAssistantPlaybackStarted(clean))
	go s.trackProgress(u)

	switch {
	case options.Audio != nil && s.sink != nil:
		if err := s.sink.SendAudio(options.Audio); err != nil {
			s.finish(u, err)
			return nil
		}
		go func() {
			_ = s.sink.AwaitMark()
			s.finish(u, nil)
		}()

	case options.Audio == nil && s.synthesizer != nil:
		err := s.synthesizer.Speak(ctx, clean,
			texttospeech.WithEncodingInfo(s.encoding),
			texttospeech.WithSpeechAudioCallback(func(chunk []byte) {
				if s.sink != nil {
					if err := s.sink.SendAudio(chunk); err != nil {
						logger.Warn("Failed to queue synthesized audio", "error", err)
					}
				}
			}),
			texttospeech.WithSpeechEndedCallback(func() {
				go func() {
					if s.sink != nil {
						_ = s.sink.AwaitMark()
					}
					s.finish(u, nil)
				}()
			}),
			texttospeech.WithErrorCallback(func(err error) {
				s.finish(u, err)
			}),
		)
		if err != nil {
			s.finish(u, err)
		}

	default:
		// No way to produce audio for this utterance; pace the turn by the
		// estimated speaking time instead.
		go s.simulatePlayback(ctx, u)
	}

	return nil
}

// Stop ends the current utterance, if any, flushing queued audio. The
// utterance is reported as ended, not failed.
func (s *SpeechOutput) Stop() {
	s.mu.Lock()
	u := s.current
	s.mu.Unlock()

	if u == nil {
		return
	}

	if s.sink != nil {
		s.sink.ClearBuffer()
	}
	s.finish(u, nil)
}

// Pause suspends the progress clock and the simulated pacing of the current
// utterance. Audio already queued on the sink keeps draining; pause is about
// the turn's clock, not the device. No-op while nothing is playing.
func (s *SpeechOutput) Pause() {
	s.mu.Lock()
	u := s.current
	s.mu.Unlock()

	if u != nil {
		u.pause(s.now())
	}
}

// Resume continues a paused utterance. No-op while nothing is playing or
// nothing is paused.
func (s *SpeechOutput) Resume() {
	s.mu.Lock()
	u := s.current
	s.mu.Unlock()

	if u != nil {
		u.resume(s.now())
	}
}

func (s *SpeechOutput) trackProgress(u *utterance) {
	ticker := time.NewTicker(s.progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-u.done:
			return
		case <-ticker.C:
			elapsed := u.elapsedSec(s.now())
			if elapsed > u.durationSec {
				elapsed = u.durationSec
			}
			s.emitEvent(events.NewAssistantPlaybackProgress(elapsed, u.durationSec))
		}
	}
}

func (s *SpeechOutput) simulatePlayback(ctx context.Context, u *utterance) {
	ticker := time.NewTicker(s.progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-u.done:
			return
		case <-ticker.C:
			if u.elapsedSec(s.now()) >= u.durationSec {
				s.finish(u, nil)
				return
			}
		}
	}
}

func (s *SpeechOutput) finish(u *utterance, err error) {
	u.endOnce.Do(func() {
		u.cancel()
		close(u.done)

		s.mu.Lock()
		if s.current == u {
			s.current = nil
		}
		s.mu.Unlock()

		if err != nil {
			s.emitEvent(events.NewAssistantPlaybackFailed(err))
			if u.options.ErrorCallback != nil {
				u.options.ErrorCallback(err)
			}
			return
		}

		s.emitEvent(events.NewAssistantPlaybackEnded())
		if u.options.EndedCallback != nil {
			u.options.EndedCallback()
		}
	})
}

func estimateDurationSec(text string) float64 {
	words := len(strings.Fields(text))
	return float64(words) / speechWordsPerMinute * 60
}

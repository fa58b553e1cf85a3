// Package voicecall runs hands-free voice conversations with a language
// tutor: it captures microphone audio, watches it for speech, keeps a
// transcription stream open, and arbitrates turns between the user and the
// assistant.
package voicecall

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lingualive/tutor-core/core/audio"
	"github.com/lingualive/tutor-core/core/events"
	"github.com/lingualive/tutor-core/core/texttospeech"
	"github.com/lingualive/tutor-core/core/vad"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// inactivityPrompt is spoken when the user has been silent for the whole
// inactivity timeout.
const inactivityPrompt = "I can't hear you. Are you still there?"

const defaultTextOnlyResumeDelay = 2 * time.Second

type transcriptionChannel interface {
	Start(ctx context.Context, encodingInfo audio.EncodingInfo) error
	SendAudio(audio []byte) error
	Stop() error
}

// CallSession composes the capture, detection, transcription, tutoring, and
// playback pieces of one voice call. A session is reusable across calls;
// StartCall and StopCall bracket each one.
type CallSession struct {
	controller *callController
	audioInput *audioInput
	speech     *SpeechOutput

	audioClient    AudioClient
	channel        transcriptionChannel
	synthesizer    texttospeech.Synthesizer
	tutor          Tutor
	monitorOptions []vad.MonitorOption

	language            string
	inactivityTimeout   time.Duration
	textOnlyResumeDelay time.Duration

	callOptions CallOptions
	emitEvent   eventEmitter

	callMu     sync.Mutex
	callCtx    context.Context
	callCancel context.CancelFunc

	// pipeMu guards the per-call pieces the capture callback touches.
	pipeMu   sync.Mutex
	monitor  *vad.Monitor
	analyzer *vad.StreamAnalyzer

	closeOnce sync.Once

	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewCallSession(opts ...CallSessionOption) *CallSession {
	s := &CallSession{
		language:            "en-US",
		inactivityTimeout:   InactivityTimeout,
		textOnlyResumeDelay: defaultTextOnlyResumeDelay,
		emitEvent:           noopEventEmitter,
		afterFunc:           time.AfterFunc,
	}
	s.audioInput = newAudioInput(nil, s.handleInputAudio)

	for _, opt := range opts {
		opt(s)
	}

	s.controller = newCallController(s.inactivityTimeout, s.handleInactivity)

	if s.synthesizer != nil || s.audioClient != nil {
		var sink AudioSink
		if s.audioClient != nil {
			sink = s.audioClient
		}
		s.speech = newSpeechOutput(s.synthesizer, sink, s.audioInput.EncodingInfo())
	}

	return s
}

// StartCall acquires the input pipeline and begins listening. Calling it
// while a call is already in progress is a no-op. When any part of the
// pipeline cannot be acquired the parts already acquired are released, the
// call stays idle, and the returned error wraps ErrAcquisition.
func (s *CallSession) StartCall(ctx context.Context, opts ...CallOption) error {
	ctx, span := tracer.Start(ctx, "start call",
		trace.WithAttributes(attribute.String("call.language", s.language)))
	defer span.End()

	s.callMu.Lock()
	defer s.callMu.Unlock()

	if s.controller.State() != CallStateIdle {
		return nil
	}

	callOptions := CallOptions{}
	for _, opt := range opts {
		opt(&callOptions)
	}
	s.callOptions = callOptions
	s.emitEvent = newCallbackEventEmitter(callOptions)
	s.controller.SetEventEmitter(s.emitEvent)
	if s.speech != nil {
		s.speech.SetEventEmitter(s.emitEvent)
	}

	callCtx, cancel := context.WithCancel(ctx)

	monitor := vad.NewMonitor(append(slices.Clone(s.monitorOptions),
		vad.WithSpeechStartedCallback(s.handleSpeechStarted),
		vad.WithSpeechEndedCallback(s.handleSpeechEnded),
	)...)
	analyzer := vad.NewStreamAnalyzer(0)

	s.pipeMu.Lock()
	s.monitor = monitor
	s.analyzer = analyzer
	s.pipeMu.Unlock()

	fail := func(err error, teardown ...func()) error {
		for _, release := range teardown {
			release()
		}
		s.pipeMu.Lock()
		s.monitor = nil
		s.analyzer = nil
		s.pipeMu.Unlock()
		cancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	if err := s.audioInput.Start(callCtx); err != nil {
		return fail(err)
	}
	if s.channel != nil {
		if err := s.channel.Start(callCtx, s.audioInput.EncodingInfo()); err != nil {
			return fail(err, func() { _ = s.audioInput.Stop() })
		}
	}
	if err := monitor.Start(analyzer); err != nil {
		return fail(err,
			func() {
				if s.channel != nil {
					_ = s.channel.Stop()
				}
			},
			func() { _ = s.audioInput.Stop() },
		)
	}

	s.callCtx = callCtx
	s.callCancel = cancel
	s.controller.StartListening()
	return nil
}

// StopCall ends the call and releases everything StartCall acquired, from
// any state. Calling it without a call in progress is a no-op.
func (s *CallSession) StopCall() {
	s.callMu.Lock()
	defer s.callMu.Unlock()

	if !s.controller.Reset() {
		return
	}

	if s.speech != nil {
		s.speech.Stop()
	}
	if s.channel != nil {
		if err := s.channel.Stop(); err != nil {
			logger.Warn("Failed to stop transcription channel", "error", err)
		}
	}

	s.pipeMu.Lock()
	monitor := s.monitor
	s.monitor = nil
	s.analyzer = nil
	s.pipeMu.Unlock()
	if monitor != nil {
		monitor.Stop()
	}

	if err := s.audioInput.Stop(); err != nil {
		logger.Warn("Failed to stop audio capture", "error", err)
	}
	if s.audioClient != nil {
		s.audioClient.ClearBuffer()
	}

	if s.callCancel != nil {
		s.callCancel()
		s.callCancel = nil
		s.callCtx = nil
	}
}

// Close ends the session for good.
func (s *CallSession) Close() {
	s.closeOnce.Do(s.StopCall)
}

func (s *CallSession) State() CallState {
	return s.controller.State()
}

// Volume reports the current microphone loudness on the 0-255 scale, 0 when
// no call is in progress.
func (s *CallSession) Volume() float64 {
	s.pipeMu.Lock()
	monitor := s.monitor
	s.pipeMu.Unlock()

	if monitor == nil {
		return 0
	}
	return monitor.CurrentVolume()
}

func (s *CallSession) IsUserSpeaking() bool {
	s.pipeMu.Lock()
	monitor := s.monitor
	s.pipeMu.Unlock()

	if monitor == nil {
		return false
	}
	return monitor.IsSpeaking()
}

func (s *CallSession) Language() string { return s.language }

func (s *CallSession) handleInputAudio(frame []byte) {
	s.emitEvent(events.NewUserAudioFrame(frame))

	s.pipeMu.Lock()
	analyzer := s.analyzer
	s.pipeMu.Unlock()

	if analyzer != nil {
		analyzer.Push(frame)
	}
	// Recognition only runs while the user holds the turn, so the
	// assistant's own voice never produces a transcript.
	if s.channel != nil && s.controller.State() == CallStateListening {
		if err := s.channel.SendAudio(frame); err != nil {
			logger.Warn("Failed to forward audio frame", "error", err)
		}
	}
}

func (s *CallSession) handleSpeechStarted(volume float64) {
	s.emitEvent(events.NewUserSpeechStarted(volume))
	s.controller.NoteActivity()
}

func (s *CallSession) handleSpeechEnded() {
	s.emitEvent(events.NewUserSpeechEnded())
}

func (s *CallSession) handleInterimTranscript(transcript string) {
	s.emitEvent(events.NewUserTranscriptInterimUpdated(transcript))
	s.controller.NoteActivity()
}

func (s *CallSession) handleFinalTranscript(transcript string) {
	s.emitEvent(events.NewUserTranscriptFinal(transcript))
	s.controller.NoteActivity()

	if !s.controller.StartProcessing() {
		// The assistant already holds the turn; the utterance was stale.
		return
	}
	go s.respond(transcript)
}

func (s *CallSession) handleTranscriptionError(err error) {
	logger.Warn("Transcription stream failure", "error", err)
}

func (s *CallSession) respond(transcript string) {
	ctx := s.callContext()
	ctx, span := tracer.Start(ctx, "answer utterance")
	defer span.End()

	if s.tutor == nil {
		s.controller.FinishSpeaking()
		return
	}

	reply, err := s.tutor.Respond(ctx, transcript)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tutor response failed")
		logger.Warn("Tutor response failed", "error", err)
		s.controller.FinishSpeaking()
		return
	}
	if reply == nil || strings.TrimSpace(reply.Text) == "" {
		s.controller.FinishSpeaking()
		return
	}

	if !s.controller.StartSpeaking() {
		// The call ended while the answer was being produced.
		return
	}
	s.playUtterance(ctx, reply.Text, reply.Audio)
}

func (s *CallSession) handleInactivity() {
	s.emitEvent(events.NewInactivityElapsed())

	if !s.controller.StartSpeaking() {
		return
	}
	s.playUtterance(s.callContext(), inactivityPrompt, nil)
}

// playUtterance plays one assistant turn and returns the turn to the user
// when it ends, however it ends.
func (s *CallSession) playUtterance(ctx context.Context, text string, prerendered []byte) {
	if s.speech == nil {
		// Text-only response: surface it, dwell long enough to read it, then
		// resume listening.
		s.emitEvent(events.NewAssistantPlaybackStarted(CleanMarkdown(text)))
		s.emitEvent(events.NewAssistantPlaybackEnded())
		s.afterFunc(s.textOnlyResumeDelay, func() { s.controller.FinishSpeaking() })
		return
	}

	opts := []SpeakOption{
		WithSpeakEndedCallback(func() { s.controller.FinishSpeaking() }),
		WithSpeakErrorCallback(func(err error) {
			logger.Warn("Playback failed", "error", err)
			s.controller.FinishSpeaking()
		}),
	}
	if len(prerendered) > 0 {
		opts = append(opts, WithPrerenderedAudio(prerendered))
	}

	if err := s.speech.Speak(ctx, text, opts...); err != nil {
		logger.Warn("Failed to start playback", "error", err)
		s.controller.FinishSpeaking()
	}
}

func (s *CallSession) callContext() context.Context {
	s.callMu.Lock()
	defer s.callMu.Unlock()

	if s.callCtx == nil {
		return context.Background()
	}
	return s.callCtx
}

package voicecall

import (
	"context"
	"time"

	"github.com/lingualive/tutor-core/core/speechtotext"
	"github.com/lingualive/tutor-core/core/texttospeech"
	"github.com/lingualive/tutor-core/core/vad"
)

type CallSessionOption func(*CallSession)

// Tutor produces the assistant's reply to one user utterance.
type Tutor interface {
	Respond(ctx context.Context, message string) (*TutorReply, error)
}

// TutorReply is one assistant turn. Audio optionally carries a synthesized
// rendition of Text; when absent, Text is synthesized locally or shown as
// text only.
type TutorReply struct {
	Text  string
	Audio []byte
}

func WithTutor(tutor Tutor) CallSessionOption {
	return func(s *CallSession) { s.tutor = tutor }
}

func WithAudioClient(client AudioClient) CallSessionOption {
	return func(s *CallSession) {
		s.audioClient = client
		s.audioInput.set(client)
	}
}

func WithRecognitionClient(client speechtotext.RecognitionClient) CallSessionOption {
	return func(s *CallSession) {
		s.channel = speechtotext.NewChannel(client,
			speechtotext.WithChannelLanguage(s.language),
			speechtotext.WithChannelInterimTranscriptCallback(s.handleInterimTranscript),
			speechtotext.WithChannelFinalTranscriptCallback(s.handleFinalTranscript),
			speechtotext.WithChannelErrorCallback(s.handleTranscriptionError),
		)
	}
}

func WithSynthesizer(synthesizer texttospeech.Synthesizer) CallSessionOption {
	return func(s *CallSession) { s.synthesizer = synthesizer }
}

// WithLanguage sets the BCP-47 tag of the language being practiced. Apply it
// before WithRecognitionClient so transcription is biased accordingly.
func WithLanguage(language string) CallSessionOption {
	return func(s *CallSession) { s.language = language }
}

func WithInactivityTimeout(timeout time.Duration) CallSessionOption {
	return func(s *CallSession) { s.inactivityTimeout = timeout }
}

// WithTextOnlyResumeDelay sets how long the call dwells on a text-only
// response before listening resumes.
func WithTextOnlyResumeDelay(delay time.Duration) CallSessionOption {
	return func(s *CallSession) { s.textOnlyResumeDelay = delay }
}

func WithMonitorOptions(opts ...vad.MonitorOption) CallSessionOption {
	return func(s *CallSession) { s.monitorOptions = opts }
}

// CallOptions carry the per-call callbacks wired up at StartCall.
type CallOptions struct {
	onStateChanged         func(state CallState)
	onSpeakingStateChanged func(isSpeaking bool)
	onInputAudio           func(audio []byte)
	onInterimTranscription func(transcript string)
	onTranscription        func(transcript string)
	onResponse             func(response string)
	onPlaybackProgress     func(currentTimeSec, durationSec float64)
	onPlaybackEnded        func()
	onPlaybackFailed       func(err error)
	onInactivity           func()
}

type CallOption func(*CallOptions)

func WithStateChangedCallback(callback func(state CallState)) CallOption {
	return func(o *CallOptions) { o.onStateChanged = callback }
}

func WithSpeakingStateChangedCallback(callback func(isSpeaking bool)) CallOption {
	return func(o *CallOptions) { o.onSpeakingStateChanged = callback }
}

func WithInputAudioCallback(callback func(audio []byte)) CallOption {
	return func(o *CallOptions) { o.onInputAudio = callback }
}

func WithInterimTranscriptionCallback(callback func(transcript string)) CallOption {
	return func(o *CallOptions) { o.onInterimTranscription = callback }
}

func WithTranscriptionCallback(callback func(transcript string)) CallOption {
	return func(o *CallOptions) { o.onTranscription = callback }
}

func WithResponseCallback(callback func(response string)) CallOption {
	return func(o *CallOptions) { o.onResponse = callback }
}

func WithPlaybackProgressCallback(callback func(currentTimeSec, durationSec float64)) CallOption {
	return func(o *CallOptions) { o.onPlaybackProgress = callback }
}

func WithPlaybackEndedCallback(callback func()) CallOption {
	return func(o *CallOptions) { o.onPlaybackEnded = callback }
}

func WithPlaybackFailedCallback(callback func(err error)) CallOption {
	return func(o *CallOptions) { o.onPlaybackFailed = callback }
}

func WithInactivityCallback(callback func()) CallOption {
	return func(o *CallOptions) { o.onInactivity = callback }
}

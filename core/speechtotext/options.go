package speechtotext

import (
	"errors"

	"github.com/lingualive/tutor-core/core/audio"
)

// ErrNetwork marks stream failures caused by connectivity rather than a
// clean end of the recognition stream. Recovery policies treat the two
// differently.
var ErrNetwork = errors.New("transcription stream network failure")

type TranscriptionOptions struct {
	// InterimTranscriptCallback fires with the full in-progress transcript of
	// the current utterance each time the recognizer revises it.
	InterimTranscriptCallback func(transcript string)
	// FinalTranscriptCallback fires once per utterance with the committed
	// transcript. Never fires with a blank transcript.
	FinalTranscriptCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// StreamEndedCallback fires when the recognition stream terminates for
	// any reason. A nil error is a clean end; connectivity failures are
	// wrapped with ErrNetwork.
	StreamEndedCallback func(err error)

	// Language is the BCP-47 tag transcription is biased toward.
	Language string

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithInterimTranscriptCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptCallback = callback
	}
}

func WithFinalTranscriptCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.FinalTranscriptCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithStreamEndedCallback(callback func(err error)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.StreamEndedCallback = callback
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}

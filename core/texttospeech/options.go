package texttospeech

import (
	"context"

	"github.com/lingualive/tutor-core/core/audio"
)

type SpeechOptions struct {
	// SpeechAudioCallback is called with each chunk of synthesized audio, in
	// utterance order.
	SpeechAudioCallback func(audio []byte)
	// SpeechEndedCallback is called once after all audio for the utterance
	// has been delivered.
	SpeechEndedCallback func()
	// ErrorCallback is called when synthesis fails or is cancelled. At most
	// one of SpeechEndedCallback and ErrorCallback fires per utterance.
	ErrorCallback func(err error)

	EncodingInfo audio.EncodingInfo
}

type SpeechOption func(*SpeechOptions)

func WithSpeechAudioCallback(callback func(audio []byte)) SpeechOption {
	return func(o *SpeechOptions) { o.SpeechAudioCallback = callback }
}

func WithSpeechEndedCallback(callback func()) SpeechOption {
	return func(o *SpeechOptions) { o.SpeechEndedCallback = callback }
}

func WithErrorCallback(callback func(err error)) SpeechOption {
	return func(o *SpeechOptions) { o.ErrorCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SpeechOption {
	return func(o *SpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

// Synthesizer turns one utterance of text into audio, delivered through the
// configured callbacks.
type Synthesizer interface {
	Speak(ctx context.Context, text string, opts ...SpeechOption) error
}

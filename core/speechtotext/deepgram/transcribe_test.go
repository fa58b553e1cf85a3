package deepgram

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/lingualive/tutor-core/core/audio"
	"github.com/lingualive/tutor-core/core/speechtotext"
)

func TestConvertEncodingAcceptsDefaultEncoding(t *testing.T) {
	encoding, err := convertEncoding(audio.GetDefaultEncodingInfo())
	if err != nil {
		t.Fatalf("expected default encoding to convert, got %v", err)
	}
	if encoding.Format != encodingLinear16 {
		t.Fatalf("expected linear16, got %s", encoding.Format)
	}
	if encoding.SampleRate != audio.DefaultSampleRate {
		t.Fatalf("expected sample rate %d, got %d", audio.DefaultSampleRate, encoding.SampleRate)
	}
}

func TestConvertEncodingRejectsCompandedAudioAtHighSampleRates(t *testing.T) {
	_, err := convertEncoding(audio.EncodingInfo{SampleRate: 16000, Encoding: audio.FormatMulaw})
	if err == nil {
		t.Fatalf("expected mulaw above 8kHz to be rejected")
	}
}

func TestReportStreamEndedClassifiesTermination(t *testing.T) {
	for name, tc := range map[string]struct {
		closing     bool
		readErr     error
		wantNetwork bool
	}{
		"normal closure is a clean end": {
			readErr: &websocket.CloseError{Code: websocket.CloseNormalClosure},
		},
		"intentional teardown is a clean end": {
			closing: true,
			readErr: fmt.Errorf("use of closed network connection"),
		},
		"unexpected error is a network failure": {
			readErr:     fmt.Errorf("connection reset by peer"),
			wantNetwork: true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			client := NewTranscriptionClient()
			client.closing.Store(tc.closing)

			var reported error
			called := false
			client.reportStreamEnded(tc.readErr, speechtotext.TranscriptionOptions{
				StreamEndedCallback: func(err error) {
					called = true
					reported = err
				},
			})

			if !called {
				t.Fatalf("expected the stream end to be reported")
			}
			if tc.wantNetwork != errors.Is(reported, speechtotext.ErrNetwork) {
				t.Fatalf("expected network classification %v, got error %v", tc.wantNetwork, reported)
			}
		})
	}
}

func TestOnSpeechEndedEmitsAccumulatedTranscriptOnce(t *testing.T) {
	client := NewTranscriptionClient()
	client.accumulatedTranscript = "hello there"
	client.unendedSegment = true

	finals := []string{}
	ends := 0
	options := speechtotext.TranscriptionOptions{
		FinalTranscriptCallback: func(transcript string) { finals = append(finals, transcript) },
		SpeechEndedCallback:     func() { ends++ },
	}

	client.onSpeechEnded(options)
	client.onSpeechEnded(options)

	if len(finals) != 1 || finals[0] != "hello there" {
		t.Fatalf("expected a single final transcript, got %v", finals)
	}
	if ends != 2 {
		t.Fatalf("expected speech-end callback per invocation, got %d", ends)
	}
	if client.unendedSegment {
		t.Fatalf("expected the segment to be marked ended")
	}
}

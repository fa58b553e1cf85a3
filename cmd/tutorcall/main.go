// Command tutorcall runs a voice call with the language tutor in the
// terminal: microphone in, transcription and tutoring in the middle,
// synthesized speech out.
//
// It needs GEMINI_API_KEY and DEEPGRAM_API_KEY in the environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	voicecall "github.com/lingualive/tutor-core/core"
	"github.com/lingualive/tutor-core/core/audio/miniaudio"
	"github.com/lingualive/tutor-core/core/audio/portaudio"
	sttdeepgram "github.com/lingualive/tutor-core/core/speechtotext/deepgram"
	ttsdeepgram "github.com/lingualive/tutor-core/core/texttospeech/deepgram"
	"github.com/lingualive/tutor-core/core/tutor/gemini"
)

// portaudioBufferSize is the per-read frame count for the portaudio backend.
const portaudioBufferSize = 1024

func main() {
	language := flag.String("language", "en-US", "BCP-47 tag of the language to practice")
	backend := flag.String("audio", "miniaudio", "audio backend (miniaudio or portaudio)")
	flag.Parse()

	if err := run(*language, *backend); err != nil {
		fmt.Fprintln(os.Stderr, "tutorcall:", err)
		os.Exit(1)
	}
}

func run(language, backend string) error {
	var base voicecall.AudioClient
	switch backend {
	case "miniaudio":
		client, err := miniaudio.NewClient()
		if err != nil {
			return fmt.Errorf("failed to open audio devices: %w", err)
		}
		defer client.Close()
		base = client
	case "portaudio":
		client, err := portaudio.NewClient(portaudioBufferSize)
		if err != nil {
			return fmt.Errorf("failed to open audio devices: %w", err)
		}
		defer client.Close()
		base = client
	default:
		return fmt.Errorf("unknown audio backend: %q", backend)
	}
	input := &mutingAudioClient{AudioClient: base}

	tutor, err := gemini.NewClient(gemini.WithLanguage(language))
	if err != nil {
		return err
	}

	synthesizer, err := ttsdeepgram.NewTextToSpeechClient(ttsdeepgram.VoiceAsteria)
	if err != nil {
		return err
	}

	session := voicecall.NewCallSession(
		voicecall.WithLanguage(language),
		voicecall.WithAudioClient(input),
		voicecall.WithRecognitionClient(sttdeepgram.NewTranscriptionClient()),
		voicecall.WithSynthesizer(synthesizer),
		voicecall.WithTutor(tutor),
	)
	defer session.Close()

	program := tea.NewProgram(newModel(session, input), tea.WithAltScreen())

	err = session.StartCall(context.Background(),
		voicecall.WithStateChangedCallback(func(state voicecall.CallState) {
			program.Send(stateChangedMsg(state))
		}),
		voicecall.WithSpeakingStateChangedCallback(func(isSpeaking bool) {
			program.Send(speakingChangedMsg(isSpeaking))
		}),
		voicecall.WithInterimTranscriptionCallback(func(transcript string) {
			program.Send(interimTranscriptMsg(transcript))
		}),
		voicecall.WithTranscriptionCallback(func(transcript string) {
			program.Send(transcriptMsg(transcript))
		}),
		voicecall.WithResponseCallback(func(response string) {
			program.Send(responseMsg(response))
		}),
		voicecall.WithPlaybackProgressCallback(func(currentTimeSec, durationSec float64) {
			program.Send(playbackProgressMsg{currentSec: currentTimeSec, durationSec: durationSec})
		}),
		voicecall.WithPlaybackFailedCallback(func(err error) {
			program.Send(callErrorMsg{err: err})
		}),
		voicecall.WithInactivityCallback(func() {
			program.Send(inactivityMsg{})
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to start the call: %w", err)
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal interface failed: %w", err)
	}
	return nil
}

package voicecall

import "errors"

var (
	// ErrAcquisition marks a call start that failed while acquiring the
	// input pipeline (audio capture, volume monitoring, or the transcription
	// stream). The call remains idle when it is returned.
	ErrAcquisition = errors.New("failed to acquire call input pipeline")

	// ErrSpeechBusy is returned when an utterance is requested while another
	// one is still playing.
	ErrSpeechBusy = errors.New("speech output is busy")
)

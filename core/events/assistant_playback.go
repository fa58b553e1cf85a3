package events

const (
	// KindAssistantPlaybackStarted identifies the start of reply playback.
	KindAssistantPlaybackStarted Kind = "assistant_playback.started"
	// KindAssistantPlaybackProgress identifies periodic playback progress snapshots.
	KindAssistantPlaybackProgress Kind = "assistant_playback.progress"
	// KindAssistantPlaybackEnded identifies the end of reply playback.
	KindAssistantPlaybackEnded Kind = "assistant_playback.ended"
	// KindAssistantPlaybackFailed identifies a mid-utterance synthesis failure.
	KindAssistantPlaybackFailed Kind = "assistant_playback.failed"
)

// AssistantPlaybackStarted marks the start of spoken reply playback.
type AssistantPlaybackStarted struct {
	Base
	Text string
}

// NewAssistantPlaybackStarted creates a playback started event.
func NewAssistantPlaybackStarted(text string) AssistantPlaybackStarted {
	return AssistantPlaybackStarted{Base: NewBase(KindAssistantPlaybackStarted), Text: text}
}

// AssistantPlaybackProgress carries an elapsed/duration snapshot. DurationSec
// may be an estimate when the synthesis engine does not report duration up
// front.
type AssistantPlaybackProgress struct {
	Base
	CurrentTimeSec float64
	DurationSec    float64
}

// NewAssistantPlaybackProgress creates a playback progress event.
func NewAssistantPlaybackProgress(currentTimeSec, durationSec float64) AssistantPlaybackProgress {
	return AssistantPlaybackProgress{
		Base:           NewBase(KindAssistantPlaybackProgress),
		CurrentTimeSec: currentTimeSec,
		DurationSec:    durationSec,
	}
}

// AssistantPlaybackEnded marks the end of reply playback.
type AssistantPlaybackEnded struct{ Base }

// NewAssistantPlaybackEnded creates a playback ended event.
func NewAssistantPlaybackEnded() AssistantPlaybackEnded {
	return AssistantPlaybackEnded{Base: NewBase(KindAssistantPlaybackEnded)}
}

// AssistantPlaybackFailed marks a synthesis failure mid-utterance.
type AssistantPlaybackFailed struct {
	Base
	Err error
}

// NewAssistantPlaybackFailed creates a playback failure event.
func NewAssistantPlaybackFailed(err error) AssistantPlaybackFailed {
	return AssistantPlaybackFailed{Base: NewBase(KindAssistantPlaybackFailed), Err: err}
}

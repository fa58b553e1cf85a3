package voicecall

import "github.com/lingualive/tutor-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts CallOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.UserAudioFrame:
			if opts.onInputAudio != nil {
				opts.onInputAudio(typedEvent.Audio)
			}
		case events.UserSpeechStarted:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(true)
			}
		case events.UserSpeechEnded:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.UserTranscriptInterimUpdated:
			if opts.onInterimTranscription != nil {
				opts.onInterimTranscription(typedEvent.Transcript)
			}
		case events.UserTranscriptFinal:
			if opts.onTranscription != nil {
				opts.onTranscription(typedEvent.Transcript)
			}
		case events.CallStateChanged:
			if opts.onStateChanged != nil {
				opts.onStateChanged(CallState(typedEvent.State))
			}
		case events.InactivityElapsed:
			if opts.onInactivity != nil {
				opts.onInactivity()
			}
		case events.AssistantPlaybackStarted:
			if opts.onResponse != nil {
				opts.onResponse(typedEvent.Text)
			}
		case events.AssistantPlaybackProgress:
			if opts.onPlaybackProgress != nil {
				opts.onPlaybackProgress(typedEvent.CurrentTimeSec, typedEvent.DurationSec)
			}
		case events.AssistantPlaybackEnded:
			if opts.onPlaybackEnded != nil {
				opts.onPlaybackEnded()
			}
		case events.AssistantPlaybackFailed:
			if opts.onPlaybackFailed != nil {
				opts.onPlaybackFailed(typedEvent.Err)
			}
		}
	}
}

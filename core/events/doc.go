// Package events defines the typed call-session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - call_state.*
//   - assistant_playback.*
//
// Semantics used across the package:
//
//   - Frame: binary audio frame/chunk payload.
//   - Interim: mutable point-in-time transcript snapshot that can change as
//     recognition refines its hypothesis.
//   - Final: terminal immutable transcript for the current utterance.
//   - Started/Ended: lifecycle boundaries of a speech or playback segment.
//
// user_input events
//
//   - UserAudioFrame (user_input.audio_frame): raw captured audio frame.
//   - UserSpeechStarted (user_input.speech_started): loudness stayed above the
//     speech threshold long enough to confirm an onset.
//   - UserSpeechEnded (user_input.speech_ended): loudness stayed below the
//     threshold long enough to confirm the utterance ended.
//   - UserTranscriptInterimUpdated (user_input.transcript_interim_updated):
//     mutable interim transcript snapshot.
//   - UserTranscriptFinal (user_input.transcript_final): terminal transcript
//     for the utterance; triggers the Processing handoff.
//
// call_state events
//
//   - CallStateChanged (call_state.changed): the controller moved to a new
//     state.
//   - InactivityElapsed (call_state.inactivity_elapsed): no speech was
//     observed for a full Listening period.
//
// assistant_playback events
//
//   - AssistantPlaybackStarted (assistant_playback.started): synthesis of the
//     assistant reply started playing.
//   - AssistantPlaybackProgress (assistant_playback.progress): periodic
//     elapsed/duration snapshot; duration may be an estimate.
//   - AssistantPlaybackEnded (assistant_playback.ended): playback finished.
//   - AssistantPlaybackFailed (assistant_playback.failed): the synthesis
//     engine failed mid-utterance.
package events

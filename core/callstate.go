package voicecall

// CallState is the single authority over whose turn it is. Audio capture,
// transcription, and playback consult it; they never decide turns themselves.
type CallState string

const (
	// CallStateIdle means no call is in progress.
	CallStateIdle CallState = "idle"
	// CallStateListening means the user holds the turn: capture and
	// transcription are live, the inactivity timer is armed.
	CallStateListening CallState = "listening"
	// CallStateProcessing means a finished user utterance is being answered.
	CallStateProcessing CallState = "processing"
	// CallStateSpeaking means the assistant holds the turn and audio is
	// playing back.
	CallStateSpeaking CallState = "speaking"
)

func (s CallState) String() string { return string(s) }

package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	voicecall "github.com/lingualive/tutor-core/core"
)

// Messages delivered into the bubbletea loop, either from call session
// callbacks (via program.Send) or from the ticker.

type stateChangedMsg voicecall.CallState

type speakingChangedMsg bool

type interimTranscriptMsg string

type transcriptMsg string

type responseMsg string

type playbackProgressMsg struct {
	currentSec  float64
	durationSec float64
}

type inactivityMsg struct{}

type callErrorMsg struct{ err error }

type tickMsg time.Time

// tickInterval paces the volume meter and the duration clock.
const tickInterval = 100 * time.Millisecond

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	voicecall "github.com/lingualive/tutor-core/core"
)

const (
	meterWidth = 24
	// meterCeiling is the highest volume the meter renders; full-scale
	// sine input peaks around 180 on the 0-255 RMS scale.
	meterCeiling = 180.0

	defaultWidth = 80
)

type model struct {
	session *voicecall.CallSession
	input   *mutingAudioClient

	width int

	state        voicecall.CallState
	userSpeaking bool
	volume       float64
	interim      string
	transcript   string
	response     string
	progressSec  float64
	durationSec  float64
	nudged       bool
	err          error

	startedAt time.Time
	spinner   spinner.Model
}

func newModel(session *voicecall.CallSession, input *mutingAudioClient) model {
	return model{
		session:   session,
		input:     input,
		width:     defaultWidth,
		state:     session.State(),
		startedAt: time.Now(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.session.StopCall()
			return m, tea.Quit
		case "m":
			m.input.ToggleMute()
		}

	case stateChangedMsg:
		m.state = voicecall.CallState(msg)
		if m.state == voicecall.CallStateListening {
			m.progressSec, m.durationSec = 0, 0
		}

	case speakingChangedMsg:
		m.userSpeaking = bool(msg)

	case interimTranscriptMsg:
		m.interim = string(msg)

	case transcriptMsg:
		m.transcript = string(msg)
		m.interim = ""
		m.nudged = false

	case responseMsg:
		m.response = string(msg)

	case playbackProgressMsg:
		m.progressSec, m.durationSec = msg.currentSec, msg.durationSec

	case inactivityMsg:
		m.nudged = true

	case callErrorMsg:
		m.err = msg.err

	case tickMsg:
		m.volume = m.session.Volume()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Tutor Call") + "  " +
		helpStyle.Render(m.session.Language()) + "\n\n")

	b.WriteString(stateStyle.Render(stateLabel(m.state)))
	if m.state == voicecall.CallStateProcessing {
		b.WriteString(" " + m.spinner.View())
	}
	if m.input.Muted() {
		b.WriteString("  " + mutedStyle.Render("[muted]"))
	}
	b.WriteString("  " + helpStyle.Render(clock(time.Since(m.startedAt))) + "\n")

	b.WriteString(volumeMeter(m.volume, m.userSpeaking) + "\n\n")

	wrap := m.width - 2
	if wrap < 20 {
		wrap = 20
	}

	if m.interim != "" {
		b.WriteString(interimStyle.Render(wordwrap.String(m.interim, wrap)) + "\n")
	} else if m.transcript != "" {
		b.WriteString(transcriptStyle.Render(wordwrap.String("You: "+m.transcript, wrap)) + "\n")
	}

	if m.response != "" {
		b.WriteString(responseStyle.Render(wordwrap.String("Tutor: "+m.response, wrap)) + "\n")
		if m.durationSec > 0 {
			b.WriteString(helpStyle.Render(fmt.Sprintf("%.1fs / %.1fs", m.progressSec, m.durationSec)) + "\n")
		}
	}

	if m.nudged {
		b.WriteString(interimStyle.Render("(checking whether you are still there)") + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(wordwrap.String("Error: "+m.err.Error(), wrap)) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("m mute · q end call"))
	return b.String()
}

func stateLabel(state voicecall.CallState) string {
	switch state {
	case voicecall.CallStateListening:
		return "Listening…"
	case voicecall.CallStateProcessing:
		return "Thinking…"
	case voicecall.CallStateSpeaking:
		return "Speaking…"
	default:
		return "Ready"
	}
}

func volumeMeter(volume float64, speaking bool) string {
	filled := int(volume / meterCeiling * meterWidth)
	if filled > meterWidth {
		filled = meterWidth
	}
	if filled < 0 {
		filled = 0
	}

	bar := meterFilledStyle.Render(strings.Repeat("█", filled)) +
		meterEmptyStyle.Render(strings.Repeat("░", meterWidth-filled))
	if speaking {
		return bar + " ●"
	}
	return bar
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	stateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	mutedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203"))

	meterFilledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("114"))

	meterEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	interimStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("245"))

	transcriptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	responseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("117"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

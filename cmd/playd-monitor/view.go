// ABOUTME: View rendering for playd-monitor
// ABOUTME: A plain status readout, styled the way the teacher's server TUI styles its own

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m model) View() string {
	if m.quitting {
		return "playd-monitor: disconnecting\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("playd monitor"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Address: "))
	b.WriteString(valueStyle.Render(m.addr))
	b.WriteString("\n")

	connStatus := "disconnected"
	if m.connected {
		connStatus = fmt.Sprintf("connected to %s %s", m.serverName, m.serverVer)
	}
	b.WriteString(headerStyle.Render("Status: "))
	b.WriteString(valueStyle.Render(connStatus))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("State: "))
	b.WriteString(valueStyle.Render(m.state))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("File: "))
	if m.file == "" {
		b.WriteString(valueStyle.Render("(none loaded)"))
	} else {
		b.WriteString(valueStyle.Render(m.file))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Position: "))
	b.WriteString(valueStyle.Render(formatPosition(m)))
	b.WriteString("\n\n")

	if m.lastErr != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(
			fmt.Sprintf("connection error: %v", m.lastErr)))
		b.WriteString("\n\n")
	}

	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

func formatPosition(m model) string {
	if !m.havePos {
		return "--:--"
	}
	pos := formatMicros(m.posUs)
	if !m.haveLen {
		return pos
	}
	return fmt.Sprintf("%s / %s", pos, formatMicros(m.lengthUs))
}

func formatMicros(us int64) string {
	total := us / 1_000_000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

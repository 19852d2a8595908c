// ABOUTME: Bubbletea model for playd-monitor
// ABOUTME: Tracks the playd state reconstructed from OHAI/FLOAD/LEN/POS/PLAY/STOP/END broadcasts
package main

import (
	tea "github.com/charmbracelet/bubbletea"
)

// model holds the last-known playd state, rebuilt purely from the wire
// protocol — it never reaches into playd's internals.
type model struct {
	addr string

	connected  bool
	serverName string
	serverVer  string

	file      string
	lengthUs  int64
	haveLen   bool
	posUs     int64
	havePos   bool
	state     string // "EJECTED", "STOPPED", "PLAYING", "AT_END"

	lastErr  error
	quitting bool
}

// lineMsg is one tokenised response line: tag, code, args...
type lineMsg []string

// disconnectedMsg reports the connection ending, gracefully or not.
type disconnectedMsg struct{ err error }

func newModel(addr string) model {
	return model{addr: addr, state: "EJECTED"}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case lineMsg:
		m.applyLine(msg)
		m.connected = true
	case disconnectedMsg:
		m.connected = false
		m.lastErr = msg.err
	}
	return m, nil
}

// applyLine folds one parsed response line into the model. Unknown codes
// and malformed args are ignored: a monitor must never crash on a line it
// doesn't recognise, since the protocol may grow codes it predates.
func (m *model) applyLine(line []string) {
	if len(line) < 2 {
		return
	}
	code, args := line[1], line[2:]

	switch code {
	case "OHAI":
		if len(args) >= 2 {
			m.serverName, m.serverVer = args[0], args[1]
		}
	case "FLOAD":
		if len(args) >= 1 {
			m.file = args[0]
			m.haveLen = false
			m.havePos = false
			m.state = "STOPPED"
		}
	case "LEN":
		if v, ok := parseUs(args); ok {
			m.lengthUs, m.haveLen = v, true
		}
	case "POS":
		if v, ok := parseUs(args); ok {
			m.posUs, m.havePos = v, true
		}
	case "PLAY":
		m.state = "PLAYING"
	case "STOP":
		m.state = "STOPPED"
	case "END":
		m.state = "AT_END"
	case "EJECT":
		m.file = ""
		m.haveLen = false
		m.havePos = false
		m.state = "EJECTED"
	}
}

func parseUs(args []string) (int64, bool) {
	if len(args) < 1 {
		return 0, false
	}
	var v int64
	for _, r := range args[0] {
		if r < '0' || r > '9' {
			return 0, false
		}
		v = v*10 + int64(r-'0')
	}
	return v, true
}

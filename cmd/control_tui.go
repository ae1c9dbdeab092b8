// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

//////////////////////////////////////////////////////////////
// Key Bindings
//////////////////////////////////////////////////////////////

type controlKeyMap struct {
	Power      key.Binding
	Mode       key.Binding
	Fan        key.Binding
	TempUp     key.Binding
	TempDown   key.Binding
	TempEntry  key.Binding
	Swing      key.Binding
	Vertical   key.Binding
	Horizontal key.Binding
	Preset     key.Binding
	Ion        key.Binding
	Reset      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k controlKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Power, k.Mode, k.Fan, k.TempUp, k.TempDown, k.Help, k.Quit}
}

func (k controlKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Power, k.Mode, k.Fan, k.Preset},
		{k.TempUp, k.TempDown, k.TempEntry},
		{k.Swing, k.Vertical, k.Horizontal, k.Ion},
		{k.Reset, k.Help, k.Quit},
	}
}

var controlKeys = controlKeyMap{
	Power:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "power")),
	Mode:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
	Fan:        key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fan")),
	TempUp:     key.NewBinding(key.WithKeys("+", "=", "up"), key.WithHelp("+", "temp up")),
	TempDown:   key.NewBinding(key.WithKeys("-", "down"), key.WithHelp("-", "temp down")),
	TempEntry:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "enter temp")),
	Swing:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "swing")),
	Vertical:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "vertical vane")),
	Horizontal: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "horizontal vane")),
	Preset:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "preset")),
	Ion:        key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "ionizer")),
	Reset:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reconnect")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctl      controller
	connInfo string

	// Mirrored engine state
	snapshot stateSnapshotMsg
	hasState bool

	// Event log
	eventLog      []errorLogEntry
	maxLogEntries int

	// Temperature entry
	tempInput textinput.Model
	editing   bool

	help help.Model
	keys controlKeyMap

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

// stateSnapshotMsg is a copy of the engine state taken with the engine locked.
type stateSnapshotMsg struct {
	state       sharpac.DeviceState
	room        int
	hasRoom     bool
	step        int
	resets      uint64
	resyncs     uint64
	writeErrors uint64
}

type linkStatusMsg struct {
	step int
}

type logLineMsg struct {
	line string
}

type connectionLostMsg struct {
	err error
}

type reconnectedMsg struct {
	connInfo string
}

func snapshotOf(e *sharpac.Engine) stateSnapshotMsg {
	room, ok := e.CurrentTemperature()
	return stateSnapshotMsg{
		state:       e.State(),
		room:        room,
		hasRoom:     ok,
		step:        e.Step(),
		resets:      e.Resets(),
		resyncs:     e.Resyncs(),
		writeErrors: e.WriteErrors(),
	}
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(ctl controller, connInfo string) controlModel {
	ti := textinput.New()
	ti.Placeholder = "24"
	ti.CharLimit = 2
	ti.Width = 4

	return controlModel{
		ctl:           ctl,
		connInfo:      connInfo,
		snapshot:      stateSnapshotMsg{state: sharpac.DefaultState()},
		eventLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		tempInput:     ti,
		help:          help.New(),
		keys:          controlKeys,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.handleTempEntry(msg)
		}
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case controlTickMsg:
		// Counters change without callbacks, refresh them once a second
		m.refresh()
		return m, controlTickCmd()

	case stateSnapshotMsg:
		m.snapshot = msg
		m.hasState = true

	case linkStatusMsg:
		m.snapshot.step = msg.step
		m.addLogEntry(sharpac.ConnectionStatusText(msg.step), false)

	case logLineMsg:
		m.addLogEntry(msg.line, strings.Contains(msg.line, "WARN") || strings.Contains(msg.line, "ERROR"))

	case connectionLostMsg:
		m.connectionLost = true
		m.snapshot.step = 0
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err), true)
		} else {
			m.addLogEntry("Connection lost - reconnecting...", true)
		}

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.addLogEntry("Reconnected - starting handshake", false)
	}

	return m, nil
}

// refresh copies the engine state into the model.
func (m *controlModel) refresh() {
	m.ctl.Do(func(e *sharpac.Engine) {
		m.snapshot = snapshotOf(e)
	})
}

// apply runs a control action if the session is up and refreshes the model.
func (m *controlModel) apply(what string, fn func(e *sharpac.Engine)) {
	if m.connectionLost || m.snapshot.step < sharpac.StepConnected {
		m.addLogEntry(fmt.Sprintf("Cannot %s: not connected", what), true)
		return
	}
	ok := m.ctl.Do(func(e *sharpac.Engine) {
		fn(e)
		m.snapshot = snapshotOf(e)
	})
	if !ok {
		m.addLogEntry(fmt.Sprintf("Cannot %s: no session", what), true)
		return
	}
	m.addLogEntry(fmt.Sprintf("Sent %s: %s", what, m.snapshot.state), false)
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.snapshot.state

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Power):
		m.apply("power", func(e *sharpac.Engine) { e.ControlMode(s.Mode, !s.Power) })

	case key.Matches(msg, m.keys.Mode):
		next := cycle(sharpac.PowerModes, s.Mode)
		m.apply("mode", func(e *sharpac.Engine) { e.ControlMode(next, s.Power) })

	case key.Matches(msg, m.keys.Fan):
		next := cycle(sharpac.FanModes, s.Fan)
		m.apply("fan", func(e *sharpac.Engine) { e.ControlFan(next) })

	case key.Matches(msg, m.keys.TempUp):
		m.apply("temperature", func(e *sharpac.Engine) { e.ControlTemperature(s.Temperature + 1) })

	case key.Matches(msg, m.keys.TempDown):
		m.apply("temperature", func(e *sharpac.Engine) { e.ControlTemperature(s.Temperature - 1) })

	case key.Matches(msg, m.keys.TempEntry):
		m.editing = true
		m.tempInput.SetValue("")
		return m, m.tempInput.Focus()

	case key.Matches(msg, m.keys.Swing):
		next := cycle(swingModes, sharpac.SwingModeOf(s))
		m.apply("swing", func(e *sharpac.Engine) { e.ControlSwingMode(next) })

	case key.Matches(msg, m.keys.Vertical):
		next := cycle(sharpac.VerticalPositions, s.Vertical)
		m.apply("vertical vane", func(e *sharpac.Engine) { e.SetVaneVertical(next) })

	case key.Matches(msg, m.keys.Horizontal):
		next := cycle(sharpac.HorizontalPositions, s.Horizontal)
		m.apply("horizontal vane", func(e *sharpac.Engine) { e.SetVaneHorizontal(next) })

	case key.Matches(msg, m.keys.Preset):
		next := cycle(sharpac.Presets, s.Preset)
		m.apply("preset", func(e *sharpac.Engine) { e.ControlPreset(next) })

	case key.Matches(msg, m.keys.Ion):
		m.apply("ionizer", func(e *sharpac.Engine) { e.SetIon(!s.Ion) })

	case key.Matches(msg, m.keys.Reset):
		m.ctl.Do(func(e *sharpac.Engine) { e.ResetConnection() })
		m.addLogEntry("Connection reset requested", false)
	}

	return m, nil
}

func (m controlModel) handleTempEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.tempInput.Blur()
		return m, nil

	case tea.KeyEnter:
		m.editing = false
		m.tempInput.Blur()
		val := m.tempInput.Value()
		if val == "" {
			val = m.tempInput.Placeholder
		}
		temp, err := strconv.Atoi(val)
		if err != nil || temp < sharpac.MinTemperature || temp > sharpac.MaxTemperature {
			m.addLogEntry(fmt.Sprintf("Invalid temperature %q (%d-%d)", val, sharpac.MinTemperature, sharpac.MaxTemperature), true)
			return m, nil
		}
		m.apply("temperature", func(e *sharpac.Engine) { e.ControlTemperature(temp) })
		return m, nil
	}

	var cmd tea.Cmd
	m.tempInput, cmd = m.tempInput.Update(msg)
	return m, cmd
}

var swingModes = []sharpac.SwingMode{sharpac.SwingOff, sharpac.SwingBoth, sharpac.SwingVerticalOnly, sharpac.SwingHorizontalOnly}

// cycle returns the value after cur in values, wrapping around. A value not
// in the list cycles to the first entry.
func cycle[T comparable](values []T, cur T) T {
	for i, v := range values {
		if v == cur {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func (m *controlModel) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("SHARPSTAT CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | %s", connStatus, sharpac.ConnectionStatusText(m.snapshot.step))))
	s.WriteString("\n\n")

	// State and link panels side by side
	statePanel := boxStyle.Width(44).Render(m.renderState(statsLabelStyle, statsValueStyle, warningStyle))
	linkPanel := boxStyle.Width(28).Render(m.renderLink(statsLabelStyle, statsValueStyle, errorStyle))
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, statePanel, " ", linkPanel))
	s.WriteString("\n\n")

	if m.editing {
		s.WriteString(statsLabelStyle.Render("Target °C: "))
		s.WriteString(m.tempInput.View())
		s.WriteString(headerStyle.Render("  (enter to send, esc to cancel)"))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}

func (m controlModel) renderState(labelStyle, valueStyle, warningStyle lipgloss.Style) string {
	if !m.hasState {
		return warningStyle.Render("Waiting for state...")
	}

	st := m.snapshot.state
	power := "Off"
	if st.Power {
		power = "On"
	}
	target := "-"
	if st.Mode.HasSetpoint() {
		target = fmt.Sprintf("%d°C", st.Temperature)
	}
	room := "-"
	if m.snapshot.hasRoom {
		room = fmt.Sprintf("%d°C", m.snapshot.room)
	}
	ion := "Off"
	if st.Ion {
		ion = "On"
	}

	rows := []struct{ label, value string }{
		{"Power:", power},
		{"Mode:", st.Mode.String()},
		{"Fan:", st.Fan.String()},
		{"Target:", target},
		{"Room:", room},
		{"Swing:", sharpac.SwingModeOf(st).String()},
		{"Louvers:", fmt.Sprintf("h=%s v=%s", st.Horizontal, st.Vertical)},
		{"Preset:", st.Preset.String()},
		{"Ionizer:", ion},
	}

	var s strings.Builder
	for i, r := range rows {
		if i > 0 {
			s.WriteString("\n")
		}
		s.WriteString(fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-9s", r.label)), valueStyle.Render(r.value)))
	}
	return s.String()
}

func (m controlModel) renderLink(labelStyle, valueStyle, errorStyle lipgloss.Style) string {
	counter := func(n uint64) string {
		if n > 0 {
			return errorStyle.Render(fmt.Sprintf("%d", n))
		}
		return valueStyle.Render("0")
	}

	return fmt.Sprintf("%s %s\n%s %s\n%s %s\n%s %s",
		labelStyle.Render("Step:"), valueStyle.Render(fmt.Sprintf("%d/%d", m.snapshot.step, sharpac.StepConnected)),
		labelStyle.Render("Resets:"), counter(m.snapshot.resets),
		labelStyle.Render("Resyncs:"), counter(m.snapshot.resyncs),
		labelStyle.Render("Write errors:"), counter(m.snapshot.writeErrors),
	)
}

func (m controlModel) renderEventLog(labelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := m.height - 20
	if logHeight < 5 {
		logHeight = 5
	}

	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/object"
	"github.com/lodtalk-go/vm/script"
)

// Grounded on cmd/run/interactive.go's bubbletea model: a picker over
// what the loaded component exports there becomes a picker over what the
// loaded script bound as a global here, and "call a function with typed
// arguments" becomes "send a selector, with one argument per ':' it
// carries, to the picked receiver."
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type replState int

const (
	stateSelectReceiver replState = iota
	stateInputSelector
	stateInputArgs
	stateShowResult
)

type replModel struct {
	err      error
	path     string
	rt       *script.Runtime
	names    []string
	selected int
	selector textinput.Model
	inputs   []textinput.Model
	focusIdx int
	result   string
	state    replState
}

func newReplModel(path string) *replModel {
	sel := textinput.New()
	sel.Placeholder = "selector, e.g. printString or compute:"
	sel.Prompt = "send: "
	sel.Width = 40
	return &replModel{path: path, selector: sel, state: stateSelectReceiver}
}

type loadedMsg struct {
	err   error
	rt    *script.Runtime
	names []string
}

type sendResultMsg struct {
	err    error
	result string
}

func (m *replModel) Init() tea.Cmd { return m.load }

func (m *replModel) load() tea.Msg {
	data, err := readSource(m.path)
	if err != nil {
		return loadedMsg{err: err}
	}
	program, err := loadProgram(data)
	if err != nil {
		return loadedMsg{err: err}
	}
	rt, err := newRuntime()
	if err != nil {
		return loadedMsg{err: err}
	}
	if _, err := script.Load(rt, program); err != nil {
		return loadedMsg{err: err}
	}
	names := rt.GlobalNames()
	sort.Strings(names)
	return loadedMsg{rt: rt, names: names}
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputSelector && m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectReceiver && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectReceiver && m.selected < len(m.names)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectReceiver:
				if len(m.names) == 0 {
					break
				}
				m.selector.SetValue("")
				m.selector.Focus()
				m.state = stateInputSelector

			case stateInputSelector:
				selector := strings.TrimSpace(m.selector.Value())
				if selector == "" {
					break
				}
				m.selector.SetValue(selector)
				if argCount := strings.Count(selector, ":"); argCount > 0 {
					m.prepareArgInputs(argCount)
					m.state = stateInputArgs
				} else {
					return m, m.send
				}

			case stateInputArgs:
				return m, m.send

			case stateShowResult:
				m.result = ""
				m.err = nil
				m.state = stateSelectReceiver
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputSelector:
				m.state = stateSelectReceiver
			case stateInputArgs:
				m.inputs = nil
				m.state = stateInputSelector
			case stateShowResult:
				m.result = ""
				m.err = nil
				m.state = stateSelectReceiver
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.names = msg.names

	case sendResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	var cmd tea.Cmd
	switch m.state {
	case stateInputSelector:
		m.selector, cmd = m.selector.Update(msg)
	case stateInputArgs:
		var cmds []tea.Cmd
		for i := range m.inputs {
			var c tea.Cmd
			m.inputs[i], c = m.inputs[i].Update(msg)
			cmds = append(cmds, c)
		}
		cmd = tea.Batch(cmds...)
	}
	return m, cmd
}

func (m *replModel) prepareArgInputs(argCount int) {
	m.inputs = make([]textinput.Model, argCount)
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = "argument (integer or text)"
		ti.Prompt = fmt.Sprintf("arg %d: ", i+1)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *replModel) send() tea.Msg {
	receiver, ok := m.rt.Global(m.names[m.selected])
	if !ok {
		return sendResultMsg{err: fmt.Errorf("%s: no longer bound", m.names[m.selected])}
	}
	args := make([]object.Value, len(m.inputs))
	for i, input := range m.inputs {
		v, err := convertArg(m.rt, input.Value())
		if err != nil {
			return sendResultMsg{err: err}
		}
		args[i] = v
	}

	act := m.rt.NewActivation()
	result, err := act.Send(receiver, m.selector.Value(), args...)
	if err != nil {
		return sendResultMsg{err: err}
	}
	return sendResultMsg{result: renderValue(m.rt, result)}
}

func convertArg(rt *script.Runtime, text string) (object.Value, error) {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return object.EncodeSmallInteger(n), nil
	}
	v, err := class.NewByteString(rt.Heap, text)
	if err != nil {
		return object.Nil, fmt.Errorf("argument %q: %w", text, err)
	}
	return v, nil
}

func (m *replModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.rt == nil {
		return "Loading script..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("lodtalk"))
	b.WriteString(" ")
	b.WriteString(m.path)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectReceiver:
		b.WriteString("Select a receiver:\n\n")
		for i, name := range m.names {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + nameStyle.Render(name)))
			} else {
				b.WriteString(cursor + nameStyle.Render(name))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("up/down select - enter choose - q quit"))

	case stateInputSelector:
		b.WriteString(fmt.Sprintf("Receiver: %s\n\n", nameStyle.Render(m.names[m.selected])))
		b.WriteString(m.selector.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter send - esc back"))

	case stateInputArgs:
		b.WriteString(fmt.Sprintf("Sending %s to %s\n\n", nameStyle.Render(m.selector.Value()), nameStyle.Render(m.names[m.selected])))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field - enter send - esc back"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", nameStyle.Render(m.selector.Value())))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue - q quit"))
	}

	return b.String()
}

func runInteractive(path string) error {
	p := tea.NewProgram(newReplModel(path), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

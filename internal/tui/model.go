package tui

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// ErrAborted is returned when the user cancels the prompt.
var ErrAborted = errors.New("prompt aborted")

// Model is a one-shot Bubble Tea prompt that collects a single question.
type Model struct {
	title     string
	input     textinput.Model
	status    string
	submitted string
	aborted   bool
}

// New creates a prompt model.
func New(title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{title: title, input: ti, status: "Enter submits, Esc cancels."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.status = "The question must not be empty."
				return m, nil
			}
			m.submitted = q
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	if m.submitted != "" || m.aborted {
		return ""
	}
	header := lipgloss.NewStyle().Bold(true).Render(m.title)
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + input + "\n" + status + "\n"
}

// Question returns the submitted question, if any.
func (m Model) Question() string { return m.submitted }

// Aborted reports whether the user cancelled.
func (m Model) Aborted() bool { return m.aborted }

// Prompt runs the interactive prompt on in/out and returns the question.
func Prompt(title string, in io.Reader, out io.Writer) (string, error) {
	final, err := tea.NewProgram(New(title), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(Model)
	if !ok || m.aborted || m.submitted == "" {
		return "", ErrAborted
	}
	return m.submitted, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var (
	queryBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

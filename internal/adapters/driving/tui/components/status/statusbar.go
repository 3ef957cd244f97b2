// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

// State represents the current session state for display.
type State string

const (
	StateIngesting State = "ingesting"
	StateReady     State = "ready"
	StateAsking    State = "asking"
	StateError     State = "error"
)

// Bar displays session status and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	state    State
	message  string
	chunks   int
	answered int
	spinner  string
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateIngesting,
		width:  80,
	}
}

// Init initialises the status bar.
func (b *Bar) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the bar is driven through its setters.
func (b *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	return b, nil
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	// Width includes the style's padding, so the content gets what is left.
	inner := b.width - b.styles.StatusBar.GetHorizontalFrameSize()
	padding := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return b.styles.StatusBar.Width(b.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateIngesting:
		return b.withSpinner(b.styles.Muted.Render("Ingesting document..."))
	case StateAsking:
		return b.withSpinner(b.styles.Muted.Render("Thinking..."))
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render(fmt.Sprintf("Error: %s", b.message))
		}
		return b.styles.Error.Render("Error")
	case StateReady:
		return b.styles.Success.Render(fmt.Sprintf("%d chunks indexed | %d answered", b.chunks, b.answered))
	}
	return ""
}

func (b *Bar) withSpinner(text string) string {
	if b.spinner == "" {
		return text
	}
	return b.spinner + " " + text
}

func (b *Bar) renderRight() string {
	var bindings []key.Binding
	if b.state == StateIngesting || b.state == StateAsking {
		bindings = b.keymap.BusyHelp()
	} else {
		bindings = b.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets the error message shown in StateError.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetChunks sets the number of indexed chunks.
func (b *Bar) SetChunks(n int) {
	b.chunks = n
}

// SetAnswered sets the number of answered questions.
func (b *Bar) SetAnswered(n int) {
	b.answered = n
}

// SetSpinner sets the rendered spinner frame shown while busy.
func (b *Bar) SetSpinner(frame string) {
	b.spinner = frame
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the current width.
func (b *Bar) Width() int {
	return b.width
}

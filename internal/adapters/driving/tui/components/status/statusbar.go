// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/keymap"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/styles"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// State represents the current application state for display.
type State string

const (
	StateReady     State = "ready"
	StateUploading State = "uploading"
	StateAnalysing State = "analysing"
	StateConfirm   State = "confirm"
	StateError     State = "error"
)

// Bar displays application status and keybinding hints.
type Bar struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	state     State
	message   string
	documents int
	uploading int
	polling   int
	mode      domain.ViewMode
	width     int
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
		state:  StateReady,
		width:  80,
	}
}

// SetProjection derives counts and state from the orchestration snapshot.
// An active confirmation dialog takes precedence.
func (s *Bar) SetProjection(p domain.Projection) {
	s.documents = len(p.State.Documents)
	s.uploading = len(p.State.PendingUploads)
	s.polling = len(p.State.ActivePolls)
	s.mode = p.Mode

	if s.state == StateConfirm {
		return
	}
	switch {
	case p.LastError != nil:
		s.state = StateError
		s.message = p.LastError.Error()
	case s.uploading > 0:
		s.state = StateUploading
		s.message = ""
	case s.polling > 0:
		s.state = StateAnalysing
		s.message = ""
	default:
		s.state = StateReady
		s.message = ""
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateUploading:
		return s.styles.Warning.Render(fmt.Sprintf("Uploading %d file(s)...", s.uploading))
	case StateAnalysing:
		return s.styles.Warning.Render(fmt.Sprintf("Analysing %d document(s)...", s.polling))
	case StateConfirm:
		return s.styles.Normal.Render("Confirm")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateReady:
	}
	if s.documents > 0 {
		return s.styles.Normal.Render(fmt.Sprintf("%d documents", s.documents))
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	switch {
	case s.state == StateConfirm:
		bindings = s.keymap.ConfirmHelp()
	case s.mode == domain.ViewHistory:
		bindings = s.keymap.HistoryHelp()
	default:
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
}

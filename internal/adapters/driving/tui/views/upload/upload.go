// Package upload provides the file drop view for the TUI.
package upload

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/components/input"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/messages"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/styles"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// View is the upload view. Paths typed or dropped into the input are
// submitted with enter.
type View struct {
	styles *styles.Styles
	input  *input.PathInput

	projection domain.Projection
	report     *domain.UploadReport
	err        error
	submitting bool

	width  int
	height int
}

// NewView creates a new upload view.
func NewView(s *styles.Styles) *View {
	return &View{
		styles: s,
		input:  input.NewPathInput(s),
	}
}

// Init starts the input cursor.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetProjection updates the view from the orchestration snapshot.
func (v *View) SetProjection(p domain.Projection) {
	v.projection = p
}

// SetReport records the outcome of the last submission.
func (v *View) SetReport(report *domain.UploadReport, err error) {
	v.submitting = false
	v.report = report
	v.err = err
}

// Update handles messages for the upload view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEnter {
		paths := v.input.Paths()
		if len(paths) == 0 {
			return v, nil
		}
		v.input.Reset()
		v.submitting = true
		v.report = nil
		v.err = nil
		return v, func() tea.Msg {
			return messages.FilesDropped{Paths: paths}
		}
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// View renders the upload view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Upload medical documents"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf(
		"Accepted: %s, up to %d MB",
		strings.Join(domain.AcceptedExtensions(), " "), domain.MaxUploadSize/(1024*1024))))
	b.WriteString("\n\n")
	b.WriteString(v.input.View())
	b.WriteString("\n\n")

	if v.projection.ResultsReady {
		b.WriteString(v.styles.Banner.Render("Your results are ready. Press ctrl+t to view them."))
		b.WriteString("\n\n")
	}

	if pending := v.projection.State.PendingUploads; len(pending) > 0 {
		b.WriteString(v.styles.Subtitle.Render("Uploading"))
		b.WriteString("\n")
		for _, name := range pending {
			b.WriteString(v.styles.Warning.Render("  ... " + name))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	} else if v.submitting {
		b.WriteString(v.styles.Muted.Render("Preparing upload..."))
		b.WriteString("\n\n")
	}

	b.WriteString(v.renderReport())
	return b.String()
}

func (v *View) renderReport() string {
	if v.report == nil {
		if v.err != nil {
			return v.styles.Error.Render("Error: "+v.err.Error()) + "\n"
		}
		return ""
	}

	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render("Last upload"))
	b.WriteString("\n")
	for _, res := range v.report.Results {
		if res.Err != nil {
			b.WriteString(v.styles.Error.Render(fmt.Sprintf("  x %s: %s", res.Filename, reason(res.Err))))
			b.WriteString("\n")
			continue
		}
		status := "analysing"
		if res.Record != nil {
			if rec, ok := v.projection.State.Document(res.Record.ID); ok {
				status = strings.ToLower(rec.Status.Label())
			}
		}
		b.WriteString(v.styles.Success.Render(fmt.Sprintf("  + %s (%s)", res.Filename, status)))
		b.WriteString("\n")
	}
	return b.String()
}

// reason prefers the validation reason over the full error chain.
func reason(err error) string {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Reason
	}
	return err.Error()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
}

// Submitting reports whether an upload is being prepared.
func (v *View) Submitting() bool {
	return v.submitting
}

// Report returns the last upload report.
func (v *View) Report() *domain.UploadReport {
	return v.report
}

// Input returns the path input.
func (v *View) Input() *input.PathInput {
	return v.input
}

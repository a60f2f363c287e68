// Package trends provides the analysis results view for the TUI.
package trends

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/styles"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// View renders the analysis of the selected document.
type View struct {
	styles *styles.Styles

	projection   domain.Projection
	lines        []string
	scrollOffset int

	width  int
	height int
}

// NewView creates a new trends view.
func NewView(s *styles.Styles) *View {
	return &View{styles: s}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// SetProjection updates the view. Scrolling resets when the selected
// document changes.
func (v *View) SetProjection(p domain.Projection) {
	if p.State.SelectedID != v.projection.State.SelectedID {
		v.scrollOffset = 0
	}
	v.projection = p
	v.lines = v.renderLines()
	v.clampScroll()
}

// Update handles scrolling.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		v.scrollOffset--
	case "down", "j":
		v.scrollOffset++
	case "pgup":
		v.scrollOffset -= v.pageSize()
	case "pgdown":
		v.scrollOffset += v.pageSize()
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = len(v.lines)
	}
	v.clampScroll()
	return v, nil
}

func (v *View) pageSize() int {
	if v.height <= 4 {
		return 1
	}
	return v.height - 4
}

func (v *View) clampScroll() {
	maxOffset := len(v.lines) - v.pageSize()
	if v.scrollOffset > maxOffset {
		v.scrollOffset = maxOffset
	}
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
}

// View renders the visible part of the analysis.
func (v *View) View() string {
	if len(v.lines) == 0 {
		v.lines = v.renderLines()
	}

	end := min(v.scrollOffset+v.pageSize(), len(v.lines))
	out := strings.Join(v.lines[v.scrollOffset:end], "\n")
	if len(v.lines) > v.pageSize() {
		out += "\n\n" + v.styles.Muted.Render(fmt.Sprintf("  [lines %d-%d of %d]",
			v.scrollOffset+1, end, len(v.lines)))
	}
	return out
}

// renderLines builds the full content, one entry per screen line.
func (v *View) renderLines() []string {
	p := v.projection
	title := v.styles.Title.Render("Results")

	if len(p.State.Documents) == 0 {
		return []string{title, "", v.styles.Muted.Render("No documents yet. Upload a report to see your results.")}
	}
	doc, ok := p.State.Selected()
	if !ok {
		return []string{title, "", v.styles.Muted.Render("Select a processed document in History to view its results.")}
	}

	header := v.styles.Title.Render(fmt.Sprintf("Results: %s", doc.Filename))
	sub := v.styles.Muted.Render(doc.DisplayType())

	switch {
	case doc.Status == domain.StatusFailed:
		return []string{header, sub, "", v.styles.Error.Render("Analysis failed for this document. Try uploading it again.")}
	case p.SelectedAnalysis == nil && p.State.IsPolling(doc.ID):
		return []string{header, sub, "", v.styles.Warning.Render("Analysing your document...")}
	case p.SelectedAnalysis == nil && doc.Status != domain.StatusCompleted:
		return []string{header, sub, "", v.styles.Muted.Render("This document is still being processed.")}
	case p.SelectedAnalysis == nil:
		return []string{header, sub, "", v.styles.Muted.Render("Loading results...")}
	}

	a := p.SelectedAnalysis
	lines := []string{header, sub, ""}

	lines = append(lines,
		"Overall: "+v.styles.Finding(a.OverallStatus).Render(a.OverallStatus.String()),
		fmt.Sprintf("%s  %s  %s",
			v.styles.Success.Render(fmt.Sprintf("%d normal", a.NormalCount)),
			v.styles.Warning.Render(fmt.Sprintf("%d to monitor", a.MonitorCount)),
			v.styles.Error.Render(fmt.Sprintf("%d urgent", a.UrgentCount))),
	)
	if a.OverallSummary != "" {
		lines = append(lines, "")
		lines = append(lines, v.wrap(a.OverallSummary, "")...)
	}

	if len(a.Findings) > 0 {
		lines = append(lines, "", v.styles.Subtitle.Render("Findings"))
		for _, f := range a.Findings {
			lines = append(lines, v.renderFinding(f)...)
		}
	}

	if len(a.Questions) > 0 {
		lines = append(lines, "", v.styles.Subtitle.Render("Questions for your doctor"))
		for _, q := range a.Questions {
			prefix := fmt.Sprintf("  [%s] ", q.Priority)
			style := v.styles.Normal
			if q.Priority == domain.PriorityUrgent {
				style = v.styles.Error
			}
			lines = append(lines, style.Render(prefix+q.Question))
		}
	}
	return lines
}

func (v *View) renderFinding(f domain.Finding) []string {
	head := fmt.Sprintf("  %s %s", f.TestName, f.Value)
	if f.NormalRange != "" {
		head += v.styles.Muted.Render(fmt.Sprintf(" (normal %s)", f.NormalRange))
	}
	lines := []string{
		"",
		v.styles.Finding(f.Status).Render(fmt.Sprintf("[%s]", f.Status)) + head,
	}
	if f.PlainEnglish != "" {
		lines = append(lines, v.wrap(f.PlainEnglish, "    ")...)
	}
	if f.WhatItMeans != "" {
		lines = append(lines, v.wrap(f.WhatItMeans, "    ")...)
	}
	for _, r := range f.Recommendations {
		lines = append(lines, v.wrap(r, "    - ")...)
	}
	return lines
}

// wrap splits text into lines no wider than the view.
func (v *View) wrap(text, indent string) []string {
	width := v.width - len(indent) - 2
	if width < 20 {
		width = 20
	}

	var (
		lines []string
		line  strings.Builder
	)
	cont := strings.Repeat(" ", len(indent))
	prefix := indent
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > width {
			lines = append(lines, prefix+line.String())
			line.Reset()
			prefix = cont
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, prefix+line.String())
	}
	return lines
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.lines = v.renderLines()
	v.clampScroll()
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

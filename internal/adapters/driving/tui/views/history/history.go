// Package history provides the document history view for the TUI.
package history

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/messages"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/styles"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

const timeLayout = "2006-01-02 15:04"

// View lists every known document, most recent first.
type View struct {
	styles *styles.Styles

	projection   domain.Projection
	cursor       int
	cursorID     string
	scrollOffset int

	width  int
	height int
}

// NewView creates a new history view.
func NewView(s *styles.Styles) *View {
	return &View{styles: s}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// SetProjection updates the view. The cursor stays on the same document
// when it is still listed.
func (v *View) SetProjection(p domain.Projection) {
	v.projection = p
	docs := p.State.Documents

	if v.cursorID != "" {
		for i := range docs {
			if docs[i].ID == v.cursorID {
				v.cursor = i
				v.adjustScroll()
				return
			}
		}
	}
	if v.cursor >= len(docs) {
		v.cursor = len(docs) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.syncCursorID()
	v.adjustScroll()
}

// Update handles messages for the history view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}

	docs := v.projection.State.Documents
	switch keyMsg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
			v.syncCursorID()
			v.adjustScroll()
		}
	case "down", "j":
		if v.cursor < len(docs)-1 {
			v.cursor++
			v.syncCursorID()
			v.adjustScroll()
		}
	case "enter":
		if doc, ok := v.Highlighted(); ok {
			return v, func() tea.Msg {
				return messages.OpenRequested{DocumentID: doc.ID}
			}
		}
	case "d", "delete":
		if doc, ok := v.Highlighted(); ok {
			return v, func() tea.Msg {
				return messages.DeleteRequested{DocumentID: doc.ID}
			}
		}
	case "r":
		return v, func() tea.Msg {
			return messages.RefreshRequested{}
		}
	}
	return v, nil
}

// Highlighted returns the document under the cursor.
func (v *View) Highlighted() (domain.DocumentRecord, bool) {
	docs := v.projection.State.Documents
	if v.cursor < 0 || v.cursor >= len(docs) {
		return domain.DocumentRecord{}, false
	}
	return docs[v.cursor], true
}

func (v *View) syncCursorID() {
	if doc, ok := v.Highlighted(); ok {
		v.cursorID = doc.ID
		return
	}
	v.cursorID = ""
}

// adjustScroll keeps the cursor visible.
func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.cursor < v.scrollOffset {
		v.scrollOffset = v.cursor
	} else if v.cursor >= v.scrollOffset+visible {
		v.scrollOffset = v.cursor - visible + 1
	}
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
}

func (v *View) visibleItemCount() int {
	// Title, column header, scroll indicator and padding.
	available := v.height - 6
	if available < 1 {
		available = 1
	}
	return available
}

// View renders the history view.
func (v *View) View() string {
	var b strings.Builder
	docs := v.projection.State.Documents

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Document history (%d)", len(docs))))
	b.WriteString("\n\n")

	if len(docs) == 0 {
		b.WriteString(v.styles.Muted.Render("No documents yet. Upload one from the Upload view."))
		b.WriteString("\n")
		return b.String()
	}

	visible := v.visibleItemCount()
	for i := v.scrollOffset; i < len(docs) && i < v.scrollOffset+visible; i++ {
		b.WriteString(v.renderRow(i, docs[i]))
		b.WriteString("\n")
	}

	if len(docs) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visible, len(docs)),
			len(docs))))
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) renderRow(index int, doc domain.DocumentRecord) string {
	indicator := "  "
	if index == v.cursor {
		indicator = "> "
	}
	marker := " "
	if doc.ID == v.projection.State.SelectedID {
		marker = "*"
	}

	name := truncate(doc.Filename, max(v.width/3, 12))
	uploaded := "-"
	if !doc.UploadTime.IsZero() {
		uploaded = doc.UploadTime.Local().Format(timeLayout)
	}

	label := doc.Status.Label()
	if v.projection.State.IsPolling(doc.ID) && !doc.Status.IsTerminal() {
		label += " (checking)"
	}

	row := fmt.Sprintf("%s%s %-*s  %-18s  %s  ",
		indicator, marker, max(v.width/3, 12), name, truncate(doc.DisplayType(), 18), uploaded)
	if index == v.cursor {
		return v.styles.Selected.Render(row) + v.styles.Status(doc.Status).Render(label)
	}
	return v.styles.Normal.Render(row) + v.styles.Status(doc.Status).Render(label)
}

func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.adjustScroll()
}

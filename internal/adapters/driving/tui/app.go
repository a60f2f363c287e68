package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/files"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/components/status"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/keymap"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/messages"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/styles"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/views/history"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/views/trends"
	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/views/upload"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

// chromeHeight is the number of lines used by the tab bar and status bar.
const chromeHeight = 4

// viewOrder is the tab order of the views.
var viewOrder = []domain.ViewMode{domain.ViewUpload, domain.ViewHistory, domain.ViewTrends}

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
//
// The orchestrator owns all document state. The app only turns key presses
// into intents and redraws from the orchestrator's projection.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles    *styles.Styles
	keymap    *keymap.KeyMap
	statusBar *status.Bar

	uploadView  *upload.View
	historyView *history.View
	trendsView  *trends.View

	// projection is the last snapshot taken from the orchestrator.
	projection domain.Projection

	// changes is signalled by the orchestrator subscription.
	changes     chan struct{}
	unsubscribe func()

	// prompts carries confirmation questions from running operations.
	prompts chan messages.ConfirmRequested
	prompt  *messages.ConfirmRequested

	// baseURL is shown in the header when settings are available.
	baseURL string

	showHelp bool
	err      error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	a := &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		statusBar:   status.NewBar(s, km),
		uploadView:  upload.NewView(s),
		historyView: history.NewView(s),
		trendsView:  trends.NewView(s),
		changes:     make(chan struct{}, 1),
		prompts:     make(chan messages.ConfirmRequested),
	}

	if ports.Settings != nil {
		if settings, err := ports.Settings.Get(); err == nil {
			a.baseURL = settings.API.BaseURL
		}
	}

	a.unsubscribe = ports.Orchestrator.Subscribe(a.signal)
	a.syncProjection()
	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// signal records a state change without blocking the notifier.
func (a *App) signal() {
	select {
	case a.changes <- struct{}{}:
	default:
	}
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("patiently"),
		a.uploadView.Init(),
		a.mount(),
		a.waitForChange(),
		a.waitForPrompt(),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
//
//nolint:gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.StateChanged:
		a.syncProjection()
		return a, a.waitForChange()

	case messages.Mounted:
		a.err = msg.Err
		a.syncProjection()
		return a, nil

	case messages.ViewChanged:
		return a, a.switchView(msg.View)

	case messages.ViewSwitched:
		a.err = msg.Err
		a.syncProjection()
		return a, nil

	case messages.FilesDropped:
		return a, a.drop(msg.Paths)

	case messages.UploadCompleted:
		a.uploadView.SetReport(msg.Report, msg.Err)
		a.syncProjection()
		return a, nil

	case messages.OpenRequested:
		return a, a.open(msg.DocumentID)

	case messages.OpenCompleted:
		a.err = msg.Err
		if msg.Err == nil && !msg.Opened {
			a.statusBar.SetMessage("Results are not ready for this document yet")
		}
		a.syncProjection()
		return a, nil

	case messages.DeleteRequested:
		return a, a.delete(msg.DocumentID)

	case messages.ConfirmRequested:
		a.prompt = &msg
		a.statusBar.SetState(status.StateConfirm)
		return a, a.waitForPrompt()

	case messages.DeleteCompleted:
		a.err = msg.Err
		a.syncProjection()
		return a, nil

	case messages.RefreshRequested:
		return a, a.mount()

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, nil

	case messages.Quit:
		return a, a.quit()
	}

	return a, a.forward(msg)
}

// handleKey routes key presses. A pending confirmation captures every key.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	if a.prompt != nil {
		switch {
		case keymap.Matches(keyStr, a.keymap.Confirm):
			a.answer(true)
		case keymap.Matches(keyStr, a.keymap.Cancel):
			a.answer(false)
		case keyStr == "ctrl+c":
			a.answer(false)
			return a, a.quit()
		}
		return a, nil
	}

	if keyStr == "ctrl+c" {
		return a, a.quit()
	}

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	mode := a.projection.Mode
	switch {
	case key.Matches(msg, a.keymap.NextView):
		return a, a.switchView(nextView(mode, 1))
	case key.Matches(msg, a.keymap.PrevView):
		return a, a.switchView(nextView(mode, -1))
	case key.Matches(msg, a.keymap.ViewResults):
		if a.projection.ResultsReady {
			return a, a.switchView(domain.ViewTrends)
		}
		return a, nil
	}

	// The upload view takes free text, so single-letter shortcuts only
	// apply elsewhere.
	if mode != domain.ViewUpload {
		switch {
		case key.Matches(msg, a.keymap.Quit):
			return a, a.quit()
		case key.Matches(msg, a.keymap.Help):
			a.showHelp = true
			return a, nil
		}
	}

	return a, a.forward(msg)
}

// forward passes a message to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.projection.Mode {
	case domain.ViewUpload:
		a.uploadView, cmd = a.uploadView.Update(msg)
	case domain.ViewHistory:
		a.historyView, cmd = a.historyView.Update(msg)
	case domain.ViewTrends:
		a.trendsView, cmd = a.trendsView.Update(msg)
	}
	return cmd
}

// answer replies to the pending confirmation.
func (a *App) answer(yes bool) {
	a.prompt.Reply <- yes
	a.prompt = nil
	a.statusBar.Clear()
	a.statusBar.SetProjection(a.projection)
}

// syncProjection pulls a fresh snapshot and hands it to every view.
func (a *App) syncProjection() {
	a.projection = a.ports.Orchestrator.Projection()
	a.uploadView.SetProjection(a.projection)
	a.historyView.SetProjection(a.projection)
	a.trendsView.SetProjection(a.projection)
	a.statusBar.SetProjection(a.projection)
}

// waitForChange blocks until the orchestrator reports a change.
func (a *App) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.changes:
			return messages.StateChanged{}
		case <-a.ctx.Done():
			return nil
		}
	}
}

// waitForPrompt blocks until an operation asks for confirmation.
func (a *App) waitForPrompt() tea.Cmd {
	return func() tea.Msg {
		select {
		case p := <-a.prompts:
			return p
		case <-a.ctx.Done():
			return nil
		}
	}
}

// confirm implements driving.ConfirmFunc by showing a dialog.
func (a *App) confirm(ctx context.Context, prompt string) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case a.prompts <- messages.ConfirmRequested{Prompt: prompt, Reply: reply}:
	case <-ctx.Done():
		return false, ctx.Err()
	case <-a.ctx.Done():
		return false, errPromptClosed
	}

	select {
	case yes := <-reply:
		return yes, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-a.ctx.Done():
		return false, errPromptClosed
	}
}

func (a *App) mount() tea.Cmd {
	return func() tea.Msg {
		return messages.Mounted{Err: a.ports.Orchestrator.Mount(a.ctx)}
	}
}

func (a *App) switchView(mode domain.ViewMode) tea.Cmd {
	return func() tea.Msg {
		return messages.ViewSwitched{View: mode, Err: a.ports.Orchestrator.SwitchView(a.ctx, mode)}
	}
}

func (a *App) drop(paths []string) tea.Cmd {
	return func() tea.Msg {
		handles, err := files.OpenAll(paths)
		if err != nil {
			return messages.UploadCompleted{Err: err}
		}
		report, err := a.ports.Orchestrator.Drop(a.ctx, handles)
		return messages.UploadCompleted{Report: report, Err: err}
	}
}

func (a *App) open(id string) tea.Cmd {
	return func() tea.Msg {
		opened, err := a.ports.Orchestrator.Open(a.ctx, id)
		return messages.OpenCompleted{DocumentID: id, Opened: opened, Err: err}
	}
}

func (a *App) delete(id string) tea.Cmd {
	return func() tea.Msg {
		deleted, err := a.ports.Orchestrator.Delete(a.ctx, id, a.confirm)
		return messages.DeleteCompleted{DocumentID: id, Deleted: deleted, Err: err}
	}
}

func (a *App) quit() tea.Cmd {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	return tea.Quit
}

// nextView steps through viewOrder, wrapping around.
func nextView(current domain.ViewMode, step int) domain.ViewMode {
	for i, m := range viewOrder {
		if m == current {
			return viewOrder[(i+step+len(viewOrder))%len(viewOrder)]
		}
	}
	return domain.ViewUpload
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch {
	case a.prompt != nil:
		body = a.viewConfirm()
	case a.showHelp:
		body = a.viewHelp()
	default:
		switch a.projection.Mode {
		case domain.ViewHistory:
			body = a.historyView.View()
		case domain.ViewTrends:
			body = a.trendsView.View()
		default:
			body = a.uploadView.View()
		}
	}

	var b strings.Builder
	b.WriteString(a.viewTabs())
	b.WriteString("\n\n")
	b.WriteString(body)
	if a.err != nil && a.projection.LastError == nil {
		b.WriteString("\n\n")
		b.WriteString(a.styles.Error.Render("Error: " + a.err.Error()))
	}

	bodyHeight := a.height - 1
	out := lipgloss.NewStyle().Height(max(bodyHeight, 1)).MaxHeight(max(bodyHeight, 1)).Render(b.String())
	return out + "\n" + a.statusBar.View()
}

func (a *App) viewTabs() string {
	tabs := make([]string, 0, len(viewOrder)+1)
	for _, m := range viewOrder {
		label := strings.ToUpper(m.String()[:1]) + m.String()[1:]
		if m == domain.ViewTrends && a.projection.ResultsReady {
			label += " *"
		}
		if m == a.projection.Mode {
			tabs = append(tabs, a.styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, a.styles.TabInactive.Render(label))
		}
	}
	if a.baseURL != "" {
		tabs = append(tabs, a.styles.Muted.Render("  "+a.baseURL))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (a *App) viewConfirm() string {
	text := a.prompt.Prompt + "\n\n" + a.styles.Muted.Render("[y] yes   [n] no")
	return a.styles.Dialog.Render(text)
}

// viewHelp renders the help overlay from the key map.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-12s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Muted.Render("Press any key to close"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	defer func() {
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
	}()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Projection returns the last snapshot the app rendered from.
func (a *App) Projection() domain.Projection {
	return a.projection
}

// Prompt returns the pending confirmation, if any.
func (a *App) Prompt() *messages.ConfirmRequested {
	return a.prompt
}

// ShowingHelp reports whether the help overlay is open.
func (a *App) ShowingHelp() bool {
	return a.showHelp
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	viewHeight := height - chromeHeight
	a.uploadView.SetDimensions(width, viewHeight)
	a.historyView.SetDimensions(width, viewHeight)
	a.trendsView.SetDimensions(width, viewHeight)
	a.statusBar.SetWidth(width)
}

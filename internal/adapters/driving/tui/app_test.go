package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/tui/messages"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

func testDocuments() []domain.DocumentRecord {
	return []domain.DocumentRecord{
		{ID: "d2", Filename: "cbc.pdf", Status: domain.StatusProcessing},
		{ID: "d1", Filename: "lipids.pdf", Status: domain.StatusCompleted},
	}
}

func newTestApp(t *testing.T, orch *MockOrchestrator) *App {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app, err := NewApp(NewPorts(orch, nil))
	require.NoError(t, err)
	app.WithContext(ctx)
	app.SetDimensions(100, 30)
	return app
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the returned command once, feeding its
// message back into the app.
func press(t *testing.T, app *App, key string) tea.Msg {
	t.Helper()
	_, cmd := app.Update(keyMsg(key))
	if cmd == nil {
		return nil
	}
	msg := cmd()
	app.Update(msg)
	return msg
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(NewPorts(&MockOrchestrator{}, nil))

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, domain.ViewUpload, app.Projection().Mode)
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingOrchestrator)
	assert.Nil(t, app)
}

func TestNewApp_ShowsBaseURL(t *testing.T) {
	settings := &MockSettingsService{Settings: domain.DefaultSettings()}
	app, err := NewApp(NewPorts(&MockOrchestrator{}, settings))
	require.NoError(t, err)
	app.SetDimensions(120, 30)

	assert.Contains(t, app.View(), "http://localhost:8000/api")
}

func TestApp_Init(t *testing.T) {
	app := newTestApp(t, &MockOrchestrator{})

	assert.NotNil(t, app.Init())
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(NewPorts(&MockOrchestrator{}, nil))
	require.NoError(t, err)
	assert.Equal(t, "Initialising...", app.View())

	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "Upload")
}

func TestApp_Mount(t *testing.T) {
	orch := &MockOrchestrator{}
	app := newTestApp(t, orch)

	msg := app.mount()()
	app.Update(msg)

	assert.Equal(t, 1, orch.Mounts)
	assert.NoError(t, app.Err())
}

func TestApp_StateChangedRedraws(t *testing.T) {
	orch := &MockOrchestrator{}
	app := newTestApp(t, orch)

	orch.mu.Lock()
	orch.ProjectionValue.State.Documents = testDocuments()
	orch.mu.Unlock()
	orch.Notify()

	msg := app.waitForChange()()
	require.IsType(t, messages.StateChanged{}, msg)
	_, cmd := app.Update(msg)

	assert.NotNil(t, cmd, "keeps listening for changes")
	assert.Len(t, app.Projection().State.Documents, 2)
}

func TestApp_SignalDoesNotBlock(t *testing.T) {
	app := newTestApp(t, &MockOrchestrator{})

	done := make(chan struct{})
	go func() {
		app.signal()
		app.signal()
		app.signal()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("signal blocked")
	}
}

func TestApp_TabCyclesViews(t *testing.T) {
	orch := &MockOrchestrator{}
	app := newTestApp(t, orch)

	press(t, app, "tab")
	assert.Equal(t, domain.ViewHistory, app.Projection().Mode)

	press(t, app, "tab")
	assert.Equal(t, domain.ViewTrends, app.Projection().Mode)

	press(t, app, "tab")
	assert.Equal(t, domain.ViewUpload, app.Projection().Mode)

	press(t, app, "shift+tab")
	assert.Equal(t, domain.ViewTrends, app.Projection().Mode)

	assert.Equal(t, []domain.ViewMode{
		domain.ViewHistory, domain.ViewTrends, domain.ViewUpload, domain.ViewTrends,
	}, orch.Switched)
}

func TestApp_ViewResultsOnlyWhenReady(t *testing.T) {
	orch := &MockOrchestrator{}
	app := newTestApp(t, orch)

	assert.Nil(t, press(t, app, "ctrl+t"))
	assert.Empty(t, orch.Switched)

	orch.ProjectionValue.ResultsReady = true
	app.syncProjection()
	assert.Contains(t, app.View(), "Your results are ready")

	press(t, app, "ctrl+t")
	assert.Equal(t, domain.ViewTrends, app.Projection().Mode)
	assert.False(t, app.Projection().ResultsReady)
}

func TestApp_QuitKeys(t *testing.T) {
	t.Run("q types into the upload view", func(t *testing.T) {
		app := newTestApp(t, &MockOrchestrator{})
		app.Update(keyMsg("q"))
		assert.Equal(t, "q", app.uploadView.Input().Value())
	})

	t.Run("q quits elsewhere", func(t *testing.T) {
		orch := &MockOrchestrator{ProjectionValue: domain.Projection{Mode: domain.ViewHistory}}
		app := newTestApp(t, orch)
		_, cmd := app.Update(keyMsg("q"))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})

	t.Run("ctrl+c always quits", func(t *testing.T) {
		app := newTestApp(t, &MockOrchestrator{})
		_, cmd := app.Update(keyMsg("ctrl+c"))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})
}

func TestApp_HelpOverlay(t *testing.T) {
	orch := &MockOrchestrator{ProjectionValue: domain.Projection{Mode: domain.ViewHistory}}
	app := newTestApp(t, orch)

	app.Update(keyMsg("?"))
	assert.True(t, app.ShowingHelp())
	assert.Contains(t, app.View(), "Press any key to close")

	app.Update(keyMsg("j"))
	assert.False(t, app.ShowingHelp())
}

func TestApp_FilesDropped(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(a, []byte("%PDF-1.4"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("png"), 0o600))

	rec := domain.DocumentRecord{ID: "d9", Filename: "a.pdf", Status: domain.StatusPending}
	orch := &MockOrchestrator{DropReport: &domain.UploadReport{Results: []domain.UploadResult{
		{Filename: "a.pdf", Record: &rec},
		{Filename: "b.png", Record: &rec},
	}}}
	app := newTestApp(t, orch)

	msg := app.drop([]string{a, b})()
	completed, ok := msg.(messages.UploadCompleted)
	require.True(t, ok)
	require.NoError(t, completed.Err)
	app.Update(msg)

	require.Len(t, orch.Dropped, 1)
	assert.Equal(t, "a.pdf", orch.Dropped[0][0].Name)
	assert.Equal(t, "b.png", orch.Dropped[0][1].Name)
	assert.Same(t, orch.DropReport, app.uploadView.Report())
}

func TestApp_FilesDroppedMissingPath(t *testing.T) {
	orch := &MockOrchestrator{}
	app := newTestApp(t, orch)

	msg := app.drop([]string{filepath.Join(t.TempDir(), "missing.pdf")})()
	completed, ok := msg.(messages.UploadCompleted)
	require.True(t, ok)

	assert.Error(t, completed.Err)
	assert.Empty(t, orch.Dropped)
}

func TestApp_OpenFromHistory(t *testing.T) {
	orch := &MockOrchestrator{
		OpenResult: true,
		ProjectionValue: domain.Projection{
			Mode:  domain.ViewHistory,
			State: domain.OrchestrationState{Documents: testDocuments()},
		},
	}
	app := newTestApp(t, orch)

	press(t, app, "j")
	msg := press(t, app, "enter")
	require.Equal(t, messages.OpenRequested{DocumentID: "d1"}, msg)

	_, cmd := app.Update(msg)
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, []string{"d1"}, orch.Opened)
	assert.Equal(t, domain.ViewTrends, app.Projection().Mode)
}

func TestApp_OpenNotReady(t *testing.T) {
	orch := &MockOrchestrator{
		ProjectionValue: domain.Projection{
			Mode:  domain.ViewHistory,
			State: domain.OrchestrationState{Documents: testDocuments()},
		},
	}
	app := newTestApp(t, orch)

	app.Update(messages.OpenCompleted{DocumentID: "d2", Opened: false})

	assert.Equal(t, "Results are not ready for this document yet", app.statusBar.Message())
	assert.Equal(t, domain.ViewHistory, app.Projection().Mode)
}

func TestApp_DeleteConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		deleted bool
	}{
		{"confirmed", "y", true},
		{"declined", "n", false},
		{"escaped", "esc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &MockOrchestrator{
				ProjectionValue: domain.Projection{
					Mode:  domain.ViewHistory,
					State: domain.OrchestrationState{Documents: testDocuments()},
				},
			}
			app := newTestApp(t, orch)

			_, cmd := app.Update(messages.DeleteRequested{DocumentID: "d2"})
			require.NotNil(t, cmd)

			result := make(chan tea.Msg, 1)
			go func() { result <- cmd() }()

			prompt := app.waitForPrompt()()
			req, ok := prompt.(messages.ConfirmRequested)
			require.True(t, ok)
			assert.Equal(t, "Delete d2?", req.Prompt)

			app.Update(prompt)
			require.NotNil(t, app.Prompt())
			assert.Contains(t, app.View(), "Delete d2?")

			app.Update(keyMsg("x"))
			require.NotNil(t, app.Prompt(), "other keys leave the dialog open")

			app.Update(keyMsg(tt.answer))
			assert.Nil(t, app.Prompt())

			select {
			case msg := <-result:
				done, ok := msg.(messages.DeleteCompleted)
				require.True(t, ok)
				assert.Equal(t, tt.deleted, done.Deleted)
				assert.NoError(t, done.Err)
			case <-time.After(time.Second):
				t.Fatal("delete did not finish")
			}
		})
	}
}

func TestApp_ConfirmAbortsWhenAppStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	app, err := NewApp(NewPorts(&MockOrchestrator{}, nil))
	require.NoError(t, err)
	app.WithContext(ctx)
	cancel()

	ok, err := app.confirm(context.Background(), "Delete?")

	assert.False(t, ok)
	assert.ErrorIs(t, err, errPromptClosed)
}

func TestApp_RefreshRequestedMounts(t *testing.T) {
	orch := &MockOrchestrator{}
	app := newTestApp(t, orch)

	_, cmd := app.Update(messages.RefreshRequested{})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, 1, orch.Mounts)
}

func TestApp_MountErrorShown(t *testing.T) {
	orch := &MockOrchestrator{MountErr: domain.ErrNetwork}
	app := newTestApp(t, orch)

	app.Update(app.mount()())

	assert.ErrorIs(t, app.Err(), domain.ErrNetwork)
	assert.Contains(t, app.View(), "network error")
}

func TestNextView(t *testing.T) {
	tests := []struct {
		from domain.ViewMode
		step int
		want domain.ViewMode
	}{
		{domain.ViewUpload, 1, domain.ViewHistory},
		{domain.ViewHistory, 1, domain.ViewTrends},
		{domain.ViewTrends, 1, domain.ViewUpload},
		{domain.ViewUpload, -1, domain.ViewTrends},
		{domain.ViewHistory, -1, domain.ViewUpload},
		{domain.ViewMode(42), 1, domain.ViewUpload},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextView(tt.from, tt.step), "%s %+d", tt.from, tt.step)
	}
}

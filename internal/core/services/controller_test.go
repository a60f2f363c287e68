package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

func serverDocs() []domain.DocumentRecord {
	return []domain.DocumentRecord{
		{ID: "c", Filename: "c.pdf", Status: domain.StatusCompleted},
		{ID: "b", Filename: "b.png", Status: domain.StatusProcessing},
		{ID: "a", Filename: "a.jpg", Status: domain.StatusFailed},
	}
}

func awaitPolls(t *testing.T, h *harness) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.ctrl.AwaitPolls(ctx))
}

func TestMount_SelectsMostRecentAndLoadsAnalysis(t *testing.T) {
	h := newHarness()
	h.backend.docs = serverDocs()
	h.backend.script("c", ready("c"))
	h.backend.script("b", notReady("b"), ready("b"))

	require.NoError(t, h.ctrl.Mount(context.Background()))
	awaitPolls(t, h)

	p := h.ctrl.Projection()
	assert.Equal(t, "c", p.State.SelectedID)
	require.NotNil(t, p.SelectedAnalysis)
	assert.Equal(t, "c", p.SelectedAnalysis.DocumentID)

	rec, _ := h.store.Get("b")
	assert.Equal(t, domain.StatusCompleted, rec.Status, "in-flight documents are polled on mount")
	assert.Zero(t, h.backend.calls("a"), "failed documents are not polled")
}

func TestMount_KeepsExistingSelection(t *testing.T) {
	h := newHarness()
	h.backend.docs = serverDocs()
	h.backend.script("b", ready("b"))
	h.store.Upsert(domain.DocumentRecord{ID: "a", Status: domain.StatusFailed})
	require.NoError(t, h.store.Select("a"))

	require.NoError(t, h.ctrl.Mount(context.Background()))
	awaitPolls(t, h)

	assert.Equal(t, "a", h.store.SelectedID())
	assert.Zero(t, h.backend.calls("c"))
}

func TestMount_EmptyList(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.Mount(context.Background()))

	p := h.ctrl.Projection()
	assert.Empty(t, p.State.Documents)
	assert.Empty(t, p.State.SelectedID)
	assert.Zero(t, h.backend.totalAnalysisCalls())
}

func TestMount_ListFailureSurfaces(t *testing.T) {
	h := newHarness()
	h.backend.listErr = &domain.NetworkError{Op: "list documents", Err: context.DeadlineExceeded}

	err := h.ctrl.Mount(context.Background())

	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.ErrorIs(t, h.ctrl.Projection().LastError, domain.ErrNetwork)
}

func TestRefresh_EvictsStaleStateAndCancelsPolls(t *testing.T) {
	h := newHarness()
	seedCompleted(t, h, "gone")
	seedCompleted(t, h, "reprocessing")
	seedCompleted(t, h, "kept")
	h.store.Upsert(processing("vanishing"))
	h.backend.gate = make(chan struct{})
	defer h.scheduler.Stop()
	require.True(t, h.scheduler.Schedule("vanishing", 0, nil))

	h.backend.docs = []domain.DocumentRecord{
		{ID: "kept", Status: domain.StatusCompleted},
		{ID: "reprocessing", Status: domain.StatusProcessing},
	}
	require.NoError(t, h.ctrl.Refresh(context.Background()))

	assert.False(t, h.scheduler.IsActive("vanishing"))
	assert.True(t, h.scheduler.IsActive("reprocessing"))
	assert.True(t, h.cache.has("kept"))
	assert.False(t, h.cache.has("gone"))
	assert.False(t, h.cache.has("reprocessing"))
	assert.Len(t, h.store.List(), 2)
}

func TestRefresh_PollsDocumentsBackInFlight(t *testing.T) {
	h := newHarness()
	seedCompleted(t, h, "a")
	h.backend.docs = []domain.DocumentRecord{{ID: "a", Status: domain.StatusProcessing}}
	h.backend.script("a", notReady("a"), ready("a"))

	require.NoError(t, h.ctrl.Refresh(context.Background()))
	awaitPolls(t, h)

	rec, _ := h.store.Get("a")
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, 2, h.backend.calls("a"))
	assert.True(t, h.cache.has("a"))
}

func TestProjection_ReadsOnlyCachedAnalyses(t *testing.T) {
	h := newHarness()
	seedCompleted(t, h, "a")
	for _, id := range []string{"b", "c", "d"} {
		h.store.Upsert(domain.DocumentRecord{ID: id, Status: domain.StatusCompleted})
	}

	p := h.ctrl.Projection()

	assert.Len(t, p.State.AnalysisByDoc, 1)
	assert.Contains(t, p.State.AnalysisByDoc, "a")
	assert.Equal(t, 1, h.cache.getCalls())
}

func TestSwitchView_TrendsWithCachedAnalysisMakesNoCalls(t *testing.T) {
	h := newHarness()
	seedCompleted(t, h, "a")
	require.NoError(t, h.store.Select("a"))

	require.NoError(t, h.ctrl.SwitchView(context.Background(), domain.ViewTrends))
	require.NoError(t, h.ctrl.SwitchView(context.Background(), domain.ViewHistory))
	require.NoError(t, h.ctrl.SwitchView(context.Background(), domain.ViewTrends))
	awaitPolls(t, h)

	assert.Zero(t, h.backend.totalAnalysisCalls())
	assert.Equal(t, domain.ViewTrends, h.ctrl.Projection().Mode)
}

func TestSwitchView_TrendsLazyLoadsOnce(t *testing.T) {
	h := newHarness()
	h.store.Upsert(domain.DocumentRecord{ID: "a", Status: domain.StatusCompleted})
	require.NoError(t, h.store.Select("a"))
	h.backend.script("a", ready("a"))
	h.backend.gate = make(chan struct{})

	for i := 0; i < 5; i++ {
		require.NoError(t, h.ctrl.SwitchView(context.Background(), domain.ViewTrends))
		require.NoError(t, h.ctrl.SwitchView(context.Background(), domain.ViewUpload))
	}
	assert.Equal(t, []string{"a"}, h.ctrl.Projection().State.ActivePolls)

	close(h.backend.gate)
	awaitPolls(t, h)

	assert.Equal(t, 1, h.backend.calls("a"))
	assert.True(t, h.cache.has("a"))
}

func TestSwitchView_TrendsFallsBackToMostRecent(t *testing.T) {
	h := newHarness()
	h.store.Upsert(domain.DocumentRecord{ID: "old", Status: domain.StatusCompleted})
	h.store.Upsert(domain.DocumentRecord{ID: "new", Status: domain.StatusCompleted})
	h.backend.script("new", ready("new"))

	require.NoError(t, h.ctrl.SwitchView(context.Background(), domain.ViewTrends))
	awaitPolls(t, h)

	p := h.ctrl.Projection()
	assert.Equal(t, "new", p.State.SelectedID)
	require.NotNil(t, p.SelectedAnalysis)
	assert.Zero(t, h.backend.calls("old"))
}

func TestSwitchView_TrendsSkipsFailedDocument(t *testing.T) {
	h := newHarness()
	h.store.Upsert(domain.DocumentRecord{ID: "a", Status: domain.StatusFailed})

	require.NoError(t, h.ctrl.SwitchView(context.Background(), domain.ViewTrends))
	awaitPolls(t, h)

	assert.Zero(t, h.backend.totalAnalysisCalls())
}

func TestSwitchView_TrendsAcknowledgesResults(t *testing.T) {
	h := newHarness()
	h.uploads.resultsReady.Store(true)

	require.NoError(t, h.ctrl.SwitchView(context.Background(), domain.ViewTrends))

	assert.False(t, h.ctrl.Projection().ResultsReady)
}

func TestSwitchView_UnknownMode(t *testing.T) {
	h := newHarness()
	assert.ErrorIs(t, h.ctrl.SwitchView(context.Background(), domain.ViewMode(9)), domain.ErrInvalidInput)
}

func TestSelect_OnlyCompletedDocumentsLoad(t *testing.T) {
	h := newHarness()
	h.store.Upsert(processing("p"))
	h.store.Upsert(domain.DocumentRecord{ID: "c", Status: domain.StatusCompleted})
	h.backend.script("c", ready("c"))

	require.NoError(t, h.ctrl.Select(context.Background(), "p"))
	awaitPolls(t, h)
	assert.Zero(t, h.backend.calls("p"))
	assert.Equal(t, "p", h.store.SelectedID())

	require.NoError(t, h.ctrl.Select(context.Background(), "c"))
	awaitPolls(t, h)
	assert.Equal(t, 1, h.backend.calls("c"))

	assert.ErrorIs(t, h.ctrl.Select(context.Background(), "missing"), domain.ErrNotFound)
}

func TestOpen(t *testing.T) {
	h := newHarness()
	h.store.Upsert(processing("p"))
	seedCompleted(t, h, "c")

	opened, err := h.ctrl.Open(context.Background(), "p")
	require.NoError(t, err)
	assert.False(t, opened)
	assert.Equal(t, domain.ViewUpload, h.ctrl.Projection().Mode)
	assert.Empty(t, h.store.SelectedID())

	opened, err = h.ctrl.Open(context.Background(), "c")
	require.NoError(t, err)
	assert.True(t, opened)
	p := h.ctrl.Projection()
	assert.Equal(t, domain.ViewTrends, p.Mode)
	assert.Equal(t, "c", p.State.SelectedID)
	assert.NotNil(t, p.SelectedAnalysis)
	assert.Zero(t, h.backend.totalAnalysisCalls())

	_, err = h.ctrl.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjection_OnlyCompletedAnalyses(t *testing.T) {
	h := newHarness()
	seedCompleted(t, h, "c")
	h.store.Upsert(processing("p"))
	require.NoError(t, h.cache.Put(context.Background(), ready("p").result))

	p := h.ctrl.Projection()

	assert.Contains(t, p.State.AnalysisByDoc, "c")
	assert.NotContains(t, p.State.AnalysisByDoc, "p")
	assert.Nil(t, p.SelectedAnalysis)
}

func TestDrop_UploadsAndReportsErrors(t *testing.T) {
	h := newHarness()
	h.backend.script("doc-1", ready("doc-1"))

	report, err := h.ctrl.Drop(context.Background(), []domain.FileHandle{
		fileOf("labs.pdf", "%PDF"),
		fileOf("huge.gif", "GIF"),
	})

	require.Error(t, err)
	assert.Len(t, report.Uploaded(), 1)
	assert.ErrorIs(t, h.ctrl.Projection().LastError, domain.ErrValidation)

	awaitPolls(t, h)
	p := h.ctrl.Projection()
	assert.True(t, p.ResultsReady)
	assert.Contains(t, p.State.AnalysisByDoc, "doc-1")
}

func TestDelete_ThroughController(t *testing.T) {
	h := newHarness()
	seedCompleted(t, h, "a")
	require.NoError(t, h.store.Select("a"))

	ok, err := h.ctrl.Delete(context.Background(), "a", confirmWith(true))

	require.NoError(t, err)
	assert.True(t, ok)
	p := h.ctrl.Projection()
	assert.Empty(t, p.State.SelectedID)
	assert.Nil(t, p.SelectedAnalysis)
	assert.NotContains(t, p.State.AnalysisByDoc, "a")
}

func TestAnalysis(t *testing.T) {
	t.Run("cached", func(t *testing.T) {
		h := newHarness()
		seedCompleted(t, h, "a")

		a, err := h.ctrl.Analysis(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, "a", a.DocumentID)
		assert.Zero(t, h.backend.totalAnalysisCalls())
	})

	t.Run("polls until ready", func(t *testing.T) {
		h := newHarness()
		h.store.Upsert(processing("a"))
		h.backend.script("a", notReady("a"), ready("a"))

		a, err := h.ctrl.Analysis(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, "a", a.DocumentID)
		assert.Equal(t, 2, h.backend.calls("a"))
	})

	t.Run("waits for background poll", func(t *testing.T) {
		h := newHarness()
		h.store.Upsert(processing("a"))
		h.backend.script("a", ready("a"))
		h.backend.gate = make(chan struct{})
		require.True(t, h.scheduler.Schedule("a", 0, nil))

		go func() {
			time.Sleep(10 * time.Millisecond)
			close(h.backend.gate)
		}()
		a, err := h.ctrl.Analysis(context.Background(), "a")

		require.NoError(t, err)
		assert.Equal(t, "a", a.DocumentID)
		assert.Equal(t, 1, h.backend.calls("a"))
	})
}

func TestAnalysis_UnknownDocument(t *testing.T) {
	h := newHarness()
	h.scheduler.config.MaxWait = time.Hour

	_, err := h.ctrl.Analysis(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, h.backend.totalAnalysisCalls())
	assert.Empty(t, h.scheduler.Active())
}

func TestTrends(t *testing.T) {
	h := newHarness()
	h.backend.trends = &domain.TrendReport{AvailableTests: []string{"Glucose"}}

	report, err := h.ctrl.Trends(context.Background(), "a", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Glucose"}, report.AvailableTests)

	report, err = h.ctrl.Trends(context.Background(), "a", "Glucose")
	require.NoError(t, err)
	assert.Equal(t, "Glucose", report.TestName)

	h.backend.trends = nil
	_, err = h.ctrl.Trends(context.Background(), "a", "LDL")
	assert.ErrorIs(t, err, domain.ErrServer)
}

func TestExhaustedPollSurfacesError(t *testing.T) {
	h := newHarness()
	h.backend.script("doc-1", serverFailure())

	_, err := h.ctrl.Drop(context.Background(), []domain.FileHandle{fileOf("labs.pdf", "%PDF")})
	require.NoError(t, err)
	awaitPolls(t, h)

	p := h.ctrl.Projection()
	assert.ErrorIs(t, p.LastError, domain.ErrRetryBudgetExhausted)
	doc, ok := p.State.Document("doc-1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, doc.Status)
}

func TestSubscribe_NotifiedOnChanges(t *testing.T) {
	h := newHarness()
	var calls atomic.Int32
	unsubscribe := h.ctrl.Subscribe(func() { calls.Add(1) })
	defer unsubscribe()

	h.backend.docs = serverDocs()[:1]
	require.NoError(t, h.ctrl.Refresh(context.Background()))
	require.NoError(t, h.ctrl.SwitchView(context.Background(), domain.ViewHistory))

	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestClose_StopsPolls(t *testing.T) {
	h := newHarness()
	h.store.Upsert(processing("a"))
	h.backend.gate = make(chan struct{})
	require.True(t, h.scheduler.Schedule("a", 0, nil))

	h.ctrl.Close()

	assert.Empty(t, h.ctrl.Projection().State.ActivePolls)
}

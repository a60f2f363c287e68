package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
)

func TestSubmit_InsertsProcessingPlaceholderImmediately(t *testing.T) {
	h := newHarness()
	h.backend.gate = make(chan struct{})
	defer h.scheduler.Stop()

	report, err := h.uploads.Submit(context.Background(), []domain.FileHandle{fileOf("labs.pdf", "%PDF-1.4")})

	require.NoError(t, err)
	require.Len(t, report.Uploaded(), 1)

	docs := h.store.List()
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)
	assert.Equal(t, "labs.pdf", docs[0].Filename)
	assert.Equal(t, "application/pdf", docs[0].FileType)
	assert.Equal(t, domain.StatusProcessing, docs[0].Status)
	assert.False(t, docs[0].UploadTime.IsZero())
	assert.True(t, h.scheduler.IsActive("doc-1"))
	assert.Equal(t, []byte("%PDF-1.4"), h.backend.uploaded["doc-1"])
}

func TestSubmit_OversizedFileNeverUploaded(t *testing.T) {
	h := newHarness()
	oversized := domain.FileHandle{
		Name: "scan.png",
		Size: 10_485_761,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("")), nil },
	}

	report, err := h.uploads.Submit(context.Background(), []domain.FileHandle{oversized})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, h.backend.uploadCalls)
	assert.Empty(t, h.store.List())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "scan.png", report.Failed()[0].Filename)
}

func TestSubmit_ContentLargerThanDeclaredIsRejected(t *testing.T) {
	h := newHarness()
	uploads := NewUploadCoordinator(h.backend, h.store, h.scheduler, nil, UploadConfig{MaxFileSize: 8})
	lying := domain.FileHandle{
		Name: "labs.pdf",
		Size: 4,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("123456789")), nil },
	}

	_, err := uploads.Submit(context.Background(), []domain.FileHandle{lying})

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, h.backend.uploadCalls)
}

func TestSubmit_MixedBatch(t *testing.T) {
	h := newHarness()
	h.backend.gate = make(chan struct{})
	defer h.scheduler.Stop()
	h.backend.uploadErr["broken.jpg"] = &domain.ServerError{Op: "upload", StatusCode: 500}

	report, err := h.uploads.Submit(context.Background(), []domain.FileHandle{
		fileOf("notes.txt", "hi"),
		fileOf("broken.jpg", "jpeg"),
		fileOf("labs.pdf", "%PDF"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrServer)

	require.Len(t, report.Results, 3)
	assert.ErrorIs(t, report.Results[0].Err, domain.ErrValidation)
	assert.ErrorIs(t, report.Results[1].Err, domain.ErrServer)
	assert.Nil(t, report.Results[1].Record)
	assert.NoError(t, report.Results[2].Err)

	assert.Equal(t, []string{"broken.jpg", "labs.pdf"}, h.backend.uploadCalls)
	docs := h.store.List()
	require.Len(t, docs, 1)
	assert.Equal(t, "labs.pdf", docs[0].Filename)
}

func TestSubmit_NetworkFailureInsertsNothing(t *testing.T) {
	h := newHarness()
	h.backend.uploadErr["labs.pdf"] = &domain.NetworkError{Op: "upload", Err: errors.New("connection refused")}

	_, err := h.uploads.Submit(context.Background(), []domain.FileHandle{fileOf("labs.pdf", "%PDF")})

	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Empty(t, h.store.List())
	assert.Empty(t, h.scheduler.Active())
	assert.Len(t, h.backend.uploadCalls, 1, "no automatic retry")
}

func TestSubmit_ConcurrentUploadsReachTerminalStates(t *testing.T) {
	h := newHarness()
	uploads := NewUploadCoordinator(h.backend, h.store, h.scheduler, nil, UploadConfig{Concurrency: 3})
	h.backend.script("doc-1", ready("doc-1"))
	h.backend.script("doc-2", serverFailure())
	h.backend.script("doc-3", notReady("doc-3"), ready("doc-3"))

	_, err := uploads.Submit(context.Background(), []domain.FileHandle{
		fileOf("a.pdf", "a"),
		fileOf("b.png", "b"),
		fileOf("c.jpg", "c"),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.scheduler.Wait(ctx))

	docs := h.store.List()
	require.Len(t, docs, 3)
	seen := map[string]bool{}
	statuses := map[domain.Status]int{}
	for _, d := range docs {
		assert.False(t, seen[d.ID], "duplicate record %s", d.ID)
		seen[d.ID] = true
		assert.True(t, d.Status.IsTerminal(), "%s still %s", d.ID, d.Status)
		statuses[d.Status]++
	}
	assert.Equal(t, 2, statuses[domain.StatusCompleted])
	assert.Equal(t, 1, statuses[domain.StatusFailed])
}

func TestSubmit_ResultsReadySignal(t *testing.T) {
	h := newHarness()
	h.backend.script("doc-1", ready("doc-1"))

	_, err := h.uploads.Submit(context.Background(), []domain.FileHandle{fileOf("labs.pdf", "%PDF")})
	require.NoError(t, err)

	assert.Eventually(t, h.uploads.ResultsReady, time.Second, time.Millisecond)
	assert.True(t, h.cache.has("doc-1"))

	h.uploads.AcknowledgeResults()
	assert.False(t, h.uploads.ResultsReady())
}

func TestSubmit_FailedPollDoesNotSignalResults(t *testing.T) {
	h := newHarness()
	h.backend.script("doc-1", serverFailure())

	_, err := h.uploads.Submit(context.Background(), []domain.FileHandle{fileOf("labs.pdf", "%PDF")})
	require.NoError(t, err)
	require.NoError(t, h.scheduler.Wait(context.Background()))

	assert.False(t, h.uploads.ResultsReady())
	rec, _ := h.store.Get("doc-1")
	assert.Equal(t, domain.StatusFailed, rec.Status)
}

func TestSubmit_InspectorRejectsCorruptContent(t *testing.T) {
	h := newHarness()
	uploads := NewUploadCoordinator(h.backend, h.store, h.scheduler, fakeInspector{}, UploadConfig{})

	_, err := uploads.Submit(context.Background(), []domain.FileHandle{fileOf("labs.pdf", "BAD bytes")})

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, h.backend.uploadCalls)
}

func TestSubmit_CancelledContext(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.uploads.Submit(ctx, []domain.FileHandle{fileOf("labs.pdf", "%PDF")})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.backend.uploadCalls)
	assert.Empty(t, h.uploads.PendingUploads())
}

func TestSubmit_RecordsMetrics(t *testing.T) {
	h := newHarness()
	h.backend.gate = make(chan struct{})
	defer h.scheduler.Stop()
	m := newFakeMetrics()
	h.uploads.WithMetrics(m)

	_, _ = h.uploads.Submit(context.Background(), []domain.FileHandle{
		fileOf("notes.txt", "x"),
		fileOf("labs.pdf", "%PDF"),
	})

	require.Len(t, m.uploads, 2)
	assert.ErrorIs(t, m.uploads[0], domain.ErrValidation)
	assert.NoError(t, m.uploads[1])
}

func TestPendingUploads_CountsDuplicates(t *testing.T) {
	h := newHarness()
	h.uploads.markPending("a.pdf")
	h.uploads.markPending("a.pdf")
	h.uploads.markPending("b.pdf")
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, h.uploads.PendingUploads())

	h.uploads.unmarkPending("a.pdf")
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, h.uploads.PendingUploads())
	h.uploads.unmarkPending("a.pdf")
	h.uploads.unmarkPending("b.pdf")
	assert.Empty(t, h.uploads.PendingUploads())
}

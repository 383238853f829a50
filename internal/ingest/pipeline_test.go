package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/bookbrain-go/internal/config"
	"github.com/raphaelgruber/bookbrain-go/internal/metrics"
	"github.com/raphaelgruber/bookbrain-go/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	existing  map[string]bool
	created   []models.BookInput
	vectorIDs map[string]int64
	failPaths map[string]error
	gate      chan struct{} // when set, Create blocks until closed
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		existing:  map[string]bool{},
		vectorIDs: map[string]int64{},
		failPaths: map[string]error{},
	}
}

func (f *fakeStore) ExistsByPath(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[path], nil
}

func (f *fakeStore) Create(_ context.Context, in models.BookInput) (*models.Book, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failPaths[in.FilePath]; ok {
		return nil, err
	}
	f.created = append(f.created, in)
	return &models.Book{
		ID:       surrealmodels.RecordID{Table: "book", ID: fmt.Sprintf("b%d", len(f.created))},
		Title:    in.Title,
		FilePath: in.FilePath,
	}, nil
}

func (f *fakeStore) UpdateVectorID(_ context.Context, id string, vectorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectorIDs[id] = vectorID
	return nil
}

func (f *fakeStore) createdPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, len(f.created))
	for i, in := range f.created {
		paths[i] = in.FilePath
	}
	return paths
}

type fakeIndex struct {
	mu    sync.Mutex
	next  int64
	texts []string
	err   error
}

func (f *fakeIndex) Add(_ context.Context, text, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	id := f.next
	f.next++
	f.texts = append(f.texts, text)
	return id, nil
}

type fakeClassifier struct{}

func (fakeClassifier) Classify(context.Context, string, string, string) models.Classification {
	return models.Classification{Category: "Technology", Source: models.SourceRule}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		CoversDir:        t.TempDir(),
		SupportedFormats: []string{".pdf", ".epub"},
		MaxWorkers:       2,
		MaxTextLength:    50000,
	}
}

func testPipeline(t *testing.T, store *fakeStore, index *fakeIndex) *Pipeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(testConfig(t), fakeClassifier{}, store, index, metrics.NewCollector(), logger)
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not a real ebook"), 0o644))
	return path
}

func TestRunProcessesAllFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.pdf")
	writeFile(t, dir, "beta.epub")
	writeFile(t, dir, "notes.txt") // unsupported, never scanned

	store := newFakeStore()
	index := &fakeIndex{}
	p := testPipeline(t, store, index)

	st, err := p.Run(context.Background(), []string{dir})
	require.NoError(t, err)

	snap := st.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, 2, snap.TotalFiles)
	assert.Equal(t, 2, snap.ProcessedFiles)
	assert.Equal(t, 0, snap.FailedFiles)
	assert.Equal(t, 100.0, snap.ProgressPercent)
	assert.Nil(t, snap.CurrentFile)
	assert.Empty(t, snap.Errors)

	require.Len(t, store.created, 2)
	first := store.created[0]
	// Corrupt files degrade to filename-stem metadata but are still stored
	assert.Equal(t, "alpha", first.Title)
	assert.Equal(t, "pdf", first.Format)
	assert.Equal(t, models.StatusDone, first.ProcessingStatus)
	assert.Equal(t, "Technology", first.Category)
	require.NotNil(t, first.FileHash)
	assert.Len(t, *first.FileHash, 64)

	// Every created record got a vector id linked back
	assert.Len(t, store.vectorIDs, 2)
	require.Len(t, index.texts, 2)
	assert.Contains(t, index.texts[0], "alpha")
}

func TestRunPersistsInScanOrder(t *testing.T) {
	dir := t.TempDir()
	c := writeFile(t, dir, "c.pdf")
	a := writeFile(t, dir, "a.pdf")
	b := writeFile(t, dir, "sub/b.pdf")

	store := newFakeStore()
	p := testPipeline(t, store, &fakeIndex{})

	_, err := p.Run(context.Background(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, []string{a, c, b}, store.createdPaths())
}

func TestRunSkipsExistingPaths(t *testing.T) {
	dir := t.TempDir()
	known := writeFile(t, dir, "known.pdf")
	writeFile(t, dir, "new.pdf")

	store := newFakeStore()
	store.existing[known] = true
	p := testPipeline(t, store, &fakeIndex{})

	st, err := p.Run(context.Background(), []string{dir})
	require.NoError(t, err)

	snap := st.Snapshot()
	assert.Equal(t, 2, snap.ProcessedFiles)
	assert.Equal(t, 0, snap.FailedFiles)
	require.Len(t, store.created, 1)
	assert.Equal(t, filepath.Join(dir, "new.pdf"), store.created[0].FilePath)
}

func TestRunRecordsPerFileFailures(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.pdf")
	writeFile(t, dir, "good.pdf")

	store := newFakeStore()
	store.failPaths[bad] = errors.New("disk full")
	p := testPipeline(t, store, &fakeIndex{})

	st, err := p.Run(context.Background(), []string{dir})
	require.NoError(t, err)

	snap := st.Snapshot()
	assert.Equal(t, 1, snap.ProcessedFiles)
	assert.Equal(t, 1, snap.FailedFiles)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "bad.pdf: ")
	assert.Contains(t, snap.Errors[0], "disk full")
}

func TestRunKeepsRecordWhenIndexingFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "book.pdf")

	store := newFakeStore()
	index := &fakeIndex{err: errors.New("embedder offline")}
	p := testPipeline(t, store, index)

	st, err := p.Run(context.Background(), []string{dir})
	require.NoError(t, err)

	snap := st.Snapshot()
	assert.Equal(t, 1, snap.ProcessedFiles)
	assert.Equal(t, 0, snap.FailedFiles)
	assert.Len(t, store.created, 1)
	assert.Empty(t, store.vectorIDs)
}

func TestStartRejectsConcurrentRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "slow.pdf")

	store := newFakeStore()
	store.gate = make(chan struct{})
	p := testPipeline(t, store, &fakeIndex{})

	st, err := p.Start(context.Background(), []string{dir})
	require.NoError(t, err)

	_, err = p.Start(context.Background(), []string{dir})
	assert.ErrorIs(t, err, ErrRunInProgress)
	_, err = p.Run(context.Background(), []string{dir})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(store.gate)
	require.Eventually(t, func() bool {
		return !st.Snapshot().IsRunning
	}, 5*time.Second, 10*time.Millisecond)

	// Guard released, a new run may start
	st2, err := p.Run(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.False(t, st2.Snapshot().IsRunning)
}

func TestRunWithNoFiles(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(t, store, &fakeIndex{})

	st, err := p.Run(context.Background(), []string{t.TempDir()})
	require.NoError(t, err)

	snap := st.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, 0, snap.TotalFiles)
	assert.Equal(t, 100.0, snap.ProgressPercent)
	assert.Empty(t, store.created)
}

func TestRunCancellationBetweenFiles(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, dir, fmt.Sprintf("f%d.pdf", i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newFakeStore()
	p := testPipeline(t, store, &fakeIndex{})

	st, err := p.Run(ctx, []string{dir})
	require.NoError(t, err)

	snap := st.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Empty(t, store.created)
	require.NotEmpty(t, snap.Errors)
	assert.Contains(t, snap.Errors[0], "run cancelled")
}

func TestStatusBeforeFirstRun(t *testing.T) {
	p := testPipeline(t, newFakeStore(), &fakeIndex{})

	snap := p.Status()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, 0, snap.TotalFiles)
	assert.NotNil(t, snap.Errors)
}

func TestEmbeddingInput(t *testing.T) {
	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'x'
	}

	got := EmbeddingInput("Title", "Author", string(long))
	assert.Equal(t, len("Title Author ")+embedTextLimit, len(got))
	assert.Equal(t, "Title Author", EmbeddingInput("Title", "Author", ""))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "short", summarize("short"))

	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	got := summarize(string(long))
	assert.Len(t, got, summaryLimit+3)
	assert.True(t, len(got) < 600)
	assert.Contains(t, got, "...")
}

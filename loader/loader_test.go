package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"brain/store"
	"brain/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	pages map[string][]string // keyed by file base name
}

func (f *fakeExtractor) ExtractPages(path string) ([]string, error) {
	pages, ok := f.pages[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("no text in %s", filepath.Base(path))
	}
	return pages, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type recordingIndexer struct {
	mu   sync.Mutex
	docs []types.Document
	err  error
}

func (r *recordingIndexer) BuildIndex(_ context.Context, doc types.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.docs = append(r.docs, doc)
	return nil
}

func (r *recordingIndexer) EnsureIndex(context.Context, uuid.UUID) error { return nil }

func (r *recordingIndexer) Search(context.Context, uuid.UUID, []float32, int) ([]types.Chunk, error) {
	return nil, store.ErrIndexNotFound
}

func (r *recordingIndexer) GetDocumentByID(context.Context, uuid.UUID) (*types.Document, error) {
	return nil, store.ErrIndexNotFound
}

func (r *recordingIndexer) indexed() []types.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Document(nil), r.docs...)
}

func newTestLoader(t *testing.T, extractor PageExtractor, indexer store.Indexer) (*Loader, string, string, string) {
	t.Helper()
	root := t.TempDir()
	watch := filepath.Join(root, "inbox")
	archive := filepath.Join(root, "archive")
	failed := filepath.Join(root, "failed")

	l, err := New(Config{
		WatchDir:   watch,
		ArchiveDir: archive,
		FailedDir:  failed,
		Interval:   10 * time.Millisecond,
		ChunkSize:  16,
	}, extractor, fakeEmbedder{}, indexer, nil)
	require.NoError(t, err)
	return l, watch, archive, failed
}

func dropFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4 fake"), 0644))
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestLoaderIndexesAndArchives(t *testing.T) {
	extractor := &fakeExtractor{pages: map[string][]string{
		"report.pdf": {"quarterly revenue grew by twelve percent"},
	}}
	indexer := &recordingIndexer{}
	l, watch, archive, _ := newTestLoader(t, extractor, indexer)

	dropFile(t, watch, "report.pdf")
	dropFile(t, watch, "notes.txt") // not a PDF, must be ignored

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(indexer.indexed()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	docs := indexer.indexed()
	require.Len(t, docs, 1)
	assert.Equal(t, "report.pdf", docs[0].Title)
	assert.NotEmpty(t, docs[0].Chunks)
	for i, chunk := range docs[0].Chunks {
		assert.Equal(t, i, chunk.Position)
		assert.Equal(t, docs[0].ID, chunk.DocID)
	}

	assert.Equal(t, []string{"report.pdf"}, dirNames(t, archive))
	assert.Equal(t, []string{"notes.txt"}, dirNames(t, watch))
}

func TestLoaderMovesFailedExtractions(t *testing.T) {
	extractor := &fakeExtractor{pages: map[string][]string{}}
	indexer := &recordingIndexer{}
	l, watch, _, failed := newTestLoader(t, extractor, indexer)

	dropFile(t, watch, "scanned.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(dirNames(t, failed)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Empty(t, indexer.indexed())
	assert.Equal(t, []string{"scanned.pdf"}, dirNames(t, failed))
	assert.Empty(t, dirNames(t, watch))
}

func TestLoaderMovesFailedIndexBuilds(t *testing.T) {
	extractor := &fakeExtractor{pages: map[string][]string{
		"report.pdf": {"some text"},
	}}
	indexer := &recordingIndexer{err: fmt.Errorf("connection refused")}
	l, watch, _, failed := newTestLoader(t, extractor, indexer)

	dropFile(t, watch, "report.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(dirNames(t, failed)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, []string{"report.pdf"}, dirNames(t, failed))
	assert.Empty(t, dirNames(t, watch))
}

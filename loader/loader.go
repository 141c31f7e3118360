// Package loader ingests PDFs dropped into a watch directory into the
// embedding index, without going through the HTTP upload endpoint.
// Processed files move to an archive directory, failed ones to a
// failed directory, so the watch directory only ever holds pending
// work.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"brain/document"
	"brain/model"
	"brain/store"
	"brain/types"

	"github.com/google/uuid"
)

const (
	defaultInterval  = 10 * time.Second
	defaultChunkSize = 500
)

type Config struct {
	WatchDir   string
	ArchiveDir string
	FailedDir  string
	Interval   time.Duration
	ChunkSize  int
}

// PageExtractor produces page texts from a PDF file on disk.
type PageExtractor interface {
	ExtractPages(path string) ([]string, error)
}

type Loader struct {
	cfg       Config
	extractor PageExtractor
	embedder  model.Embedder
	indexer   store.Indexer
	logger    *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func New(cfg Config, extractor PageExtractor, embedder model.Embedder, indexer store.Indexer, logger *slog.Logger) (*Loader, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, dir := range []string{cfg.WatchDir, cfg.ArchiveDir, cfg.FailedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &Loader{
		cfg:       cfg,
		extractor: extractor,
		embedder:  embedder,
		indexer:   indexer,
		logger:    logger,
		seen:      make(map[string]struct{}),
	}, nil
}

// Run drives the watch → process → save pipeline until the context is
// cancelled. Each stage runs in its own goroutine and shuts down by
// channel closure, so no document is dropped mid-stage.
func (l *Loader) Run(ctx context.Context) {
	fileChan := make(chan string, 10)
	docChan := make(chan *types.Document)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fileChan)
		l.watch(ctx, fileChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(docChan)
		l.process(ctx, fileChan, docChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		l.save(ctx, docChan)
	}()

	wg.Wait()
	l.logger.Info("loader stopped")
}

func (l *Loader) watch(ctx context.Context, out chan<- string) {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	l.scan(ctx, out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.scan(ctx, out)
		}
	}
}

// scan emits every not-yet-queued PDF in the watch directory. Files
// leave the seen set only once they are moved out of the directory.
func (l *Loader) scan(ctx context.Context, out chan<- string) {
	entries, err := os.ReadDir(l.cfg.WatchDir)
	if err != nil {
		l.logger.Error("read watch directory", "dir", l.cfg.WatchDir, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(l.cfg.WatchDir, entry.Name())
		if !l.markPending(path) {
			continue
		}
		select {
		case out <- path:
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loader) markPending(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[path]; ok {
		return false
	}
	l.seen[path] = struct{}{}
	return true
}

func (l *Loader) process(ctx context.Context, in <-chan string, out chan<- *types.Document) {
	for path := range in {
		doc, err := l.ingest(ctx, path)
		if err != nil {
			l.logger.Error("ingest failed", "file", filepath.Base(path), "error", err)
			l.moveTo(path, l.cfg.FailedDir)
			continue
		}
		select {
		case out <- doc:
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loader) ingest(ctx context.Context, path string) (*types.Document, error) {
	pages, err := l.extractor.ExtractPages(path)
	if err != nil {
		return nil, err
	}

	doc := types.Document{
		ID:         uuid.New(),
		Title:      filepath.Base(path),
		Pages:      pages,
		Source:     "pdf",
		SourcePath: path,
		CreatedAt:  time.Now(),
	}

	pieces := document.SplitText(doc.FullText(), l.cfg.ChunkSize)
	chunks := make([]types.Chunk, 0, len(pieces))
	for i, content := range pieces {
		embedding, err := l.embedder.Embed(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		chunks = append(chunks, types.Chunk{
			ID:        uuid.New(),
			DocID:     doc.ID,
			Position:  i,
			Content:   content,
			Embedding: embedding,
		})
	}
	doc.Chunks = chunks
	return &doc, nil
}

func (l *Loader) save(ctx context.Context, in <-chan *types.Document) {
	for doc := range in {
		if err := l.indexer.BuildIndex(ctx, *doc); err != nil {
			l.logger.Error("index build failed", "file", doc.Title, "error", err)
			l.moveTo(doc.SourcePath, l.cfg.FailedDir)
			continue
		}
		l.logger.Info("indexed document", "file", doc.Title, "id", doc.ID, "pages", len(doc.Pages), "chunks", len(doc.Chunks))
		l.moveTo(doc.SourcePath, l.cfg.ArchiveDir)
	}
}

func (l *Loader) moveTo(path, dir string) {
	dst := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		l.logger.Error("move file", "path", path, "error", err)
	}
	l.mu.Lock()
	delete(l.seen, path)
	l.mu.Unlock()
}

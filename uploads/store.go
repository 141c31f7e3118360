package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// NotFoundError reports a missing uploaded file together with enough
// diagnostic detail to debug stale ids without leaking the directory
// contents.
type NotFoundError struct {
	ID         string
	Candidates int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no uploaded PDF for id %s (%d files in upload directory)", e.ID, e.Candidates)
}

// Store keeps uploaded PDFs on disk under one directory, named
// <id>_<sanitized original name>. A background sweeper removes files
// older than the TTL.
type Store struct {
	dir    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewStore(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Store{
		dir:    dir,
		ttl:    ttl,
		logger: slog.Default(),
	}, nil
}

// Save writes the uploaded bytes and returns the stored path.
func (s *Store) Save(id, originalName string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, id+"_"+sanitizeFilename(originalName))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	s.logger.Info("upload saved", "id", id, "path", path)
	return path, nil
}

// Lookup returns the stored path for an upload id, or a *NotFoundError.
func (s *Store) Lookup(id string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("read upload directory: %w", err)
	}

	candidates := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		candidates++
		if strings.HasPrefix(entry.Name(), id+"_") {
			return filepath.Join(s.dir, entry.Name()), nil
		}
	}
	return "", &NotFoundError{ID: id, Candidates: candidates}
}

// Sweep removes uploads older than the TTL and reports how many went.
func (s *Store) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	entries, err := s.listFiles()
	if err != nil {
		s.logger.Error("upload sweep failed", "error", err)
		return 0
	}

	removed := 0
	for _, path := range entries {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > s.ttl {
			if err := os.Remove(path); err != nil {
				s.logger.Error("failed to remove expired upload", "path", path, "error", err)
				continue
			}
			s.logger.Info("expired upload removed", "path", path)
			removed++
		}
	}
	return removed
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info("upload sweeper started", "dir", s.dir, "ttl", s.ttl)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("upload sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

func (s *Store) listFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	return paths, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename strips path components and anything outside a safe
// character set from a client-supplied filename.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "upload.pdf"
	}
	return name
}

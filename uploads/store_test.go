package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLookup(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	path, err := s.Save("abc123", "My Invoice (final).pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, "abc123_My_Invoice_final_.pdf")

	found, err := s.Lookup("abc123")
	require.NoError(t, err)
	assert.Equal(t, path, found)

	data, err := os.ReadFile(found)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestLookupNotFound(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	_, err = s.Save("other", "doc.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = s.Lookup("missing-id")
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "missing-id", nfErr.ID)
	assert.Equal(t, 1, nfErr.Candidates)
	assert.Contains(t, err.Error(), "missing-id")
}

func TestLookupCandidatesCountsFilesOnly(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, time.Hour)
	require.NoError(t, err)

	_, err = s.Save("other", "doc.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	_, err = s.Lookup("missing-id")
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, 1, nfErr.Candidates)
}

func TestSweepRemovesExpired(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	oldPath, err := s.Save("old", "old.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	freshPath, err := s.Save("fresh", "fresh.pdf", strings.NewReader("y"))
	require.NoError(t, err)

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	removed := s.Sweep(time.Now())
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, freshPath)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", sanitizeFilename("../../etc/report.pdf"))
	assert.Equal(t, "a_b_c.pdf", sanitizeFilename("a b&c.pdf"))
	assert.Equal(t, "upload.pdf", sanitizeFilename(""))
}

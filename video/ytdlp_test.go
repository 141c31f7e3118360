package video

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeYtDlp writes a stub executable that prints metadata JSON and
// creates the output file named after -o, like yt-dlp does.
func fakeYtDlp(t *testing.T, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub script requires a POSIX shell")
	}

	script := `#!/bin/sh
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then out="$arg"; fi
  prev="$arg"
done
if [ ` + itoa(exitCode) + ` -ne 0 ]; then
  echo "ERROR: unsupported url" >&2
  exit ` + itoa(exitCode) + `
fi
touch "$out"
echo '{"title":"Test Video","duration":212.5}'
`
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	return "1"
}

func TestExtractAudio(t *testing.T) {
	e := NewExtractor(fakeYtDlp(t, 0), t.TempDir())

	media, err := e.ExtractAudio(context.Background(), "https://youtube.example/watch?v=abc")
	require.NoError(t, err)
	assert.Equal(t, "Test Video", media.Title)
	assert.Equal(t, 212.5, media.Duration)
	assert.FileExists(t, media.AudioPath)
}

func TestExtractAudioFailure(t *testing.T) {
	e := NewExtractor(fakeYtDlp(t, 1), t.TempDir())

	_, err := e.ExtractAudio(context.Background(), "not-a-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yt-dlp failed")
}

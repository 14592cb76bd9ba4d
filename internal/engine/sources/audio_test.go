package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// fakeYtDlp writes an executable shell script standing in for yt-dlp.
// body runs after $out is set to the -o argument and $@ is logged to $dir/args.
func fakeYtDlp(t *testing.T, body string) (binary, dir string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	dir = t.TempDir()
	script := "#!/bin/sh\n" +
		"echo \"$@\" > \"" + filepath.Join(dir, "args") + "\"\n" +
		"while [ $# -gt 0 ]; do\n  case \"$1\" in\n    -o) out=\"$2\"; shift ;;\n  esac\n  shift\ndone\n" +
		body + "\n"
	binary = filepath.Join(dir, "yt-dlp")
	require.NoError(t, os.WriteFile(binary, []byte(script), 0o755))
	return binary, dir
}

func audioFilesIn(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "yt_audio_*"))
	require.NoError(t, err)
	return matches
}

func TestDownload_Success(t *testing.T) {
	bin, dir := fakeYtDlp(t, `printf 'm4a-bytes' > "$out"`)
	out := t.TempDir()
	d := NewAudioDownloader(bin, "", out, 5*time.Second)

	f, err := d.Download(context.Background(), WatchURL(testVideoID))
	require.NoError(t, err)
	assert.Equal(t, out, filepath.Dir(f.Path))
	assert.Regexp(t, regexp.MustCompile(`^yt_audio_\d+_[0-9a-z]{6}\.m4a$`), filepath.Base(f.Path))

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "m4a-bytes", string(data))

	args, err := os.ReadFile(filepath.Join(dir, "args"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "-f "+engine.DefaultYtDlpFormat)
	assert.Contains(t, string(args), "--no-playlist")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(args)), WatchURL(testVideoID)))

	require.NoError(t, f.Remove())
	assert.Empty(t, audioFilesIn(t, out))
	assert.NoError(t, f.Remove(), "second remove is a no-op")
}

func TestDownload_FailureLeavesNoFile(t *testing.T) {
	bin, _ := fakeYtDlp(t, `printf 'partial' > "$out"; echo "ERROR: Video unavailable" >&2; exit 1`)
	out := t.TempDir()
	d := NewAudioDownloader(bin, "", out, 5*time.Second)

	_, err := d.Download(context.Background(), WatchURL(testVideoID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrAudioDownload))
	assert.Contains(t, err.Error(), "Video unavailable")
	assert.Empty(t, audioFilesIn(t, out))
}

func TestDownload_EmptyOutput(t *testing.T) {
	bin, _ := fakeYtDlp(t, `: > "$out"`)
	out := t.TempDir()
	d := NewAudioDownloader(bin, "", out, 5*time.Second)

	_, err := d.Download(context.Background(), WatchURL(testVideoID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
	assert.Empty(t, audioFilesIn(t, out))
}

func TestDownload_Timeout(t *testing.T) {
	bin, _ := fakeYtDlp(t, `printf 'partial' > "$out"; exec sleep 10`)
	out := t.TempDir()
	d := NewAudioDownloader(bin, "", out, 100*time.Millisecond)

	start := time.Now()
	_, err := d.Download(context.Background(), WatchURL(testVideoID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrTimeout))
	assert.Less(t, time.Since(start), 8*time.Second)
	assert.Empty(t, audioFilesIn(t, out))
}

func TestDownload_MissingBinary(t *testing.T) {
	d := NewAudioDownloader(filepath.Join(t.TempDir(), "nope"), "", t.TempDir(), time.Second)
	_, err := d.Download(context.Background(), WatchURL(testVideoID))
	assert.True(t, errors.Is(err, engine.ErrBinaryNotFound))
}

func TestDownload_RejectsUnsafeURL(t *testing.T) {
	bin, dir := fakeYtDlp(t, `printf 'x' > "$out"`)
	d := NewAudioDownloader(bin, "", t.TempDir(), time.Second)

	for _, u := range []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ --exec 'touch /tmp/pwned'",
		"https://example.com/video.mp4",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
	} {
		_, err := d.Download(context.Background(), u)
		assert.True(t, errors.Is(err, engine.ErrAudioDownload), u)
	}
	_, err := os.Stat(filepath.Join(dir, "args"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "binary must not run")
}

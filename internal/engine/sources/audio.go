package sources

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// AudioDownloader fetches the best audio-only stream of a video with yt-dlp.
type AudioDownloader struct {
	binary  string
	format  string
	tempDir string
	timeout time.Duration
}

// NewAudioDownloader returns a downloader running binary with the given
// format selector, writing into tempDir.
func NewAudioDownloader(binary, format, tempDir string, timeout time.Duration) *AudioDownloader {
	if format == "" {
		format = engine.DefaultYtDlpFormat
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &AudioDownloader{binary: binary, format: format, tempDir: tempDir, timeout: timeout}
}

// AudioFile is a downloaded temp file owned by one request.
// Remove must be called on every exit path.
type AudioFile struct {
	Path string
}

// Remove deletes the file. Missing files are not an error.
func (f *AudioFile) Remove() error {
	if f == nil || f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Download saves the audio of youtubeURL to a new temp file.
// youtubeURL must pass IsDownloadableURL. On failure no file is left behind.
func (d *AudioDownloader) Download(ctx context.Context, youtubeURL string) (*AudioFile, error) {
	if !IsDownloadableURL(youtubeURL) {
		return nil, fmt.Errorf("%w: invalid YouTube URL format for audio download", engine.ErrAudioDownload)
	}
	if _, err := os.Stat(d.binary); err != nil {
		return nil, fmt.Errorf("%w: %w at %s", engine.ErrAudioDownload, engine.ErrBinaryNotFound, d.binary)
	}

	path := filepath.Join(d.tempDir, tempAudioName())
	engine.IncrAudioDownloads()

	_, err := engine.WithTimeout(ctx, d.timeout, "audio download", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.run(ctx, path, youtubeURL)
	})
	if err == nil {
		err = checkAudioFile(path)
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.WarnContext(ctx, "audio: partial file cleanup failed", slog.String("path", path), slog.Any("error", rmErr))
		}
		return nil, fmt.Errorf("%w: %w", engine.ErrAudioDownload, err)
	}
	return &AudioFile{Path: path}, nil
}

func (d *AudioDownloader) run(ctx context.Context, path, youtubeURL string) error {
	args := []string{
		"-f", d.format,
		"-o", path,
		"--no-playlist",
		"--no-warnings",
		"--extractor-args", "youtube:player_client=default",
		youtubeURL,
	}
	slog.DebugContext(ctx, "audio: running yt-dlp", slog.String("binary", d.binary), slog.String("args", strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, d.binary, args...)
	cmd.WaitDelay = 5 * time.Second
	if _, err := cmd.Output(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return fmt.Errorf("yt-dlp: %s", engine.Preview(string(exitErr.Stderr)))
		}
		return fmt.Errorf("yt-dlp: %w", err)
	}
	return nil
}

func checkAudioFile(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return errors.New("downloaded file not found")
	}
	if st.Size() == 0 {
		return errors.New("downloaded file is empty")
	}
	return nil
}

// tempAudioName returns yt_audio_<unix ms>_<6 base36 chars>.m4a.
func tempAudioName() string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	var sb strings.Builder
	for range 6 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			sb.WriteByte('0')
			continue
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return "yt_audio_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + sb.String() + ".m4a"
}

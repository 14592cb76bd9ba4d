// Package pipeline turns a YouTube URL into a Markdown summary: validate,
// fetch captions and metadata in parallel, fall back to speech-to-text,
// then summarise.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/sources"
)

// deepgramKeyName is logged, never returned to callers.
const deepgramKeyName = "DEEPGRAM_API_KEY"

// TranscriptSource yields caption text, or Unavailable.
type TranscriptSource interface {
	FetchTranscript(ctx context.Context, videoID string) engine.Result[string]
}

// MetadataSource yields title and thumbnail, Unavailable, or Blocked.
type MetadataSource interface {
	FetchMetadata(ctx context.Context, videoID string) engine.Result[engine.VideoMetadata]
}

// AudioDownloader saves a video's audio to a temp file the caller must remove.
type AudioDownloader interface {
	Download(ctx context.Context, youtubeURL string) (*sources.AudioFile, error)
}

// Transcriber converts an audio file to text.
type Transcriber interface {
	Configured() bool
	Transcribe(ctx context.Context, path string) (string, error)
}

// Summarizer produces Markdown from a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, opts engine.SummarizeOptions) (string, error)
}

// Orchestrator runs the summarise flow over injected stages.
type Orchestrator struct {
	Transcripts TranscriptSource
	Metadata    MetadataSource
	Audio       AudioDownloader
	STT         Transcriber
	LLM         Summarizer
}

// Summarize validates rawURL and returns the summary of its video.
// Every error returned is an *engine.Error.
func (o *Orchestrator) Summarize(ctx context.Context, rawURL string) (out *engine.VideoSummary, err error) {
	engine.IncrSummarizeRequests()
	err = engine.TrackOperation(ctx, "summarize", func(ctx context.Context) error {
		out, err = o.summarize(ctx, rawURL)
		return err
	})
	if err != nil {
		engine.IncrSummarizeErrors()
		err = engine.AsError(err)
	}
	return out, err
}

func (o *Orchestrator) summarize(ctx context.Context, rawURL string) (*engine.VideoSummary, error) {
	rawURL = strings.TrimSpace(rawURL)
	if msgs := sources.ValidateURL(rawURL); msgs != nil {
		return nil, engine.ValidationError(map[string][]string{sources.URLField: msgs})
	}
	videoID := sources.ExtractVideoID(rawURL)
	if videoID == "" {
		return nil, engine.ExtractionError()
	}
	log := slog.With(slog.String("video_id", videoID))

	// --- Parallel caption + metadata fetch ---
	trCh := make(chan engine.Result[string], 1)
	mdCh := make(chan engine.Result[engine.VideoMetadata], 1)
	go func() { trCh <- o.Transcripts.FetchTranscript(ctx, videoID) }()
	go func() { mdCh <- o.Metadata.FetchMetadata(ctx, videoID) }()
	tr, md := <-trCh, <-mdCh

	transcript, ok := tr.Get()
	if ok {
		engine.IncrTranscriptHits()
		if md.IsBlocked() {
			log.WarnContext(ctx, "pipeline: metadata blocked, continuing with captions", slog.Any("error", md.Err()))
		}
	} else {
		engine.IncrTranscriptMisses()
		if md.IsBlocked() {
			return nil, engine.MetadataError(md.Err())
		}
		var err error
		transcript, err = o.transcribeAudio(ctx, videoID)
		if err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(transcript) == "" {
		return nil, engine.TranscriptUnavailableError()
	}

	summary, err := o.LLM.Summarize(ctx, transcript, engine.SummarizeOptions{})
	if err != nil {
		log.ErrorContext(ctx, "pipeline: summarization failed", slog.Any("error", err))
		return nil, engine.SummarizationError(err)
	}

	out := &engine.VideoSummary{VideoID: videoID, Title: engine.DefaultVideoTitle, Summary: summary}
	if meta, ok := md.Get(); ok {
		if meta.Title != "" {
			out.Title = meta.Title
		}
		out.Thumbnail = meta.Thumbnail
	}
	return out, nil
}

// transcribeAudio is the speech-to-text fallback. The downloaded file is
// removed on every return path.
func (o *Orchestrator) transcribeAudio(ctx context.Context, videoID string) (string, error) {
	if o.STT == nil || !o.STT.Configured() {
		return "", engine.MissingCredentialError(deepgramKeyName)
	}
	engine.IncrSTTFallbacks()
	log := slog.With(slog.String("video_id", videoID))
	log.InfoContext(ctx, "pipeline: no captions, falling back to speech-to-text")

	audio, err := o.Audio.Download(ctx, sources.WatchURL(videoID))
	if err != nil {
		engine.IncrSTTErrors()
		log.ErrorContext(ctx, "pipeline: audio download failed", slog.Any("error", err))
		return "", engine.TranscriptionError(err)
	}
	defer func() {
		if rmErr := audio.Remove(); rmErr != nil {
			log.WarnContext(ctx, "pipeline: temp audio cleanup failed", slog.String("path", audio.Path), slog.Any("error", rmErr))
		}
	}()

	text, err := o.STT.Transcribe(ctx, audio.Path)
	if err != nil {
		engine.IncrSTTErrors()
		log.ErrorContext(ctx, "pipeline: transcription failed", slog.Any("error", err))
		return "", engine.TranscriptionError(err)
	}
	return text, nil
}

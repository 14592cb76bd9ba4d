package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the service.
var metrics struct {
	SummarizeRequests atomic.Int64
	SummarizeErrors   atomic.Int64
	TranscriptHits    atomic.Int64
	TranscriptMisses  atomic.Int64
	MetadataErrors    atomic.Int64
	STTFallbacks      atomic.Int64
	STTErrors         atomic.Int64
	AudioDownloads    atomic.Int64
	LLMCalls          atomic.Int64
	LLMErrors         atomic.Int64
	RateLimited       atomic.Int64
}

var metricKeys = []string{
	"summarize_requests", "summarize_errors",
	"transcript_hits", "transcript_misses", "metadata_errors",
	"stt_fallbacks", "stt_errors", "audio_downloads",
	"llm_calls", "llm_errors",
	"rate_limited",
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"summarize_requests": metrics.SummarizeRequests.Load(),
		"summarize_errors":   metrics.SummarizeErrors.Load(),
		"transcript_hits":    metrics.TranscriptHits.Load(),
		"transcript_misses":  metrics.TranscriptMisses.Load(),
		"metadata_errors":    metrics.MetadataErrors.Load(),
		"stt_fallbacks":      metrics.STTFallbacks.Load(),
		"stt_errors":         metrics.STTErrors.Load(),
		"audio_downloads":    metrics.AudioDownloads.Load(),
		"llm_calls":          metrics.LLMCalls.Load(),
		"llm_errors":         metrics.LLMErrors.Load(),
		"rate_limited":       metrics.RateLimited.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrSummarizeRequests() { metrics.SummarizeRequests.Add(1) }
func IncrSummarizeErrors()   { metrics.SummarizeErrors.Add(1) }
func IncrTranscriptHits()    { metrics.TranscriptHits.Add(1) }
func IncrTranscriptMisses()  { metrics.TranscriptMisses.Add(1) }
func IncrMetadataErrors()    { metrics.MetadataErrors.Add(1) }
func IncrSTTFallbacks()      { metrics.STTFallbacks.Add(1) }
func IncrSTTErrors()         { metrics.STTErrors.Add(1) }
func IncrAudioDownloads()    { metrics.AudioDownloads.Add(1) }
func IncrLLMCalls()          { metrics.LLMCalls.Add(1) }
func IncrLLMErrors()         { metrics.LLMErrors.Add(1) }
func IncrRateLimited()       { metrics.RateLimited.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.WarnContext(ctx, "slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}

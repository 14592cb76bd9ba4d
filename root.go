package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/sources"
	"github.com/anatolykoptev/go_ytsum/internal/pipeline"
)

func newRootCommand() *cobra.Command {
	var cfg engine.Config

	rootCmd := &cobra.Command{
		Use:           "ytsum",
		Short:         "YouTube video summarizer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = engine.LoadConfig()
			slog.SetDefault(engine.NewLogger(os.Stderr, cfg.LogLevel))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand(&cfg))
	rootCmd.AddCommand(newSummarizeCommand(&cfg))
	return rootCmd
}

// newOrchestrator wires the production stages from cfg.
func newOrchestrator(cfg engine.Config) *pipeline.Orchestrator {
	yt := sources.NewYouTube(engine.NewYouTubeDoer(cfg), cfg.TranscriptLangs, cfg.RequestTimeout)
	return &pipeline.Orchestrator{
		Transcripts: yt,
		Metadata:    yt,
		Audio:       sources.NewAudioDownloader(cfg.YtDlpPath, cfg.YtDlpFormat, cfg.AudioTempDir, cfg.RequestTimeout),
		STT:         sources.NewDeepgram(cfg, engine.NewHTTPDoer(nil)),
		LLM:         engine.NewSummarizer(cfg, &http.Client{Timeout: cfg.LLMTimeout}),
	}
}

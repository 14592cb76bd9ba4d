package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// TranscribeOptions are the fixed Deepgram query parameters; all overridable.
type TranscribeOptions struct {
	Model     string
	Language  string
	Punctuate bool
	Diarize   bool
}

// Deepgram uploads audio files to the Deepgram pre-recorded /listen API.
type Deepgram struct {
	http     engine.Doer
	url      string
	apiKey   string
	maxBytes int64
	timeout  time.Duration
	defaults TranscribeOptions
}

// NewDeepgram builds a client from cfg. doer may be nil.
func NewDeepgram(cfg engine.Config, doer engine.Doer) *Deepgram {
	if doer == nil {
		doer = engine.NewHTTPDoer(nil)
	}
	d := &Deepgram{
		http:     doer,
		url:      cfg.DeepgramURL,
		apiKey:   cfg.DeepgramAPIKey,
		maxBytes: cfg.AudioMaxBytes,
		timeout:  cfg.LLMTimeout,
		defaults: TranscribeOptions{
			Model:     cfg.DeepgramModel,
			Language:  cfg.DeepgramLanguage,
			Punctuate: true,
		},
	}
	if d.url == "" {
		d.url = engine.DefaultDeepgramURL
	}
	if d.maxBytes <= 0 {
		d.maxBytes = engine.DefaultAudioMaxMB * 1024 * 1024
	}
	if d.defaults.Model == "" {
		d.defaults.Model = "nova-2"
	}
	if d.defaults.Language == "" {
		d.defaults.Language = "en"
	}
	return d
}

// Configured reports whether an API key is set.
func (d *Deepgram) Configured() bool { return d.apiKey != "" }

type deepgramResponse struct {
	Results *struct {
		Channels []struct {
			Alternatives []struct {
				Transcript *string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends the file at path with the default options.
func (d *Deepgram) Transcribe(ctx context.Context, path string) (string, error) {
	return d.TranscribeWith(ctx, path, d.defaults)
}

// TranscribeWith uploads the raw file bytes and returns the first channel's
// first alternative transcript.
func (d *Deepgram) TranscribeWith(ctx context.Context, path string, opts TranscribeOptions) (string, error) {
	if d.apiKey == "" {
		return "", fmt.Errorf("%w: DEEPGRAM_API_KEY", engine.ErrMissingCredential)
	}

	st, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("audio file not found: %s", path)
	}
	if st.Size() > d.maxBytes {
		return "", fmt.Errorf("file too large: %.2fMB (max %dMB)", float64(st.Size())/1024/1024, d.maxBytes/1024/1024)
	}
	if st.Size() == 0 {
		return "", errors.New("audio file is empty")
	}

	q := url.Values{}
	q.Set("model", opts.Model)
	q.Set("language", opts.Language)
	q.Set("punctuate", strconv.FormatBool(opts.Punctuate))
	q.Set("diarize", strconv.FormatBool(opts.Diarize))
	endpoint := d.url + "?" + q.Encode()

	return engine.WithTimeout(ctx, d.timeout, "deepgram transcription", func(ctx context.Context) (string, error) {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open audio: %w", err)
		}
		defer f.Close()

		body, status, err := d.http.Do(ctx, http.MethodPost, endpoint, map[string]string{
			"Authorization": "Token " + d.apiKey,
			"Content-Type":  "audio/m4a",
		}, f)
		if err != nil {
			return "", fmt.Errorf("deepgram: %w", err)
		}
		if status < 200 || status > 299 {
			slog.ErrorContext(ctx, "deepgram API error", slog.Int("status", status), slog.String("body", engine.Preview(string(body))))
			return "", &engine.UpstreamError{Service: "deepgram", Status: status, Body: string(body)}
		}

		var resp deepgramResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decode deepgram response: %w", err)
		}
		if resp.Results == nil || len(resp.Results.Channels) == 0 ||
			len(resp.Results.Channels[0].Alternatives) == 0 ||
			resp.Results.Channels[0].Alternatives[0].Transcript == nil {
			return "", engine.ErrEmptyTranscript
		}
		return *resp.Results.Channels[0].Alternatives[0].Transcript, nil
	})
}

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// SummarizeOptions overrides generation parameters. Zero values use the
// summarizer defaults.
type SummarizeOptions struct {
	MaxTokens   int
	Temperature *float64
}

// Summarizer turns a transcript into Markdown via an OpenAI-compatible
// chat-completion API (OpenRouter by default).
type Summarizer struct {
	client      *llm.Client
	apiKey      string
	maxChars    int
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewSummarizer builds a Summarizer from cfg. hc may be nil. A zero
// LLMTemperature means "unset" and falls back to DefaultTemperature;
// per-call overrides can still request 0.
func NewSummarizer(cfg Config, hc *http.Client) *Summarizer {
	s := &Summarizer{
		apiKey:      cfg.LLMAPIKey,
		maxChars:    cfg.TranscriptMaxChars,
		maxTokens:   cfg.LLMMaxTokens,
		temperature: cfg.LLMTemperature,
		timeout:     cfg.LLMTimeout,
	}
	if s.maxTokens <= 0 {
		s.maxTokens = DefaultMaxTokens
	}
	if s.maxChars <= 0 {
		s.maxChars = DefaultMaxChars
	}
	if s.temperature <= 0 {
		s.temperature = DefaultTemperature
	}
	base := cfg.LLMAPIBase
	if base == "" {
		base = DefaultLLMAPIBase
	}
	model := cfg.LLMModel
	if model == "" {
		model = DefaultModel
	}

	client := &http.Client{}
	if hc != nil {
		*client = *hc
	}
	client.Transport = &openRouterTransport{base: client.Transport, referer: cfg.AppURL}

	s.client = llm.NewClient(base, cfg.LLMAPIKey, model,
		llm.WithMaxTokens(s.maxTokens),
		llm.WithTemperature(s.temperature),
		llm.WithHTTPClient(client),
	)
	return s
}

// Summarize sends the (truncated) transcript with SummaryPrompt and returns
// the model's Markdown, trimmed. The output is not parsed or validated.
func (s *Summarizer) Summarize(ctx context.Context, transcript string, opts SummarizeOptions) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY", ErrMissingCredential)
	}

	maxTokens := s.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	temperature := s.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	prompt := TruncateTranscript(transcript, s.maxChars)

	IncrLLMCalls()
	out, err := WithTimeout(ctx, s.timeout, "LLM summarization", func(ctx context.Context) (string, error) {
		ctx, rec := withUpstreamRecorder(ctx)
		raw, err := s.client.Complete(ctx, SummaryPrompt, prompt,
			llm.WithChatMaxTokens(maxTokens),
			llm.WithChatTemperature(temperature),
		)
		if upstream := rec.get(); upstream != nil && ctx.Err() == nil {
			return "", upstream
		}
		if err != nil {
			return "", fmt.Errorf("openrouter: %w", err)
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return "", ErrEmptyResponse
		}
		return raw, nil
	})
	if err != nil {
		IncrLLMErrors()
		return "", err
	}
	return out, nil
}

// openRouterTransport adds the OpenRouter attribution headers and turns
// failed completions into typed errors the pipeline can classify.
type openRouterTransport struct {
	base    http.RoundTripper
	referer string
}

func (t *openRouterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	req.Header.Set("X-Title", appTitle)

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if failure := completionFailure(resp.StatusCode, body); failure != nil {
		var ue *UpstreamError
		if errors.As(failure, &ue) {
			slog.ErrorContext(req.Context(), "openrouter API error",
				slog.Int("status", ue.Status), slog.String("body", Preview(string(body))))
		}
		recordUpstream(req.Context(), failure)
		return nil, failure
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

// completionFailure reports why a chat-completion response is unusable, or
// nil when it carries at least one choice.
func completionFailure(status int, body []byte) error {
	if status < 200 || status > 299 {
		return &UpstreamError{Service: "openrouter", Status: status, Body: string(body)}
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode openrouter response: %w", err)
	}
	if parsed.Error != nil {
		return &UpstreamError{Service: "openrouter", Body: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return ErrEmptyResponse
	}
	return nil
}

// upstreamRecorder keeps the last failure seen by the transport so callers
// get the typed error however the client wraps it.
type upstreamRecorder struct {
	mu  sync.Mutex
	err error
}

type upstreamRecorderKey struct{}

func withUpstreamRecorder(ctx context.Context) (context.Context, *upstreamRecorder) {
	rec := &upstreamRecorder{}
	return context.WithValue(ctx, upstreamRecorderKey{}, rec), rec
}

func recordUpstream(ctx context.Context, err error) {
	if rec, ok := ctx.Value(upstreamRecorderKey{}).(*upstreamRecorder); ok {
		rec.mu.Lock()
		rec.err = err
		rec.mu.Unlock()
	}
}

func (r *upstreamRecorder) get() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

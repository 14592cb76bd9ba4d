package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps any upstream body read into memory (watch pages run ~1-2MB).
const maxBodyBytes = 6 * 1024 * 1024

// Doer sends one HTTP request and returns the body and status code.
// Non-2xx statuses are not errors at this layer.
type Doer interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, int, error)
}

// HTTPDoer is a Doer backed by net/http.
type HTTPDoer struct {
	Client *http.Client
}

// NewHTTPDoer returns a Doer using client, or a pooled default when nil.
func NewHTTPDoer(client *http.Client) *HTTPDoer {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		}
	}
	return &HTTPDoer{Client: client}
}

func (d *HTTPDoer) Do(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// stealthDoer sends requests with a Chrome TLS fingerprint.
// The browser client has its own timeout; ctx is checked around the call.
type stealthDoer struct {
	bc *stealth.BrowserClient
}

func (d *stealthDoer) Do(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	data, _, status, err := d.bc.Do(method, url, headers, body)
	if err != nil {
		return nil, status, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return data, status, nil
}

// PacedDoer limits the request rate of the wrapped Doer.
type PacedDoer struct {
	next    Doer
	limiter *rate.Limiter
}

// NewPacedDoer allows rps requests per second with a burst of the same size.
func NewPacedDoer(next Doer, rps float64) *PacedDoer {
	burst := max(int(rps), 1)
	return &PacedDoer{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (d *PacedDoer) Do(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, int, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("pacing: %w", err)
	}
	return d.next.Do(ctx, method, url, headers, body)
}

// NewYouTubeDoer builds the Doer used for YouTube traffic: stealth browser
// client when enabled (optionally behind a Webshare proxy pool), paced at
// cfg.YouTubeRPS.
func NewYouTubeDoer(cfg Config) Doer {
	var d Doer = NewHTTPDoer(nil)

	if cfg.StealthEnabled {
		opts := []stealth.ClientOption{stealth.WithTimeout(15)}
		if cfg.WebshareAPIKey != "" {
			pool, err := proxypool.NewWebshare(cfg.WebshareAPIKey)
			if err != nil {
				slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
			} else {
				opts = append(opts, stealth.WithProxyPool(pool))
				slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
			}
		}
		bc, err := stealth.NewClient(opts...)
		if err != nil {
			slog.Error("stealth client init failed, using net/http", slog.Any("error", err))
		} else {
			d = &stealthDoer{bc: bc}
			slog.Info("stealth browser client initialized")
		}
	}

	if cfg.YouTubeRPS > 0 {
		d = NewPacedDoer(d, cfg.YouTubeRPS)
	}
	return d
}

// BrowserHeaders returns request headers for YouTube page and API requests.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      stealth.RandomUserAgent(),
		"Accept-Language": "en-US,en;q=0.9",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	}
}

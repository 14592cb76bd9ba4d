package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPDoer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("header not forwarded")
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("body"))
	}))
	defer srv.Close()

	data, status, err := NewHTTPDoer(nil).Do(context.Background(), http.MethodGet, srv.URL, map[string]string{"X-Test": "1"}, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if status != http.StatusTeapot || string(data) != "body" {
		t.Errorf("Do() = %q, %d", data, status)
	}
}

type countingDoer struct{ calls int }

func (d *countingDoer) Do(context.Context, string, string, map[string]string, io.Reader) ([]byte, int, error) {
	d.calls++
	return nil, http.StatusOK, nil
}

func TestPacedDoerHonorsContext(t *testing.T) {
	next := &countingDoer{}
	d := NewPacedDoer(next, 0.001) // one token, then a very long wait

	if _, _, err := d.Do(context.Background(), http.MethodGet, "http://x", nil, nil); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := d.Do(ctx, http.MethodGet, "http://x", nil, nil)
	if err == nil {
		t.Fatal("expected pacing error")
	}
	if next.calls != 1 {
		t.Errorf("expected 1 forwarded call, got %d", next.calls)
	}
}

func TestBrowserHeaders(t *testing.T) {
	h := BrowserHeaders()
	for _, key := range []string{"User-Agent", "Accept-Language", "Accept"} {
		if h[key] == "" {
			t.Errorf("BrowserHeaders() missing %q", key)
		}
	}
}

func TestStealthDoerStopsOnExpiredContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A nil browser client would panic if the call were attempted.
	_, _, err := (&stealthDoer{}).Do(ctx, http.MethodGet, "http://x", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
}

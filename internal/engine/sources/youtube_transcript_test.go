package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

const testVideoID = "dQw4w9WgXcQ"

func watchPage(playerJSON string) string {
	return `<html><head><title>x</title></head><body><script>var ytInitialPlayerResponse = ` +
		playerJSON + `;var meta = {};</script></body></html>`
}

func newTestYouTube(t *testing.T, h http.Handler, timeout time.Duration) *YouTube {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewYouTube(engine.NewHTTPDoer(srv.Client()), []string{"en"}, timeout, WithBaseURL(srv.URL))
}

func TestFetchTranscript_PageScrape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testVideoID, r.URL.Query().Get("v"))
		fmt.Fprint(w, watchPage(`{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
			{"baseUrl":"/api/timedtext?lang=de","languageCode":"de"},
			{"baseUrl":"/api/timedtext?lang=en","languageCode":"en","kind":"asr"}]}}}`))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		fmt.Fprint(w, `<?xml version="1.0"?><transcript>
			<text start="0" dur="1">Hello &amp;amp; welcome</text>
			<text start="1" dur="1">  </text>
			<text start="2" dur="1">to the &lt;b&gt;show&lt;/b&gt;</text></transcript>`)
	})
	y := newTestYouTube(t, mux, 5*time.Second)

	text, ok := y.FetchTranscript(context.Background(), testVideoID).Get()
	require.True(t, ok)
	assert.Equal(t, "Hello & welcome to the show", text)
}

func TestFetchTranscript_EngagementPanelFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage(`{"playabilityStatus":{"status":"OK"}}`))
	})
	mux.HandleFunc(ytNextPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"engagementPanels":[{"x":{"getTranscriptEndpoint":{"params":"abc%3D%3D"}}}]}`)
	})
	mux.HandleFunc(ytGetTranscriptPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"actions":[{"updateEngagementPanelAction":{"content":{"transcriptRenderer":{"content":
			{"transcriptSearchPanelRenderer":{"body":{"transcriptSegmentListRenderer":{"initialSegments":[
			{"transcriptSegmentRenderer":{"snippet":{"runs":[{"text":"first"}]}}},
			{"transcriptSegmentRenderer":{"snippet":{"runs":[{"text":"second"}]}}}]}}}}}}}}]}`)
	})
	y := newTestYouTube(t, mux, 5*time.Second)

	text, ok := y.FetchTranscript(context.Background(), testVideoID).Get()
	require.True(t, ok)
	assert.Equal(t, "first second", text)
}

func TestFetchTranscript_NoCaptionsIsUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/watch" {
			fmt.Fprint(w, watchPage(`{"playabilityStatus":{"status":"OK"}}`))
			return
		}
		http.Error(w, "nope", http.StatusForbidden)
	})
	y := newTestYouTube(t, mux, 5*time.Second)

	res := y.FetchTranscript(context.Background(), testVideoID)
	_, ok := res.Get()
	assert.False(t, ok)
	assert.False(t, res.IsBlocked())
	assert.Error(t, res.Err())
}

func TestFetchTranscript_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	y := newTestYouTube(t, h, 50*time.Millisecond)

	start := time.Now()
	res := y.FetchTranscript(context.Background(), testVideoID)
	_, ok := res.Get()
	assert.False(t, ok)
	assert.True(t, errors.Is(res.Err(), engine.ErrTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchTranscript_InvalidID(t *testing.T) {
	y := NewYouTube(engine.NewHTTPDoer(nil), nil, time.Second)
	_, ok := y.FetchTranscript(context.Background(), "short").Get()
	assert.False(t, ok)
}

func TestPickBestTrack(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "a&exp=xpe", LanguageCode: "en"},
		{BaseURL: "b", LanguageCode: "en", Kind: "asr"},
		{BaseURL: "c", LanguageCode: "fr"},
	}
	got, ok := pickBestTrack(tracks, []string{"en"})
	require.True(t, ok)
	assert.Equal(t, "b", got.BaseURL)

	got, ok = pickBestTrack(tracks, []string{"fr"})
	require.True(t, ok)
	assert.Equal(t, "c", got.BaseURL)

	_, ok = pickBestTrack(tracks[:1], []string{"en"})
	assert.False(t, ok)
}

func TestExtractJSON(t *testing.T) {
	in := []byte(`{"a":"}\"{","b":{"c":1}};var x = {}`)
	assert.Equal(t, `{"a":"}\"{","b":{"c":1}}`, string(extractJSON(in)))
	assert.Nil(t, extractJSON([]byte(`{"unterminated":`)))
	assert.Nil(t, extractJSON([]byte(`not json`)))
}

func TestExtractTranscriptToken(t *testing.T) {
	tok, err := extractTranscriptToken([]byte(`..."getTranscriptEndpoint":{"params":"CgtkUXc%3D"}...`))
	require.NoError(t, err)
	assert.Equal(t, "CgtkUXc=", tok)

	_, err = extractTranscriptToken([]byte(`{}`))
	assert.True(t, err != nil && strings.Contains(err.Error(), "not found"))
}

package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

func TestFetchMetadata_VideoDetails(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchPage(`{"playabilityStatus":{"status":"OK"},"videoDetails":{"videoId":"dQw4w9WgXcQ",
			"title":"Never Gonna Give You Up","thumbnail":{"thumbnails":[{"url":"https://i.ytimg.com/vi/x/default.jpg"}]}}}`))
	})
	y := newTestYouTube(t, h, 5*time.Second)

	md, ok := y.FetchMetadata(context.Background(), testVideoID).Get()
	require.True(t, ok)
	assert.Equal(t, "Never Gonna Give You Up", md.Title)
	require.NotNil(t, md.Thumbnail)
	assert.Equal(t, "https://i.ytimg.com/vi/x/default.jpg", *md.Thumbnail)
}

func TestFetchMetadata_MetaTagFallback(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<meta property="og:title" content="Fallback Title">
			<meta property="og:image" content="https://i.ytimg.com/thumb.jpg">
			</head><body></body></html>`)
	})
	y := newTestYouTube(t, h, 5*time.Second)

	md, ok := y.FetchMetadata(context.Background(), testVideoID).Get()
	require.True(t, ok)
	assert.Equal(t, "Fallback Title", md.Title)
	require.NotNil(t, md.Thumbnail)
	assert.Equal(t, "https://i.ytimg.com/thumb.jpg", *md.Thumbnail)
}

func TestFetchMetadata_NoThumbnail(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta name="title" content="Only Title"></head></html>`)
	})
	y := newTestYouTube(t, h, 5*time.Second)

	md, ok := y.FetchMetadata(context.Background(), testVideoID).Get()
	require.True(t, ok)
	assert.Equal(t, "Only Title", md.Title)
	assert.Nil(t, md.Thumbnail)
}

func TestFetchMetadata_Blocked(t *testing.T) {
	tests := []struct {
		name   string
		player string
		want   error
	}{
		{"private", `{"playabilityStatus":{"status":"LOGIN_REQUIRED","reason":"This is a private video"}}`, engine.ErrPrivateVideo},
		{"age", `{"playabilityStatus":{"status":"LOGIN_REQUIRED","reason":"Sign in to confirm your age"}}`, engine.ErrAgeRestricted},
		{"age check", `{"playabilityStatus":{"status":"AGE_CHECK_REQUIRED"}}`, engine.ErrAgeRestricted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				fmt.Fprint(w, watchPage(tt.player))
			})
			y := newTestYouTube(t, h, 5*time.Second)

			res := y.FetchMetadata(context.Background(), testVideoID)
			assert.True(t, res.IsBlocked())
			assert.True(t, errors.Is(res.Err(), tt.want))
			assert.Equal(t, int32(1), calls.Load(), "blocked videos are not retried")
		})
	}
}

func TestFetchMetadata_RetriesThenUnavailable(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	y := newTestYouTube(t, h, 5*time.Second)

	res := y.FetchMetadata(context.Background(), testVideoID)
	_, ok := res.Get()
	assert.False(t, ok)
	assert.False(t, res.IsBlocked())
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchMetadata_RecoversOnSecondAttempt(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Second Try"></head></html>`)
	})
	y := newTestYouTube(t, h, 5*time.Second)

	md, ok := y.FetchMetadata(context.Background(), testVideoID).Get()
	require.True(t, ok)
	assert.Equal(t, "Second Try", md.Title)
}

package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// YouTube transcript fetching.
// Primary:  watch page ytInitialPlayerResponse → caption XML
// Fallback: /next → engagement panel → /get_transcript  (works from datacenter IPs)
// Fallback: ANDROID Innertube /player → captionTracks   (works from non-blocked IPs)

// getTranscriptRE extracts the continuation token from a raw /next JSON response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

var errNoCaptions = errors.New("no captions available")

// FetchTranscript returns the caption transcript for videoID as one
// space-joined string. Any failure, including the deadline, yields
// Unavailable: captions are optional and the caller has a fallback.
func (y *YouTube) FetchTranscript(ctx context.Context, videoID string) engine.Result[string] {
	if !IsValidVideoID(videoID) {
		return engine.Unavailable[string](fmt.Errorf("invalid video id %q", videoID))
	}
	text, err := engine.WithTimeout(ctx, y.timeout, "transcript fetch", func(ctx context.Context) (string, error) {
		return y.fetchTranscript(ctx, videoID)
	})
	if err != nil {
		slog.WarnContext(ctx, "youtube: transcript unavailable", slog.String("id", videoID), slog.Any("error", err))
		return engine.Unavailable[string](err)
	}
	if strings.TrimSpace(text) == "" {
		return engine.Unavailable[string](errNoCaptions)
	}
	return engine.Ok(text)
}

func (y *YouTube) fetchTranscript(ctx context.Context, videoID string) (string, error) {
	text, err := y.fetchTranscriptViaPageScrape(ctx, videoID)
	if err == nil {
		return text, nil
	}
	slog.DebugContext(ctx, "youtube: page scrape failed, trying engagement panel",
		slog.String("id", videoID), slog.Any("err", err))
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	text, err = y.fetchTranscriptViaEngagementPanel(ctx, videoID)
	if err == nil {
		return text, nil
	}
	slog.DebugContext(ctx, "youtube: engagement panel failed, trying player",
		slog.String("id", videoID), slog.Any("err", err))
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	return y.fetchTranscriptViaPlayer(ctx, videoID)
}

func extractTranscriptToken(data []byte) (string, error) {
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded.
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	return "", errors.New("getTranscriptEndpoint not found in engagement panels")
}

// parseTranscriptSegments extracts plain text from a /get_transcript JSON response.
func parseTranscriptSegments(resp ytGetTranscriptResp) string {
	var sb strings.Builder
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			if seg.TranscriptSegmentRenderer == nil {
				continue
			}
			for _, run := range seg.TranscriptSegmentRenderer.Snippet.Runs {
				appendFragment(&sb, run.Text)
			}
		}
	}
	return sb.String()
}

// appendFragment adds one caption fragment, space-separated, skipping blanks.
func appendFragment(sb *strings.Builder, text string) {
	text = engine.CleanHTML(text)
	if text == "" {
		return
	}
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteString(text)
}

// fetchTranscriptViaEngagementPanel fetches a transcript via:
//  1. POST /next → get engagementPanels containing transcript continuation token
//  2. POST /get_transcript with the token → JSON segments
func (y *YouTube) fetchTranscriptViaEngagementPanel(ctx context.Context, videoID string) (string, error) {
	visitorData := generateVisitorData()

	nextData, err := y.postInnerTubeWEB(ctx, ytNextPath, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(visitorData),
	}, visitorData)
	if err != nil {
		return "", fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}

	transcriptData, err := y.postInnerTubeWEB(ctx, ytGetTranscriptPath, map[string]any{
		"params": token,
		"context": map[string]any{
			"client": ytWebClientCtx{
				ClientName:    "WEB",
				ClientVersion: ytWebVersion,
				VisitorData:   visitorData,
				Hl:            "en",
				Gl:            "US",
			},
		},
	}, visitorData)
	if err != nil {
		return "", fmt.Errorf("/get_transcript: %w", err)
	}

	var transcriptResp ytGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &transcriptResp); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}

	text := parseTranscriptSegments(transcriptResp)
	if text == "" {
		return "", errors.New("empty transcript segments")
	}
	return text, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the given language preferences.
// Tracks that require a PoToken only work in a browser and are skipped.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	// 1. Manual track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	// 2. Auto-generated track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	// 3. Any English track
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// captionsFrom picks a track from a player response and fetches its text.
func (y *YouTube) captionsFrom(ctx context.Context, playerResp *innertubePlayerResp) (string, error) {
	if playerResp.Captions == nil {
		if ps := playerResp.PlayabilityStatus; ps != nil && ps.Reason != "" {
			return "", fmt.Errorf("%w: %s", errNoCaptions, ps.Reason)
		}
		return "", errNoCaptions
	}
	tracks := playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return "", errors.New("no caption tracks")
	}
	track, ok := pickBestTrack(tracks, y.langs)
	if !ok {
		return "", errors.New("all caption tracks require PoToken")
	}
	return y.fetchTimedText(ctx, track.BaseURL)
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL.
func (y *YouTube) fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	if strings.HasPrefix(baseURL, "/") {
		baseURL = y.baseURL + baseURL
	}
	body, status, err := y.http.Do(ctx, http.MethodGet, baseURL, engine.BrowserHeaders(), nil)
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	if status != http.StatusOK {
		return "", &engine.UpstreamError{Service: "youtube", Status: status, Body: string(body)}
	}

	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext XML: %w", err)
	}

	var sb strings.Builder
	for _, line := range tt.Lines {
		appendFragment(&sb, line.Text)
	}
	if sb.Len() == 0 {
		return "", errors.New("empty timedtext")
	}
	return sb.String(), nil
}

// fetchTranscriptViaPlayer uses the ANDROID Innertube /player endpoint.
// Works from non-blocked (residential/cloud) IP addresses.
func (y *YouTube) fetchTranscriptViaPlayer(ctx context.Context, videoID string) (string, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return "", err
	}

	body, status, err := y.http.Do(ctx, http.MethodPost, y.baseURL+ytPlayerPath+"?prettyPrint=false", map[string]string{
		"Content-Type":             "application/json",
		"User-Agent":               ytAndroidUA,
		"X-Youtube-Client-Name":    "3",
		"X-Youtube-Client-Version": ytAndroidVersion,
	}, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("android innertube: %w", err)
	}
	if status != http.StatusOK {
		return "", &engine.UpstreamError{Service: "youtube", Status: status, Body: string(body)}
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(body, &playerResp); err != nil {
		return "", fmt.Errorf("decode player: %w", err)
	}
	return y.captionsFrom(ctx, &playerResp)
}

// fetchTranscriptViaPageScrape scrapes the YouTube watch page HTML and extracts
// the caption track XML URL from ytInitialPlayerResponse. Works from any IP.
func (y *YouTube) fetchTranscriptViaPageScrape(ctx context.Context, videoID string) (string, error) {
	page, err := y.fetchWatchPage(ctx, videoID)
	if err != nil {
		return "", err
	}
	playerResp, err := parseInitialPlayerResponse(page)
	if err != nil {
		return "", err
	}
	return y.captionsFrom(ctx, playerResp)
}

package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// Innertube constants, wire types and low-level HTTP calls.
// Higher-level logic lives in youtube_transcript.go and youtube_metadata.go.

const (
	ytBaseURL           = "https://www.youtube.com"
	ytPlayerPath        = "/youtubei/v1/player"
	ytNextPath          = "/youtubei/v1/next"
	ytGetTranscriptPath = "/youtubei/v1/get_transcript"
	ytWebVersion        = "2.20250222.10.00"
	ytAndroidVersion    = "20.10.38"
	ytAndroidUA         = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
)

// YouTube talks to youtube.com for captions and video details.
type YouTube struct {
	http    engine.Doer
	baseURL string
	langs   []string
	timeout time.Duration
}

// Option configures a YouTube client.
type Option func(*YouTube)

// WithBaseURL points the client at another host (tests, mirrors).
func WithBaseURL(u string) Option {
	return func(y *YouTube) { y.baseURL = u }
}

// NewYouTube builds a client. langs are preferred caption languages;
// timeout bounds each transcript or metadata lookup.
func NewYouTube(doer engine.Doer, langs []string, timeout time.Duration, opts ...Option) *YouTube {
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	y := &YouTube{http: doer, baseURL: ytBaseURL, langs: langs, timeout: timeout}
	for _, o := range opts {
		o(y)
	}
	return y
}

// --- ANDROID client types (/player endpoint) ---

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type innertubePlayerResp struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails *struct {
		VideoID   string `json:"videoId"`
		Title     string `json:"title"`
		Thumbnail struct {
			Thumbnails []struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"thumbnail"`
	} `json:"videoDetails"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// --- WEB client types (/next and /get_transcript endpoints) ---

type ytWebClientCtx struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	VisitorData   string `json:"visitorData,omitempty"`
	Hl            string `json:"hl,omitempty"`
	Gl            string `json:"gl,omitempty"`
}

type ytWebUser struct {
	EnableSafetyMode bool `json:"enableSafetyMode"`
}

type ytWebReqCtx struct {
	UseSsl bool `json:"useSsl"`
}

// --- Timedtext XML types ---

type ytTimedText struct {
	Lines []ytLine `xml:"text"`
}

type ytLine struct {
	Text string `xml:",chardata"`
}

// --- /get_transcript response ---

type ytGetTranscriptResp struct {
	Actions []struct {
		UpdateEngagementPanelAction *struct {
			Content struct {
				TranscriptRenderer struct {
					Content struct {
						TranscriptSearchPanelRenderer struct {
							Body struct {
								TranscriptSegmentListRenderer struct {
									InitialSegments []struct {
										TranscriptSegmentRenderer *struct {
											Snippet struct {
												Runs []struct {
													Text string `json:"text"`
												} `json:"runs"`
											} `json:"snippet"`
										} `json:"transcriptSegmentRenderer"`
									} `json:"initialSegments"`
								} `json:"transcriptSegmentListRenderer"`
							} `json:"body"`
						} `json:"transcriptSearchPanelRenderer"`
					} `json:"content"`
				} `json:"transcriptRenderer"`
			} `json:"content"`
		} `json:"updateEngagementPanelAction"`
	} `json:"actions"`
}

// generateVisitorData creates a random 11-char visitor ID for Innertube requests.
func generateVisitorData() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))] //nolint:gosec // non-cryptographic use
	}
	return string(b)
}

// ytWebContext builds the standard WEB client context for Innertube payloads.
func ytWebContext(visitorData string) map[string]any {
	return map[string]any{
		"client": ytWebClientCtx{
			ClientName:    "WEB",
			ClientVersion: ytWebVersion,
			VisitorData:   visitorData,
			Hl:            "en",
			Gl:            "US",
		},
		"user":    ytWebUser{EnableSafetyMode: false},
		"request": ytWebReqCtx{UseSsl: true},
	}
}

// postInnerTubeWEB POSTs to a YouTube Innertube endpoint with WEB client headers.
func (y *YouTube) postInnerTubeWEB(ctx context.Context, path string, payload any, visitorData string) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	headers := engine.BrowserHeaders()
	headers["Content-Type"] = "application/json"
	headers["Accept"] = "*/*"
	headers["X-Youtube-Client-Name"] = "1"
	headers["X-Youtube-Client-Version"] = ytWebVersion
	headers["X-Goog-Visitor-Id"] = visitorData
	headers["Origin"] = ytBaseURL
	headers["Referer"] = ytBaseURL + "/"

	data, status, err := y.http.Do(ctx, http.MethodPost, y.baseURL+path+"?prettyPrint=false", headers, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("innertube WEB [%s]: %w", path, err)
	}
	if status != http.StatusOK {
		return nil, &engine.UpstreamError{Service: "youtube", Status: status, Body: string(data)}
	}
	return data, nil
}

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// fetchWatchPage downloads the watch page HTML for videoID.
func (y *YouTube) fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	body, status, err := y.http.Do(ctx, http.MethodGet, y.baseURL+"/watch?v="+videoID, engine.BrowserHeaders(), nil)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	if status != http.StatusOK {
		return nil, &engine.UpstreamError{Service: "youtube", Status: status, Body: string(body)}
	}
	return body, nil
}

// parseInitialPlayerResponse pulls ytInitialPlayerResponse out of watch page HTML.
func parseInitialPlayerResponse(page []byte) (*innertubePlayerResp, error) {
	idx := bytes.Index(page, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(page[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}
	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &playerResp, nil
}

// extractJSON returns the balanced JSON object at the start of b, or nil.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// FetchMetadata looks up the title and thumbnail of videoID.
// Private and age-restricted videos come back Blocked; every other failure
// is Unavailable. Two attempts are made under the lookup deadline.
func (y *YouTube) FetchMetadata(ctx context.Context, videoID string) engine.Result[engine.VideoMetadata] {
	if !IsValidVideoID(videoID) {
		return engine.Unavailable[engine.VideoMetadata](fmt.Errorf("invalid video id %q", videoID))
	}
	md, err := engine.WithTimeout(ctx, y.timeout, "metadata fetch", func(ctx context.Context) (engine.VideoMetadata, error) {
		return engine.RetryDo(ctx, engine.MetadataRetryConfig, func() (engine.VideoMetadata, error) {
			return y.fetchMetadata(ctx, videoID)
		})
	})
	switch {
	case err == nil:
		return engine.Ok(md)
	case errors.Is(err, engine.ErrPrivateVideo), errors.Is(err, engine.ErrAgeRestricted):
		engine.IncrMetadataErrors()
		return engine.Blocked[engine.VideoMetadata](err)
	default:
		engine.IncrMetadataErrors()
		slog.WarnContext(ctx, "youtube: metadata unavailable", slog.String("id", videoID), slog.Any("error", err))
		return engine.Unavailable[engine.VideoMetadata](err)
	}
}

func (y *YouTube) fetchMetadata(ctx context.Context, videoID string) (engine.VideoMetadata, error) {
	page, err := y.fetchWatchPage(ctx, videoID)
	if err != nil {
		return engine.VideoMetadata{}, err
	}

	playerResp, perr := parseInitialPlayerResponse(page)
	if perr == nil {
		if err := playabilityError(playerResp); err != nil {
			return engine.VideoMetadata{}, err
		}
		if vd := playerResp.VideoDetails; vd != nil && vd.Title != "" {
			md := engine.VideoMetadata{Title: vd.Title}
			if thumbs := vd.Thumbnail.Thumbnails; len(thumbs) > 0 && thumbs[0].URL != "" {
				u := thumbs[0].URL
				md.Thumbnail = &u
			}
			return md, nil
		}
	}

	md, err := metadataFromMetaTags(page)
	if err != nil {
		if perr != nil {
			return engine.VideoMetadata{}, fmt.Errorf("%w; %v", perr, err)
		}
		return engine.VideoMetadata{}, err
	}
	return md, nil
}

// playabilityError maps the player's playabilityStatus onto the two
// conditions that make a video impossible to process.
func playabilityError(resp *innertubePlayerResp) error {
	ps := resp.PlayabilityStatus
	if ps == nil || ps.Status == "OK" {
		return nil
	}
	reason := strings.ToLower(ps.Reason)
	switch {
	case strings.Contains(reason, "confirm your age"), ps.Status == "AGE_CHECK_REQUIRED":
		return engine.ErrAgeRestricted
	case strings.Contains(reason, "private video"), strings.Contains(reason, "video is private"):
		return engine.ErrPrivateVideo
	}
	return nil
}

// metadataFromMetaTags reads og:title / og:image from the watch page head.
func metadataFromMetaTags(page []byte) (engine.VideoMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return engine.VideoMetadata{}, fmt.Errorf("parse watch page: %w", err)
	}
	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find(`meta[name="title"]`).AttrOr("content", ""))
	}
	if title == "" {
		return engine.VideoMetadata{}, errors.New("no title in watch page")
	}
	md := engine.VideoMetadata{Title: title}
	if img := strings.TrimSpace(doc.Find(`meta[property="og:image"]`).AttrOr("content", "")); img != "" {
		md.Thumbnail = &img
	}
	return md, nil
}

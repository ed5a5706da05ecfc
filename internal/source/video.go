package source

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/popularity-vision/internal/normalize"
	"github.com/yourorg/popularity-vision/internal/seencache"
	"github.com/yourorg/popularity-vision/internal/types"
)

// Video collects workflow tutorials from a YouTube Data v3 style API:
// a search call lists video IDs per keyword page, a batched statistics call
// supplies view/like/comment counters for the whole page.
type Video struct {
	cfg    VideoConfig
	client *Client
	seen   *seencache.Cache
	log    *zap.Logger
}

type VideoConfig struct {
	BaseURL   string
	APIKey    string
	Limits    types.Limits
	PageDelay time.Duration
	// WatchURLBase prefixes source URLs; defaults to the public watch page.
	WatchURLBase string
}

func NewVideo(cfg VideoConfig, client *Client, seen *seencache.Cache, log *zap.Logger) *Video {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.WatchURLBase == "" {
		cfg.WatchURLBase = "https://www.youtube.com/watch?v="
	}
	return &Video{cfg: cfg, client: client, seen: seen, log: log.Named("video")}
}

func (v *Video) Platform() string { return types.PlatformVideo }

type videoSearchResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

type videoStatsResponse struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (v *Video) Collect(ctx context.Context, terms []string) ([]types.WorkflowRecord, error) {
	if v.cfg.APIKey == "" {
		// Configuration failure at the source level: the orchestrator turns
		// this into zero records for this source, not a failed run.
		return nil, errors.New("video source: api key not configured")
	}
	terms = v.cfg.Limits.CapTerms(terms)
	var out []types.WorkflowRecord
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := v.collectTerm(ctx, term, &out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (v *Video) collectTerm(ctx context.Context, term string, out *[]types.WorkflowRecord) error {
	pageToken := ""
	for page := 1; v.cfg.Limits.MaxPagesPerKeyword == 0 || page <= v.cfg.Limits.MaxPagesPerKeyword; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		u := fmt.Sprintf("%s/search?part=snippet&type=video&maxResults=50&q=%s&key=%s",
			v.cfg.BaseURL, url.QueryEscape(term), url.QueryEscape(v.cfg.APIKey))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}
		var res videoSearchResponse
		if err := v.client.FetchPage(ctx, u, &res); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			v.log.Warn("abandoning keyword", zap.String("term", term), zap.Int("page", page), zap.Error(err))
			return nil
		}
		if len(res.Items) == 0 {
			return nil
		}

		ids := make([]string, 0, len(res.Items))
		titles := make(map[string]string, len(res.Items))
		for _, it := range res.Items {
			id := it.ID.VideoID
			if id == "" || v.seen.Seen(types.PlatformVideo, id) {
				continue
			}
			ids = append(ids, id)
			titles[id] = html.UnescapeString(it.Snippet.Title)
		}
		if len(ids) > 0 {
			v.appendStats(ctx, ids, titles, out)
		}
		pageToken = res.NextPageToken
		if pageToken == "" {
			return nil
		}
		if err := v.client.Pause(ctx, v.cfg.PageDelay); err != nil {
			return err
		}
	}
	return nil
}

// appendStats fetches statistics for one page worth of videos. A failed
// statistics call drops just this page's items, mirroring item-level skips.
func (v *Video) appendStats(ctx context.Context, ids []string, titles map[string]string, out *[]types.WorkflowRecord) {
	u := fmt.Sprintf("%s/videos?part=statistics&id=%s&key=%s",
		v.cfg.BaseURL, url.QueryEscape(strings.Join(ids, ",")), url.QueryEscape(v.cfg.APIKey))
	var res videoStatsResponse
	if err := v.client.GetJSON(ctx, u, &res); err != nil {
		v.log.Warn("skipping statistics page", zap.Int("videos", len(ids)), zap.Error(err))
		return
	}
	for _, it := range res.Items {
		title := titles[it.ID]
		if title == "" {
			continue
		}
		_ = v.seen.Mark(types.PlatformVideo, it.ID)
		views := parseCount(it.Statistics.ViewCount)
		likes := parseCount(it.Statistics.LikeCount)
		comments := parseCount(it.Statistics.CommentCount)
		if views == 0 && likes == 0 && comments == 0 {
			continue
		}
		*out = append(*out, types.WorkflowRecord{
			WorkflowName: title,
			Platform:     types.PlatformVideo,
			Country:      types.CountryGlobal,
			Metrics:      normalize.VideoMetrics(views, likes, comments),
			SourceURL:    v.cfg.WatchURLBase + it.ID,
			CollectedAt:  time.Now().UTC(),
		})
	}
}

// parseCount tolerates the API's string-encoded counters.
func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/popularity-vision/internal/normalize"
	"github.com/yourorg/popularity-vision/internal/seencache"
	"github.com/yourorg/popularity-vision/internal/types"
)

// Forum collects workflow topics from a Discourse-style forum: search pages
// list matching topics, a per-topic call supplies view/reply/like counters.
type Forum struct {
	cfg    ForumConfig
	client *Client
	seen   *seencache.Cache
	log    *zap.Logger
}

type ForumConfig struct {
	BaseURL   string
	Limits    types.Limits
	PageDelay time.Duration
}

func NewForum(cfg ForumConfig, client *Client, seen *seencache.Cache, log *zap.Logger) *Forum {
	if log == nil {
		log = zap.NewNop()
	}
	return &Forum{cfg: cfg, client: client, seen: seen, log: log.Named("forum")}
}

func (f *Forum) Platform() string { return types.PlatformForum }

type forumSearchResponse struct {
	Topics              []forumTopic `json:"topics"`
	GroupedSearchResult struct {
		MoreFullPageResults bool `json:"more_full_page_results"`
	} `json:"grouped_search_result"`
}

type forumTopic struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type forumTopicDetail struct {
	Views      int64 `json:"views"`
	ReplyCount int64 `json:"reply_count"`
	LikeCount  int64 `json:"like_count"`
}

func (f *Forum) Collect(ctx context.Context, terms []string) ([]types.WorkflowRecord, error) {
	terms = f.cfg.Limits.CapTerms(terms)
	var out []types.WorkflowRecord
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		n, err := f.collectTerm(ctx, term, &out)
		if err != nil {
			return out, err
		}
		f.log.Info("keyword done", zap.String("term", term), zap.Int("records", n))
	}
	return out, nil
}

// collectTerm pages through search results for one keyword. Page fetch
// failures abandon the keyword only; item fetch failures skip the item only.
func (f *Forum) collectTerm(ctx context.Context, term string, out *[]types.WorkflowRecord) (int, error) {
	added := 0
	for page := 1; f.cfg.Limits.MaxPagesPerKeyword == 0 || page <= f.cfg.Limits.MaxPagesPerKeyword; page++ {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		u := fmt.Sprintf("%s/search.json?q=%s&page=%d", f.cfg.BaseURL, url.QueryEscape(term), page)
		var res forumSearchResponse
		if err := f.client.FetchPage(ctx, u, &res); err != nil {
			if ctx.Err() != nil {
				return added, ctx.Err()
			}
			f.log.Warn("abandoning keyword", zap.String("term", term), zap.Int("page", page), zap.Error(err))
			return added, nil
		}
		if len(res.Topics) == 0 {
			return added, nil
		}
		for _, tp := range res.Topics {
			if err := ctx.Err(); err != nil {
				return added, err
			}
			id := strconv.FormatInt(tp.ID, 10)
			if f.seen.Seen(types.PlatformForum, id) {
				continue
			}
			var detail forumTopicDetail
			if err := f.client.GetJSON(ctx, fmt.Sprintf("%s/t/%d.json", f.cfg.BaseURL, tp.ID), &detail); err != nil {
				if ctx.Err() != nil {
					return added, ctx.Err()
				}
				// Transient item-level failure: skip this topic, keep going.
				f.log.Warn("skipping topic", zap.Int64("topic", tp.ID), zap.Error(err))
				continue
			}
			_ = f.seen.Mark(types.PlatformForum, id)
			if detail.Views == 0 && detail.ReplyCount == 0 && detail.LikeCount == 0 {
				continue
			}
			*out = append(*out, types.WorkflowRecord{
				WorkflowName: tp.Title,
				Platform:     types.PlatformForum,
				Country:      types.CountryGlobal,
				Metrics:      normalize.ForumMetrics(detail.Views, detail.ReplyCount, detail.LikeCount),
				SourceURL:    fmt.Sprintf("%s/t/%s/%d", f.cfg.BaseURL, tp.Slug, tp.ID),
				CollectedAt:  time.Now().UTC(),
			})
			added++
		}
		if !res.GroupedSearchResult.MoreFullPageResults {
			return added, nil
		}
		if err := f.client.Pause(ctx, f.cfg.PageDelay); err != nil {
			return added, err
		}
	}
	return added, nil
}

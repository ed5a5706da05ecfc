package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/popularity-vision/internal/normalize"
	"github.com/yourorg/popularity-vision/internal/types"
)

// Trends collects relative search-interest series per keyword and country
// from a trend-analytics service. Records are synthetic (the keyword itself
// is the content), so they carry no source URL.
type Trends struct {
	cfg    TrendsConfig
	client *Client
	log    *zap.Logger
}

type TrendsConfig struct {
	BaseURL    string
	Countries  []string
	WindowDays int
	Limits     types.Limits
	PageDelay  time.Duration
}

func NewTrends(cfg TrendsConfig, client *Client, log *zap.Logger) *Trends {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	if len(cfg.Countries) == 0 {
		cfg.Countries = []string{"US"}
	}
	return &Trends{cfg: cfg, client: client, log: log.Named("trends")}
}

func (t *Trends) Platform() string { return types.PlatformTrends }

type trendsResponse struct {
	Points []struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	} `json:"points"`
}

func (t *Trends) Collect(ctx context.Context, terms []string) ([]types.WorkflowRecord, error) {
	terms = t.cfg.Limits.CapTerms(terms)
	var out []types.WorkflowRecord
	for _, term := range terms {
		for _, geo := range t.cfg.Countries {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			rec, ok := t.collectPair(ctx, term, geo)
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			if ok {
				out = append(out, rec)
			}
			if err := t.client.Pause(ctx, t.cfg.PageDelay); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// collectPair fetches one keyword/country interest window. Failures (after
// the retry loop) abandon just this pair.
func (t *Trends) collectPair(ctx context.Context, term, geo string) (types.WorkflowRecord, bool) {
	u := fmt.Sprintf("%s/api/interest?keyword=%s&geo=%s&days=%d",
		t.cfg.BaseURL, url.QueryEscape(term), url.QueryEscape(geo), t.cfg.WindowDays)
	var res trendsResponse
	if err := t.client.FetchPage(ctx, u, &res); err != nil {
		t.log.Warn("abandoning keyword/country pair",
			zap.String("term", term), zap.String("geo", geo), zap.Error(err))
		return types.WorkflowRecord{}, false
	}
	series := make([]float64, 0, len(res.Points))
	allZero := true
	for _, p := range res.Points {
		if p.Value != 0 {
			allZero = false
		}
		series = append(series, p.Value)
	}
	if len(series) == 0 || allZero {
		// No interest signal in the window: not a useful popularity sample.
		return types.WorkflowRecord{}, false
	}
	return types.WorkflowRecord{
		WorkflowName: term,
		Platform:     types.PlatformTrends,
		Country:      geo,
		Metrics:      normalize.TrendMetrics(series),
		CollectedAt:  time.Now().UTC(),
	}, true
}

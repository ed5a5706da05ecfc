package source

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yourorg/popularity-vision/internal/config"
	"github.com/yourorg/popularity-vision/internal/seencache"
	"github.com/yourorg/popularity-vision/internal/types"
)

// BuildOptions assembles adapters from application configuration.
type BuildOptions struct {
	Config config.Config
	Limits types.Limits
	// TrendsWindowDays overrides the configured window (deep runs).
	TrendsWindowDays int
	Seen             *seencache.Cache
	Logger           *zap.Logger
	// Sleep is forwarded to the shared client; tests inject a recorder.
	ClientOptions *ClientOptions
}

// BuildAll returns the three adapters in fixed priority order
// (Forum, Video, Trends).
func BuildAll(opts BuildOptions) []Adapter {
	adapters := make([]Adapter, 0, len(types.PriorityOrder))
	for _, platform := range types.PriorityOrder {
		adapters = append(adapters, ForPlatform(platform, opts))
	}
	return adapters
}

// ForPlatform builds a single adapter; it panics on unknown platform tags
// since those are compile-time constants everywhere in this repo.
func ForPlatform(platform string, opts BuildOptions) Adapter {
	cfg := opts.Config
	co := ClientOptions{ItemDelay: cfg.ItemDelay, Logger: opts.Logger}
	if opts.ClientOptions != nil {
		co = *opts.ClientOptions
	}
	client := NewClient(co)
	switch platform {
	case types.PlatformForum:
		return NewForum(ForumConfig{
			BaseURL:   cfg.ForumBaseURL,
			Limits:    opts.Limits,
			PageDelay: cfg.PageDelay,
		}, client, opts.Seen, opts.Logger)
	case types.PlatformVideo:
		return NewVideo(VideoConfig{
			BaseURL:   cfg.VideoBaseURL,
			APIKey:    cfg.VideoAPIKey,
			Limits:    opts.Limits,
			PageDelay: cfg.PageDelay,
		}, client, opts.Seen, opts.Logger)
	case types.PlatformTrends:
		window := cfg.TrendsWindowDays
		if opts.TrendsWindowDays > 0 {
			window = opts.TrendsWindowDays
		}
		return NewTrends(TrendsConfig{
			BaseURL:    cfg.TrendsBaseURL,
			Countries:  cfg.TrendsCountries,
			WindowDays: window,
			Limits:     opts.Limits,
			PageDelay:  cfg.PageDelay,
		}, client, opts.Logger)
	default:
		panic(fmt.Sprintf("unknown platform %q", platform))
	}
}

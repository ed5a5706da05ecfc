// Package normalize converts per-source raw counters into the common
// metrics vocabulary stored in popularity_metrics. All functions are pure.
package normalize

import (
	"math"

	"github.com/montanaflynn/stats"
)

// ratioPrecision is the fixed number of decimal places for every derived
// ratio, kept stable so repeated runs produce byte-identical metrics.
const ratioPrecision = 6

// slopeDeadZone maps near-flat regression slopes to "stable".
const slopeDeadZone = 0.05

// Trend directions derived from the interest series.
const (
	TrendingUp   = "trending_up"
	TrendingDown = "trending_down"
	TrendStable  = "stable"
)

// Round truncates v to the fixed ratio precision.
func Round(v float64) float64 {
	p := math.Pow10(ratioPrecision)
	return math.Round(v*p) / p
}

// Ratio returns count/total rounded, and exactly 0 when total is 0.
// Ratios are never computed by dividing by zero.
func Ratio(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return Round(float64(count) / float64(total))
}

// ForumMetrics normalizes forum topic counters (views, replies, likes).
func ForumMetrics(views, replies, likes int64) map[string]any {
	return map[string]any{
		"views":               views,
		"replies":             replies,
		"likes":               likes,
		"reply_to_view_ratio": Ratio(replies, views),
		"like_to_view_ratio":  Ratio(likes, views),
		"engagement_score":    Ratio(replies+likes, views),
	}
}

// VideoMetrics normalizes video statistics (views, likes, comments).
func VideoMetrics(views, likes, comments int64) map[string]any {
	return map[string]any{
		"views":                 views,
		"likes":                 likes,
		"comments":              comments,
		"like_to_view_ratio":    Ratio(likes, views),
		"comment_to_view_ratio": Ratio(comments, views),
		"engagement_score":      Ratio(likes+comments, views),
	}
}

// TrendMetrics normalizes a relative-interest series over a trailing window.
// In place of views/likes the object carries the interest index plus a trend
// direction from the sign of the linear-regression slope and the percentage
// change from window start to window end.
func TrendMetrics(series []float64) map[string]any {
	avg := 0.0
	peak := 0.0
	latest := 0.0
	for _, v := range series {
		avg += v
		if v > peak {
			peak = v
		}
	}
	if n := len(series); n > 0 {
		avg /= float64(n)
		latest = series[n-1]
	}
	return map[string]any{
		"average_interest": Round(avg),
		"latest_interest":  Round(latest),
		"peak_interest":    Round(peak),
		"trend_direction":  TrendDirection(series),
		"change_percent":   ChangePercent(series),
	}
}

// TrendDirection classifies the series by its least-squares slope, with a
// small dead zone around zero mapped to stable.
func TrendDirection(series []float64) string {
	slope := regressionSlope(series)
	switch {
	case slope > slopeDeadZone:
		return TrendingUp
	case slope < -slopeDeadZone:
		return TrendingDown
	default:
		return TrendStable
	}
}

// ChangePercent is the percentage change from window start to window end.
// A zero start value is treated as 1 for this computation only.
func ChangePercent(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	start := series[0]
	if start == 0 {
		start = 1
	}
	return Round((series[len(series)-1] - series[0]) / start * 100)
}

func regressionSlope(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	pts := make([]stats.Coordinate, len(series))
	for i, v := range series {
		pts[i] = stats.Coordinate{X: float64(i), Y: v}
	}
	fit, err := stats.LinearRegression(pts)
	if err != nil || len(fit) < 2 {
		return 0
	}
	return (fit[len(fit)-1].Y - fit[0].Y) / (fit[len(fit)-1].X - fit[0].X)
}

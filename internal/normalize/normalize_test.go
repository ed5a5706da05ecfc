package normalize

import "testing"

func TestRatioZeroDenominator(t *testing.T) {
	if got := Ratio(10, 0); got != 0 {
		t.Fatalf("Ratio(10,0)=%v; want 0", got)
	}
	if got := Ratio(0, 0); got != 0 {
		t.Fatalf("Ratio(0,0)=%v; want 0", got)
	}
}

func TestRatioPrecision(t *testing.T) {
	// 1/3 rounded to 6 places
	if got := Ratio(1, 3); got != 0.333333 {
		t.Fatalf("Ratio(1,3)=%v; want 0.333333", got)
	}
	if got := Ratio(2, 3); got != 0.666667 {
		t.Fatalf("Ratio(2,3)=%v; want 0.666667", got)
	}
}

func TestForumMetrics(t *testing.T) {
	m := ForumMetrics(200, 10, 30)
	if m["engagement_score"] != 0.2 {
		t.Fatalf("engagement_score=%v; want 0.2", m["engagement_score"])
	}
	if m["reply_to_view_ratio"] != 0.05 {
		t.Fatalf("reply_to_view_ratio=%v; want 0.05", m["reply_to_view_ratio"])
	}
	if m["like_to_view_ratio"] != 0.15 {
		t.Fatalf("like_to_view_ratio=%v; want 0.15", m["like_to_view_ratio"])
	}
}

func TestVideoMetricsZeroViews(t *testing.T) {
	m := VideoMetrics(0, 5, 5)
	for _, k := range []string{"like_to_view_ratio", "comment_to_view_ratio", "engagement_score"} {
		if m[k] != 0.0 {
			t.Fatalf("%s=%v; want 0 when views is 0", k, m[k])
		}
	}
}

func TestTrendDirection(t *testing.T) {
	cases := []struct {
		name   string
		series []float64
		want   string
	}{
		{"rising", []float64{10, 20, 30, 40, 50}, TrendingUp},
		{"falling", []float64{50, 40, 30, 20, 10}, TrendingDown},
		{"flat", []float64{30, 30, 30, 30, 30}, TrendStable},
		{"noise inside dead zone", []float64{30, 30.01, 29.99, 30.02, 30}, TrendStable},
		{"empty", nil, TrendStable},
		{"single point", []float64{42}, TrendStable},
	}
	for _, tc := range cases {
		if got := TrendDirection(tc.series); got != tc.want {
			t.Errorf("%s: TrendDirection=%q; want %q", tc.name, got, tc.want)
		}
	}
}

func TestChangePercent(t *testing.T) {
	if got := ChangePercent([]float64{50, 75}); got != 50 {
		t.Fatalf("ChangePercent=%v; want 50", got)
	}
	// Start value 0 is treated as 1 for the percentage only.
	if got := ChangePercent([]float64{0, 5}); got != 500 {
		t.Fatalf("ChangePercent from zero start=%v; want 500", got)
	}
	if got := ChangePercent([]float64{40}); got != 0 {
		t.Fatalf("ChangePercent single point=%v; want 0", got)
	}
}

func TestTrendMetricsShape(t *testing.T) {
	m := TrendMetrics([]float64{10, 20, 30})
	if m["average_interest"] != 20.0 {
		t.Fatalf("average_interest=%v; want 20", m["average_interest"])
	}
	if m["latest_interest"] != 30.0 {
		t.Fatalf("latest_interest=%v; want 30", m["latest_interest"])
	}
	if m["peak_interest"] != 30.0 {
		t.Fatalf("peak_interest=%v; want 30", m["peak_interest"])
	}
	if m["trend_direction"] != TrendingUp {
		t.Fatalf("trend_direction=%v; want %s", m["trend_direction"], TrendingUp)
	}
}

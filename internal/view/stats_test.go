package view

import (
	"testing"
	"time"

	"github.com/vibecheck/vibecheck-dash/internal/api"
)

func TestComputeStats(t *testing.T) {
	items := []api.Assessment{
		{Status: "queued"},
		{Status: "scanning"},
		{Status: "complete"},
		{Status: "failed"},
		{Status: "weird"},
	}
	s := ComputeStats(items)
	if s.Total != 5 || s.Active != 2 || s.Complete != 1 || s.Failed != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestSeverityHistogramCoversAllLevels(t *testing.T) {
	items := []api.Finding{
		{Severity: "high"},
		{Severity: "high"},
		{Severity: "info"},
		{Severity: "bogus"},
	}
	hist := SeverityHistogram(items)
	if len(hist) != len(SeverityLevels) {
		t.Fatalf("len = %d, want one bucket per level", len(hist))
	}
	byLevel := map[string]int{}
	for _, b := range hist {
		byLevel[b.Severity] = b.Count
	}
	if byLevel["high"] != 2 || byLevel["info"] != 1 || byLevel["critical"] != 0 {
		t.Fatalf("histogram = %v", hist)
	}
}

func TestTrendSeriesWindowAndOrder(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var items []api.Assessment
	for i := 0; i < 25; i++ {
		items = append(items, api.Assessment{
			ID:            "a",
			CreatedAt:     base.Add(time.Duration(24-i) * time.Hour), // newest first, server order
			FindingCounts: api.FindingCounts{"total": i},
		})
	}

	series := TrendSeries(items)
	if len(series) != 20 {
		t.Fatalf("len = %d, want 20 most recent", len(series))
	}
	for i := 1; i < len(series); i++ {
		if series[i].CreatedAt.Before(series[i-1].CreatedAt) {
			t.Fatalf("series not oldest-first at %d", i)
		}
	}
	// The five oldest assessments fall outside the window.
	if series[0].CreatedAt != base.Add(5*time.Hour) {
		t.Fatalf("window start = %v", series[0].CreatedAt)
	}
}

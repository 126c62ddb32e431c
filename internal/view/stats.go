package view

import (
	"sort"
	"time"

	"github.com/vibecheck/vibecheck-dash/internal/api"
)

// Stats are the dashboard headline counters.
type Stats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Complete int `json:"complete"`
	Failed   int `json:"failed"`
}

func ComputeStats(items []api.Assessment) Stats {
	s := Stats{Total: len(items)}
	for _, a := range items {
		switch {
		case api.IsActive(a.Status):
			s.Active++
		case a.Status == api.StatusComplete:
			s.Complete++
		case a.Status == api.StatusFailed:
			s.Failed++
		}
	}
	return s
}

// SeverityLevels is the display order of the severity histogram.
var SeverityLevels = []string{"critical", "high", "medium", "low", "info"}

// SeverityCount is one histogram bucket.
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

func SeverityHistogram(items []api.Finding) []SeverityCount {
	counts := make(map[string]int)
	for _, f := range items {
		counts[f.Severity]++
	}
	out := make([]SeverityCount, 0, len(SeverityLevels))
	for _, level := range SeverityLevels {
		out = append(out, SeverityCount{Severity: level, Count: counts[level]})
	}
	return out
}

const trendWindow = 20

// TrendPoint is one sample of the finding-count trend series.
type TrendPoint struct {
	CreatedAt time.Time `json:"created_at"`
	Total     int       `json:"total"`
}

// TrendSeries returns finding totals for the most recent assessments,
// oldest first, capped at the trend window.
func TrendSeries(items []api.Assessment) []TrendPoint {
	ordered := make([]api.Assessment, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	if len(ordered) > trendWindow {
		ordered = ordered[len(ordered)-trendWindow:]
	}

	out := make([]TrendPoint, 0, len(ordered))
	for _, a := range ordered {
		out = append(out, TrendPoint{CreatedAt: a.CreatedAt, Total: a.FindingCounts.Total()})
	}
	return out
}

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/vibecheck/vibecheck-dash/internal/view"
)

type dashboardResponse struct {
	Stats       view.Stats           `json:"stats"`
	Severity    []view.SeverityCount `json:"severity"`
	Trend       []view.TrendPoint    `json:"trend"`
	Assessments view.AssessmentPage  `json:"assessments"`
	Selected    string               `json:"selected"`
	Tracked     string               `json:"tracked"`
	AutoRefresh bool                 `json:"auto_refresh"`
}

// HandleDashboard serves everything the overview page needs in one shot:
// headline counters, the severity histogram for the selected assessment,
// the finding-count trend, and the current assessments page.
func (h *Handlers) HandleDashboard(c *echo.Context) error {
	all := h.Assessments.All()
	page := parsePageParam(c)
	selected := h.Assessments.Selected()

	resp := dashboardResponse{
		Stats:       view.ComputeStats(all),
		Trend:       view.TrendSeries(all),
		Assessments: view.Assessments(all, page, h.Cfg.AssessmentsPerPage),
		Selected:    selected,
		Tracked:     h.Tracker.Current(),
		AutoRefresh: h.Refresher.Running(),
	}

	if items, ok := h.Findings.ForOwner(selected); ok {
		resp.Severity = view.SeverityHistogram(items)
	} else {
		resp.Severity = view.SeverityHistogram(nil)
	}
	return c.JSON(http.StatusOK, resp)
}

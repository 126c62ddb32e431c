package handlers

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/vibecheck/vibecheck-dash/internal/view"
)

func parsePageParam(c *echo.Context) int {
	page := 1
	if rawPage := strings.TrimSpace(c.QueryParam("page")); rawPage != "" {
		if parsed, err := strconv.Atoi(rawPage); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return page
}

// parseFindingQuery reads the findings view configuration from the request.
// Pagination clamping itself happens inside the view pipeline.
func parseFindingQuery(c *echo.Context, perPage int) view.FindingQuery {
	sortKey := strings.TrimSpace(c.QueryParam("sort"))
	if sortKey != "created_at" {
		sortKey = "severity"
	}
	return view.FindingQuery{
		Search:   strings.TrimSpace(c.QueryParam("q")),
		Severity: strings.TrimSpace(c.QueryParam("severity")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		Agent:    strings.TrimSpace(c.QueryParam("agent")),
		SortKey:  sortKey,
		Page:     parsePageParam(c),
		PerPage:  perPage,
	}
}

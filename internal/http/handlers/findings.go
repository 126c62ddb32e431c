package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/vibecheck/vibecheck-dash/internal/api"
	"github.com/vibecheck/vibecheck-dash/internal/view"
)

type findingsResponse struct {
	view.FindingPage
	AssessmentID string   `json:"assessment_id"`
	Categories   []string `json:"categories"`
	Agents       []string `json:"agents"`
}

// HandleFindings serves the derived findings view: filtered, sorted, and
// paginated per the request's view configuration.
func (h *Handlers) HandleFindings(c *echo.Context) error {
	selected := h.Assessments.Selected()
	resp := findingsResponse{AssessmentID: selected}
	resp.Page = 1
	resp.TotalPages = 1
	resp.Items = []api.Finding{}

	items, ok := h.Findings.ForOwner(selected)
	if !ok {
		// No selection yet, or the collection is being swapped out.
		return c.JSON(http.StatusOK, resp)
	}

	q := parseFindingQuery(c, h.Cfg.FindingsPerPage)
	resp.FindingPage = view.Findings(items, q)
	resp.Categories, resp.Agents = view.FilterOptions(items)
	return c.JSON(http.StatusOK, resp)
}

type findingDetail struct {
	Finding           api.Finding `json:"finding"`
	LocationText      string      `json:"location_text"`
	EvidenceAvailable bool        `json:"evidence_available"`
}

func (h *Handlers) HandleFindingDetail(c *echo.Context) error {
	selected := h.Assessments.Selected()
	id := strings.TrimSpace(c.Param("id"))

	f, ok := h.Findings.Get(selected, id)
	if !ok {
		return respondError(c, &api.APIError{StatusCode: http.StatusNotFound, Message: "unknown finding " + id})
	}
	return c.JSON(http.StatusOK, findingDetail{
		Finding:           f,
		LocationText:      f.Location.Text(),
		EvidenceAvailable: f.HasEvidence(),
	})
}

// HandleAnalyzeFinding proxies the backend analyzer; the payload passes
// through untouched.
func (h *Handlers) HandleAnalyzeFinding(c *echo.Context) error {
	selected := h.Assessments.Selected()
	id := strings.TrimSpace(c.Param("id"))

	if _, ok := h.Findings.Get(selected, id); !ok {
		return respondError(c, api.ValidationError("select an assessment and finding first"))
	}

	payload, err := h.Client.AnalyzeFinding(c.Request().Context(), selected, id)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set("Content-Type", "application/json")
	c.Response().WriteHeader(http.StatusOK)
	_, err = c.Response().Write(payload)
	return err
}

// HandleFindingMemory runs the memory similarity search seeded with the
// finding's title and description.
func (h *Handlers) HandleFindingMemory(c *echo.Context) error {
	selected := h.Assessments.Selected()
	id := strings.TrimSpace(c.Param("id"))

	f, ok := h.Findings.Get(selected, id)
	if !ok {
		return respondError(c, api.ValidationError("select a finding first, then run memory search"))
	}
	query := strings.TrimSpace(f.Title + " " + f.Description)
	if query == "" {
		return respondError(c, api.ValidationError("selected finding has no searchable text"))
	}

	result, err := h.Client.SearchMemory(c.Request().Context(), query, 5, selected)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"selected_finding": f.ID,
		"memory_enabled":   result.Enabled,
		"results":          result.Results,
	})
}

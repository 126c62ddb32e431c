package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/vibecheck/vibecheck-dash/internal/api"
	"github.com/vibecheck/vibecheck-dash/internal/view"
)

type assessmentListResponse struct {
	view.AssessmentPage
	Selected string `json:"selected"`
}

// HandleAssessments serves one page of the assessment collection in server
// order.
func (h *Handlers) HandleAssessments(c *echo.Context) error {
	page := view.Assessments(h.Assessments.All(), parsePageParam(c), h.Cfg.AssessmentsPerPage)
	return c.JSON(http.StatusOK, assessmentListResponse{
		AssessmentPage: page,
		Selected:       h.Assessments.Selected(),
	})
}

type createAssessmentBody struct {
	Mode            string   `json:"mode"`
	RepoURL         string   `json:"repo_url"`
	TargetURL       string   `json:"target_url"`
	Agents          []string `json:"agents"`
	Depth           string   `json:"depth"`
	TunnelSessionID string   `json:"tunnel_session_id"`
	IdempotencyKey  string   `json:"idempotency_key"`
}

// HandleCreateAssessment validates the form, submits the create call, then
// selects and tracks the new assessment.
func (h *Handlers) HandleCreateAssessment(c *echo.Context) error {
	ctx := c.Request().Context()

	var body createAssessmentBody
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return respondError(c, api.ValidationError("request body must be JSON"))
	}

	req := api.CreateAssessmentRequest{
		Mode:            strings.TrimSpace(body.Mode),
		RepoURL:         strings.TrimSpace(body.RepoURL),
		TargetURL:       strings.TrimSpace(body.TargetURL),
		Agents:          body.Agents,
		Depth:           strings.TrimSpace(body.Depth),
		TunnelSessionID: strings.TrimSpace(body.TunnelSessionID),
		IdempotencyKey:  strings.TrimSpace(body.IdempotencyKey),
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	created, err := h.Client.CreateAssessment(ctx, req)
	if err != nil {
		return respondError(c, err)
	}

	h.Assessments.Select(created.ID)
	h.Findings.Invalidate(created.ID)
	h.Tracker.Track(created.ID)
	h.Tracker.RefreshList(ctx)

	return c.JSON(http.StatusCreated, created)
}

// HandleSelectAssessment makes an assessment the displayed one: it
// invalidates the previous findings collection, fetches the new one, and
// (re)starts live tracking while the assessment is still active.
func (h *Handlers) HandleSelectAssessment(c *echo.Context) error {
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return respondError(c, api.ValidationError("assessment id is required"))
	}

	record, ok := h.Assessments.Get(id)
	if !ok {
		// Unknown locally; a list refresh may have raced the click.
		h.Tracker.RefreshList(ctx)
		if record, ok = h.Assessments.Get(id); !ok {
			return respondError(c, &api.APIError{StatusCode: http.StatusNotFound, Message: "unknown assessment " + id})
		}
	}

	h.Assessments.Select(id)
	h.Findings.Invalidate(id)

	if api.IsActive(record.Status) {
		h.Tracker.Track(id)
	} else {
		h.Tracker.Untrack()
	}

	items, err := h.Client.ListFindings(ctx, id, h.Cfg.FindingsFetchLimit)
	if err != nil {
		return respondError(c, err)
	}
	if h.Assessments.Selected() == id {
		h.Findings.ReplaceAll(id, items)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"selected":      id,
		"status":        record.Status,
		"finding_count": len(items),
	})
}

// HandleRefresh re-fetches the assessment list and the selected findings on
// operator demand.
func (h *Handlers) HandleRefresh(c *echo.Context) error {
	ctx := c.Request().Context()

	list, err := h.Client.ListAssessments(ctx, h.Cfg.AssessmentsLimit)
	if err != nil {
		return respondError(c, err)
	}
	h.Assessments.ReplaceAll(list)

	if selected := h.Assessments.Selected(); selected != "" {
		h.Tracker.RefreshFindings(ctx, selected)
		if record, ok := h.Assessments.Get(selected); ok && api.IsActive(record.Status) {
			h.Tracker.Track(selected)
		}
	}

	return c.JSON(http.StatusOK, map[string]int{"assessments": len(list)})
}

// HandleAutoRefresh toggles the periodic background refresh loop.
func (h *Handlers) HandleAutoRefresh(c *echo.Context) error {
	running := h.Refresher.Toggle()
	return c.JSON(http.StatusOK, map[string]bool{"auto_refresh": running})
}

// HandleTunnelSessions lists connected tunnel sessions for the robust
// create form.
func (h *Handlers) HandleTunnelSessions(c *echo.Context) error {
	sessions, err := h.Client.ListTunnelSessions(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	connected := make([]api.TunnelSession, 0, len(sessions))
	for _, s := range sessions {
		if s.Status == "connected" {
			connected = append(connected, s)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"data": connected})
}

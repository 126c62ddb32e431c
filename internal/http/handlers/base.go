// Package handlers contains the dashboard HTTP handlers split by domain.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/vibecheck/vibecheck-dash/internal/api"
	"github.com/vibecheck/vibecheck-dash/internal/config"
	"github.com/vibecheck/vibecheck-dash/internal/export"
	"github.com/vibecheck/vibecheck-dash/internal/livesync"
	"github.com/vibecheck/vibecheck-dash/internal/store"
)

// BackendClient is the slice of the API client the handlers depend on.
type BackendClient interface {
	ListAssessments(ctx context.Context, limit int) ([]api.Assessment, error)
	GetAssessment(ctx context.Context, id string) (api.Assessment, error)
	CreateAssessment(ctx context.Context, req api.CreateAssessmentRequest) (api.Assessment, error)
	ListFindings(ctx context.Context, assessmentID string, limit int) ([]api.Finding, error)
	AnalyzeFinding(ctx context.Context, assessmentID, findingID string) (json.RawMessage, error)
	SearchMemory(ctx context.Context, query string, limit int, assessmentID string) (api.MemorySearchResult, error)
	ListTunnelSessions(ctx context.Context) ([]api.TunnelSession, error)
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Cfg         config.Config
	Client      BackendClient
	Assessments *store.Assessments
	Findings    *store.Findings
	Tracker     *livesync.Tracker
	Refresher   *livesync.Refresher
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// respondError maps the engine error taxonomy onto HTTP statuses and the
// backend's {error:{message}} envelope.
func respondError(c *echo.Context, err error) error {
	status := http.StatusBadGateway

	var verr api.ValidationError
	var apiErr *api.APIError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, export.ErrEmptySelection):
		status = http.StatusConflict
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
	}

	var body errorBody
	body.Error.Message = err.Error()
	return c.JSON(status, body)
}

func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/vibecheck/vibecheck-dash/internal/api"
	"github.com/vibecheck/vibecheck-dash/internal/export"
	"github.com/vibecheck/vibecheck-dash/internal/view"
)

// exportRows resolves the currently visible findings, unpaginated, honoring
// the same filter and sort parameters as the findings view.
func (h *Handlers) exportRows(c *echo.Context) (string, []api.Finding, error) {
	selected := h.Assessments.Selected()
	items, ok := h.Findings.ForOwner(selected)
	if !ok || len(items) == 0 {
		return "", nil, export.ErrEmptySelection
	}
	q := parseFindingQuery(c, h.Cfg.FindingsPerPage)
	return selected, view.Visible(items, q), nil
}

func (h *Handlers) HandleExportCSV(c *echo.Context) error {
	selected, rows, err := h.exportRows(c)
	if err != nil {
		return respondError(c, err)
	}
	payload, err := export.ToCSV(rows)
	if err != nil {
		return respondError(c, err)
	}
	return writeDownload(c, export.Filename(selected, "csv", time.Now()), "text/csv; charset=utf-8", payload)
}

func (h *Handlers) HandleExportJSON(c *echo.Context) error {
	selected, rows, err := h.exportRows(c)
	if err != nil {
		return respondError(c, err)
	}
	payload, err := export.ToJSON(rows)
	if err != nil {
		return respondError(c, err)
	}
	return writeDownload(c, export.Filename(selected, "json", time.Now()), "application/json", payload)
}

func writeDownload(c *echo.Context, name, contentType string, payload []byte) error {
	c.Response().Header().Set("Content-Type", contentType)
	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Response().WriteHeader(http.StatusOK)
	_, err := c.Response().Write(payload)
	return err
}

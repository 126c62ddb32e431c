package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v5"
)

const staticRoot = "web/static"

// HandleIndex serves the dashboard shell page.
func (h *Handlers) HandleIndex(c *echo.Context) error {
	page, err := os.ReadFile(filepath.Join(staticRoot, "index.html"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "dashboard shell not installed")
	}
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	_, err = c.Response().Write(page)
	return err
}

// Package httpapp wires the dashboard handlers into an Echo server.
package httpapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/vibecheck/vibecheck-dash/internal/http/handlers"
)

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h   *handlers.Handlers
	e   *echo.Echo
	srv *http.Server
}

// NewEchoServer creates a new HTTP server around the shared handler set.
func NewEchoServer(h *handlers.Handlers) *EchoServer {
	es := &EchoServer{h: h, e: echo.New()}
	es.e.HTTPErrorHandler = es.httpErrorHandler
	es.registerRoutes()
	return es
}

func (es *EchoServer) registerRoutes() {
	es.e.GET("/healthz", es.h.HandleHealthz)

	es.e.GET("/", es.h.HandleIndex)
	es.e.Static("/static", "web/static")

	es.e.GET("/api/dashboard", es.h.HandleDashboard)
	es.e.GET("/api/assessments", es.h.HandleAssessments)
	es.e.POST("/api/assessments", es.h.HandleCreateAssessment)
	es.e.POST("/api/assessments/:id/select", es.h.HandleSelectAssessment)
	es.e.POST("/api/refresh", es.h.HandleRefresh)
	es.e.POST("/api/auto-refresh", es.h.HandleAutoRefresh)

	es.e.GET("/api/findings", es.h.HandleFindings)
	es.e.GET("/api/findings/:id", es.h.HandleFindingDetail)
	es.e.POST("/api/findings/:id/analyze", es.h.HandleAnalyzeFinding)
	es.e.GET("/api/findings/:id/memory", es.h.HandleFindingMemory)

	es.e.GET("/api/tunnel-sessions", es.h.HandleTunnelSessions)

	es.e.GET("/export/findings.csv", es.h.HandleExportCSV)
	es.e.GET("/export/findings.json", es.h.HandleExportJSON)
}

// httpErrorHandler keeps unhandled errors in the same {error:{message}}
// envelope the API handlers use, without leaking internals.
func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		if status == http.StatusNotFound {
			message = "not found"
		} else if status == http.StatusMethodNotAllowed {
			message = "method not allowed"
		}
	}

	if r, _ := echo.UnwrapResponse(c.Response()); r != nil && r.Committed {
		return
	}
	body := map[string]map[string]string{"error": {"message": message}}
	_ = c.JSON(status, body)
}

// Start starts the HTTP server.
func (es *EchoServer) Start(addr string) error {
	return es.StartServer(&http.Server{Addr: addr})
}

// StartServer starts the HTTP server with a custom http.Server.
func (es *EchoServer) StartServer(server *http.Server) error {
	server.Handler = es.e
	es.srv = server
	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (es *EchoServer) Shutdown(ctx context.Context) error {
	if es.srv == nil {
		return nil
	}
	return es.srv.Shutdown(ctx)
}

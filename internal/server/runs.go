package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pagepilot/pagepilot/internal/agent/core"
	"github.com/pagepilot/pagepilot/internal/agent/telemetry"
)

// RunsHandler exposes the Agent Mode run lifecycle.
type RunsHandler struct {
	Orch      *core.Orchestrator
	Telemetry *telemetry.Telemetry
}

func (h *RunsHandler) Register(g *echo.Group) {
	g.POST("/runs", h.createRun)
	g.GET("/runs/:id", h.getRun)
	g.POST("/runs/:id/replay", h.replayRun)
	g.DELETE("/runs/:id", h.closeRun)
	g.GET("/metrics", h.getMetrics)
}

// createRun accepts a goal and kicks off execution in the background. The
// client polls GET /runs/:id for progress.
func (h *RunsHandler) createRun(c echo.Context) error {
	var req core.RunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	runID, err := h.Orch.StartRun(req)
	if err != nil {
		if errors.Is(err, core.ErrEmptyGoal) || errors.Is(err, core.ErrNoSpace) || errors.Is(err, core.ErrNoPages) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	go func() {
		// run context is owned by the orchestrator, not the HTTP request
		_, _ = h.Orch.ExecuteRun(context.Background(), runID)
	}()
	return c.JSON(http.StatusAccepted, map[string]string{"run_id": runID})
}

func (h *RunsHandler) getRun(c echo.Context) error {
	state, err := h.Orch.Status(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

// replayRun re-executes a finished run with the same request. The previous
// generation is cancelled; its late responses are dropped.
func (h *RunsHandler) replayRun(c echo.Context) error {
	runID := c.Param("id")
	if _, err := h.Orch.Status(runID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	go func() {
		_, _ = h.Orch.Replay(context.Background(), runID)
	}()
	return c.JSON(http.StatusAccepted, map[string]string{"run_id": runID})
}

func (h *RunsHandler) closeRun(c echo.Context) error {
	h.Orch.Close(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (h *RunsHandler) getMetrics(c echo.Context) error {
	if h.Telemetry == nil {
		return echo.NewHTTPError(http.StatusNotFound, "telemetry disabled")
	}
	return c.JSON(http.StatusOK, h.Telemetry.GetMetrics())
}

package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pagepilot/pagepilot/config"
	"github.com/pagepilot/pagepilot/internal/agent/core"
	"github.com/pagepilot/pagepilot/internal/agent/telemetry"
	"github.com/pagepilot/pagepilot/internal/gateway"
)

// Run wires the HTTP API and blocks serving it.
func Run(cfg *config.Config, addr string) error {
	tele := telemetry.NewTelemetry(cfg.Telemetry)
	gw := gateway.NewHTTPGateway(cfg.Gateway)
	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := core.NewOrchestrator(cfg, orchLogger, tele, gw)

	e := NewEcho(cfg, orch, gw, tele)

	if addr == "" {
		addr = cfg.Server.Address
	}
	if addr != "" && !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// NewEcho builds the echo instance with all routes registered. Split out from
// Run so tests can drive the handlers without binding a socket.
func NewEcho(cfg *config.Config, orch *core.Orchestrator, gw gateway.Client, tele *telemetry.Telemetry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if tele != nil {
		e.GET("/metrics", echo.WrapHandler(tele.Handler()))
	}

	api := e.Group("/api")
	if cfg.Server.JWTSecret != "" {
		api.Use(AuthMiddleware([]byte(cfg.Server.JWTSecret)))
	}

	rh := &RunsHandler{Orch: orch, Telemetry: tele}
	rh.Register(api.Group("/agent"))

	th := &ToolsHandler{Gateway: gw}
	th.Register(api)

	return e
}

package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pagepilot/pagepilot/internal/gateway"
)

// ToolsHandler exposes the individual backend tools for direct, single-shot
// use outside of Agent Mode.
type ToolsHandler struct {
	Gateway gateway.Client
}

func (h *ToolsHandler) Register(g *echo.Group) {
	g.GET("/spaces", h.getSpaces)
	g.GET("/spaces/:key/pages", h.getPages)
	g.GET("/spaces/:key/pages_with_type", h.getPagesWithType)

	g.POST("/search", h.search)
	g.POST("/code_assistant", h.codeAssistant)
	g.POST("/impact_analyzer", h.impactAnalyzer)
	g.POST("/test_support", h.testSupport)
	g.POST("/video_summarizer", h.videoSummarizer)
	g.GET("/spaces/:key/pages/:title/images", h.getImages)
	g.POST("/image_summary", h.imageSummary)
	g.POST("/create_chart", h.createChart)

	g.POST("/export", h.export)
	g.POST("/save", h.save)
}

// gatewayError maps backend failures onto 502 so clients can tell a broken
// gateway from a broken request.
func gatewayError(err error) error {
	var callErr *gateway.CallError
	if errors.As(err, &callErr) {
		return echo.NewHTTPError(http.StatusBadGateway, callErr.Error())
	}
	return err
}

func (h *ToolsHandler) getSpaces(c echo.Context) error {
	spaces, err := h.Gateway.GetSpaces(c.Request().Context())
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"spaces": spaces})
}

func (h *ToolsHandler) getPages(c echo.Context) error {
	pages, err := h.Gateway.GetPages(c.Request().Context(), c.Param("key"))
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"pages": pages})
}

func (h *ToolsHandler) getPagesWithType(c echo.Context) error {
	pages, err := h.Gateway.GetPagesWithType(c.Request().Context(), c.Param("key"))
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"pages": pages})
}

func (h *ToolsHandler) search(c echo.Context) error {
	var req gateway.SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.Gateway.Search(c.Request().Context(), req)
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ToolsHandler) codeAssistant(c echo.Context) error {
	var req gateway.CodeAssistRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.Gateway.CodeAssistant(c.Request().Context(), req)
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ToolsHandler) impactAnalyzer(c echo.Context) error {
	var req gateway.ImpactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.Gateway.ImpactAnalyzer(c.Request().Context(), req)
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ToolsHandler) testSupport(c echo.Context) error {
	var req gateway.TestSupportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.Gateway.TestSupport(c.Request().Context(), req)
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ToolsHandler) videoSummarizer(c echo.Context) error {
	var req gateway.VideoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.Gateway.VideoSummarizer(c.Request().Context(), req)
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ToolsHandler) getImages(c echo.Context) error {
	images, err := h.Gateway.GetImages(c.Request().Context(), c.Param("key"), c.Param("title"))
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"images": images})
}

func (h *ToolsHandler) imageSummary(c echo.Context) error {
	var req gateway.ImageSummaryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.Gateway.ImageSummary(c.Request().Context(), req)
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ToolsHandler) createChart(c echo.Context) error {
	var req gateway.ChartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.Gateway.CreateChart(c.Request().Context(), req)
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// export streams the rendered document back as a download.
func (h *ToolsHandler) export(c echo.Context) error {
	var req gateway.ExportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Format == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "format is required")
	}
	res, err := h.Gateway.ExportContent(c.Request().Context(), req)
	if err != nil {
		return gatewayError(err)
	}
	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if res.Filename != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+res.Filename+`"`)
	}
	return c.Blob(http.StatusOK, contentType, res.Data)
}

func (h *ToolsHandler) save(c echo.Context) error {
	var req gateway.SaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PageTitle == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "page_title and content are required")
	}
	res, err := h.Gateway.SaveToConfluence(c.Request().Context(), req)
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, res)
}

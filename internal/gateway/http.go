package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pagepilot/pagepilot/config"
)

// HTTPGateway talks JSON over HTTP to the backend AI service.
type HTTPGateway struct {
	baseURL string
	http    *HTTPClient
}

func NewHTTPGateway(cfg config.GatewayConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    NewHTTPClient(cfg.Timeout, cfg.Retries, cfg.Backoff),
	}
}

func (g *HTTPGateway) endpoint(path string) string { return g.baseURL + path }

func (g *HTTPGateway) GetSpaces(ctx context.Context) ([]Space, error) {
	var out struct {
		Spaces []Space `json:"spaces"`
	}
	if err := g.http.DoJSON(ctx, http.MethodGet, g.endpoint("/spaces"), nil, nil, &out); err != nil {
		return nil, &CallError{Op: "get_spaces", Err: err}
	}
	return out.Spaces, nil
}

func (g *HTTPGateway) GetPages(ctx context.Context, spaceKey string) ([]string, error) {
	var out struct {
		Pages []string `json:"pages"`
	}
	u := g.endpoint("/spaces/" + url.PathEscape(spaceKey) + "/pages")
	if err := g.http.DoJSON(ctx, http.MethodGet, u, nil, nil, &out); err != nil {
		return nil, &CallError{Op: "get_pages", Err: err}
	}
	return out.Pages, nil
}

func (g *HTTPGateway) GetPagesWithType(ctx context.Context, spaceKey string) ([]TypedPage, error) {
	var out struct {
		Pages []TypedPage `json:"pages"`
	}
	u := g.endpoint("/spaces/" + url.PathEscape(spaceKey) + "/pages_with_type")
	if err := g.http.DoJSON(ctx, http.MethodGet, u, nil, nil, &out); err != nil {
		return nil, &CallError{Op: "get_pages_with_type", Err: err}
	}
	return out.Pages, nil
}

func (g *HTTPGateway) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var out SearchResponse
	if err := g.http.DoJSON(ctx, http.MethodPost, g.endpoint("/search"), nil, req, &out); err != nil {
		return SearchResponse{}, &CallError{Op: "search", Err: err}
	}
	return out, nil
}

func (g *HTTPGateway) CodeAssistant(ctx context.Context, req CodeAssistRequest) (CodeAssistResponse, error) {
	var out CodeAssistResponse
	if err := g.http.DoJSON(ctx, http.MethodPost, g.endpoint("/code_assistant"), nil, req, &out); err != nil {
		return CodeAssistResponse{}, &CallError{Op: "code_assistant", Err: err}
	}
	return out, nil
}

func (g *HTTPGateway) ImpactAnalyzer(ctx context.Context, req ImpactRequest) (ImpactResponse, error) {
	var out ImpactResponse
	if err := g.http.DoJSON(ctx, http.MethodPost, g.endpoint("/impact_analyzer"), nil, req, &out); err != nil {
		return ImpactResponse{}, &CallError{Op: "impact_analyzer", Err: err}
	}
	return out, nil
}

func (g *HTTPGateway) TestSupport(ctx context.Context, req TestSupportRequest) (TestSupportResponse, error) {
	var out TestSupportResponse
	if err := g.http.DoJSON(ctx, http.MethodPost, g.endpoint("/test_support"), nil, req, &out); err != nil {
		return TestSupportResponse{}, &CallError{Op: "test_support", Err: err}
	}
	return out, nil
}

func (g *HTTPGateway) VideoSummarizer(ctx context.Context, req VideoRequest) (VideoResponse, error) {
	var out VideoResponse
	if err := g.http.DoJSON(ctx, http.MethodPost, g.endpoint("/video_summarizer"), nil, req, &out); err != nil {
		return VideoResponse{}, &CallError{Op: "video_summarizer", Err: err}
	}
	return out, nil
}

func (g *HTTPGateway) GetImages(ctx context.Context, spaceKey, pageTitle string) ([]string, error) {
	var out struct {
		Images []string `json:"images"`
	}
	u := g.endpoint("/spaces/" + url.PathEscape(spaceKey) + "/pages/" + url.PathEscape(pageTitle) + "/images")
	if err := g.http.DoJSON(ctx, http.MethodGet, u, nil, nil, &out); err != nil {
		return nil, &CallError{Op: "get_images", Err: err}
	}
	return out.Images, nil
}

func (g *HTTPGateway) ImageSummary(ctx context.Context, req ImageSummaryRequest) (ImageSummaryResponse, error) {
	var out ImageSummaryResponse
	if err := g.http.DoJSON(ctx, http.MethodPost, g.endpoint("/image_summary"), nil, req, &out); err != nil {
		return ImageSummaryResponse{}, &CallError{Op: "image_summary", Err: err}
	}
	return out, nil
}

func (g *HTTPGateway) CreateChart(ctx context.Context, req ChartRequest) (ChartResponse, error) {
	var out ChartResponse
	if err := g.http.DoJSON(ctx, http.MethodPost, g.endpoint("/create_chart"), nil, req, &out); err != nil {
		return ChartResponse{}, &CallError{Op: "create_chart", Err: err}
	}
	return out, nil
}

func (g *HTTPGateway) ExportContent(ctx context.Context, req ExportRequest) (ExportResult, error) {
	data, contentType, err := g.http.DoRaw(ctx, http.MethodPost, g.endpoint("/export"), nil, req)
	if err != nil {
		return ExportResult{}, &CallError{Op: "export", Err: err}
	}
	return ExportResult{Data: data, ContentType: contentType, Filename: req.Filename}, nil
}

func (g *HTTPGateway) SaveToConfluence(ctx context.Context, req SaveRequest) (SaveResponse, error) {
	var out SaveResponse
	if err := g.http.DoJSON(ctx, http.MethodPost, g.endpoint("/save"), nil, req, &out); err != nil {
		return SaveResponse{}, &CallError{Op: "save", Err: err}
	}
	return out, nil
}

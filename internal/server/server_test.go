package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pagepilot/pagepilot/config"
	"github.com/pagepilot/pagepilot/internal/agent/core"
	"github.com/pagepilot/pagepilot/internal/gateway"
)

// fakeGateway answers every tool with canned data.
type fakeGateway struct {
	failSearch bool
}

func (f *fakeGateway) GetSpaces(ctx context.Context) ([]gateway.Space, error) {
	return []gateway.Space{{Key: "ENG", Name: "Engineering"}}, nil
}

func (f *fakeGateway) GetPages(ctx context.Context, spaceKey string) ([]string, error) {
	return []string{"Docs"}, nil
}

func (f *fakeGateway) GetPagesWithType(ctx context.Context, spaceKey string) ([]gateway.TypedPage, error) {
	return []gateway.TypedPage{{Title: "Docs", ContentType: "text"}}, nil
}

func (f *fakeGateway) Search(ctx context.Context, req gateway.SearchRequest) (gateway.SearchResponse, error) {
	if f.failSearch {
		return gateway.SearchResponse{}, &gateway.CallError{Op: "search", Err: errors.New("backend down")}
	}
	return gateway.SearchResponse{Response: "found"}, nil
}

func (f *fakeGateway) CodeAssistant(ctx context.Context, req gateway.CodeAssistRequest) (gateway.CodeAssistResponse, error) {
	return gateway.CodeAssistResponse{Summary: "done"}, nil
}

func (f *fakeGateway) ImpactAnalyzer(ctx context.Context, req gateway.ImpactRequest) (gateway.ImpactResponse, error) {
	return gateway.ImpactResponse{ImpactAnalysis: "low"}, nil
}

func (f *fakeGateway) TestSupport(ctx context.Context, req gateway.TestSupportRequest) (gateway.TestSupportResponse, error) {
	return gateway.TestSupportResponse{TestStrategy: "plan"}, nil
}

func (f *fakeGateway) VideoSummarizer(ctx context.Context, req gateway.VideoRequest) (gateway.VideoResponse, error) {
	return gateway.VideoResponse{Summary: "clip"}, nil
}

func (f *fakeGateway) GetImages(ctx context.Context, spaceKey, pageTitle string) ([]string, error) {
	return []string{"http://x/a.png"}, nil
}

func (f *fakeGateway) ImageSummary(ctx context.Context, req gateway.ImageSummaryRequest) (gateway.ImageSummaryResponse, error) {
	return gateway.ImageSummaryResponse{Summary: "img"}, nil
}

func (f *fakeGateway) CreateChart(ctx context.Context, req gateway.ChartRequest) (gateway.ChartResponse, error) {
	return gateway.ChartResponse{ChartURL: "http://x/c.png"}, nil
}

func (f *fakeGateway) ExportContent(ctx context.Context, req gateway.ExportRequest) (gateway.ExportResult, error) {
	return gateway.ExportResult{Data: []byte("blob"), ContentType: "application/pdf", Filename: req.Filename}, nil
}

func (f *fakeGateway) SaveToConfluence(ctx context.Context, req gateway.SaveRequest) (gateway.SaveResponse, error) {
	return gateway.SaveResponse{Success: true}, nil
}

func newTestServer(t *testing.T, gw gateway.Client, jwtSecret string) *echo.Echo {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.JWTSecret = jwtSecret
	orch := core.NewOrchestrator(cfg, nil, nil, gw)
	return NewEcho(cfg, orch, gw, nil)
}

func doJSON(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, &fakeGateway{}, "")
	rec := doJSON(e, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}

func TestCreateRunAndPoll(t *testing.T) {
	e := newTestServer(t, &fakeGateway{}, "")

	rec := doJSON(e, http.MethodPost, "/api/agent/runs",
		`{"goal":"summarize the docs","space_key":"ENG","pages":["Docs"]}`, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("create run: %d %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	runID := created["run_id"]
	if runID == "" {
		t.Fatalf("missing run_id")
	}

	deadline := time.Now().Add(2 * time.Second)
	var state core.RunState
	for {
		rec = doJSON(e, http.MethodGet, "/api/agent/runs/"+runID, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get run: %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if state.Status == core.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run never completed, last state %s/%d", state.Status, state.Progress)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if state.Progress != 100 {
		t.Fatalf("progress: %d", state.Progress)
	}
	if len(state.Groups) == 0 {
		t.Fatalf("no output groups")
	}
}

func TestCreateRunValidation(t *testing.T) {
	e := newTestServer(t, &fakeGateway{}, "")
	rec := doJSON(e, http.MethodPost, "/api/agent/runs",
		`{"goal":"","space_key":"ENG","pages":["Docs"]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	e := newTestServer(t, &fakeGateway{}, "")
	rec := doJSON(e, http.MethodGet, "/api/agent/runs/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	secret := "test-secret"
	e := newTestServer(t, &fakeGateway{}, secret)

	rec := doJSON(e, http.MethodGet, "/api/spaces", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	tok, err := SignJWT("user-1", []byte(secret), time.Minute)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	rec = doJSON(e, http.MethodGet, "/api/spaces", "", map[string]string{"Authorization": "Bearer " + tok})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestExportDownload(t *testing.T) {
	e := newTestServer(t, &fakeGateway{}, "")
	rec := doJSON(e, http.MethodPost, "/api/export",
		`{"content":"# doc","format":"pdf","filename":"doc.pdf"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type: %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "doc.pdf") {
		t.Fatalf("content disposition: %q", cd)
	}
	if rec.Body.String() != "blob" {
		t.Fatalf("body: %q", rec.Body.String())
	}
}

func TestGatewayErrorMapsToBadGateway(t *testing.T) {
	e := newTestServer(t, &fakeGateway{failSearch: true}, "")
	rec := doJSON(e, http.MethodPost, "/api/search", `{"space_key":"ENG","query":"x"}`, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestSaveValidation(t *testing.T) {
	e := newTestServer(t, &fakeGateway{}, "")
	rec := doJSON(e, http.MethodPost, "/api/save", `{"space_key":"ENG"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = doJSON(e, http.MethodPost, "/api/save",
		`{"space_key":"ENG","page_title":"Result","content":"body"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}
}

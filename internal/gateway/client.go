package gateway

import (
	"context"
	"fmt"
)

// Client is the call contract of the remote AI backend. Every substantive
// operation (search, code transformation, summarization, risk scoring, image
// analysis) happens on the other side of this interface.
type Client interface {
	GetSpaces(ctx context.Context) ([]Space, error)
	GetPages(ctx context.Context, spaceKey string) ([]string, error)
	GetPagesWithType(ctx context.Context, spaceKey string) ([]TypedPage, error)

	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
	CodeAssistant(ctx context.Context, req CodeAssistRequest) (CodeAssistResponse, error)
	ImpactAnalyzer(ctx context.Context, req ImpactRequest) (ImpactResponse, error)
	TestSupport(ctx context.Context, req TestSupportRequest) (TestSupportResponse, error)
	VideoSummarizer(ctx context.Context, req VideoRequest) (VideoResponse, error)

	GetImages(ctx context.Context, spaceKey, pageTitle string) ([]string, error)
	ImageSummary(ctx context.Context, req ImageSummaryRequest) (ImageSummaryResponse, error)
	CreateChart(ctx context.Context, req ChartRequest) (ChartResponse, error)

	ExportContent(ctx context.Context, req ExportRequest) (ExportResult, error)
	SaveToConfluence(ctx context.Context, req SaveRequest) (SaveResponse, error)
}

// Space identifies a Confluence space.
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// TypedPage is a page title together with its classified content type.
type TypedPage struct {
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
}

type SearchRequest struct {
	SpaceKey   string   `json:"space_key"`
	PageTitles []string `json:"page_titles"`
	Query      string   `json:"query"`
}

type SearchResponse struct {
	Response string `json:"response"`
}

type CodeAssistRequest struct {
	SpaceKey       string `json:"space_key"`
	PageTitle      string `json:"page_title"`
	Instruction    string `json:"instruction"`
	TargetLanguage string `json:"target_language,omitempty"`
}

type CodeAssistResponse struct {
	OriginalCode  string `json:"original_code,omitempty"`
	ModifiedCode  string `json:"modified_code,omitempty"`
	ConvertedCode string `json:"converted_code,omitempty"`
	Summary       string `json:"summary,omitempty"`
}

type ImpactRequest struct {
	SpaceKey     string `json:"space_key"`
	OldPageTitle string `json:"old_page_title"`
	NewPageTitle string `json:"new_page_title"`
	Question     string `json:"question"`
}

type ImpactResponse struct {
	ImpactAnalysis   string  `json:"impact_analysis"`
	RiskScore        float64 `json:"risk_score,omitempty"`
	RiskLevel        string  `json:"risk_level,omitempty"`
	LinesAdded       int     `json:"lines_added,omitempty"`
	LinesRemoved     int     `json:"lines_removed,omitempty"`
	FilesChanged     int     `json:"files_changed,omitempty"`
	PercentageChange float64 `json:"percentage_change,omitempty"`
}

type TestSupportRequest struct {
	SpaceKey           string `json:"space_key"`
	CodePageTitle      string `json:"code_page_title"`
	TestInputPageTitle string `json:"test_input_page_title,omitempty"`
	Question           string `json:"question,omitempty"`
}

type TestSupportResponse struct {
	TestStrategy string `json:"test_strategy,omitempty"`
	AIResponse   string `json:"ai_response,omitempty"`
}

type VideoRequest struct {
	SpaceKey  string `json:"space_key"`
	PageTitle string `json:"page_title"`
}

type VideoResponse struct {
	Summary    string   `json:"summary"`
	Timestamps []string `json:"timestamps,omitempty"`
}

type ImageSummaryRequest struct {
	SpaceKey  string `json:"space_key"`
	PageTitle string `json:"page_title"`
	ImageURL  string `json:"image_url"`
}

type ImageSummaryResponse struct {
	Summary string `json:"summary"`
}

type ChartRequest struct {
	SpaceKey  string `json:"space_key"`
	PageTitle string `json:"page_title"`
	ChartType string `json:"chart_type,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
}

type ChartResponse struct {
	ChartURL string `json:"chart_url,omitempty"`
	ChartB64 string `json:"chart_b64,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

type ExportRequest struct {
	Content  string `json:"content"`
	Format   string `json:"format"`
	Filename string `json:"filename"`
}

// ExportResult carries the binary blob the gateway produced for download.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

type SaveRequest struct {
	SpaceKey  string `json:"space_key"`
	PageTitle string `json:"page_title"`
	Content   string `json:"content"`
}

type SaveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CallError wraps a failed gateway call with the operation that produced it.
// The orchestrator relies on it to report which backend step broke a run.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string { return fmt.Sprintf("gateway %s: %v", e.Op, e.Err) }

func (e *CallError) Unwrap() error { return e.Err }

package core

import (
	"errors"
	"time"
)

// Tool names a backend capability that can handle an instruction.
type Tool string

const (
	ToolSearch          Tool = "ai_powered_search"
	ToolCodeAssistant   Tool = "code_assistant"
	ToolImpactAnalyzer  Tool = "impact_analyzer"
	ToolTestSupport     Tool = "test_support"
	ToolVideoSummarizer Tool = "video_summarizer"
	ToolImageInsights   Tool = "image_insights"
	ToolChartBuilder    Tool = "chart_builder"
)

// Content types a page payload can be classified as.
const (
	ContentText  = "text"
	ContentCode  = "code"
	ContentVideo = "video"
	ContentImage = "image"
)

// DisplayCategory returns the output group label results for this tool
// accumulate under. Multiple instructions routed to the same tool share one
// group.
func (t Tool) DisplayCategory() string {
	switch t {
	case ToolImpactAnalyzer:
		return "Impact Analysed"
	case ToolTestSupport:
		return "Test Strategy"
	case ToolCodeAssistant:
		return "Page Results"
	case ToolVideoSummarizer:
		return "Video Summary"
	case ToolImageInsights:
		return "Image Insights"
	case ToolChartBuilder:
		return "Charts"
	default:
		return "Search Results"
	}
}

// Page is a selected Confluence page with its classified content type.
type Page struct {
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
}

// RoutingDecision ties an instruction to the tool and pages it resolved to.
type RoutingDecision struct {
	Instruction string `json:"instruction"`
	Tool        Tool   `json:"tool"`
	Pages       []Page `json:"pages"`
	FellBack    bool   `json:"fell_back,omitempty"`
}

// ResultEntry is one backend result attributed to the tool that produced it.
type ResultEntry struct {
	Key     string                 `json:"key"` // instruction or page title
	Tool    Tool                   `json:"tool"`
	Output  string                 `json:"output,omitempty"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// OutputGroup is a named bucket of result entries shown as one tab in the UI.
type OutputGroup struct {
	Name    string        `json:"name"`
	Entries []ResultEntry `json:"entries"`
}

// RunRequest is one Agent Mode submission.
type RunRequest struct {
	Goal     string   `json:"goal"`
	SpaceKey string   `json:"space_key"`
	Pages    []string `json:"pages"`
}

// Run lifecycle statuses.
const (
	StatusIdle      = "idle"
	StatusPlanning  = "planning"
	StatusExecuting = "executing"
	StatusCompleted = "completed"
)

// Phase labels reported alongside progress. They are cosmetic status markers:
// the instruction loop has already run to completion when both are marked done.
const (
	PhaseAnalyzing = "Analyzing Goal"
	PhaseExecuting = "Executing"
)

// RunState is the transient state of one run. It is created on submission and
// discarded on replay or close; nothing about it is persisted.
type RunState struct {
	RunID           string            `json:"run_id"`
	Generation      string            `json:"generation"`
	Status          string            `json:"status"`
	Progress        int               `json:"progress"` // 0, 50 or 100
	PhasesCompleted []string          `json:"phases_completed,omitempty"`
	Goal            string            `json:"goal"`
	SpaceKey        string            `json:"space_key"`
	Instructions    []string          `json:"instructions,omitempty"`
	Decisions       []RoutingDecision `json:"decisions,omitempty"`
	Groups          []OutputGroup     `json:"groups,omitempty"`
	Error           string            `json:"error,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at,omitempty"`
}

// RunResult is the final product of a run: the ordered output groups plus the
// single run-level error, if any backend call failed along the way.
type RunResult struct {
	RunID     string            `json:"run_id"`
	Goal      string            `json:"goal"`
	Groups    []OutputGroup     `json:"groups"`
	Decisions []RoutingDecision `json:"decisions"`
	Error     string            `json:"error,omitempty"`
	Elapsed   time.Duration     `json:"elapsed"`
}

// Validation errors, surfaced before any backend call is made.
var (
	ErrEmptyGoal = errors.New("goal is empty")
	ErrNoSpace   = errors.New("no space selected")
	ErrNoPages   = errors.New("no pages selected")
)

package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pagepilot/pagepilot/config"
	"github.com/pagepilot/pagepilot/internal/agent/telemetry"
	"github.com/pagepilot/pagepilot/internal/gateway"
)

var orchestratorTracer trace.Tracer = otel.Tracer("pagepilot/internal/agent/core")

// Orchestrator runs Agent Mode goals to completion: it splits the goal into
// instructions, routes each to a tool, matches pages, invokes the backend
// gateway sequentially and aggregates results into labeled output groups.
type Orchestrator struct {
	config    *config.Config
	logger    *log.Logger
	telemetry *telemetry.Telemetry
	gateway   gateway.Client

	mu   sync.RWMutex
	runs map[string]*runEntry
}

// runEntry tracks one run: its request for replay, its mutable state, and the
// cancel function for the generation currently executing. A generation
// cancelled by a replay must not touch the state again.
type runEntry struct {
	req    RunRequest
	state  RunState
	cancel context.CancelFunc
}

// NewOrchestrator creates a new orchestrator instance.
func NewOrchestrator(cfg *config.Config, logger *log.Logger, tele *telemetry.Telemetry, gw gateway.Client) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{
		config:    cfg,
		logger:    logger,
		telemetry: tele,
		gateway:   gw,
		runs:      make(map[string]*runEntry),
	}
}

// ValidateRequest checks run preconditions. It fails fast before any backend
// call is made.
func ValidateRequest(req RunRequest) error {
	if strings.TrimSpace(req.Goal) == "" {
		return ErrEmptyGoal
	}
	if strings.TrimSpace(req.SpaceKey) == "" {
		return ErrNoSpace
	}
	if len(req.Pages) == 0 {
		return ErrNoPages
	}
	return nil
}

// StartRun validates a request and registers a new idle run for it.
func (o *Orchestrator) StartRun(req RunRequest) (string, error) {
	if err := ValidateRequest(req); err != nil {
		return "", err
	}
	runID := uuid.New().String()
	o.mu.Lock()
	o.runs[runID] = &runEntry{
		req: req,
		state: RunState{
			RunID:    runID,
			Status:   StatusIdle,
			Goal:     req.Goal,
			SpaceKey: req.SpaceKey,
		},
	}
	o.mu.Unlock()
	return runID, nil
}

// ExecuteRun drives a registered run to completion. It is synchronous; the
// API layer decides whether to call it from a background goroutine.
func (o *Orchestrator) ExecuteRun(ctx context.Context, runID string) (RunResult, error) {
	o.mu.Lock()
	entry, ok := o.runs[runID]
	if !ok {
		o.mu.Unlock()
		return RunResult{}, fmt.Errorf("run not found: %s", runID)
	}
	generation := uuid.New().String()
	runCtx, cancel := context.WithCancel(ctx)
	entry.cancel = cancel
	entry.state = RunState{
		RunID:      runID,
		Generation: generation,
		Status:     StatusPlanning,
		Goal:       entry.req.Goal,
		SpaceKey:   entry.req.SpaceKey,
		StartedAt:  time.Now(),
	}
	req := entry.req
	o.mu.Unlock()
	defer cancel()

	if o.config != nil && o.config.Agent.RunTimeout > 0 {
		var tcancel context.CancelFunc
		runCtx, tcancel = context.WithTimeout(runCtx, o.config.Agent.RunTimeout)
		defer tcancel()
	}

	return o.process(runCtx, runID, generation, req), nil
}

// Process is the one-shot form used by the CLI: register, execute, return.
func (o *Orchestrator) Process(ctx context.Context, req RunRequest) (RunResult, error) {
	runID, err := o.StartRun(req)
	if err != nil {
		return RunResult{}, err
	}
	return o.ExecuteRun(ctx, runID)
}

// Replay restarts a run from idle with a fresh generation. The previous
// generation's context is cancelled so responses still in flight are
// discarded instead of landing in the new run's state.
func (o *Orchestrator) Replay(ctx context.Context, runID string) (RunResult, error) {
	o.mu.Lock()
	entry, ok := o.runs[runID]
	if !ok {
		o.mu.Unlock()
		return RunResult{}, fmt.Errorf("run not found: %s", runID)
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	entry.state = RunState{
		RunID:    runID,
		Status:   StatusIdle,
		Goal:     entry.req.Goal,
		SpaceKey: entry.req.SpaceKey,
	}
	o.mu.Unlock()
	return o.ExecuteRun(ctx, runID)
}

// Status returns the current state of a run.
func (o *Orchestrator) Status(runID string) (RunState, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	entry, ok := o.runs[runID]
	if !ok {
		return RunState{}, fmt.Errorf("run not found: %s", runID)
	}
	return entry.state, nil
}

// Close discards a run's transient state. Outstanding backend requests are
// cancelled via the run context.
func (o *Orchestrator) Close(runID string) {
	o.mu.Lock()
	if entry, ok := o.runs[runID]; ok && entry.cancel != nil {
		entry.cancel()
	}
	delete(o.runs, runID)
	o.mu.Unlock()
}

// process executes one generation of a run. Instructions run strictly
// sequentially; the first backend failure aborts the remaining iterations but
// partial results are kept and progress still reaches 100.
func (o *Orchestrator) process(ctx context.Context, runID, generation string, req RunRequest) RunResult {
	startTime := time.Now()
	ctx, span := orchestratorTracer.Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.space_key", req.SpaceKey),
			attribute.Int("run.page_count", len(req.Pages)),
		))
	defer span.End()

	o.logger.Printf("starting run %s (%d pages selected)", runID, len(req.Pages))

	agg := newAggregator()
	var decisions []RoutingDecision
	var runErr string

	instructions, err := SplitGoal(req.Goal)
	if err != nil {
		// StartRun already rejected empty goals; a delimiter-only goal still
		// ends up here and fails the same way.
		runErr = err.Error()
		instructions = nil
	}
	// cap before publishing so the state never advertises instructions that
	// will not execute
	if max := o.maxInstructions(); len(instructions) > max {
		instructions = instructions[:max]
	}
	o.updateState(runID, generation, func(s *RunState) {
		s.Status = StatusPlanning
		s.Progress = 0
		s.Instructions = instructions
	})
	span.AddEvent("plan.complete", trace.WithAttributes(attribute.Int("plan.instruction_count", len(instructions))))

	var selected []Page
	if runErr == "" {
		// content-type map is fetched once per run, not per instruction
		selected, err = o.resolvePages(ctx, req)
		if err != nil {
			runErr = err.Error()
			span.RecordError(err)
		}
	}

	if runErr == "" {
		o.updateState(runID, generation, func(s *RunState) { s.Status = StatusExecuting })
		for _, instruction := range instructions {
			routed := RouteInstruction(instruction)
			tool, pages, fellBack := MatchPages(instruction, routed, selected)
			decision := RoutingDecision{Instruction: instruction, Tool: tool, Pages: pages, FellBack: fellBack}
			decisions = append(decisions, decision)
			if o.telemetry != nil {
				o.telemetry.RecordInstruction(string(tool))
			}
			o.updateState(runID, generation, func(s *RunState) { s.Decisions = decisions })

			if err := o.executeInstruction(ctx, req.SpaceKey, decision, agg); err != nil {
				runErr = err.Error()
				span.RecordError(err)
				break
			}
		}
	}

	// cosmetic two-phase markers; the loop above already ran to completion
	o.updateState(runID, generation, func(s *RunState) {
		s.Progress = 50
		s.PhasesCompleted = []string{PhaseAnalyzing}
	})

	groups := agg.groups()
	groups = append(groups, reasoningGroup(decisions))
	groups = append(groups, selectedPagesGroup(selected))

	finished := time.Now()
	o.updateState(runID, generation, func(s *RunState) {
		s.Status = StatusCompleted
		s.Progress = 100
		s.PhasesCompleted = []string{PhaseAnalyzing, PhaseExecuting}
		s.Groups = groups
		s.Error = runErr
		s.FinishedAt = finished
	})

	if o.telemetry != nil {
		o.telemetry.RecordRunEvent(telemetry.RunEvent{
			RunID:        runID,
			Goal:         req.Goal,
			Instructions: len(instructions),
			StartTime:    startTime,
			EndTime:      finished,
			Success:      runErr == "",
			Error:        runErr,
		})
	}
	if runErr != "" {
		span.SetStatus(codes.Error, runErr)
		o.logger.Printf("run %s finished with error after %v: %s", runID, finished.Sub(startTime), runErr)
	} else {
		span.SetStatus(codes.Ok, "completed")
		o.logger.Printf("run %s completed in %v", runID, finished.Sub(startTime))
	}

	return RunResult{
		RunID:     runID,
		Goal:      req.Goal,
		Groups:    groups,
		Decisions: decisions,
		Error:     runErr,
		Elapsed:   finished.Sub(startTime),
	}
}

// resolvePages fetches the space's content-type map and projects the selected
// titles onto it. Unknown titles default to text so search still covers them.
func (o *Orchestrator) resolvePages(ctx context.Context, req RunRequest) ([]Page, error) {
	typed, err := o.gateway.GetPagesWithType(ctx, req.SpaceKey)
	if err != nil {
		return nil, err
	}
	types := make(map[string]string, len(typed))
	for _, p := range typed {
		types[p.Title] = p.ContentType
	}
	pages := make([]Page, 0, len(req.Pages))
	for _, title := range req.Pages {
		ct, ok := types[title]
		if !ok {
			ct = ContentText
		}
		pages = append(pages, Page{Title: title, ContentType: ct})
	}
	return pages, nil
}

// executeInstruction performs the backend calls for one routed instruction
// and feeds the results into the aggregator.
func (o *Orchestrator) executeInstruction(ctx context.Context, spaceKey string, d RoutingDecision, agg *aggregator) error {
	ctx, span := orchestratorTracer.Start(ctx, "agent.execute",
		trace.WithAttributes(
			attribute.String("tool", string(d.Tool)),
			attribute.Int("pages", len(d.Pages)),
		))
	defer span.End()

	switch d.Tool {
	case ToolImpactAnalyzer:
		oldPage, newPage := ImpactPair(d.Pages)
		res, err := timedCall(o, "impact_analyzer", func() (gateway.ImpactResponse, error) {
			return o.gateway.ImpactAnalyzer(ctx, gateway.ImpactRequest{
				SpaceKey:     spaceKey,
				OldPageTitle: oldPage.Title,
				NewPageTitle: newPage.Title,
				Question:     d.Instruction,
			})
		})
		if err != nil {
			return spanError(span, err)
		}
		agg.add(d.Tool, ResultEntry{
			Key:     oldPage.Title + " vs " + newPage.Title,
			Tool:    d.Tool,
			Output:  FormatImpact(res),
			Metrics: ImpactMetrics(res),
		})

	case ToolTestSupport:
		for _, page := range d.Pages {
			res, err := timedCall(o, "test_support", func() (gateway.TestSupportResponse, error) {
				return o.gateway.TestSupport(ctx, gateway.TestSupportRequest{
					SpaceKey:      spaceKey,
					CodePageTitle: page.Title,
					Question:      d.Instruction,
				})
			})
			if err != nil {
				return spanError(span, err)
			}
			agg.add(d.Tool, ResultEntry{Key: page.Title, Tool: d.Tool, Output: FormatTestSupport(res)})
		}

	case ToolCodeAssistant:
		for _, page := range d.Pages {
			res, err := timedCall(o, "code_assistant", func() (gateway.CodeAssistResponse, error) {
				return o.gateway.CodeAssistant(ctx, gateway.CodeAssistRequest{
					SpaceKey:    spaceKey,
					PageTitle:   page.Title,
					Instruction: d.Instruction,
				})
			})
			if err != nil {
				return spanError(span, err)
			}
			agg.add(d.Tool, ResultEntry{Key: page.Title, Tool: d.Tool, Output: FormatCodeAssist(res)})
		}

	case ToolVideoSummarizer:
		for _, page := range d.Pages {
			res, err := timedCall(o, "video_summarizer", func() (gateway.VideoResponse, error) {
				return o.gateway.VideoSummarizer(ctx, gateway.VideoRequest{SpaceKey: spaceKey, PageTitle: page.Title})
			})
			if err != nil {
				return spanError(span, err)
			}
			agg.add(d.Tool, ResultEntry{Key: page.Title, Tool: d.Tool, Output: FormatVideoSummary(res)})
		}

	case ToolImageInsights, ToolChartBuilder:
		for _, page := range d.Pages {
			if err := o.executeImages(ctx, spaceKey, page, d, agg); err != nil {
				return spanError(span, err)
			}
		}

	default: // ai_powered_search
		titles := make([]string, 0, len(d.Pages))
		for _, page := range d.Pages {
			titles = append(titles, page.Title)
		}
		res, err := timedCall(o, "search", func() (gateway.SearchResponse, error) {
			return o.gateway.Search(ctx, gateway.SearchRequest{SpaceKey: spaceKey, PageTitles: titles, Query: d.Instruction})
		})
		if err != nil {
			return spanError(span, err)
		}
		agg.add(d.Tool, ResultEntry{Key: d.Instruction, Tool: d.Tool, Output: FormatSearch(res)})
	}

	span.SetStatus(codes.Ok, "completed")
	return nil
}

func (o *Orchestrator) executeImages(ctx context.Context, spaceKey string, page Page, d RoutingDecision, agg *aggregator) error {
	if d.Tool == ToolChartBuilder {
		res, err := timedCall(o, "create_chart", func() (gateway.ChartResponse, error) {
			return o.gateway.CreateChart(ctx, gateway.ChartRequest{SpaceKey: spaceKey, PageTitle: page.Title, Prompt: d.Instruction})
		})
		if err != nil {
			return err
		}
		out := res.Summary
		if res.ChartURL != "" {
			out = fmt.Sprintf("![](%s)\n\n%s", res.ChartURL, res.Summary)
		}
		agg.add(d.Tool, ResultEntry{Key: page.Title, Tool: d.Tool, Output: out})
		return nil
	}

	images, err := timedCall(o, "get_images", func() ([]string, error) {
		return o.gateway.GetImages(ctx, spaceKey, page.Title)
	})
	if err != nil {
		return err
	}
	for _, img := range images {
		res, err := timedCall(o, "image_summary", func() (gateway.ImageSummaryResponse, error) {
			return o.gateway.ImageSummary(ctx, gateway.ImageSummaryRequest{SpaceKey: spaceKey, PageTitle: page.Title, ImageURL: img})
		})
		if err != nil {
			return err
		}
		agg.add(d.Tool, ResultEntry{Key: page.Title, Tool: d.Tool, Output: FormatImageSummary(img, res)})
	}
	return nil
}

// timedCall wraps a single gateway invocation with call telemetry.
func timedCall[T any](o *Orchestrator, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	res, err := fn()
	if o.telemetry != nil {
		o.telemetry.RecordCallEvent(telemetry.CallEvent{
			Operation: op,
			Duration:  time.Since(start),
			Success:   err == nil,
		})
	}
	return res, err
}

func (o *Orchestrator) maxInstructions() int {
	if o.config != nil && o.config.Agent.MaxInstructions > 0 {
		return o.config.Agent.MaxInstructions
	}
	return 20
}

// updateState applies fn to the run's state only while the generation is
// still current; a replay swaps the generation and strands stale updates.
func (o *Orchestrator) updateState(runID, generation string, fn func(*RunState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.runs[runID]
	if !ok || entry.state.Generation != generation {
		return
	}
	fn(&entry.state)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

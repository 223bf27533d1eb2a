package core

import (
	"regexp"
	"strings"
)

// RouteRule pairs an intent pattern with the tool it selects.
type RouteRule struct {
	Pattern *regexp.Regexp
	Tool    Tool
}

// RouteRules is the ordered dispatch table: the first matching rule wins and
// no scores are combined across rules. The order is load-bearing. An
// instruction like "convert and summarize video" routes to code_assistant
// because the convert rule sits above the video rule; that mis-routing is
// pinned by regression tests, do not reorder.
var RouteRules = []RouteRule{
	{regexp.MustCompile(`impact|change|difference|diff`), ToolImpactAnalyzer},
	{regexp.MustCompile(`test|qa|test case|unit test`), ToolTestSupport},
	{regexp.MustCompile(`convert|debug|refactor|fix|bug|error`), ToolCodeAssistant},
	{regexp.MustCompile(`video|summarize.*video|transcribe`), ToolVideoSummarizer},
	{regexp.MustCompile(`image|chart|diagram|visual`), ToolImageInsights},
}

// DefaultTool handles instructions no rule matches.
const DefaultTool = ToolSearch

// RouteInstruction maps an instruction to exactly one tool by evaluating the
// rule table against the lower-cased instruction.
func RouteInstruction(instruction string) Tool {
	lowered := strings.ToLower(instruction)
	for _, rule := range RouteRules {
		if rule.Pattern.MatchString(lowered) {
			return rule.Tool
		}
	}
	return DefaultTool
}

package core

// requiredContentType gates which pages a tool may operate on.
var requiredContentType = map[Tool]string{
	ToolCodeAssistant:   ContentCode,
	ToolImpactAnalyzer:  ContentCode,
	ToolTestSupport:     ContentCode,
	ToolVideoSummarizer: ContentVideo,
	ToolImageInsights:   ContentImage,
	ToolChartBuilder:    ContentImage,
	ToolSearch:          ContentText,
}

// MatchPages cross-references the selected pages' content types with the
// routed tool. When no page is compatible it degrades to the first selected
// page with the instruction re-routed, without re-checking compatibility.
// The result is a best-effort single-page call rather than an error.
func MatchPages(instruction string, tool Tool, selected []Page) (Tool, []Page, bool) {
	want := requiredContentType[tool]
	var matched []Page
	for _, p := range selected {
		if p.ContentType == want {
			matched = append(matched, p)
		}
	}
	if len(matched) > 0 {
		return tool, matched, false
	}
	if len(selected) == 0 {
		return tool, nil, false
	}
	return RouteInstruction(instruction), []Page{selected[0]}, true
}

// ImpactPair picks the page pair an impact comparison runs over: the first
// two matched pages in selection order, or a self-comparison (old == new)
// when only one page matched, which yields a zero/low-risk result.
func ImpactPair(matched []Page) (Page, Page) {
	if len(matched) == 0 {
		return Page{}, Page{}
	}
	if len(matched) == 1 {
		return matched[0], matched[0]
	}
	return matched[0], matched[1]
}

package core

import (
	"fmt"
	"strings"
)

// aggregator buckets result entries under their tool's display category,
// preserving the order in which categories first appear. Two instructions
// routed to the same tool land in the same group.
type aggregator struct {
	order   []string
	entries map[string][]ResultEntry
}

func newAggregator() *aggregator {
	return &aggregator{entries: make(map[string][]ResultEntry)}
}

func (a *aggregator) add(tool Tool, entry ResultEntry) {
	name := tool.DisplayCategory()
	if _, ok := a.entries[name]; !ok {
		a.order = append(a.order, name)
	}
	a.entries[name] = append(a.entries[name], entry)
}

func (a *aggregator) groups() []OutputGroup {
	groups := make([]OutputGroup, 0, len(a.order))
	for _, name := range a.order {
		groups = append(groups, OutputGroup{Name: name, Entries: a.entries[name]})
	}
	return groups
}

// reasoningGroup renders the routing decisions as a group of their own so the
// user can see which tool every instruction resolved to.
func reasoningGroup(decisions []RoutingDecision) OutputGroup {
	group := OutputGroup{Name: "Reasoning"}
	for _, d := range decisions {
		titles := make([]string, 0, len(d.Pages))
		for _, p := range d.Pages {
			titles = append(titles, p.Title)
		}
		line := fmt.Sprintf("Routed to **%s** over %s", d.Tool, pageList(titles))
		if d.FellBack {
			line += " (no compatible page, fell back to first selection)"
		}
		group.Entries = append(group.Entries, ResultEntry{
			Key:    d.Instruction,
			Tool:   d.Tool,
			Output: line,
		})
	}
	return group
}

// selectedPagesGroup lists the resolved page selection with content types.
func selectedPagesGroup(selected []Page) OutputGroup {
	group := OutputGroup{Name: "Selected Pages"}
	for _, p := range selected {
		group.Entries = append(group.Entries, ResultEntry{
			Key:    p.Title,
			Output: p.ContentType,
		})
	}
	return group
}

func pageList(titles []string) string {
	if len(titles) == 0 {
		return "no pages"
	}
	return strings.Join(titles, ", ")
}

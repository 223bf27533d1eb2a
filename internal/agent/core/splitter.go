package core

import (
	"regexp"
	"strings"
)

// Instruction delimiters: the coordinating words "and"/"then" on word
// boundaries (case-insensitive), newlines, periods and semicolons. There is no
// nested-clause awareness, so an "and" inside a quoted value still splits.
var instructionDelimiter = regexp.MustCompile(`(?i)\band\b|\bthen\b|[\n.;]`)

// SplitGoal breaks a free-text goal into an ordered sequence of trimmed
// instructions. A goal with no delimiters yields a single-element sequence
// equal to the trimmed goal.
func SplitGoal(goal string) ([]string, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, ErrEmptyGoal
	}
	parts := instructionDelimiter.Split(goal, -1)
	instructions := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		instructions = append(instructions, p)
	}
	if len(instructions) == 0 {
		// delimiters only, e.g. "and then." — treat like an empty goal
		return nil, ErrEmptyGoal
	}
	return instructions, nil
}

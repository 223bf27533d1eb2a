package core

import (
	"fmt"
	"strings"

	"github.com/pagepilot/pagepilot/internal/gateway"
)

// Formatting utilities: pure functions that turn gateway responses into the
// markdown-ish display strings the widget renders. They hold no state and
// never call the backend.

func FormatSearch(res gateway.SearchResponse) string {
	return strings.TrimSpace(res.Response)
}

func FormatCodeAssist(res gateway.CodeAssistResponse) string {
	var b strings.Builder
	if res.Summary != "" {
		b.WriteString(strings.TrimSpace(res.Summary))
		b.WriteString("\n")
	}
	if res.OriginalCode != "" {
		b.WriteString("\n**Original**\n```\n" + strings.TrimRight(res.OriginalCode, "\n") + "\n```\n")
	}
	if res.ModifiedCode != "" {
		b.WriteString("\n**Modified**\n```\n" + strings.TrimRight(res.ModifiedCode, "\n") + "\n```\n")
	}
	if res.ConvertedCode != "" {
		b.WriteString("\n**Converted**\n```\n" + strings.TrimRight(res.ConvertedCode, "\n") + "\n```\n")
	}
	return strings.TrimSpace(b.String())
}

func FormatImpact(res gateway.ImpactResponse) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(res.ImpactAnalysis))
	var metrics []string
	if res.RiskLevel != "" {
		metrics = append(metrics, fmt.Sprintf("Risk: %s (%.1f)", res.RiskLevel, res.RiskScore))
	} else if res.RiskScore > 0 {
		metrics = append(metrics, fmt.Sprintf("Risk score: %.1f", res.RiskScore))
	}
	if res.LinesAdded > 0 || res.LinesRemoved > 0 {
		metrics = append(metrics, fmt.Sprintf("+%d/-%d lines", res.LinesAdded, res.LinesRemoved))
	}
	if res.FilesChanged > 0 {
		metrics = append(metrics, fmt.Sprintf("%d files changed", res.FilesChanged))
	}
	if res.PercentageChange > 0 {
		metrics = append(metrics, fmt.Sprintf("%.1f%% changed", res.PercentageChange))
	}
	if len(metrics) > 0 {
		b.WriteString("\n\n" + strings.Join(metrics, " · "))
	}
	return strings.TrimSpace(b.String())
}

// ImpactMetrics exposes the structured risk fields for result entries so the
// widget can render gauges instead of parsing the display string.
func ImpactMetrics(res gateway.ImpactResponse) map[string]interface{} {
	m := map[string]interface{}{}
	if res.RiskScore > 0 {
		m["risk_score"] = res.RiskScore
	}
	if res.RiskLevel != "" {
		m["risk_level"] = res.RiskLevel
	}
	if res.LinesAdded > 0 {
		m["lines_added"] = res.LinesAdded
	}
	if res.LinesRemoved > 0 {
		m["lines_removed"] = res.LinesRemoved
	}
	if res.FilesChanged > 0 {
		m["files_changed"] = res.FilesChanged
	}
	if res.PercentageChange > 0 {
		m["percentage_change"] = res.PercentageChange
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func FormatTestSupport(res gateway.TestSupportResponse) string {
	if strings.TrimSpace(res.TestStrategy) != "" {
		return strings.TrimSpace(res.TestStrategy)
	}
	return strings.TrimSpace(res.AIResponse)
}

func FormatVideoSummary(res gateway.VideoResponse) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(res.Summary))
	if len(res.Timestamps) > 0 {
		b.WriteString("\n\n**Timestamps**\n")
		for _, ts := range res.Timestamps {
			b.WriteString("- " + ts + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func FormatImageSummary(imageURL string, res gateway.ImageSummaryResponse) string {
	summary := strings.TrimSpace(res.Summary)
	if imageURL == "" {
		return summary
	}
	return fmt.Sprintf("![](%s)\n\n%s", imageURL, summary)
}

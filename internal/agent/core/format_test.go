package core

import (
	"strings"
	"testing"

	"github.com/pagepilot/pagepilot/internal/gateway"
)

func TestFormatCodeAssist(t *testing.T) {
	out := FormatCodeAssist(gateway.CodeAssistResponse{
		Summary:      "Renamed the handler.",
		OriginalCode: "func a() {}",
		ModifiedCode: "func b() {}",
	})
	if !strings.Contains(out, "Renamed the handler.") {
		t.Fatalf("summary missing: %q", out)
	}
	if !strings.Contains(out, "**Original**") || !strings.Contains(out, "**Modified**") {
		t.Fatalf("code sections missing: %q", out)
	}
	if strings.Contains(out, "**Converted**") {
		t.Fatalf("empty converted section rendered: %q", out)
	}
}

func TestFormatImpact(t *testing.T) {
	out := FormatImpact(gateway.ImpactResponse{
		ImpactAnalysis: "Low risk change.",
		RiskScore:      2.5,
		RiskLevel:      "low",
		LinesAdded:     10,
		LinesRemoved:   3,
		FilesChanged:   2,
	})
	if !strings.Contains(out, "Low risk change.") {
		t.Fatalf("analysis missing: %q", out)
	}
	if !strings.Contains(out, "Risk: low (2.5)") || !strings.Contains(out, "+10/-3 lines") {
		t.Fatalf("metric line wrong: %q", out)
	}
}

func TestImpactMetrics(t *testing.T) {
	if m := ImpactMetrics(gateway.ImpactResponse{ImpactAnalysis: "no metrics"}); m != nil {
		t.Fatalf("expected nil metrics, got %v", m)
	}
	m := ImpactMetrics(gateway.ImpactResponse{RiskScore: 7.0, RiskLevel: "high"})
	if m["risk_level"] != "high" {
		t.Fatalf("metrics map wrong: %v", m)
	}
}

func TestFormatTestSupportPrefersStrategy(t *testing.T) {
	out := FormatTestSupport(gateway.TestSupportResponse{TestStrategy: "strategy", AIResponse: "fallback"})
	if out != "strategy" {
		t.Fatalf("got %q", out)
	}
	out = FormatTestSupport(gateway.TestSupportResponse{AIResponse: "fallback"})
	if out != "fallback" {
		t.Fatalf("got %q", out)
	}
}

func TestFormatVideoSummary(t *testing.T) {
	out := FormatVideoSummary(gateway.VideoResponse{
		Summary:    "A walkthrough.",
		Timestamps: []string{"00:10 intro", "01:30 demo"},
	})
	if !strings.Contains(out, "**Timestamps**") || !strings.Contains(out, "- 01:30 demo") {
		t.Fatalf("timestamps missing: %q", out)
	}
}

func TestFormatImageSummary(t *testing.T) {
	out := FormatImageSummary("http://x/img.png", gateway.ImageSummaryResponse{Summary: "A diagram."})
	if !strings.HasPrefix(out, "![](http://x/img.png)") || !strings.Contains(out, "A diagram.") {
		t.Fatalf("got %q", out)
	}
	if out := FormatImageSummary("", gateway.ImageSummaryResponse{Summary: "plain"}); out != "plain" {
		t.Fatalf("empty url: got %q", out)
	}
}

package export

import (
	"strings"
	"testing"

	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

func TestMarkdownIncludesSections(t *testing.T) {
	rating := 8.5
	rec := domain.AnalysisRecord{
		VideoID:    "dQw4w9WgXcQ",
		Title:      "Phone Review",
		Summary:    "A good phone.",
		VideoType:  domain.TypeReview,
		StudyNotes: []domain.StudySection{{Title: "Specs", Points: []string{"6 inch", "OLED"}}},
		Themes:     []domain.Theme{{Topic: "Battery", Details: "Lasts two days", Emoji: "🔋"}},
		ReviewDetails: &domain.ReviewDetails{
			Item: "Pixel", Rating: &rating, Pros: []string{"camera"}, Cons: []string{}, Verdict: "Buy it",
		},
	}
	md := Markdown(rec)
	for _, want := range []string{
		"# Phone Review",
		"**Type:** Review",
		"## Summary\n\nA good phone.",
		"### Specs",
		"- OLED",
		"- **🔋 Battery**: Lasts two days",
		"**Rating:** 8.5/10",
		"**Verdict:** Buy it",
		"### Pros\n\n- camera",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "### Cons") {
		t.Fatalf("empty cons list should be omitted")
	}
}

func TestMarkdownWithoutOptionalSections(t *testing.T) {
	md := Markdown(domain.AnalysisRecord{Title: "T", Summary: "S"})
	if strings.Contains(md, "Study Notes") || strings.Contains(md, "Review") || strings.Contains(md, "Key Themes") {
		t.Fatalf("unexpected sections:\n%s", md)
	}
}

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"My Video: Part 1!": "MyVideoPart1.md",
		"???":               "analysis.md",
		"":                  "analysis.md",
		"Café Über 2":       "Cafber2.md",
		"東京ガイド":             "analysis.md",
		"Ｆｕｌｌ１":             "analysis.md",
	}
	for in, want := range cases {
		if got := Filename(in); got != want {
			t.Fatalf("Filename(%q) = %q, want %q", in, got, want)
		}
	}
}

// Package export renders an analysis as a Markdown document.
package export

import (
	"fmt"
	"strings"

	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

const fallbackFilename = "analysis.md"

// Markdown renders the summary, study notes, themes and review of rec.
func Markdown(rec domain.AnalysisRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", rec.Title)
	if rec.VideoType != "" {
		fmt.Fprintf(&sb, "**Type:** %s\n\n", rec.VideoType)
	}
	if rec.VideoID != "" {
		fmt.Fprintf(&sb, "**Source:** https://www.youtube.com/watch?v=%s\n\n", rec.VideoID)
	}
	sb.WriteString("## Summary\n\n")
	sb.WriteString(rec.Summary)
	sb.WriteString("\n\n")

	if len(rec.StudyNotes) > 0 {
		sb.WriteString("## Study Notes\n\n")
		for _, section := range rec.StudyNotes {
			fmt.Fprintf(&sb, "### %s\n\n", section.Title)
			for _, point := range section.Points {
				fmt.Fprintf(&sb, "- %s\n", point)
			}
			sb.WriteString("\n")
		}
	}

	if len(rec.Themes) > 0 {
		sb.WriteString("## Key Themes\n\n")
		for _, theme := range rec.Themes {
			label := strings.TrimSpace(theme.Emoji + " " + theme.Topic)
			if theme.Details != "" {
				fmt.Fprintf(&sb, "- **%s**: %s\n", label, theme.Details)
			} else {
				fmt.Fprintf(&sb, "- **%s**\n", label)
			}
		}
		sb.WriteString("\n")
	}

	if r := rec.ReviewDetails; r != nil {
		sb.WriteString("## Review\n\n")
		fmt.Fprintf(&sb, "**Item:** %s\n\n", r.Item)
		if r.Rating != nil {
			fmt.Fprintf(&sb, "**Rating:** %g/10\n\n", *r.Rating)
		}
		fmt.Fprintf(&sb, "**Verdict:** %s\n\n", r.Verdict)
		writeList(&sb, "Pros", r.Pros)
		writeList(&sb, "Cons", r.Cons)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "### %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
	sb.WriteString("\n")
}

// Filename derives a download name from title, keeping ASCII letters and
// digits so the name is safe in a Content-Disposition header.
func Filename(title string) string {
	var sb strings.Builder
	for _, r := range title {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return fallbackFilename
	}
	return sb.String() + ".md"
}

package analysis

import (
	"context"
	"strings"

	"github.com/Himanshu0815/Youtube-Agent/pkg/ai"
	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

// Knowledge is the context a question is answered from: an analyzed video or
// a research brief. At most one is set.
type Knowledge struct {
	Record   *domain.AnalysisRecord
	Research *domain.ResearchResult
}

// Available reports whether there is anything to answer from.
func (k Knowledge) Available() bool {
	return k.Record != nil || k.Research != nil
}

// Subject is the title or topic the knowledge is about.
func (k Knowledge) Subject() string {
	switch {
	case k.Record != nil:
		return k.Record.Title
	case k.Research != nil:
		return k.Research.Topic
	}
	return ""
}

// AskQuestion answers question from k and the prior turns in history.
func (a *Analyzer) AskQuestion(ctx context.Context, question string, k Knowledge, history []domain.ChatMessage) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", invalid("question", "question is required")
	}
	if !k.Available() {
		return "", ErrContextUnavailable
	}
	if n := a.limits.ChatHistoryTurns; len(history) > n {
		history = history[len(history)-n:]
	}

	var sb strings.Builder
	sb.WriteString("Answer the user's question using the context below. If the context does not contain the answer, say so and then answer from general knowledge, making clear which is which.\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(a.buildContext(k))
	if hist := buildHistory(history); hist != "" {
		sb.WriteString("\nConversation so far:\n")
		sb.WriteString(hist)
		sb.WriteString("\n")
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)

	raw, err := a.generate(ctx, ai.Request{
		Parts: []ai.Part{ai.TextPart(sb.String())},
		Mode:  ai.Freeform{},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (a *Analyzer) buildContext(k Knowledge) string {
	var sb strings.Builder
	if rec := k.Record; rec != nil {
		sb.WriteString("Video title: " + rec.Title + "\n")
		sb.WriteString("Summary: " + rec.Summary + "\n")
		if topics := themeTopics(rec.Themes); topics != "" {
			sb.WriteString("Themes: " + topics + "\n")
		}
		if rec.Transcript != "" {
			transcript, _ := truncateRunes(rec.Transcript, a.limits.MaxTranscriptChars)
			sb.WriteString("Transcript:\n" + transcript + "\n")
		}
		return sb.String()
	}
	res := k.Research
	sb.WriteString("Research topic: " + res.Topic + "\n")
	sb.WriteString("Definition: " + res.Definition + "\n")
	sb.WriteString("History: " + res.History + "\n")
	if len(res.KeyConcepts) > 0 {
		sb.WriteString("Key concepts: " + strings.Join(res.KeyConcepts, ", ") + "\n")
	}
	sb.WriteString("Relevance: " + res.Relevance + "\n")
	return sb.String()
}

func buildHistory(messages []domain.ChatMessage) string {
	if len(messages) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, msg := range messages {
		role := "User"
		if msg.Role == domain.RoleModel {
			role = "Assistant"
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// SuggestedQuestions derives starter questions from the first two themes.
func SuggestedQuestions(rec domain.AnalysisRecord) []string {
	out := []string{"What are the key takeaways?"}
	for i, theme := range rec.Themes {
		if i == 2 {
			break
		}
		if topic := strings.TrimSpace(theme.Topic); topic != "" {
			out = append(out, "Can you explain more about "+topic+"?")
		}
	}
	return out
}

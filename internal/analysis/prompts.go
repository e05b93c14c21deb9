package analysis

import (
	"fmt"
	"strings"

	"github.com/Himanshu0815/Youtube-Agent/pkg/ai"
	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

const systemInstruction = "You are an expert video analyst. You produce accurate, well-structured analyses and never invent content you cannot support."

// recordShape is embedded in grounded prompts, where a response schema
// cannot be attached to the request.
const recordShape = `{
  "videoId": "string (the 11 character id you analyzed, or NOT_FOUND)",
  "title": "string",
  "summary": "string",
  "videoType": "Educational | Review | Entertainment | Vlog | News | General",
  "timestamps": [{"time": "m:ss", "description": "string"}],
  "themes": [{"topic": "string", "details": "string", "emoji": "string"}],
  "studyNotes": [{"title": "string", "points": ["string"]}],
  "quotes": [{"text": "string", "time": "m:ss", "speaker": "string"}],
  "speakers": [{"name": "string", "role": "string"}],
  "subTopics": [{"title": "string", "time": "m:ss", "summary": "string", "speaker": "string"}],
  "reviewDetails": {"item": "string", "rating": 0, "pros": ["string"], "cons": ["string"], "verdict": "string"},
  "sentiment": {"positivePercent": 0, "negativePercent": 0, "neutralPercent": 0, "summary": "string"}
}`

const researchShape = `{
  "topic": "string",
  "definition": "string",
  "history": "string",
  "keyConcepts": ["string"],
  "relevance": "string",
  "sources": ["url or citation"]
}`

func adaptiveInstructions(hint domain.VideoType) string {
	var sb strings.Builder
	sb.WriteString("1. Classify the content as one of Educational, Review, Entertainment, Vlog, News or General.")
	if hint != "" {
		sb.WriteString(fmt.Sprintf(" The user believes it is %s; use that unless the content clearly says otherwise.", hint))
	}
	sb.WriteString("\n2. If Educational, fill studyNotes with sections of concise points and omit reviewDetails.")
	sb.WriteString(" If Review, fill reviewDetails with item, rating out of 10, pros, cons and verdict, and leave studyNotes empty.")
	sb.WriteString(" Otherwise leave studyNotes empty and omit reviewDetails.\n")
	sb.WriteString("3. Write a summary of three to five sentences.\n")
	sb.WriteString("4. Extract timestamps, themes (with one emoji each), notable quotes, speakers and subTopics in chronological order.\n")
	return sb.String()
}

func urlPrompt(videoID, title, author string, hint domain.VideoType) string {
	var sb strings.Builder
	sb.WriteString("Analyze the YouTube video ")
	sb.WriteString(videoID)
	sb.WriteString(" (https://www.youtube.com/watch?v=")
	sb.WriteString(videoID)
	sb.WriteString(").\n")
	sb.WriteString(fmt.Sprintf("Known title: %s\n", title))
	if author != "" {
		sb.WriteString(fmt.Sprintf("Channel: %s\n", author))
	}
	sb.WriteString("Use search to find the video's content, description and transcript.\n\n")
	sb.WriteString(adaptiveInstructions(hint))
	sb.WriteString("5. Estimate audience sentiment from comments and reactions found by search. Discard any evidence that does not verifiably belong to video ")
	sb.WriteString(videoID)
	sb.WriteString(". If nothing reliable is found, omit sentiment.\n\n")
	sb.WriteString("Set videoId to the id of the video you actually analyzed. If you cannot find this video, set videoId to \"")
	sb.WriteString(domain.NotFoundVideoID)
	sb.WriteString("\" and do not guess.\n\n")
	sb.WriteString("Respond with a single JSON object in exactly this shape and nothing else:\n")
	sb.WriteString(recordShape)
	return sb.String()
}

func transcriptPrompt(label string, hint domain.VideoType, transcript string, truncated bool) string {
	if strings.TrimSpace(label) == "" {
		label = "video transcript"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Analyze the following %s.\n", label))
	if truncated {
		sb.WriteString("The text was truncated; analyze what is provided.\n")
	}
	sb.WriteString("\n")
	sb.WriteString(adaptiveInstructions(hint))
	sb.WriteString("5. Estimate the sentiment expressed in the text itself.\n")
	sb.WriteString("Leave videoId empty.\n\n")
	sb.WriteString("Text:\n")
	sb.WriteString(transcript)
	return sb.String()
}

func mediaPrompt(hint domain.VideoType, frames int) string {
	var sb strings.Builder
	sb.WriteString("The attached media is a recording. Transcribe it verbatim into the transcript field, then analyze it.\n")
	if frames > 0 {
		sb.WriteString(fmt.Sprintf("%d still frames from the video are attached for visual context.\n", frames))
	}
	sb.WriteString("\n")
	sb.WriteString(adaptiveInstructions(hint))
	sb.WriteString("5. Estimate the sentiment of the speakers.\n")
	sb.WriteString("Leave videoId empty.")
	return sb.String()
}

func researchPrompt(topic string) string {
	var sb strings.Builder
	sb.WriteString("Research the topic \"")
	sb.WriteString(topic)
	sb.WriteString("\" using search. Give a clear definition, its historical background, the key concepts, why it matters today, and the sources you used.\n\n")
	sb.WriteString("Respond with a single JSON object in exactly this shape and nothing else:\n")
	sb.WriteString(researchShape)
	return sb.String()
}

func quizPrompt(rec domain.AnalysisRecord, questions int, transcript string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a multiple choice quiz of %d questions about the video \"%s\".\n", questions, rec.Title))
	sb.WriteString("Each question has four options, the zero-based index of the correct option and a one sentence explanation.\n\n")
	sb.WriteString("Summary: ")
	sb.WriteString(rec.Summary)
	sb.WriteString("\n")
	if topics := themeTopics(rec.Themes); topics != "" {
		sb.WriteString("Themes: ")
		sb.WriteString(topics)
		sb.WriteString("\n")
	}
	if transcript != "" {
		sb.WriteString("\nTranscript:\n")
		sb.WriteString(transcript)
	}
	return sb.String()
}

func themeTopics(themes []domain.Theme) string {
	topics := make([]string, 0, len(themes))
	for _, t := range themes {
		if t.Topic != "" {
			topics = append(topics, t.Topic)
		}
	}
	return strings.Join(topics, ", ")
}

func recordSchema(withTranscript bool) *ai.Schema {
	props := map[string]*ai.Schema{
		"videoId":   ai.String("Leave empty"),
		"title":     ai.String("Title of the content"),
		"summary":   ai.String("Three to five sentence summary"),
		"videoType": {Type: "STRING", Enum: []string{"Educational", "Review", "Entertainment", "Vlog", "News", "General"}},
		"timestamps": ai.Array(ai.Object(map[string]*ai.Schema{
			"time":        ai.String("m:ss"),
			"description": ai.String(""),
		}, "time", "description")),
		"themes": ai.Array(ai.Object(map[string]*ai.Schema{
			"topic":   ai.String(""),
			"details": ai.String(""),
			"emoji":   ai.String("A single emoji"),
		}, "topic", "details", "emoji")),
		"studyNotes": ai.Array(ai.Object(map[string]*ai.Schema{
			"title":  ai.String(""),
			"points": ai.Array(ai.String("")),
		}, "title", "points")),
		"quotes": ai.Array(ai.Object(map[string]*ai.Schema{
			"text":    ai.String(""),
			"time":    ai.String("m:ss"),
			"speaker": ai.String(""),
		}, "text", "time")),
		"speakers": ai.Array(ai.Object(map[string]*ai.Schema{
			"name": ai.String(""),
			"role": ai.String(""),
		}, "name")),
		"subTopics": ai.Array(ai.Object(map[string]*ai.Schema{
			"title":   ai.String(""),
			"time":    ai.String("m:ss"),
			"summary": ai.String(""),
			"speaker": ai.String(""),
		}, "title", "time", "summary")),
		"reviewDetails": ai.Optional(ai.Object(map[string]*ai.Schema{
			"item":    ai.String("Product or subject reviewed"),
			"rating":  ai.Number("Rating out of 10"),
			"pros":    ai.Array(ai.String("")),
			"cons":    ai.Array(ai.String("")),
			"verdict": ai.String(""),
		}, "item", "pros", "cons", "verdict")),
		"sentiment": ai.Optional(ai.Object(map[string]*ai.Schema{
			"positivePercent": ai.Number(""),
			"negativePercent": ai.Number(""),
			"neutralPercent":  ai.Number(""),
			"summary":         ai.String(""),
		}, "positivePercent", "negativePercent", "neutralPercent", "summary")),
	}
	required := []string{"title", "summary", "videoType", "timestamps", "themes", "studyNotes", "quotes", "speakers", "subTopics"}
	if withTranscript {
		props["transcript"] = ai.String("Verbatim transcription of the recording")
		required = append(required, "transcript")
	}
	return ai.Object(props, required...)
}

func quizSchema() *ai.Schema {
	return ai.Object(map[string]*ai.Schema{
		"questions": ai.Array(ai.Object(map[string]*ai.Schema{
			"question":     ai.String(""),
			"options":      ai.Array(ai.String("")),
			"correctIndex": ai.Integer("Zero-based index of the correct option"),
			"explanation":  ai.String(""),
		}, "question", "options", "correctIndex", "explanation")),
	}, "questions")
}

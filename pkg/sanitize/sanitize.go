// Package sanitize turns loosely-typed model output into fully-shaped domain
// values. Every function here is total: missing or mistyped collections
// become empty slices and missing strings become placeholders, so callers
// never branch on absent fields.
package sanitize

import (
	"encoding/json"
	"strings"

	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

const (
	DefaultTitle      = "Untitled Analysis"
	DefaultSummary    = "No summary available."
	DefaultReviewItem = "Unknown Item"
	DefaultVerdict    = "No verdict provided."
)

// Record builds an AnalysisRecord from a parsed JSON value.
func Record(parsed any) domain.AnalysisRecord {
	m := asMap(parsed)
	rec := domain.AnalysisRecord{
		VideoID:    str(m["videoId"]),
		Title:      strOr(m["title"], DefaultTitle),
		Summary:    strOr(m["summary"], DefaultSummary),
		VideoType:  domain.VideoType(strOr(m["videoType"], string(domain.TypeGeneral))),
		Transcript: str(m["transcript"]),
	}

	rec.Timestamps = mapSlice(m["timestamps"], func(e map[string]any) domain.Timestamp {
		return domain.Timestamp{
			Time:        str(e["time"]),
			Description: str(e["description"]),
			Seconds:     secondsOf(e["seconds"], e["time"]),
		}
	})
	rec.Themes = mapSlice(m["themes"], func(e map[string]any) domain.Theme {
		return domain.Theme{
			Topic:   str(e["topic"]),
			Details: str(e["details"]),
			Emoji:   str(e["emoji"]),
		}
	})
	rec.StudyNotes = mapSlice(m["studyNotes"], func(e map[string]any) domain.StudySection {
		return domain.StudySection{
			Title:  str(e["title"]),
			Points: stringList(e["points"]),
		}
	})
	rec.Quotes = mapSlice(m["quotes"], func(e map[string]any) domain.Quote {
		return domain.Quote{
			Text:    str(e["text"]),
			Time:    str(e["time"]),
			Speaker: str(e["speaker"]),
			Seconds: secondsOf(e["seconds"], e["time"]),
		}
	})
	rec.Speakers = mapSlice(m["speakers"], func(e map[string]any) domain.Speaker {
		return domain.Speaker{
			Name: str(e["name"]),
			Role: str(e["role"]),
		}
	})
	rec.SubTopics = mapSlice(m["subTopics"], func(e map[string]any) domain.SubTopic {
		return domain.SubTopic{
			Title:   str(e["title"]),
			Time:    str(e["time"]),
			Summary: str(e["summary"]),
			Speaker: str(e["speaker"]),
			Seconds: secondsOf(e["seconds"], e["time"]),
		}
	})
	rec.ReviewDetails = review(m["reviewDetails"])
	rec.Sentiment = sentiment(m["sentiment"])
	return rec
}

// review returns nil when the source has no review object at all: absence
// means "not a review", which differs from a review with no pros.
func review(v any) *domain.ReviewDetails {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &domain.ReviewDetails{
		Item:    strOr(m["item"], DefaultReviewItem),
		Rating:  number(m["rating"]),
		Pros:    stringList(m["pros"]),
		Cons:    stringList(m["cons"]),
		Verdict: strOr(m["verdict"], DefaultVerdict),
	}
}

func sentiment(v any) *domain.SentimentSummary {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &domain.SentimentSummary{
		PositivePercent: numberOr(m["positivePercent"], 0),
		NegativePercent: numberOr(m["negativePercent"], 0),
		NeutralPercent:  numberOr(m["neutralPercent"], 0),
		Summary:         str(m["summary"]),
	}
}

// Normalize re-runs a typed record through Record. Records loaded from
// older persisted shapes are healed this way.
func Normalize(rec domain.AnalysisRecord) domain.AnalysisRecord {
	return Record(toAny(rec))
}

// Research builds a ResearchResult from a parsed JSON value.
func Research(parsed any) domain.ResearchResult {
	m := asMap(parsed)
	return domain.ResearchResult{
		Topic:       str(m["topic"]),
		Definition:  strOr(m["definition"], "No definition available."),
		History:     strOr(m["history"], "No historical context available."),
		KeyConcepts: stringList(m["keyConcepts"]),
		Relevance:   strOr(m["relevance"], "No relevance notes available."),
		Sources:     sources(m["sources"]),
	}
}

// sources accepts plain strings or {title, url} objects.
func sources(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case string:
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		case map[string]any:
			if u := str(s["url"]); u != "" {
				out = append(out, u)
			} else if t := str(s["title"]); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// Quiz builds a Quiz from a parsed JSON value. A correct index that does not
// point at an option is reported as -1.
func Quiz(parsed any) domain.Quiz {
	m := asMap(parsed)
	questions := mapSlice(m["questions"], func(e map[string]any) domain.QuizQuestion {
		q := domain.QuizQuestion{
			Question:    str(e["question"]),
			Options:     stringList(e["options"]),
			Explanation: str(e["explanation"]),
		}
		idx := -1
		if n := number(e["correctIndex"]); n != nil {
			idx = int(*n)
		}
		if idx < 0 || idx >= len(q.Options) {
			idx = -1
		}
		q.CorrectIndex = idx
		return q
	})
	return domain.Quiz{Questions: questions}
}

func toAny(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

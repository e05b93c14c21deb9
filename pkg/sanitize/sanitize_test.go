package sanitize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
	"github.com/Himanshu0815/Youtube-Agent/pkg/llmjson"
)

func TestRecordDefaultsMissingCollections(t *testing.T) {
	rec := Record(map[string]any{"title": "X"})
	if rec.Timestamps == nil || rec.Themes == nil || rec.StudyNotes == nil ||
		rec.Quotes == nil || rec.Speakers == nil || rec.SubTopics == nil {
		t.Fatalf("expected every sequence to be non-nil, got %+v", rec)
	}
	if rec.VideoType != domain.TypeGeneral {
		t.Fatalf("videoType = %q, want General", rec.VideoType)
	}
	if rec.Summary != DefaultSummary {
		t.Fatalf("summary = %q, want placeholder", rec.Summary)
	}
	if rec.ReviewDetails != nil {
		t.Fatalf("reviewDetails should stay absent, got %+v", rec.ReviewDetails)
	}
	if rec.Sentiment != nil {
		t.Fatalf("sentiment should stay absent, got %+v", rec.Sentiment)
	}
}

func TestRecordReplacesNonArrayValues(t *testing.T) {
	rec := Record(map[string]any{
		"themes":     "not a list",
		"timestamps": map[string]any{"time": "0:01"},
		"studyNotes": nil,
	})
	if len(rec.Themes) != 0 || rec.Themes == nil {
		t.Fatalf("themes = %#v, want empty slice", rec.Themes)
	}
	if len(rec.Timestamps) != 0 || rec.Timestamps == nil {
		t.Fatalf("timestamps = %#v, want empty slice", rec.Timestamps)
	}
	if rec.StudyNotes == nil {
		t.Fatalf("studyNotes should be empty, not nil")
	}
}

func TestRecordReviewDetailsDefaultsEachField(t *testing.T) {
	rec := Record(map[string]any{"reviewDetails": map[string]any{"rating": "8.5"}})
	rd := rec.ReviewDetails
	if rd == nil {
		t.Fatal("expected review details")
	}
	if rd.Item != DefaultReviewItem || rd.Verdict != DefaultVerdict {
		t.Fatalf("unexpected placeholders: %+v", rd)
	}
	if rd.Pros == nil || rd.Cons == nil {
		t.Fatalf("pros/cons must be non-nil: %+v", rd)
	}
	if rd.Rating == nil || *rd.Rating != 8.5 {
		t.Fatalf("rating = %v, want 8.5", rd.Rating)
	}
}

func TestRecordNestedPointsAndOrder(t *testing.T) {
	rec := Record(map[string]any{
		"studyNotes": []any{
			map[string]any{"title": "A"},
			"junk",
			map[string]any{"title": "B", "points": []any{"one", "", 2.0, "three"}},
		},
		"timestamps": []any{
			map[string]any{"time": "1:05", "description": "intro"},
			map[string]any{"time": "later", "description": "x", "seconds": 90.0},
		},
	})
	if len(rec.StudyNotes) != 2 || rec.StudyNotes[0].Title != "A" || rec.StudyNotes[1].Title != "B" {
		t.Fatalf("study notes order not preserved: %+v", rec.StudyNotes)
	}
	if rec.StudyNotes[0].Points == nil {
		t.Fatal("points should default to empty slice")
	}
	if got := rec.StudyNotes[1].Points; !reflect.DeepEqual(got, []string{"one", "2", "three"}) {
		t.Fatalf("points = %#v", got)
	}
	if s := rec.Timestamps[0].Seconds; s == nil || *s != 65 {
		t.Fatalf("seconds from label = %v, want 65", s)
	}
	if s := rec.Timestamps[1].Seconds; s == nil || *s != 90 {
		t.Fatalf("explicit seconds = %v, want 90", s)
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	inputs := []any{
		nil,
		map[string]any{},
		map[string]any{
			"videoId":       "dQw4w9WgXcQ",
			"title":         "T",
			"videoType":     "Review",
			"themes":        []any{map[string]any{"topic": "x"}},
			"reviewDetails": map[string]any{"pros": []any{"fast"}},
			"quotes":        []any{map[string]any{"text": "hi", "time": "0:30"}},
			"sentiment":     map[string]any{"positivePercent": "60%"},
		},
	}
	for _, in := range inputs {
		once := Record(in)
		twice := Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("not idempotent:\nonce  = %+v\ntwice = %+v", once, twice)
		}
	}
}

func TestRecordFromFencedModelOutput(t *testing.T) {
	raw := "Here you go:\n```json\n{\"title\":\"X\",\"summary\":\"Y\",\"videoType\":\"Educational\",\"timestamps\":[],\"themes\":[],\"quotes\":[],\"speakers\":[],\"subTopics\":[],\"sentiment\":{\"positivePercent\":10,\"negativePercent\":5,\"neutralPercent\":85,\"summary\":\"calm\"}}\n```"
	parsed, err := llmjson.Extract(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	rec := Record(parsed)
	if rec.StudyNotes == nil || len(rec.StudyNotes) != 0 {
		t.Fatalf("studyNotes = %#v, want []", rec.StudyNotes)
	}
	if rec.VideoType != domain.TypeEducational {
		t.Fatalf("videoType = %q", rec.VideoType)
	}
	if rec.Sentiment == nil || rec.Sentiment.PositivePercent != 10 {
		t.Fatalf("sentiment = %+v", rec.Sentiment)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var shape map[string]any
	_ = json.Unmarshal(data, &shape)
	if _, ok := shape["studyNotes"].([]any); !ok {
		t.Fatalf("studyNotes must serialize as an array, got %v", shape["studyNotes"])
	}
}

func TestResearchAcceptsSourceObjects(t *testing.T) {
	res := Research(map[string]any{
		"topic":   "Entropy",
		"sources": []any{"https://a.example", map[string]any{"title": "Book"}, map[string]any{"url": "https://b.example"}, 3.0},
	})
	want := []string{"https://a.example", "Book", "https://b.example"}
	if !reflect.DeepEqual(res.Sources, want) {
		t.Fatalf("sources = %#v, want %#v", res.Sources, want)
	}
	if res.KeyConcepts == nil {
		t.Fatal("keyConcepts must be non-nil")
	}
}

func TestQuizClampsCorrectIndex(t *testing.T) {
	q := Quiz(map[string]any{"questions": []any{
		map[string]any{"question": "a?", "options": []any{"x", "y"}, "correctIndex": 1.0},
		map[string]any{"question": "b?", "options": []any{"x"}, "correctIndex": 4.0},
		map[string]any{"question": "c?"},
	}})
	if len(q.Questions) != 3 {
		t.Fatalf("len = %d", len(q.Questions))
	}
	if q.Questions[0].CorrectIndex != 1 || q.Questions[1].CorrectIndex != -1 || q.Questions[2].CorrectIndex != -1 {
		t.Fatalf("unexpected indexes: %+v", q.Questions)
	}
	if q.Questions[2].Options == nil {
		t.Fatal("options must be non-nil")
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]float64{"0:00": 0, "1:05": 65, "01:02:03": 3723, "[12:30]": 750}
	for in, want := range cases {
		got := ParseClock(in)
		if got == nil || *got != want {
			t.Fatalf("ParseClock(%q) = %v, want %v", in, got, want)
		}
	}
	for _, bad := range []string{"", "12", "a:b", "1:2:3:4"} {
		if got := ParseClock(bad); got != nil {
			t.Fatalf("ParseClock(%q) = %v, want nil", bad, *got)
		}
	}
}

func TestRecordDropsNonFiniteNumbers(t *testing.T) {
	in := map[string]any{
		"title":  "Keep me",
		"themes": []any{map[string]any{"topic": "T"}},
		"sentiment": map[string]any{
			"positivePercent": "NaN",
			"negativePercent": "-Inf",
			"neutralPercent":  "Infinity",
		},
		"reviewDetails": map[string]any{"rating": "inf"},
		"timestamps":    []any{map[string]any{"time": "0:30", "seconds": "NaN"}},
	}
	rec := Record(in)
	if _, err := json.Marshal(rec); err != nil {
		t.Fatalf("sanitized record must encode: %v", err)
	}
	if rec.ReviewDetails.Rating != nil {
		t.Fatalf("rating should be dropped, got %v", *rec.ReviewDetails.Rating)
	}
	if rec.Timestamps[0].Seconds == nil || *rec.Timestamps[0].Seconds != 30 {
		t.Fatalf("seconds should fall back to the clock label: %+v", rec.Timestamps[0])
	}
	again := Normalize(rec)
	if again.Title != "Keep me" || len(again.Themes) != 1 || !reflect.DeepEqual(rec, again) {
		t.Fatalf("normalize changed a finite record: %+v", again)
	}
}

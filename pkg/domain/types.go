package domain

// VideoType is the model's content classification. The model may return
// values outside the known set; they are kept verbatim.
type VideoType string

const (
	TypeEducational   VideoType = "Educational"
	TypeReview        VideoType = "Review"
	TypeEntertainment VideoType = "Entertainment"
	TypeVlog          VideoType = "Vlog"
	TypeNews          VideoType = "News"
	TypeGeneral       VideoType = "General"
)

// NotFoundVideoID is the sentinel id the model returns when it cannot
// locate the requested content.
const NotFoundVideoID = "NOT_FOUND"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// AnalysisRecord is the canonical result of one analysis.
type AnalysisRecord struct {
	VideoID       string            `json:"videoId,omitempty"`
	Title         string            `json:"title"`
	Summary       string            `json:"summary"`
	VideoType     VideoType         `json:"videoType"`
	Transcript    string            `json:"transcript,omitempty"`
	Timestamps    []Timestamp       `json:"timestamps"`
	Themes        []Theme           `json:"themes"`
	StudyNotes    []StudySection    `json:"studyNotes"`
	Quotes        []Quote           `json:"quotes"`
	Speakers      []Speaker         `json:"speakers"`
	SubTopics     []SubTopic        `json:"subTopics"`
	ReviewDetails *ReviewDetails    `json:"reviewDetails,omitempty"`
	Sentiment     *SentimentSummary `json:"sentiment,omitempty"`
}

type Timestamp struct {
	Time        string   `json:"time"`
	Description string   `json:"description"`
	Seconds     *float64 `json:"seconds,omitempty"`
}

type Theme struct {
	Topic   string `json:"topic"`
	Details string `json:"details"`
	Emoji   string `json:"emoji"`
}

type StudySection struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

type Quote struct {
	Text    string   `json:"text"`
	Time    string   `json:"time"`
	Speaker string   `json:"speaker,omitempty"`
	Seconds *float64 `json:"seconds,omitempty"`
}

type Speaker struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

type SubTopic struct {
	Title   string   `json:"title"`
	Time    string   `json:"time"`
	Summary string   `json:"summary"`
	Speaker string   `json:"speaker,omitempty"`
	Seconds *float64 `json:"seconds,omitempty"`
}

type ReviewDetails struct {
	Item    string   `json:"item"`
	Rating  *float64 `json:"rating,omitempty"`
	Pros    []string `json:"pros"`
	Cons    []string `json:"cons"`
	Verdict string   `json:"verdict"`
}

type SentimentSummary struct {
	PositivePercent float64 `json:"positivePercent"`
	NegativePercent float64 `json:"negativePercent"`
	NeutralPercent  float64 `json:"neutralPercent"`
	Summary         string  `json:"summary"`
}

// ChatMessage is one turn of a conversation. Timestamp is unix millis.
type ChatMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ResearchResult is the output of a deep research request on a topic.
type ResearchResult struct {
	Topic       string   `json:"topic"`
	Definition  string   `json:"definition"`
	History     string   `json:"history"`
	KeyConcepts []string `json:"keyConcepts"`
	Relevance   string   `json:"relevance"`
	Sources     []string `json:"sources"`
}

// HistoryItem is a persisted analysis. ID is the video id when known,
// otherwise a timestamp-derived synthetic key.
type HistoryItem struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Timestamp int64          `json:"timestamp"`
	VideoType VideoType      `json:"videoType"`
	Thumbnail string         `json:"thumbnail,omitempty"`
	Data      AnalysisRecord `json:"data"`
}

type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

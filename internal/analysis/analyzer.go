// Package analysis turns URLs, transcripts, recordings and documents into
// sanitized analysis records by prompting a generative model.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Himanshu0815/Youtube-Agent/internal/document"
	"github.com/Himanshu0815/Youtube-Agent/internal/youtube"
	"github.com/Himanshu0815/Youtube-Agent/pkg/ai"
	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
	"github.com/Himanshu0815/Youtube-Agent/pkg/llmjson"
	"github.com/Himanshu0815/Youtube-Agent/pkg/sanitize"
)

const unknownVideoTitle = "Unknown Video"

// Limits holds the product-chosen admission and truncation thresholds.
type Limits struct {
	MaxTranscriptChars int
	MaxUploadBytes     int64
	MaxFrames          int
	ChatHistoryTurns   int
	QuizQuestions      int
}

// DefaultLimits returns the stock thresholds.
func DefaultLimits() Limits {
	return Limits{
		MaxTranscriptChars: 30000,
		MaxUploadBytes:     20 << 20,
		MaxFrames:          8,
		ChatHistoryTurns:   10,
		QuizQuestions:      5,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxTranscriptChars <= 0 {
		l.MaxTranscriptChars = def.MaxTranscriptChars
	}
	if l.MaxUploadBytes <= 0 {
		l.MaxUploadBytes = def.MaxUploadBytes
	}
	if l.MaxFrames < 0 {
		l.MaxFrames = 0
	} else if l.MaxFrames == 0 {
		l.MaxFrames = def.MaxFrames
	}
	if l.ChatHistoryTurns <= 0 {
		l.ChatHistoryTurns = def.ChatHistoryTurns
	}
	if l.QuizQuestions <= 0 {
		l.QuizQuestions = def.QuizQuestions
	}
	return l
}

// Config holds the analyzer's collaborators.
type Config struct {
	Generator ai.Generator
	Metadata  youtube.MetadataFetcher
	Documents *document.Extractor
	Limits    Limits
	Logger    *zap.Logger
}

// Analyzer selects a prompting strategy per input kind. All strategies
// converge on a sanitized domain.AnalysisRecord.
type Analyzer struct {
	gen       ai.Generator
	metadata  youtube.MetadataFetcher
	documents *document.Extractor
	limits    Limits
	logger    *zap.Logger
}

// MediaInput is one uploaded audio or video payload.
type MediaInput struct {
	Filename string
	MIMEType string
	Data     []byte
}

// ImageInput is one still frame captured from a video.
type ImageInput struct {
	MIMEType string
	Data     []byte
}

// New constructs an analyzer. A missing generator is a configuration error.
func New(cfg Config) (*Analyzer, error) {
	if cfg.Generator == nil {
		return nil, &ConfigurationError{Err: ai.ErrMissingAPIKey}
	}
	docs := cfg.Documents
	if docs == nil {
		docs = &document.Extractor{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &Analyzer{
		gen:       cfg.Generator,
		metadata:  cfg.Metadata,
		documents: docs,
		limits:    cfg.Limits.withDefaults(),
		logger:    logger,
	}, nil
}

// Limits reports the effective thresholds.
func (a *Analyzer) Limits() Limits {
	return a.limits
}

// ByURL analyzes a YouTube video via search-grounded generation.
func (a *Analyzer) ByURL(ctx context.Context, rawURL string, hint domain.VideoType) (domain.AnalysisRecord, error) {
	videoID := youtube.ExtractVideoID(rawURL)
	if videoID == "" {
		return domain.AnalysisRecord{}, invalid("url", "not a recognizable YouTube video URL")
	}
	title, author := unknownVideoTitle, ""
	if a.metadata != nil {
		meta, err := a.metadata.Fetch(ctx, youtube.WatchURL(videoID))
		if err != nil {
			a.logger.Debug("oembed lookup failed", zap.String("video_id", videoID), zap.Error(err))
		} else {
			if t := strings.TrimSpace(meta.Title); t != "" {
				title = t
			}
			author = strings.TrimSpace(meta.AuthorName)
		}
	}

	raw, err := a.generate(ctx, ai.Request{
		System: systemInstruction,
		Parts:  []ai.Part{ai.TextPart(urlPrompt(videoID, title, author, hint))},
		Mode:   ai.Grounded{Tools: []ai.Tool{ai.ToolGoogleSearch}},
	})
	if err != nil {
		return domain.AnalysisRecord{}, err
	}
	rec, err := parseRecord(raw)
	if err != nil {
		return domain.AnalysisRecord{}, err
	}
	rec, err = Verify(videoID, rec)
	if err != nil {
		a.logger.Warn("video identity check failed", zap.String("video_id", videoID), zap.Error(err))
		return domain.AnalysisRecord{}, err
	}
	rec.VideoID = videoID
	return rec, nil
}

// ByTranscript analyzes user-supplied text. Text beyond MaxTranscriptChars
// is dropped before prompting.
func (a *Analyzer) ByTranscript(ctx context.Context, text, contextLabel string, hint domain.VideoType) (domain.AnalysisRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.AnalysisRecord{}, invalid("text", "transcript is empty")
	}
	prompted, truncated := truncateRunes(text, a.limits.MaxTranscriptChars)
	if truncated {
		a.logger.Info("transcript truncated", zap.Int("limit", a.limits.MaxTranscriptChars))
	}
	raw, err := a.generate(ctx, ai.Request{
		System: systemInstruction,
		Parts:  []ai.Part{ai.TextPart(transcriptPrompt(contextLabel, hint, prompted, truncated))},
		Mode:   ai.Strict{Schema: recordSchema(false)},
	})
	if err != nil {
		return domain.AnalysisRecord{}, err
	}
	rec, err := parseRecord(raw)
	if err != nil {
		return domain.AnalysisRecord{}, err
	}
	rec.VideoID = ""
	rec.Transcript = text
	return rec, nil
}

// ByMultimodal sends one recording plus optional still frames in a single
// request, asking for transcription and analysis together.
func (a *Analyzer) ByMultimodal(ctx context.Context, media MediaInput, frames []ImageInput, hint domain.VideoType) (domain.AnalysisRecord, error) {
	if len(media.Data) == 0 {
		return domain.AnalysisRecord{}, invalid("file", "media file is empty")
	}
	if err := a.admit(int64(len(media.Data))); err != nil {
		return domain.AnalysisRecord{}, err
	}
	mimeType := strings.TrimSpace(media.MIMEType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(media.Data)
	}
	if !strings.HasPrefix(mimeType, "audio/") && !strings.HasPrefix(mimeType, "video/") {
		return domain.AnalysisRecord{}, invalid("file", fmt.Sprintf("unsupported media type %q", mimeType))
	}

	images := make([]ai.Part, 0, len(frames))
	for _, f := range frames {
		if len(images) >= a.limits.MaxFrames {
			break
		}
		if len(f.Data) == 0 {
			continue
		}
		ct := strings.TrimSpace(f.MIMEType)
		if ct == "" {
			ct = "image/jpeg"
		}
		images = append(images, ai.BlobPart(ct, f.Data))
	}

	parts := make([]ai.Part, 0, len(images)+2)
	parts = append(parts, ai.TextPart(mediaPrompt(hint, len(images))), ai.BlobPart(mimeType, media.Data))
	parts = append(parts, images...)
	raw, err := a.generate(ctx, ai.Request{
		System: systemInstruction,
		Parts:  parts,
		Mode:   ai.Strict{Schema: recordSchema(true)},
	})
	if err != nil {
		return domain.AnalysisRecord{}, err
	}
	rec, err := parseRecord(raw)
	if err != nil {
		return domain.AnalysisRecord{}, err
	}
	rec.VideoID = ""
	return rec, nil
}

// ByDocument extracts text from a PDF (or EPUB, HTML, plain text) file and
// analyzes it as a transcript.
func (a *Analyzer) ByDocument(ctx context.Context, filename string, data []byte, hint domain.VideoType) (domain.AnalysisRecord, error) {
	if len(data) == 0 {
		return domain.AnalysisRecord{}, invalid("file", "document is empty")
	}
	if err := a.admit(int64(len(data))); err != nil {
		return domain.AnalysisRecord{}, err
	}
	doc, err := a.documents.Extract(ctx, filename, data)
	if err != nil {
		if errors.Is(err, document.ErrNoText) {
			return domain.AnalysisRecord{}, &ValidationError{Field: "file", Message: "no readable text in document", Err: err}
		}
		if errors.Is(err, document.ErrContentTooLarge) {
			return domain.AnalysisRecord{}, &ValidationError{Field: "file", Message: "document expands beyond the size limit", Err: err}
		}
		return domain.AnalysisRecord{}, &ValidationError{Field: "file", Message: "could not read document", Err: err}
	}
	a.logger.Info("document extracted",
		zap.String("filename", filename),
		zap.String("method", doc.Method),
		zap.Int("pages", doc.Pages),
	)
	label := "document"
	if doc.Kind == "pdf" {
		label = "PDF document"
	}
	return a.ByTranscript(ctx, doc.Text, label, hint)
}

// ByDeepResearch produces a research brief on topic via search grounding.
func (a *Analyzer) ByDeepResearch(ctx context.Context, topic string) (domain.ResearchResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.ResearchResult{}, invalid("topic", "topic is required")
	}
	raw, err := a.generate(ctx, ai.Request{
		Parts: []ai.Part{ai.TextPart(researchPrompt(topic))},
		Mode:  ai.Grounded{Tools: []ai.Tool{ai.ToolGoogleSearch}},
	})
	if err != nil {
		return domain.ResearchResult{}, err
	}
	parsed, err := llmjson.Extract(raw)
	if err != nil {
		return domain.ResearchResult{}, err
	}
	res := sanitize.Research(parsed)
	if res.Topic == "" {
		res.Topic = topic
	}
	return res, nil
}

// GenerateQuiz writes a multiple choice quiz for rec.
func (a *Analyzer) GenerateQuiz(ctx context.Context, rec domain.AnalysisRecord) (domain.Quiz, error) {
	transcript, _ := truncateRunes(rec.Transcript, a.limits.MaxTranscriptChars)
	raw, err := a.generate(ctx, ai.Request{
		Parts: []ai.Part{ai.TextPart(quizPrompt(rec, a.limits.QuizQuestions, transcript))},
		Mode:  ai.Strict{Schema: quizSchema()},
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	parsed, err := llmjson.Extract(raw)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz := sanitize.Quiz(parsed)
	if len(quiz.Questions) == 0 {
		return domain.Quiz{}, fmt.Errorf("quiz has no questions: %w", ErrEmptyResponse)
	}
	return quiz, nil
}

func (a *Analyzer) admit(size int64) error {
	if size > a.limits.MaxUploadBytes {
		return &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the %d MB limit", a.limits.MaxUploadBytes>>20),
			Err:     ErrTooLarge,
		}
	}
	return nil
}

func (a *Analyzer) generate(ctx context.Context, req ai.Request) (string, error) {
	raw, err := a.gen.Generate(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyResponse
	}
	return raw, nil
}

func parseRecord(raw string) (domain.AnalysisRecord, error) {
	parsed, err := llmjson.Extract(raw)
	if err != nil {
		return domain.AnalysisRecord{}, err
	}
	return sanitize.Record(parsed), nil
}

func truncateRunes(text string, limit int) (string, bool) {
	if limit <= 0 {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text, false
	}
	return string(runes[:limit]), true
}

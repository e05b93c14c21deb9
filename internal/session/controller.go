// Package session owns the per-client application state: the active
// analysis, the research brief, both chat contexts and the background quiz.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Himanshu0815/Youtube-Agent/internal/analysis"
	"github.com/Himanshu0815/Youtube-Agent/internal/chat"
	"github.com/Himanshu0815/Youtube-Agent/internal/history"
	"github.com/Himanshu0815/Youtube-Agent/internal/media"
	"github.com/Himanshu0815/Youtube-Agent/internal/util"
	"github.com/Himanshu0815/Youtube-Agent/internal/youtube"
	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

var (
	// ErrNoRecord indicates nothing has been analyzed in this session yet.
	ErrNoRecord = errors.New("no active analysis")
	// ErrHistoryNotFound indicates the requested history item does not exist.
	ErrHistoryNotFound = errors.New("history item not found")
	// ErrQuizStale indicates the record changed while its quiz was generated.
	ErrQuizStale = errors.New("analysis changed before quiz was ready")
)

// Analyzer is the set of strategies a session drives.
type Analyzer interface {
	chat.Asker
	ByURL(ctx context.Context, url string, hint domain.VideoType) (domain.AnalysisRecord, error)
	ByTranscript(ctx context.Context, text, contextLabel string, hint domain.VideoType) (domain.AnalysisRecord, error)
	ByMultimodal(ctx context.Context, m analysis.MediaInput, frames []analysis.ImageInput, hint domain.VideoType) (domain.AnalysisRecord, error)
	ByDocument(ctx context.Context, filename string, data []byte, hint domain.VideoType) (domain.AnalysisRecord, error)
	ByDeepResearch(ctx context.Context, topic string) (domain.ResearchResult, error)
	GenerateQuiz(ctx context.Context, rec domain.AnalysisRecord) (domain.Quiz, error)
}

// Kind selects the analysis strategy of a Request.
type Kind string

const (
	KindURL        Kind = "url"
	KindTranscript Kind = "transcript"
	KindMedia      Kind = "media"
	KindDocument   Kind = "document"
)

// Request is one analysis submission. Only the fields of Kind are read.
type Request struct {
	Kind      Kind
	VideoType domain.VideoType

	URL string

	Text    string
	Context string

	Media  analysis.MediaInput
	Frames []analysis.ImageInput

	Filename string
	Document []byte
}

// Dependencies are shared by every session. The Manager narrows History to
// the session that owns it.
type Dependencies struct {
	Analyzer    Analyzer
	History     *history.Store
	Thumbnails  media.ThumbnailStore
	Logger      *zap.Logger
	ChatTimeout time.Duration
	QuizTimeout time.Duration
}

type quizSlot struct {
	key  string
	done bool
	quiz domain.Quiz
	err  error
}

// Controller is the explicit application state for one client.
type Controller struct {
	deps   Dependencies
	logger *zap.Logger
	router *chat.Router

	mu       sync.Mutex
	record   *domain.AnalysisRecord
	research *domain.ResearchResult
	seq      uint64
	quiz     quizSlot
	quizzes  singleflight.Group
}

// NewController builds an empty session.
func NewController(deps Dependencies) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.L()
	}
	if deps.QuizTimeout <= 0 {
		deps.QuizTimeout = 2 * time.Minute
	}
	return &Controller{
		deps:   deps,
		logger: logger,
		router: chat.NewRouter(deps.Analyzer, deps.ChatTimeout, logger),
	}
}

// Analyze runs the strategy for req and, on success, replaces the active
// record wholesale. On failure the session is left unchanged.
func (c *Controller) Analyze(ctx context.Context, req Request) (domain.AnalysisRecord, error) {
	var (
		rec domain.AnalysisRecord
		err error
	)
	a := c.deps.Analyzer
	switch req.Kind {
	case KindURL:
		rec, err = a.ByURL(ctx, req.URL, req.VideoType)
	case KindTranscript:
		rec, err = a.ByTranscript(ctx, req.Text, req.Context, req.VideoType)
	case KindMedia:
		rec, err = a.ByMultimodal(ctx, req.Media, req.Frames, req.VideoType)
	case KindDocument:
		rec, err = a.ByDocument(ctx, req.Filename, req.Document, req.VideoType)
	default:
		err = &analysis.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown analysis kind %q", req.Kind)}
	}
	if err != nil {
		c.logger.Warn("analysis failed", zap.String("kind", string(req.Kind)), zap.Error(err))
		return domain.AnalysisRecord{}, err
	}

	thumbnail := c.thumbnail(ctx, rec, req)
	if c.deps.History != nil {
		if _, err := c.deps.History.Save(ctx, rec, thumbnail); err != nil {
			c.logger.Error("save history failed", zap.Error(err))
		}
	}
	c.commit(rec)
	return rec, nil
}

func (c *Controller) thumbnail(ctx context.Context, rec domain.AnalysisRecord, req Request) string {
	if rec.VideoID != "" {
		return youtube.ThumbnailURL(rec.VideoID)
	}
	if req.Kind != KindMedia || len(req.Frames) == 0 || c.deps.Thumbnails == nil {
		return ""
	}
	frame := req.Frames[0]
	contentType := frame.MIMEType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	ref, err := c.deps.Thumbnails.Put(ctx, "upload-"+util.NewID(), frame.Data, contentType)
	if err != nil {
		c.logger.Warn("store thumbnail failed", zap.Error(err))
		return ""
	}
	return ref
}

// commit makes rec the active record, greets in the video context and
// starts its quiz in the background.
func (c *Controller) commit(rec domain.AnalysisRecord) {
	c.mu.Lock()
	c.record = &rec
	c.seq++
	key := fmt.Sprintf("%d:%s", c.seq, rec.VideoID)
	c.quiz = quizSlot{key: key}
	c.mu.Unlock()

	c.router.AttachRecord(rec)
	go func() {
		_, _, _ = c.quizzes.Do(key, func() (any, error) { return c.runQuiz(key, rec) })
	}()
}

func (c *Controller) runQuiz(key string, rec domain.AnalysisRecord) (any, error) {
	c.mu.Lock()
	if c.quiz.key != key {
		c.mu.Unlock()
		return domain.Quiz{}, ErrQuizStale
	}
	if c.quiz.done {
		quiz, err := c.quiz.quiz, c.quiz.err
		c.mu.Unlock()
		return quiz, err
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.deps.QuizTimeout)
	defer cancel()
	quiz, err := c.deps.Analyzer.GenerateQuiz(ctx, rec)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quiz.key != key {
		c.logger.Debug("discarding stale quiz", zap.String("key", key))
		return domain.Quiz{}, ErrQuizStale
	}
	if err != nil {
		c.logger.Warn("quiz generation failed", zap.Error(err))
	}
	c.quiz.done = true
	c.quiz.quiz = quiz
	c.quiz.err = err
	return quiz, err
}

// Quiz returns the quiz for the active record, waiting for the background
// generation if it is still running. Every caller observes the same outcome.
func (c *Controller) Quiz(ctx context.Context) (domain.Quiz, error) {
	c.mu.Lock()
	if c.record == nil {
		c.mu.Unlock()
		return domain.Quiz{}, ErrNoRecord
	}
	if c.quiz.done {
		quiz, err := c.quiz.quiz, c.quiz.err
		c.mu.Unlock()
		return quiz, err
	}
	key, rec := c.quiz.key, *c.record
	c.mu.Unlock()

	ch := c.quizzes.DoChan(key, func() (any, error) { return c.runQuiz(key, rec) })
	select {
	case <-ctx.Done():
		return domain.Quiz{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Quiz{}, res.Err
		}
		return res.Val.(domain.Quiz), nil
	}
}

// Research produces a brief on topic, attaches it to the research chat
// context and focuses that context.
func (c *Controller) Research(ctx context.Context, topic string) (domain.ResearchResult, error) {
	res, err := c.deps.Analyzer.ByDeepResearch(ctx, topic)
	if err != nil {
		c.logger.Warn("research failed", zap.String("topic", strings.TrimSpace(topic)), zap.Error(err))
		return domain.ResearchResult{}, err
	}
	c.mu.Lock()
	c.research = &res
	c.mu.Unlock()
	c.router.AttachResearch(res)
	_ = c.router.Focus(chat.KindResearch)
	return res, nil
}

// LoadHistoryItem makes a previously saved analysis the active record.
func (c *Controller) LoadHistoryItem(ctx context.Context, id string) (domain.HistoryItem, error) {
	if c.deps.History == nil {
		return domain.HistoryItem{}, ErrHistoryNotFound
	}
	item, ok, err := c.deps.History.Get(ctx, id)
	if err != nil {
		return domain.HistoryItem{}, err
	}
	if !ok {
		return domain.HistoryItem{}, ErrHistoryNotFound
	}
	c.commit(item.Data)
	_ = c.router.Focus(chat.KindVideo)
	return item, nil
}

// History returns the session's history store, or nil when history is off.
func (c *Controller) History() *history.Store {
	return c.deps.History
}

// Record returns the active record.
func (c *Controller) Record() (domain.AnalysisRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		return domain.AnalysisRecord{}, false
	}
	return *c.record, true
}

// ResearchResult returns the active research brief.
func (c *Controller) ResearchResult() (domain.ResearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.research == nil {
		return domain.ResearchResult{}, false
	}
	return *c.research, true
}

// Chat exposes the session's context router.
func (c *Controller) Chat() *chat.Router {
	return c.router
}

// SuggestedQuestions derives starter questions from the active record.
func (c *Controller) SuggestedQuestions() []string {
	rec, ok := c.Record()
	if !ok {
		return []string{}
	}
	return chat.SuggestedQuestions(rec)
}

// UserMessage converts an analysis failure to the single message shown to
// the user.
func UserMessage(err error) string {
	var (
		validation *analysis.ValidationError
		config     *analysis.ConfigurationError
		mismatch   *analysis.MismatchError
		notFound   *analysis.NotFoundError
		network    *analysis.NetworkError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &config):
		return "The service is missing a valid model API key. Contact the administrator."
	case errors.As(err, &mismatch):
		return mismatch.Remediation()
	case errors.As(err, &notFound):
		return notFound.Remediation()
	case errors.As(err, &network):
		return network.Remediation()
	case errors.Is(err, analysis.ErrMalformedResponse):
		return "The model returned a response that could not be read. Please try again."
	case errors.Is(err, analysis.ErrEmptyResponse):
		return "The model returned an empty response. Please try again."
	case errors.Is(err, analysis.ErrTooLarge):
		return "The upload is too large. Please choose a smaller file."
	case errors.Is(err, chat.ErrBusy):
		return "Please wait for the current answer before asking again."
	case errors.Is(err, chat.ErrUnknownContext):
		return "Unknown chat context."
	case errors.Is(err, ErrHistoryNotFound):
		return "That history item no longer exists."
	case errors.Is(err, ErrNoRecord):
		return "Analyze a video first."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

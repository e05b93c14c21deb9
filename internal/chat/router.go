// Package chat routes questions to one of two independent conversations: the
// analyzed video and a researched topic.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Himanshu0815/Youtube-Agent/internal/analysis"
	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

type Kind string

const (
	KindVideo    Kind = "video"
	KindResearch Kind = "research"
)

// ParseKind accepts "video" or "research"; empty means video.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindVideo:
		return KindVideo, nil
	case KindResearch:
		return KindResearch, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContext, s)
}

type State int

const (
	StateUninitialized State = iota
	StateGreeted
	StateAwaiting
	StateIdle
)

func (s State) String() string {
	switch s {
	case StateGreeted:
		return "greeted"
	case StateAwaiting:
		return "awaiting-response"
	case StateIdle:
		return "idle"
	default:
		return "uninitialized"
	}
}

var (
	// ErrBusy rejects a question while the previous one in the same context
	// is still awaiting its answer.
	ErrBusy           = errors.New("a question is already awaiting a response")
	ErrUnknownContext = errors.New("unknown chat context")
)

const (
	UnavailableMessage = "There is nothing to discuss here yet. Analyze a video or research a topic first."
	timeoutMessage     = "Sorry, the answer took too long. Please try asking again."
	failureMessage     = "Sorry, I couldn't answer that. Please try again."
	defaultTimeout     = 60 * time.Second
)

// Asker answers a question from knowledge and prior turns.
type Asker interface {
	AskQuestion(ctx context.Context, question string, k analysis.Knowledge, history []domain.ChatMessage) (string, error)
}

type thread struct {
	knowledge analysis.Knowledge
	identity  string
	messages  []domain.ChatMessage
	state     State
	// generation increments on every reset so late answers for replaced
	// knowledge are dropped.
	generation int
}

// Router owns both conversations. It is safe for concurrent use.
type Router struct {
	mu      sync.Mutex
	asker   Asker
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
	active  Kind
	threads map[Kind]*thread
}

// NewRouter builds a router. timeout bounds each question; zero uses 60s.
func NewRouter(asker Asker, timeout time.Duration, logger *zap.Logger) *Router {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Router{
		asker:   asker,
		timeout: timeout,
		now:     time.Now,
		logger:  logger,
		active:  KindVideo,
		threads: map[Kind]*thread{
			KindVideo:    {messages: []domain.ChatMessage{}},
			KindResearch: {messages: []domain.ChatMessage{}},
		},
	}
}

// AttachRecord makes rec the video context's knowledge.
func (r *Router) AttachRecord(rec domain.AnalysisRecord) {
	identity := rec.VideoID
	if identity == "" {
		identity = "title:" + rec.Title + "|" + rec.Summary
	}
	r.attach(KindVideo, analysis.Knowledge{Record: &rec}, identity,
		fmt.Sprintf("Hi! I've analyzed \"%s\". Ask me anything about it.", rec.Title))
}

// AttachResearch makes res the research context's knowledge.
func (r *Router) AttachResearch(res domain.ResearchResult) {
	r.attach(KindResearch, analysis.Knowledge{Research: &res}, "topic:"+res.Topic,
		fmt.Sprintf("I've researched \"%s\". What would you like to know about it?", res.Topic))
}

func (r *Router) attach(kind Kind, k analysis.Knowledge, identity, greeting string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.threads[kind]
	if t.identity == identity && t.state != StateUninitialized {
		t.knowledge = k
		return
	}
	t.generation++
	t.knowledge = k
	t.identity = identity
	t.messages = []domain.ChatMessage{r.message(domain.RoleModel, greeting)}
	t.state = StateGreeted
}

// Ask appends question to kind's conversation and, once answered, the
// model's reply. A failed question still ends in a model message; only
// bad input and ErrBusy are returned as errors.
func (r *Router) Ask(ctx context.Context, kind Kind, question string) (domain.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.ChatMessage{}, &analysis.ValidationError{Field: "question", Message: "question is required"}
	}

	r.mu.Lock()
	t, ok := r.threads[kind]
	if !ok {
		r.mu.Unlock()
		return domain.ChatMessage{}, fmt.Errorf("%w: %q", ErrUnknownContext, kind)
	}
	if t.state == StateAwaiting {
		r.mu.Unlock()
		return domain.ChatMessage{}, ErrBusy
	}
	if !t.knowledge.Available() {
		t.messages = append(t.messages, r.message(domain.RoleUser, question))
		reply := r.message(domain.RoleModel, UnavailableMessage)
		t.messages = append(t.messages, reply)
		r.mu.Unlock()
		return reply, nil
	}
	history := append([]domain.ChatMessage(nil), t.messages...)
	t.messages = append(t.messages, r.message(domain.RoleUser, question))
	t.state = StateAwaiting
	knowledge := t.knowledge
	generation := t.generation
	r.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	answer, err := r.asker.AskQuestion(callCtx, question, knowledge, history)
	cancel()

	content := answer
	if err != nil {
		r.logger.Warn("chat question failed", zap.String("context", string(kind)), zap.Error(err))
		content = failureMessage
		if errors.Is(err, context.DeadlineExceeded) {
			content = timeoutMessage
		}
	} else if strings.TrimSpace(content) == "" {
		content = failureMessage
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	reply := r.message(domain.RoleModel, content)
	if t.generation != generation {
		// Knowledge was replaced while waiting; that conversation is gone.
		return reply, nil
	}
	t.messages = append(t.messages, reply)
	t.state = StateIdle
	return reply, nil
}

// Focus switches the active context without touching either conversation.
func (r *Router) Focus(kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.threads[kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownContext, kind)
	}
	r.active = kind
	return nil
}

func (r *Router) Active() Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Messages returns a copy of kind's conversation.
func (r *Router) Messages(kind Kind) []domain.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[kind]
	if !ok {
		return []domain.ChatMessage{}
	}
	return append([]domain.ChatMessage{}, t.messages...)
}

func (r *Router) State(kind Kind) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.threads[kind]; ok {
		return t.state
	}
	return StateUninitialized
}

// SuggestedQuestions returns starter questions for rec.
func SuggestedQuestions(rec domain.AnalysisRecord) []string {
	return analysis.SuggestedQuestions(rec)
}

func (r *Router) message(role domain.Role, content string) domain.ChatMessage {
	return domain.ChatMessage{Role: role, Content: content, Timestamp: r.now().UnixMilli()}
}

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Himanshu0815/Youtube-Agent/internal/analysis"
	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

type askerFunc func(ctx context.Context, question string, k analysis.Knowledge, history []domain.ChatMessage) (string, error)

func (f askerFunc) AskQuestion(ctx context.Context, question string, k analysis.Knowledge, history []domain.ChatMessage) (string, error) {
	return f(ctx, question, k, history)
}

func TestAttachGreetsOncePerRecord(t *testing.T) {
	r := NewRouter(askerFunc(nil), 0, nil)
	if r.State(KindVideo) != StateUninitialized {
		t.Fatalf("expected uninitialized")
	}
	rec := domain.AnalysisRecord{VideoID: "aaaaaaaaaaa", Title: "Go Tour"}
	r.AttachRecord(rec)
	r.AttachRecord(rec)
	msgs := r.Messages(KindVideo)
	if len(msgs) != 1 || msgs[0].Role != domain.RoleModel || !strings.Contains(msgs[0].Content, "Go Tour") {
		t.Fatalf("unexpected greeting: %+v", msgs)
	}
	if r.State(KindVideo) != StateGreeted {
		t.Fatalf("state = %s", r.State(KindVideo))
	}

	r.AttachRecord(domain.AnalysisRecord{VideoID: "bbbbbbbbbbb", Title: "Rust Tour"})
	msgs = r.Messages(KindVideo)
	if len(msgs) != 1 || !strings.Contains(msgs[0].Content, "Rust Tour") {
		t.Fatalf("new record should reset the conversation: %+v", msgs)
	}
	if len(r.Messages(KindResearch)) != 0 {
		t.Fatalf("research context must be untouched")
	}
}

func TestAskResearchWithoutKnowledgeSkipsModel(t *testing.T) {
	called := false
	r := NewRouter(askerFunc(func(context.Context, string, analysis.Knowledge, []domain.ChatMessage) (string, error) {
		called = true
		return "", nil
	}), 0, nil)
	reply, err := r.Ask(context.Background(), KindResearch, "what is it?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if called {
		t.Fatal("model must not be called without knowledge")
	}
	if reply.Content != UnavailableMessage || reply.Role != domain.RoleModel {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestAskAppendsInOrderAndPassesHistory(t *testing.T) {
	var gotHistory []domain.ChatMessage
	r := NewRouter(askerFunc(func(_ context.Context, q string, k analysis.Knowledge, history []domain.ChatMessage) (string, error) {
		gotHistory = history
		if k.Record == nil || k.Record.Title != "Go Tour" {
			t.Fatalf("unexpected knowledge: %+v", k)
		}
		return "answer to " + q, nil
	}), 0, nil)
	r.AttachRecord(domain.AnalysisRecord{VideoID: "aaaaaaaaaaa", Title: "Go Tour"})

	if _, err := r.Ask(context.Background(), KindVideo, "first"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if _, err := r.Ask(context.Background(), KindVideo, "second"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	msgs := r.Messages(KindVideo)
	want := []string{"", "first", "answer to first", "second", "answer to second"}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i := 1; i < len(want); i++ {
		if msgs[i].Content != want[i] {
			t.Fatalf("message %d = %q, want %q", i, msgs[i].Content, want[i])
		}
	}
	if len(gotHistory) != 3 {
		t.Fatalf("history passed to model should exclude the pending question, got %d", len(gotHistory))
	}
	if r.State(KindVideo) != StateIdle {
		t.Fatalf("state = %s", r.State(KindVideo))
	}
}

func TestAskRejectsSecondInFlightQuestion(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	r := NewRouter(askerFunc(func(context.Context, string, analysis.Knowledge, []domain.ChatMessage) (string, error) {
		close(started)
		<-release
		return "done", nil
	}), time.Minute, nil)
	r.AttachRecord(domain.AnalysisRecord{VideoID: "aaaaaaaaaaa", Title: "x"})
	r.AttachResearch(domain.ResearchResult{Topic: "y"})

	done := make(chan error, 1)
	go func() {
		_, err := r.Ask(context.Background(), KindVideo, "slow")
		done <- err
	}()
	<-started
	if r.State(KindVideo) != StateAwaiting {
		t.Fatalf("state = %s", r.State(KindVideo))
	}
	if _, err := r.Ask(context.Background(), KindVideo, "again"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first ask: %v", err)
	}
}

func TestAskTimeoutAppendsTerminalMessage(t *testing.T) {
	r := NewRouter(askerFunc(func(ctx context.Context, _ string, _ analysis.Knowledge, _ []domain.ChatMessage) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), 20*time.Millisecond, nil)
	r.AttachResearch(domain.ResearchResult{Topic: "Stoicism"})

	reply, err := r.Ask(context.Background(), KindResearch, "hello?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if reply.Content != timeoutMessage {
		t.Fatalf("unexpected reply: %q", reply.Content)
	}
	if r.State(KindResearch) != StateIdle {
		t.Fatalf("state = %s", r.State(KindResearch))
	}
}

func TestAskFailureAppendsErrorMessage(t *testing.T) {
	r := NewRouter(askerFunc(func(context.Context, string, analysis.Knowledge, []domain.ChatMessage) (string, error) {
		return "", errors.New("model down")
	}), 0, nil)
	r.AttachRecord(domain.AnalysisRecord{Title: "x"})
	reply, err := r.Ask(context.Background(), KindVideo, "q")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	msgs := r.Messages(KindVideo)
	if reply.Content != failureMessage || msgs[len(msgs)-1].Content != failureMessage {
		t.Fatalf("expected failure message, got %+v", msgs)
	}
}

func TestFocusKeepsMessages(t *testing.T) {
	r := NewRouter(askerFunc(nil), 0, nil)
	r.AttachRecord(domain.AnalysisRecord{Title: "x"})
	if err := r.Focus(KindResearch); err != nil {
		t.Fatalf("focus: %v", err)
	}
	if r.Active() != KindResearch || len(r.Messages(KindVideo)) != 1 {
		t.Fatalf("focus must not reset conversations")
	}
	if err := r.Focus(Kind("other")); !errors.Is(err, ErrUnknownContext) {
		t.Fatalf("expected ErrUnknownContext, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(""); err != nil || k != KindVideo {
		t.Fatalf("empty kind: %v %v", k, err)
	}
	if k, err := ParseKind("Research"); err != nil || k != KindResearch {
		t.Fatalf("research kind: %v %v", k, err)
	}
	if _, err := ParseKind("nope"); !errors.Is(err, ErrUnknownContext) {
		t.Fatalf("expected ErrUnknownContext, got %v", err)
	}
}

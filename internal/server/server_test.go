package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Himanshu0815/Youtube-Agent/internal/analysis"
	"github.com/Himanshu0815/Youtube-Agent/internal/history"
	"github.com/Himanshu0815/Youtube-Agent/internal/ratelimit"
	"github.com/Himanshu0815/Youtube-Agent/internal/session"
	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

type stubAnalyzer struct {
	urlErr error
}

func (s *stubAnalyzer) ByURL(_ context.Context, url string, hint domain.VideoType) (domain.AnalysisRecord, error) {
	if s.urlErr != nil {
		return domain.AnalysisRecord{}, s.urlErr
	}
	return domain.AnalysisRecord{VideoID: "dQw4w9WgXcQ", Title: "From URL", VideoType: hint}, nil
}

func (s *stubAnalyzer) ByTranscript(_ context.Context, text, _ string, _ domain.VideoType) (domain.AnalysisRecord, error) {
	if strings.TrimSpace(text) == "" {
		return domain.AnalysisRecord{}, &analysis.ValidationError{Field: "text", Message: "transcript is required"}
	}
	return domain.AnalysisRecord{
		Title:     "Lecture Notes",
		Summary:   "A summary.",
		VideoType: domain.TypeEducational,
		Themes:    []domain.Theme{{Topic: "Goroutines"}},
	}, nil
}

func (s *stubAnalyzer) ByMultimodal(_ context.Context, m analysis.MediaInput, frames []analysis.ImageInput, _ domain.VideoType) (domain.AnalysisRecord, error) {
	return domain.AnalysisRecord{Title: m.Filename, Summary: strings.Repeat("f", len(frames))}, nil
}

func (s *stubAnalyzer) ByDocument(_ context.Context, filename string, _ []byte, _ domain.VideoType) (domain.AnalysisRecord, error) {
	return domain.AnalysisRecord{Title: filename}, nil
}

func (s *stubAnalyzer) ByDeepResearch(_ context.Context, topic string) (domain.ResearchResult, error) {
	return domain.ResearchResult{Topic: topic, Definition: "d"}, nil
}

func (s *stubAnalyzer) GenerateQuiz(_ context.Context, rec domain.AnalysisRecord) (domain.Quiz, error) {
	return domain.Quiz{Questions: []domain.QuizQuestion{{Question: "About " + rec.Title, Options: []string{"a", "b"}}}}, nil
}

func (s *stubAnalyzer) AskQuestion(_ context.Context, q string, _ analysis.Knowledge, _ []domain.ChatMessage) (string, error) {
	return "answer to " + q, nil
}

func newTestServer(t *testing.T, a *stubAnalyzer, mutate func(*Config)) *httptest.Server {
	t.Helper()
	store := history.NewStore(history.NewMemoryBackend())
	cfg := Config{
		Sessions: session.NewManager(session.Dependencies{
			Analyzer:    a,
			History:     store,
			ChatTimeout: time.Second,
			QuizTimeout: time.Second,
		}),
		MaxUploadBytes: 1 << 10,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, sessionID string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)
	resp := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestAnalyzeTranscriptThenExportAndHistory(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/analyze/transcript", "", map[string]string{"text": "hello world"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	sid := resp.Header.Get(sessionHeader)
	if sid == "" {
		t.Fatalf("expected session id to be issued")
	}
	var rec domain.AnalysisRecord
	decodeBody(t, resp, &rec)
	if rec.Title != "Lecture Notes" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	export := doJSON(t, http.MethodGet, ts.URL+"/api/export", sid, nil)
	if export.StatusCode != http.StatusOK {
		t.Fatalf("export expected 200, got %d", export.StatusCode)
	}
	if !strings.Contains(export.Header.Get("Content-Disposition"), "LectureNotes.md") {
		t.Fatalf("unexpected disposition: %q", export.Header.Get("Content-Disposition"))
	}

	list := doJSON(t, http.MethodGet, ts.URL+"/api/history", sid, nil)
	var items []domain.HistoryItem
	decodeBody(t, list, &items)
	if len(items) != 1 || items[0].Title != "Lecture Notes" {
		t.Fatalf("unexpected history: %+v", items)
	}

	suggestions := doJSON(t, http.MethodGet, ts.URL+"/api/suggestions", sid, nil)
	var sug map[string][]string
	decodeBody(t, suggestions, &sug)
	if len(sug["questions"]) != 2 {
		t.Fatalf("unexpected suggestions: %v", sug)
	}

	quiz := doJSON(t, http.MethodGet, ts.URL+"/api/quiz", sid, nil)
	var q domain.Quiz
	decodeBody(t, quiz, &q)
	if len(q.Questions) != 1 || q.Questions[0].Question != "About Lecture Notes" {
		t.Fatalf("unexpected quiz: %+v", q)
	}

	cleared := doJSON(t, http.MethodDelete, ts.URL+"/api/history", sid, nil)
	if cleared.StatusCode != http.StatusNoContent {
		t.Fatalf("clear expected 204, got %d", cleared.StatusCode)
	}
	after := doJSON(t, http.MethodGet, ts.URL+"/api/history", sid, nil)
	items = nil
	decodeBody(t, after, &items)
	if len(items) != 0 {
		t.Fatalf("expected empty history after clear, got %+v", items)
	}
}

func TestExportWithoutRecord(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/export", "fresh", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&analysis.MismatchError{RequestedID: "a", ResolvedID: "b"}, http.StatusConflict},
		{&analysis.NotFoundError{}, http.StatusNotFound},
		{&analysis.ValidationError{Field: "url", Message: "bad"}, http.StatusBadRequest},
		{&analysis.ConfigurationError{Err: errors.New("no key")}, http.StatusInternalServerError},
		{analysis.ErrMalformedResponse, http.StatusBadGateway},
		{analysis.ErrEmptyResponse, http.StatusBadGateway},
		{analysis.ErrTooLarge, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		ts := newTestServer(t, &stubAnalyzer{urlErr: tc.err}, nil)
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/analyze", "", map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ"})
		if resp.StatusCode != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, resp.StatusCode)
		}
		var body map[string]string
		decodeBody(t, resp, &body)
		if body["error"] != session.UserMessage(tc.err) {
			t.Fatalf("%v: unexpected error body %q", tc.err, body["error"])
		}
	}
}

func TestInvalidJSON(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)
	resp, err := http.Post(ts.URL+"/api/analyze", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestChatFlow(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)
	sid := "session-chat"

	early := doJSON(t, http.MethodPost, ts.URL+"/api/chat", sid, map[string]string{"context": "video", "question": "hi"})
	var resp chatResponse
	decodeBody(t, early, &resp)
	if resp.Reply == nil || !strings.Contains(resp.Reply.Content, "nothing to discuss") {
		t.Fatalf("expected unavailable reply, got %+v", resp)
	}

	doJSON(t, http.MethodPost, ts.URL+"/api/research", sid, map[string]string{"topic": "Stoicism"})
	ask := doJSON(t, http.MethodPost, ts.URL+"/api/chat", sid, map[string]string{"question": "why?"})
	resp = chatResponse{}
	decodeBody(t, ask, &resp)
	if resp.Context != "research" || resp.Reply.Content != "answer to why?" {
		t.Fatalf("unexpected chat response: %+v", resp)
	}

	bad := doJSON(t, http.MethodPost, ts.URL+"/api/chat/focus", sid, map[string]string{"context": "nope"})
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown context, got %d", bad.StatusCode)
	}
	focus := doJSON(t, http.MethodPost, ts.URL+"/api/chat/focus", sid, map[string]string{"context": "video"})
	if focus.StatusCode != http.StatusOK {
		t.Fatalf("focus expected 200, got %d", focus.StatusCode)
	}

	msgs := doJSON(t, http.MethodGet, ts.URL+"/api/chat?context=research", sid, nil)
	resp = chatResponse{}
	decodeBody(t, msgs, &resp)
	if len(resp.Messages) < 2 {
		t.Fatalf("expected research conversation, got %+v", resp.Messages)
	}
}

func multipartBody(t *testing.T, fileField, filename string, data []byte, frames int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(fileField, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write(data)
	for i := 0; i < frames; i++ {
		ff, err := mw.CreateFormFile("frames[]", "frame.jpg")
		if err != nil {
			t.Fatalf("create frame: %v", err)
		}
		_, _ = ff.Write([]byte{0xff, 0xd8, 0xff})
	}
	_ = mw.WriteField("videoType", "Vlog")
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeMediaUpload(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)
	body, ct := multipartBody(t, "file", "clip.mp4", []byte("tiny"), 2)
	resp, err := http.Post(ts.URL+"/api/analyze/media", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var rec domain.AnalysisRecord
	decodeBody(t, resp, &rec)
	if rec.Title != "clip.mp4" || rec.Summary != "ff" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestAnalyzeMediaTooLarge(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)
	body, ct := multipartBody(t, "file", "clip.mp4", bytes.Repeat([]byte("x"), 100<<10), 0)
	resp, err := http.Post(ts.URL+"/api/analyze/media", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestAnalyzeDocumentRequiresFile(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)
	body, ct := multipartBody(t, "other", "notes.txt", []byte("text"), 0)
	resp, err := http.Post(ts.URL+"/api/analyze/document", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHistoryItemNotFound(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/history/missing", "s", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAnalyzeRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisLimiter(mr.Addr(), "", "", 1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	t.Cleanup(func() { _ = limiter.Close() })
	ts := newTestServer(t, &stubAnalyzer{}, func(cfg *Config) { cfg.Limiter = limiter })

	first := doJSON(t, http.MethodPost, ts.URL+"/api/analyze/transcript", "", map[string]string{"text": "a"})
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", first.StatusCode)
	}
	second := doJSON(t, http.MethodPost, ts.URL+"/api/analyze/transcript", "", map[string]string{"text": "a"})
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", second.StatusCode)
	}
	if second.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	health := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	if health.StatusCode != http.StatusOK {
		t.Fatalf("healthz should not be limited, got %d", health.StatusCode)
	}
}

func TestNewRequiresSessions(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without session manager")
	}
}

func TestHistoryIsPrivateToSession(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)
	analyzed := doJSON(t, http.MethodPost, ts.URL+"/api/analyze", "alice", map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ"})
	if analyzed.StatusCode != http.StatusOK {
		t.Fatalf("analyze expected 200, got %d", analyzed.StatusCode)
	}

	var items []domain.HistoryItem
	decodeBody(t, doJSON(t, http.MethodGet, ts.URL+"/api/history", "bob", nil), &items)
	if len(items) != 0 {
		t.Fatalf("bob sees alice's history: %+v", items)
	}
	if resp := doJSON(t, http.MethodGet, ts.URL+"/api/history/dQw4w9WgXcQ", "bob", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("bob loading alice's item expected 404, got %d", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodDelete, ts.URL+"/api/history", "mallory", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear expected 204, got %d", resp.StatusCode)
	}

	items = nil
	decodeBody(t, doJSON(t, http.MethodGet, ts.URL+"/api/history", "alice", nil), &items)
	if len(items) != 1 || items[0].ID != "dQw4w9WgXcQ" {
		t.Fatalf("alice's history changed: %+v", items)
	}
	if resp := doJSON(t, http.MethodGet, ts.URL+"/api/history/dQw4w9WgXcQ", "alice", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("alice loading her item expected 200, got %d", resp.StatusCode)
	}
}

func TestAnalyzeLongTranscriptIsAccepted(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, func(cfg *Config) { cfg.MaxUploadBytes = 2 << 20 })
	text := strings.Repeat("long lecture ", 100_000)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/analyze/transcript", "", map[string]string{"text": text})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for a %d byte transcript, got %d", len(text), resp.StatusCode)
	}
}

func TestAnalyzeTranscriptTooLarge(t *testing.T) {
	ts := newTestServer(t, &stubAnalyzer{}, nil)
	text := strings.Repeat("x", 100<<10)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/analyze/transcript", "", map[string]string{"text": text})
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != session.UserMessage(analysis.ErrTooLarge) {
		t.Fatalf("unexpected error body %q", body["error"])
	}
}

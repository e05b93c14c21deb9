package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Himanshu0815/Youtube-Agent/internal/analysis"
	"github.com/Himanshu0815/Youtube-Agent/internal/chat"
	"github.com/Himanshu0815/Youtube-Agent/internal/export"
	"github.com/Himanshu0815/Youtube-Agent/internal/ratelimit"
	"github.com/Himanshu0815/Youtube-Agent/internal/session"
	"github.com/Himanshu0815/Youtube-Agent/internal/util"
	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

const (
	sessionHeader   = "X-Session-Id"
	maxSessionIDLen = 128
	maxJSONBody     = 1 << 20
	// Room for the JSON framing and the optional context field around a
	// pasted transcript.
	transcriptSlack = 64 << 10
	maxMemory       = 32 << 20
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Sessions       *session.Manager
	Limiter        ratelimit.Limiter
	TrustedProxies *util.TrustedProxies
	CORSOrigins    []string
	// MaxUploadBytes bounds uploaded files and pasted transcripts alike.
	// Transcripts longer than the analysis limit are truncated, not refused.
	MaxUploadBytes int64
	// ThumbnailDir, when set, is served under /thumbnails/.
	ThumbnailDir string
}

// Server exposes the analysis API.
type Server struct {
	sessions  *session.Manager
	limiter   ratelimit.Limiter
	trusted   *util.TrustedProxies
	origins   []string
	maxUpload int64
	thumbDir  string
	router    chi.Router
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session manager required")
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = analysis.DefaultLimits().MaxUploadBytes
	}
	s := &Server{
		sessions:  cfg.Sessions,
		limiter:   cfg.Limiter,
		trusted:   cfg.TrustedProxies,
		origins:   cfg.CORSOrigins,
		maxUpload: maxUpload,
		thumbDir:  cfg.ThumbnailDir,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.router
	h = util.WithRequestLog("youtube-agent", h)
	h = util.WithRequestID(h)
	h = util.WithCORS(s.origins, h)
	return util.WithSecurityHeaders(h)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.thumbDir != "" {
		r.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/", http.FileServer(http.Dir(s.thumbDir))))
	}

	r.Route("/api", func(r chi.Router) {
		// Model-backed endpoints share the per-client quota.
		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(s.limiter, s.clientKey))
			r.Post("/analyze", s.withSession(s.handleAnalyzeURL))
			r.Post("/analyze/transcript", s.withSession(s.handleAnalyzeTranscript))
			r.Post("/analyze/media", s.withSession(s.handleAnalyzeMedia))
			r.Post("/analyze/document", s.withSession(s.handleAnalyzeDocument))
			r.Post("/research", s.withSession(s.handleResearch))
			r.Post("/chat", s.withSession(s.handleAsk))
		})
		r.Get("/chat", s.withSession(s.handleChatMessages))
		r.Post("/chat/focus", s.withSession(s.handleFocus))
		r.Get("/quiz", s.withSession(s.handleQuiz))
		r.Get("/suggestions", s.withSession(s.handleSuggestions))
		r.Get("/history", s.withSession(s.handleHistoryList))
		r.Delete("/history", s.withSession(s.handleHistoryClear))
		r.Get("/history/{id}", s.withSession(s.handleHistoryLoad))
		r.Get("/export", s.withSession(s.handleExport))
	})
}

func (s *Server) clientKey(r *http.Request) string {
	return util.ClientIP(r, s.trusted)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionHandler func(http.ResponseWriter, *http.Request, *session.Controller)

// withSession resolves the caller's session from X-Session-Id, minting a new
// id when the header is missing or malformed. The id is echoed back.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(sessionHeader))
		if id == "" || len(id) > maxSessionIDLen {
			id = util.NewID()
		}
		w.Header().Set(sessionHeader, id)
		next(w, r, s.sessions.Get(id))
	}
}

type analyzeURLRequest struct {
	URL       string           `json:"url"`
	VideoType domain.VideoType `json:"videoType"`
}

func (s *Server) handleAnalyzeURL(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	var req analyzeURLRequest
	if !decodeJSON(w, r, &req, maxJSONBody) {
		return
	}
	s.analyze(w, r, c, session.Request{Kind: session.KindURL, URL: req.URL, VideoType: req.VideoType})
}

type analyzeTranscriptRequest struct {
	Text      string           `json:"text"`
	Context   string           `json:"context"`
	VideoType domain.VideoType `json:"videoType"`
}

func (s *Server) handleAnalyzeTranscript(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	var req analyzeTranscriptRequest
	if !decodeJSON(w, r, &req, s.maxUpload+transcriptSlack) {
		return
	}
	s.analyze(w, r, c, session.Request{
		Kind:      session.KindTranscript,
		Text:      req.Text,
		Context:   req.Context,
		VideoType: req.VideoType,
	})
}

func (s *Server) handleAnalyzeMedia(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	if !s.parseUpload(w, r) {
		return
	}
	data, header, err := readFormFile(r, "file")
	if err != nil {
		s.writeUploadError(w, r, err)
		return
	}
	var frames []analysis.ImageInput
	for _, field := range []string{"frames[]", "frames"} {
		for _, fh := range r.MultipartForm.File[field] {
			frame, err := readFileHeader(fh)
			if err != nil {
				s.writeUploadError(w, r, err)
				return
			}
			frames = append(frames, analysis.ImageInput{MIMEType: fh.Header.Get("Content-Type"), Data: frame})
		}
	}
	s.analyze(w, r, c, session.Request{
		Kind: session.KindMedia,
		Media: analysis.MediaInput{
			Filename: header.Filename,
			MIMEType: header.Header.Get("Content-Type"),
			Data:     data,
		},
		Frames:    frames,
		VideoType: domain.VideoType(strings.TrimSpace(r.FormValue("videoType"))),
	})
}

func (s *Server) handleAnalyzeDocument(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	if !s.parseUpload(w, r) {
		return
	}
	data, header, err := readFormFile(r, "file")
	if err != nil {
		s.writeUploadError(w, r, err)
		return
	}
	s.analyze(w, r, c, session.Request{
		Kind:      session.KindDocument,
		Filename:  header.Filename,
		Document:  data,
		VideoType: domain.VideoType(strings.TrimSpace(r.FormValue("videoType"))),
	})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, c *session.Controller, req session.Request) {
	rec, err := c.Analyze(r.Context(), req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// parseUpload bounds the request body and parses the multipart form. Frames
// ride along with the media file, so the body may exceed the file limit by
// half of it.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	limit := s.maxUpload + s.maxUpload/2 + 64<<10
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		s.writeUploadError(w, r, err)
		return false
	}
	return true
}

func (s *Server) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeFailure(w, r, analysis.ErrTooLarge)
	case errors.Is(err, http.ErrMissingFile):
		writeFailure(w, r, &analysis.ValidationError{Field: "file", Message: "file is required", Err: err})
	default:
		writeFailure(w, r, &analysis.ValidationError{Field: "file", Message: "invalid multipart upload", Err: err})
	}
}

func readFormFile(r *http.Request, field string) ([]byte, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, err
	}
	return data, header, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type researchRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	var req researchRequest
	if !decodeJSON(w, r, &req, maxJSONBody) {
		return
	}
	res, err := c.Research(r.Context(), req.Topic)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type askRequest struct {
	Context  string `json:"context"`
	Question string `json:"question"`
}

type chatResponse struct {
	Context  chat.Kind            `json:"context"`
	State    string               `json:"state"`
	Reply    *domain.ChatMessage  `json:"reply,omitempty"`
	Messages []domain.ChatMessage `json:"messages"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	var req askRequest
	if !decodeJSON(w, r, &req, maxJSONBody) {
		return
	}
	router := c.Chat()
	kind, err := resolveKind(router, req.Context)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	reply, err := router.Ask(r.Context(), kind, req.Question)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Context:  kind,
		State:    router.State(kind).String(),
		Reply:    &reply,
		Messages: router.Messages(kind),
	})
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	router := c.Chat()
	kind, err := resolveKind(router, r.URL.Query().Get("context"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Context:  kind,
		State:    router.State(kind).String(),
		Messages: router.Messages(kind),
	})
}

type focusRequest struct {
	Context string `json:"context"`
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	var req focusRequest
	if !decodeJSON(w, r, &req, maxJSONBody) {
		return
	}
	kind, err := chat.ParseKind(req.Context)
	if err == nil {
		err = c.Chat().Focus(kind)
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]chat.Kind{"active": c.Chat().Active()})
}

// resolveKind parses raw, falling back to the focused context when empty.
func resolveKind(router *chat.Router, raw string) (chat.Kind, error) {
	if strings.TrimSpace(raw) == "" {
		return router.Active(), nil
	}
	return chat.ParseKind(raw)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	quiz, err := c.Quiz(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, _ *http.Request, c *session.Controller) {
	writeJSON(w, http.StatusOK, map[string][]string{"questions": c.SuggestedQuestions()})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	store := c.History()
	if store == nil {
		writeJSON(w, http.StatusOK, []domain.HistoryItem{})
		return
	}
	items, err := store.LoadAll(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	if store := c.History(); store != nil {
		if err := store.Clear(r.Context()); err != nil {
			writeFailure(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistoryLoad(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	item, err := c.LoadHistoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	rec, ok := c.Record()
	if !ok {
		writeFailure(w, r, session.ErrNoRecord)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(rec.Title)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, export.Markdown(rec))
}

// decodeJSON reads at most limit bytes into dst. Oversized bodies get 413,
// anything else unreadable gets 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, r, analysis.ErrTooLarge)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// statusFor maps the error taxonomy to an HTTP status.
func statusFor(err error) int {
	var (
		validation *analysis.ValidationError
		config     *analysis.ConfigurationError
		mismatch   *analysis.MismatchError
		notFound   *analysis.NotFoundError
		network    *analysis.NetworkError
	)
	switch {
	case errors.As(err, &validation), errors.Is(err, chat.ErrUnknownContext):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.Is(err, session.ErrHistoryNotFound), errors.Is(err, session.ErrNoRecord):
		return http.StatusNotFound
	case errors.As(err, &mismatch), errors.Is(err, session.ErrQuizStale):
		return http.StatusConflict
	case errors.Is(err, chat.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, analysis.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &network):
		if network.TooLarge() {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadGateway
	case errors.As(err, &config):
		return http.StatusInternalServerError
	case errors.Is(err, analysis.ErrMalformedResponse), errors.Is(err, analysis.ErrEmptyResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		util.LoggerFromContext(r.Context()).Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, session.UserMessage(err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

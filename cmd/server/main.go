package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Himanshu0815/Youtube-Agent/internal/analysis"
	"github.com/Himanshu0815/Youtube-Agent/internal/config"
	"github.com/Himanshu0815/Youtube-Agent/internal/document"
	"github.com/Himanshu0815/Youtube-Agent/internal/history"
	"github.com/Himanshu0815/Youtube-Agent/internal/media"
	"github.com/Himanshu0815/Youtube-Agent/internal/ratelimit"
	"github.com/Himanshu0815/Youtube-Agent/internal/server"
	"github.com/Himanshu0815/Youtube-Agent/internal/session"
	"github.com/Himanshu0815/Youtube-Agent/internal/util"
	"github.com/Himanshu0815/Youtube-Agent/internal/youtube"
	"github.com/Himanshu0815/Youtube-Agent/pkg/ai"
)

const thumbnailURLExpiry = 24 * time.Hour

func main() {
	configPath := flag.String("config", config.ConfigPath, "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	gen, err := ai.NewGenerator(ai.ProviderConfig{
		Provider: cfg.GenerationProvider,
		APIKey:   cfg.GenerationAPIKey,
		BaseURL:  cfg.GenerationBaseURL,
		Model:    cfg.GenerationModel,
		Timeout:  cfg.GenerationTimeout(),
	})
	if err != nil {
		logger.Fatal("failed to init generator", zap.Error(err))
	}

	analyzer, err := analysis.New(analysis.Config{
		Generator: gen,
		Metadata:  youtube.NewOEmbedClient(cfg.OEmbedURL),
		Documents: &document.Extractor{MaxContentBytes: 4 * cfg.MaxUploadBytes()},
		Limits: analysis.Limits{
			MaxTranscriptChars: cfg.MaxTranscriptChars,
			MaxUploadBytes:     cfg.MaxUploadBytes(),
			MaxFrames:          cfg.MaxFrames,
			ChatHistoryTurns:   cfg.ChatHistoryTurns,
			QuizQuestions:      cfg.QuizQuestions,
		},
		Logger: logger.Named("analysis"),
	})
	if err != nil {
		logger.Fatal("failed to init analyzer", zap.Error(err))
	}

	backend, closeBackend, err := openHistoryBackend(cfg)
	if err != nil {
		logger.Fatal("failed to open history backend", zap.String("backend", cfg.HistoryBackend), zap.Error(err))
	}
	defer closeBackend()
	// Each session reads and writes its own slice of this store.
	store := history.NewStore(backend,
		history.WithKey(cfg.HistoryKey),
		history.WithLimit(cfg.HistoryLimit),
		history.WithLogger(logger.Named("history")),
	)

	thumbs, thumbDir, err := openThumbnailStore(cfg)
	if err != nil {
		logger.Fatal("failed to init thumbnail store", zap.String("backend", cfg.ThumbnailBackend), zap.Error(err))
	}

	limiter, closeLimiter, err := openLimiter(cfg)
	if err != nil {
		logger.Fatal("failed to init rate limiter", zap.Error(err))
	}
	defer closeLimiter()

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Fatal("invalid trusted proxies", zap.Error(err))
	}

	sessions := session.NewManager(session.Dependencies{
		Analyzer:    analyzer,
		History:     store,
		Thumbnails:  thumbs,
		Logger:      logger.Named("session"),
		ChatTimeout: cfg.ChatTimeout(),
		QuizTimeout: cfg.QuizTimeout(),
	})

	httpServer, err := server.New(server.Config{
		Sessions:       sessions,
		Limiter:        limiter,
		TrustedProxies: trusted,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		ThumbnailDir:   thumbDir,
	})
	if err != nil {
		logger.Fatal("failed to init server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweepSessions(ctx, sessions, cfg.SessionIdle(), logger)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("youtube-agent server listening",
		zap.String("addr", addr),
		zap.String("provider", cfg.GenerationProvider),
		zap.String("history_backend", cfg.HistoryBackend),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", zap.Error(err))
	}
}

func openHistoryBackend(cfg config.FileConfig) (history.Backend, func(), error) {
	noop := func() {}
	switch strings.ToLower(cfg.HistoryBackend) {
	case "file":
		b, err := history.NewFileBackend(cfg.HistoryDir)
		return b, noop, err
	case "redis":
		b := history.NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword)
		return b, closer(b), nil
	case "postgres":
		b, err := history.OpenGormBackend("postgres", cfg.DatabaseURL)
		return b, noop, err
	case "sqlite":
		b, err := history.OpenGormBackend("sqlite", cfg.SQLitePath)
		return b, noop, err
	default:
		return history.NewMemoryBackend(), noop, nil
	}
}

func openThumbnailStore(cfg config.FileConfig) (media.ThumbnailStore, string, error) {
	switch strings.ToLower(cfg.ThumbnailBackend) {
	case "minio":
		s, err := media.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, thumbnailURLExpiry)
		return s, "", err
	case "file":
		s, err := media.NewFileStore(cfg.ThumbnailDir, "/thumbnails")
		if err != nil {
			return nil, "", err
		}
		return s, s.Dir(), nil
	default:
		return nil, "", nil
	}
}

// openLimiter prefers Redis when configured so quotas hold across replicas.
func openLimiter(cfg config.FileConfig) (ratelimit.Limiter, func(), error) {
	noop := func() {}
	if cfg.RateLimitPerMinute == 0 {
		return nil, noop, nil
	}
	if cfg.RedisAddr != "" {
		l, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			return nil, noop, err
		}
		return l, closer(l), nil
	}
	l, err := ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
	return l, noop, err
}

func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}

func sweepSessions(ctx context.Context, sessions *session.Manager, maxIdle time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(maxIdle); n > 0 {
				logger.Debug("swept idle sessions", zap.Int("removed", n), zap.Int("live", sessions.Len()))
			}
		}
	}
}

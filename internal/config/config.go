package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port           string   `yaml:"port"`
	LogLevel       string   `yaml:"logLevel"`
	CORSOrigins    []string `yaml:"corsOrigins"`
	TrustedProxies []string `yaml:"trustedProxies"`

	GenerationProvider       string `yaml:"generationProvider"`
	GenerationBaseURL        string `yaml:"generationBaseURL"`
	GenerationAPIKey         string `yaml:"generationAPIKey"`
	GenerationModel          string `yaml:"generationModel"`
	GenerationTimeoutSeconds int    `yaml:"generationTimeoutSeconds"`
	OEmbedURL                string `yaml:"oembedURL"`

	HistoryBackend string `yaml:"historyBackend"`
	HistoryKey     string `yaml:"historyKey"`
	HistoryLimit   int    `yaml:"historyLimit"`
	HistoryDir     string `yaml:"historyDir"`
	DatabaseURL    string `yaml:"databaseURL"`
	SQLitePath     string `yaml:"sqlitePath"`

	RedisAddr          string `yaml:"redisAddr"`
	RedisPassword      string `yaml:"redisPassword"`
	RateLimitPerMinute int    `yaml:"rateLimitPerMinute"`

	ThumbnailBackend string `yaml:"thumbnailBackend"`
	ThumbnailDir     string `yaml:"thumbnailDir"`
	MinioEndpoint    string `yaml:"minioEndpoint"`
	MinioAccessKey   string `yaml:"minioAccessKey"`
	MinioSecretKey   string `yaml:"minioSecretKey"`
	MinioBucket      string `yaml:"minioBucket"`
	MinioUseSSL      bool   `yaml:"minioUseSSL"`

	MaxTranscriptChars int `yaml:"maxTranscriptChars"`
	MaxUploadMB        int `yaml:"maxUploadMB"`
	MaxFrames          int `yaml:"maxFrames"`
	ChatHistoryTurns   int `yaml:"chatHistoryTurns"`
	QuizQuestions      int `yaml:"quizQuestions"`
	ChatTimeoutSeconds int `yaml:"chatTimeoutSeconds"`
	QuizTimeoutSeconds int `yaml:"quizTimeoutSeconds"`
	SessionIdleMinutes int `yaml:"sessionIdleMinutes"`
}

// Load reads config from path (defaults to config.yaml), applies defaults
// and environment overrides, then validates.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.GenerationProvider == "" {
		cfg.GenerationProvider = "gemini"
	}
	if cfg.GenerationModel == "" && strings.EqualFold(cfg.GenerationProvider, "gemini") {
		cfg.GenerationModel = "gemini-2.5-flash"
	}
	if cfg.GenerationTimeoutSeconds == 0 {
		cfg.GenerationTimeoutSeconds = 120
	}
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = "memory"
	}
	if cfg.HistoryKey == "" {
		cfg.HistoryKey = "youtube-agent:history"
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = 10
	}
	if cfg.ThumbnailBackend == "" {
		cfg.ThumbnailBackend = "none"
	}
	if cfg.MaxTranscriptChars == 0 {
		cfg.MaxTranscriptChars = 30000
	}
	if cfg.MaxUploadMB == 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.MaxFrames == 0 {
		cfg.MaxFrames = 8
	}
	if cfg.ChatHistoryTurns == 0 {
		cfg.ChatHistoryTurns = 10
	}
	if cfg.QuizQuestions == 0 {
		cfg.QuizQuestions = 5
	}
	if cfg.ChatTimeoutSeconds == 0 {
		cfg.ChatTimeoutSeconds = 60
	}
	if cfg.QuizTimeoutSeconds == 0 {
		cfg.QuizTimeoutSeconds = 120
	}
	if cfg.SessionIdleMinutes == 0 {
		cfg.SessionIdleMinutes = 120
	}
}

func applyEnv(cfg *FileConfig) error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.GenerationProvider, "GENERATION_PROVIDER")
	setString(&cfg.GenerationBaseURL, "GENERATION_BASE_URL")
	setString(&cfg.GenerationAPIKey, "GEMINI_API_KEY")
	setString(&cfg.GenerationAPIKey, "GENERATION_API_KEY")
	setString(&cfg.GenerationModel, "GENERATION_MODEL")
	setString(&cfg.HistoryBackend, "HISTORY_BACKEND")
	setString(&cfg.HistoryDir, "HISTORY_DIR")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.ThumbnailBackend, "THUMBNAIL_BACKEND")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")

	for key, dst := range map[string]*int{
		"RATE_LIMIT_PER_MINUTE": &cfg.RateLimitPerMinute,
		"MAX_TRANSCRIPT_CHARS":  &cfg.MaxTranscriptChars,
		"MAX_UPLOAD_MB":         &cfg.MaxUploadMB,
		"CHAT_TIMEOUT_SECONDS":  &cfg.ChatTimeoutSeconds,
	} {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s must be an integer: %w", key, err)
		}
		*dst = n
	}
	return nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	switch strings.ToLower(cfg.GenerationProvider) {
	case "gemini", "openai":
		if cfg.GenerationAPIKey == "" {
			return errors.New("config: generationAPIKey is required (set in config.yaml or GEMINI_API_KEY)")
		}
	case "openai-compat":
		if cfg.GenerationBaseURL == "" {
			return errors.New("config: generationBaseURL is required for openai-compat (set in config.yaml)")
		}
	default:
		return fmt.Errorf("config: unknown generationProvider %q", cfg.GenerationProvider)
	}
	if cfg.GenerationModel == "" {
		return errors.New("config: generationModel is required (set in config.yaml)")
	}
	switch strings.ToLower(cfg.HistoryBackend) {
	case "memory":
	case "file":
		if cfg.HistoryDir == "" {
			return errors.New("config: historyDir is required for file history (set in config.yaml)")
		}
	case "redis":
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required for redis history (set in config.yaml or REDIS_ADDR)")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for postgres history (set in config.yaml or DATABASE_URL)")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			return errors.New("config: sqlitePath is required for sqlite history (set in config.yaml)")
		}
	default:
		return fmt.Errorf("config: unknown historyBackend %q", cfg.HistoryBackend)
	}
	switch strings.ToLower(cfg.ThumbnailBackend) {
	case "none":
	case "file":
		if cfg.ThumbnailDir == "" {
			return errors.New("config: thumbnailDir is required for file thumbnails (set in config.yaml)")
		}
	case "minio":
		if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioEndpoint and minioBucket are required for minio thumbnails (set in config.yaml)")
		}
	default:
		return fmt.Errorf("config: unknown thumbnailBackend %q", cfg.ThumbnailBackend)
	}
	if cfg.RateLimitPerMinute < 0 {
		return errors.New("config: rateLimitPerMinute must not be negative")
	}
	if cfg.MaxUploadMB < 0 || cfg.MaxTranscriptChars < 0 || cfg.MaxFrames < 0 {
		return errors.New("config: size limits must not be negative")
	}
	return nil
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (c FileConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func (c FileConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

func (c FileConfig) ChatTimeout() time.Duration {
	return time.Duration(c.ChatTimeoutSeconds) * time.Second
}

func (c FileConfig) QuizTimeout() time.Duration {
	return time.Duration(c.QuizTimeoutSeconds) * time.Second
}

func (c FileConfig) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSupportedLanguages is used when SUPPORTED_LANGUAGES is not set.
var DefaultSupportedLanguages = []string{"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh", "hi", "ar"}

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	OpenAI     OpenAIConfig
	VideoDB    VideoDBConfig
	ElevenLabs ElevenLabsConfig
	R2         R2Config
	Jobs       JobsConfig
	Languages  LanguagesConfig
}

type ServerConfig struct {
	Host     string
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	DubPerHour     int
	PreviewPerHour int
}

type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type VideoDBConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval int // seconds
	PollTimeout  int // seconds
	Timeout      int // seconds, 0 disables
}

type ElevenLabsConfig struct {
	APIKey          string
	BaseURL         string
	ModelID         string
	MaxChars        int
	Stability       float64
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
	Timeout         int // seconds, 0 disables
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	Endpoint        string
}

type JobsConfig struct {
	Store          string // "memory" or "redis"
	TTLHours       int
	RetentionHours int
}

type LanguagesConfig struct {
	Supported []string
}

// IsSupported reports whether code is one of the configured target languages.
func (l LanguagesConfig) IsSupported(code string) bool {
	for _, s := range l.Supported {
		if s == code {
			return true
		}
	}
	return false
}

// MissingKeys lists the required API keys that are not configured.
func (c *Config) MissingKeys() []string {
	var missing []string
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.VideoDB.APIKey == "" {
		missing = append(missing, "VIDEODB_API_KEY")
	}
	if c.ElevenLabs.APIKey == "" {
		missing = append(missing, "ELEVENLABS_API_KEY")
	}
	return missing
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	readSecret("REDIS_PASSWORD")
	readSecret("OPENAI_API_KEY")
	readSecret("VIDEODB_API_KEY")
	readSecret("ELEVENLABS_API_KEY")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	_ = v.BindEnv("server.host", "HOST")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("ratelimit.dub_per_hour", "RATELIMIT_DUB_PER_HOUR")
	_ = v.BindEnv("ratelimit.preview_per_hour", "RATELIMIT_PREVIEW_PER_HOUR")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("openai.model", "OPENAI_MODEL")
	_ = v.BindEnv("openai.max_tokens", "MAX_TOKENS")
	_ = v.BindEnv("videodb.api_key", "VIDEODB_API_KEY")
	_ = v.BindEnv("videodb.base_url", "VIDEODB_BASE_URL")
	_ = v.BindEnv("videodb.poll_interval", "VIDEODB_POLL_INTERVAL")
	_ = v.BindEnv("videodb.poll_timeout", "VIDEODB_POLL_TIMEOUT")
	_ = v.BindEnv("videodb.timeout", "VIDEODB_TIMEOUT")
	_ = v.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
	_ = v.BindEnv("elevenlabs.base_url", "ELEVENLABS_BASE_URL")
	_ = v.BindEnv("elevenlabs.model_id", "ELEVENLABS_MODEL_ID")
	_ = v.BindEnv("elevenlabs.max_chars", "ELEVENLABS_MAX_CHARS")
	_ = v.BindEnv("elevenlabs.timeout", "ELEVENLABS_TIMEOUT")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = v.BindEnv("r2.endpoint", "R2_ENDPOINT")
	_ = v.BindEnv("jobs.store", "JOB_STORE")
	_ = v.BindEnv("jobs.ttl_hours", "JOB_TTL_HOURS")
	_ = v.BindEnv("jobs.retention_hours", "JOB_RETENTION_HOURS")
	_ = v.BindEnv("languages.supported", "SUPPORTED_LANGUAGES")

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.dub_per_hour", 10)
	v.SetDefault("ratelimit.preview_per_hour", 30)

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 4000)

	v.SetDefault("videodb.base_url", "https://api.videodb.io")
	v.SetDefault("videodb.poll_interval", 5)
	v.SetDefault("videodb.poll_timeout", 1800)
	v.SetDefault("videodb.timeout", 0)

	// Voice settings
	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io/v1")
	v.SetDefault("elevenlabs.model_id", "eleven_multilingual_v2")
	v.SetDefault("elevenlabs.max_chars", 1000)
	v.SetDefault("elevenlabs.stability", 0.75)
	v.SetDefault("elevenlabs.similarity_boost", 0.75)
	v.SetDefault("elevenlabs.style", 0.0)
	v.SetDefault("elevenlabs.speaker_boost", true)
	v.SetDefault("elevenlabs.timeout", 0)

	v.SetDefault("jobs.store", "memory")
	v.SetDefault("jobs.ttl_hours", 24)
	v.SetDefault("jobs.retention_hours", 0)

	v.SetDefault("languages.supported", strings.Join(DefaultSupportedLanguages, ","))

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host:     v.GetString("server.host"),
			Port:     v.GetString("server.port"),
			Env:      v.GetString("server.env"),
			LogLevel: v.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			DubPerHour:     v.GetInt("ratelimit.dub_per_hour"),
			PreviewPerHour: v.GetInt("ratelimit.preview_per_hour"),
		},
		OpenAI: OpenAIConfig{
			APIKey:    v.GetString("openai.api_key"),
			BaseURL:   v.GetString("openai.base_url"),
			Model:     v.GetString("openai.model"),
			MaxTokens: v.GetInt("openai.max_tokens"),
		},
		VideoDB: VideoDBConfig{
			APIKey:       v.GetString("videodb.api_key"),
			BaseURL:      v.GetString("videodb.base_url"),
			PollInterval: v.GetInt("videodb.poll_interval"),
			PollTimeout:  v.GetInt("videodb.poll_timeout"),
			Timeout:      v.GetInt("videodb.timeout"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:          v.GetString("elevenlabs.api_key"),
			BaseURL:         v.GetString("elevenlabs.base_url"),
			ModelID:         v.GetString("elevenlabs.model_id"),
			MaxChars:        v.GetInt("elevenlabs.max_chars"),
			Stability:       v.GetFloat64("elevenlabs.stability"),
			SimilarityBoost: v.GetFloat64("elevenlabs.similarity_boost"),
			Style:           v.GetFloat64("elevenlabs.style"),
			SpeakerBoost:    v.GetBool("elevenlabs.speaker_boost"),
			Timeout:         v.GetInt("elevenlabs.timeout"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
			Endpoint:        v.GetString("r2.endpoint"),
		},
		Jobs: JobsConfig{
			Store:          strings.ToLower(v.GetString("jobs.store")),
			TTLHours:       v.GetInt("jobs.ttl_hours"),
			RetentionHours: v.GetInt("jobs.retention_hours"),
		},
		Languages: LanguagesConfig{
			Supported: splitList(v.GetString("languages.supported")),
		},
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultSupportedLanguages...)
	}
	return out
}

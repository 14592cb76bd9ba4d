package engine

import (
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
)

// Config holds all service configuration. It is built once in main and
// passed by value into constructors.
type Config struct {
	HTTPPort   string
	MCPPort    string
	MCPEnabled bool
	LogLevel   string

	LLMAPIKey          string
	LLMModel           string
	LLMAPIBase         string
	AppURL             string
	LLMMaxTokens       int
	LLMTemperature     float64
	TranscriptMaxChars int

	DeepgramAPIKey   string
	DeepgramURL      string
	DeepgramModel    string
	DeepgramLanguage string
	AudioMaxBytes    int64

	YtDlpPath       string
	YtDlpFormat     string
	AudioTempDir    string
	TranscriptLangs []string

	RequestTimeout time.Duration // transcript, metadata, audio download
	LLMTimeout     time.Duration // LLM and speech-to-text

	YouTubeRPS     float64 // 0 = unpaced
	StealthEnabled bool
	WebshareAPIKey string

	RateLimitRedisURL   string
	RateLimitRedisToken string
	RateLimitRequests   int
	RateLimitWindow     time.Duration
}

// Defaults shared by the service and its tests.
const (
	DefaultModel          = "meta-llama/llama-3.3-70b-instruct:free"
	DefaultLLMAPIBase     = "https://openrouter.ai/api/v1"
	DefaultDeepgramURL    = "https://api.deepgram.com/v1/listen"
	DefaultMaxTokens      = 1024
	DefaultTemperature    = 0.7
	DefaultMaxChars       = 12000
	DefaultAudioMaxMB     = 100
	DefaultYtDlpFormat    = "bestaudio[ext=m4a]"
	DefaultRequestTimeout = 60 * time.Second
	DefaultLLMTimeout     = 120 * time.Second
)

// LoadConfig reads the configuration from the environment.
func LoadConfig() Config {
	return Config{
		HTTPPort:   env.Str("HTTP_PORT", "8080"),
		MCPPort:    env.Str("MCP_PORT", "8892"),
		MCPEnabled: env.Str("MCP_ENABLED", "true") != "false",
		LogLevel:   env.Str("LOG_LEVEL", "info"),

		LLMAPIKey:          env.Str("OPENROUTER_API_KEY", ""),
		LLMModel:           env.Str("OPENROUTER_MODEL", DefaultModel),
		LLMAPIBase:         env.Str("OPENROUTER_API_BASE", DefaultLLMAPIBase),
		AppURL:             env.Str("APP_URL", "http://localhost:3000"),
		LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", DefaultMaxTokens),
		LLMTemperature:     env.Float("LLM_TEMPERATURE", DefaultTemperature),
		TranscriptMaxChars: env.Int("TRANSCRIPT_MAX_CHARS", DefaultMaxChars),

		DeepgramAPIKey:   env.Str("DEEPGRAM_API_KEY", ""),
		DeepgramURL:      env.Str("DEEPGRAM_URL", DefaultDeepgramURL),
		DeepgramModel:    env.Str("DEEPGRAM_MODEL", "nova-2"),
		DeepgramLanguage: env.Str("DEEPGRAM_LANGUAGE", "en"),
		AudioMaxBytes:    int64(env.Int("AUDIO_MAX_MB", DefaultAudioMaxMB)) * 1024 * 1024,

		YtDlpPath:       env.Str("YTDLP_PATH", "./yt-dlp"),
		YtDlpFormat:     env.Str("YTDLP_FORMAT", DefaultYtDlpFormat),
		AudioTempDir:    env.Str("AUDIO_TEMP_DIR", os.TempDir()),
		TranscriptLangs: env.List("TRANSCRIPT_LANGS", "en"),

		RequestTimeout: env.Duration("REQUEST_TIMEOUT", DefaultRequestTimeout),
		LLMTimeout:     env.Duration("LLM_TIMEOUT", DefaultLLMTimeout),

		YouTubeRPS:     env.Float("YOUTUBE_RPS", 5),
		StealthEnabled: env.Str("STEALTH_ENABLED", "false") == "true",
		WebshareAPIKey: env.Str("WEBSHARE_API_KEY", ""),

		RateLimitRedisURL:   env.Str("RATE_LIMIT_REDIS_URL", ""),
		RateLimitRedisToken: env.Str("RATE_LIMIT_REDIS_TOKEN", ""),
		RateLimitRequests:   env.Int("RATE_LIMIT_REQUESTS", 10),
		RateLimitWindow:     env.Duration("RATE_LIMIT_WINDOW", 60*time.Second),
	}
}

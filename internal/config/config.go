package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string
	LogFormat string
	RedisURL  string

	// ─── Lesson client ────────────────────────────────────────────────
	StreamURL string
	// Token is the out-of-band credential appended to StreamURL.
	// An empty token is a fatal setup error.
	Token                   string
	SessionID               string
	VideoBacked             bool
	VideoDuration           time.Duration
	PollInterval            time.Duration
	PauseTolerance          float64
	QuizFeedbackDelay       time.Duration
	IntroNarration          string
	NarrationBytesPerSecond int

	// ─── Dev lesson server ────────────────────────────────────────────
	ServerPort string
	GinMode    string
	JWTSecret  string
	JWTExpiry  time.Duration
	ScriptPath string
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "pretty"),
		RedisURL:  getEnv("REDIS_URL", ""),

		StreamURL:               getEnv("LESSON_STREAM_URL", "ws://localhost:8080/ws/v1/lesson"),
		Token:                   getEnv("LESSON_TOKEN", ""),
		SessionID:               getEnv("LESSON_SESSION_ID", ""),
		VideoBacked:             getEnvBool("LESSON_VIDEO_BACKED", true),
		VideoDuration:           time.Duration(getEnvInt("LESSON_VIDEO_DURATION_SECONDS", 600)) * time.Second,
		PollInterval:            time.Duration(getEnvInt("POLL_INTERVAL_MS", 200)) * time.Millisecond,
		PauseTolerance:          getEnvFloat("PAUSE_TOLERANCE_SECONDS", 1.5),
		QuizFeedbackDelay:       time.Duration(getEnvInt("QUIZ_FEEDBACK_DELAY_MS", 1500)) * time.Millisecond,
		IntroNarration:          getEnv("INTRO_NARRATION", "Welcome! Let's start the lesson. Watch the video and I'll pause to explain the key ideas."),
		NarrationBytesPerSecond: getEnvInt("NARRATION_BYTES_PER_SECOND", 48000),

		ServerPort:     getEnv("SERVER_PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpiry:      time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		ScriptPath:     getEnv("LESSON_SCRIPT_PATH", "./lesson.json"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

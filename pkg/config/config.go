// Package config reads environment configuration into a single struct built
// once at startup and passed into each component.
package config

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"narrativeiq/pkg/schema"
)

type Config struct {
	Addr       string
	DataDir    string
	InMemoryDB bool

	JWTSecret      string
	TokenTTL       time.Duration
	NewUserCredits int

	OpenAIAPIKey string
	OpenAIModel  string
	GroqAPIKey   string
	GroqModel    string
	GeminiAPIKey string
	GeminiModel  string

	// PersonaFallback substitutes the simplified persona for unknown keys
	// instead of rejecting the request.
	PersonaFallback bool

	MaxEnhanceChars int
	MinMindmapChars int
	MaxMindmapChars int

	GenerateTimeout time.Duration
	AuditTimeout    time.Duration

	Pricing map[schema.Operation]int
}

func Load() *Config {
	cfg := &Config{
		Addr:            ":" + envOr("PORT", "8080"),
		DataDir:         envOr("DATA_DIR", "data"),
		InMemoryDB:      envBool("IN_MEMORY_DB", false),
		JWTSecret:       envOr("JWT_SECRET", "narrativeiq-dev-secret"),
		TokenTTL:        envDuration("TOKEN_TTL", 24*time.Hour),
		NewUserCredits:  envInt("NEW_USER_CREDITS", 5),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     envOr("OPENAI_MODEL", "gpt-4o-mini"),
		GroqAPIKey:      os.Getenv("GROQ_API_KEY"),
		GroqModel:       envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		PersonaFallback: envBool("PERSONA_FALLBACK", false),
		MaxEnhanceChars: envInt("MAX_ENHANCE_CHARS", 50000),
		MinMindmapChars: envInt("MIN_MINDMAP_CHARS", 100),
		MaxMindmapChars: envInt("MAX_MINDMAP_CHARS", 30000),
		GenerateTimeout: envDuration("GENERATE_TIMEOUT", 2*time.Minute),
		AuditTimeout:    envDuration("AUDIT_TIMEOUT", 5*time.Second),
		Pricing:         schema.DefaultPricing(),
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Package config loads pipeline configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LLM provider names accepted in INSIDERS_LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// Upstream repository whose builds are tracked
	UpstreamOwner string
	UpstreamRepo  string

	// Repository that receives the published releases
	NotesOwner string
	NotesRepo  string

	// GitHub API
	GitHubToken   string
	GitHubBaseURL string

	// Update service (build feed)
	UpdateEndpoint string
	Platform       string

	// LLM
	LLMProvider     string
	LLMModel        string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OllamaHost      string

	// Pipeline
	StatePath   string
	SiteDir     string
	TemplateDir string
	MaxChanges  int
	Concurrency int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		UpstreamOwner: getEnv("INSIDERS_UPSTREAM_OWNER", "microsoft"),
		UpstreamRepo:  getEnv("INSIDERS_UPSTREAM_REPO", "vscode"),

		NotesOwner: getEnv("INSIDERS_NOTES_OWNER", "DovieW"),
		NotesRepo:  getEnv("INSIDERS_NOTES_REPO", "vscode-insiders-release-notes"),

		GitHubToken:   getEnv("GITHUB_TOKEN", ""),
		GitHubBaseURL: getEnv("INSIDERS_GITHUB_API", ""),

		UpdateEndpoint: getEnv("INSIDERS_UPDATE_ENDPOINT", ""),
		Platform:       getEnv("INSIDERS_PLATFORM", ""),

		LLMProvider:     getEnv("INSIDERS_LLM_PROVIDER", ProviderAnthropic),
		LLMModel:        getEnv("INSIDERS_LLM_MODEL", "claude-3-5-sonnet-20241022"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		StatePath:   getEnv("INSIDERS_STATE_PATH", "state.json"),
		SiteDir:     getEnv("INSIDERS_SITE_DIR", "site"),
		TemplateDir: getEnv("INSIDERS_TEMPLATE_DIR", "templates"),
		MaxChanges:  getEnvInt("INSIDERS_MAX_CHANGES", 100),
		Concurrency: getEnvInt("INSIDERS_CONCURRENCY", 4),

		LogFile:  getEnv("INSIDERS_LOG_FILE", ""),
		LogLevel: parseLogLevel(getEnv("INSIDERS_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

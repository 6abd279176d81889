package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.UpstreamOwner != "microsoft" || cfg.UpstreamRepo != "vscode" {
		t.Errorf("upstream defaults = %s/%s", cfg.UpstreamOwner, cfg.UpstreamRepo)
	}
	if cfg.MaxChanges != 100 {
		t.Errorf("MaxChanges = %d, want 100", cfg.MaxChanges)
	}
	if cfg.LLMProvider != ProviderAnthropic {
		t.Errorf("LLMProvider = %s, want %s", cfg.LLMProvider, ProviderAnthropic)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INSIDERS_UPSTREAM_OWNER", "someone")
	t.Setenv("INSIDERS_MAX_CHANGES", "25")
	t.Setenv("INSIDERS_LOG_LEVEL", "debug")
	t.Setenv("INSIDERS_LLM_PROVIDER", ProviderOllama)

	cfg := Load()
	if cfg.UpstreamOwner != "someone" {
		t.Errorf("UpstreamOwner = %s", cfg.UpstreamOwner)
	}
	if cfg.MaxChanges != 25 {
		t.Errorf("MaxChanges = %d, want 25", cfg.MaxChanges)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.LLMProvider != ProviderOllama {
		t.Errorf("LLMProvider = %s", cfg.LLMProvider)
	}
}

func TestLoadIgnoresBadInt(t *testing.T) {
	t.Setenv("INSIDERS_MAX_CHANGES", "not-a-number")

	cfg := Load()
	if cfg.MaxChanges != 100 {
		t.Errorf("MaxChanges = %d, want default 100", cfg.MaxChanges)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("run complete", "changes", 3)

	if stderr.Len() == 0 {
		t.Error("expected text output on stderr writer")
	}
	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output should be JSON: %v", err)
	}
	if entry["msg"] != "run complete" {
		t.Errorf("msg = %v", entry["msg"])
	}
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable LoadFromEnv reads so host values don't leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		switch {
		case strings.HasPrefix(key, "GHMIND_"),
			key == "GITHUB_REPOSITORY", key == "GITHUB_TOKEN", key == "GITHUB_API_URL",
			key == "GITHUB_WORKSPACE", key == "GEMINI_API_KEY", key == "OPENAI_API_KEY",
			key == "ENV_FILE_PATH":
			value := os.Getenv(key)
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { os.Setenv(key, value) })
		}
	}
}

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue float64
		expected     float64
	}{
		{"env not set, return default", "", 0.2, 0.2},
		{"env set to 0.7", "0.7", 0.2, 0.7},
		{"env set to invalid value, return default", "invalid", 0.2, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_FLOAT_VALUE"
			if tt.envValue != "" {
				t.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}

			assert.Equal(t, tt.expected, getEnvFloat(key, tt.defaultValue))
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("TEST_LIST", " bug, ,#skip, docs ")
	assert.Equal(t, []string{"bug", "docs"}, getEnvList("TEST_LIST", nil))

	t.Setenv("TEST_LIST", "")
	assert.Equal(t, []string{"a"}, getEnvList("TEST_LIST", []string{"a"}))
}

func TestGetEnvFirst(t *testing.T) {
	t.Setenv("TEST_FIRST_B", "b")
	assert.Equal(t, "b", getEnvFirst("def", "TEST_FIRST_A", "TEST_FIRST_B"))
	assert.Equal(t, "def", getEnvFirst("def", "TEST_FIRST_MISSING"))
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, 30*time.Second, cfg.GitHub.RequestTimeout)
	assert.Equal(t, 12000, cfg.Prompt.ContextBudget)
	assert.Equal(t, "balanced", cfg.Extractor.Strategy)
	assert.Equal(t, DefaultAllowedLabels, cfg.Labeler.Allowed)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, time.RFC3339, cfg.Logging.TimeFormat)
	assert.True(t, cfg.Gemini.JSONMode)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
}

func TestLoadFromEnvCIVariables(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("GITHUB_REPOSITORY", "octo/widgets")
	t.Setenv("GITHUB_TOKEN", "ghs_token")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("GITHUB_WORKSPACE", "/work")
	t.Setenv("GHMIND_LABELER_ALLOWED", "bug,question")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, "octo/widgets", cfg.GitHub.Repository)
	assert.Equal(t, "ghs_token", cfg.GitHub.Token)
	assert.Equal(t, "gem-key", cfg.APIKey())
	assert.Equal(t, "/work", cfg.Git.WorkDir)
	assert.Equal(t, []string{"bug", "question"}, cfg.Labeler.Allowed)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("GHMIND_LLM_PROVIDER=openai\nOPENAI_API_KEY=sk-test\nGHMIND_CONTEXT_BUDGET=500\n"), 0644))
	t.Setenv("ENV_FILE_PATH", path)
	t.Cleanup(func() {
		os.Unsetenv("GHMIND_LLM_PROVIDER")
		os.Unsetenv("OPENAI_API_KEY")
		os.Unsetenv("GHMIND_CONTEXT_BUDGET")
	})

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.APIKey())
	assert.Equal(t, 500, cfg.Prompt.ContextBudget)
}

func TestLoadFromEnvMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV_FILE_PATH", filepath.Join(t.TempDir(), "missing.env"))

	_, err := LoadFromEnv("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GitHub:  GitHubConfig{Repository: "a/b", RequestTimeout: time.Second},
			LLM:     LLMConfig{Provider: "gemini"},
			Gemini:  GeminiConfig{APIVersion: "v1beta", Model: "m"},
			Prompt:  PromptConfig{ContextBudget: 10, DocsBudget: 10},
			Logging: LoggingConfig{Level: "info", Format: "text"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad repository", func(c *Config) { c.GitHub.Repository = "just-a-name" }},
		{"nested repository", func(c *Config) { c.GitHub.Repository = "a/b/c" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "ollama" }},
		{"bad gemini version", func(c *Config) { c.Gemini.APIVersion = "v2" }},
		{"openai without model", func(c *Config) { c.LLM.Provider = "openai" }},
		{"zero budget", func(c *Config) { c.Prompt.ContextBudget = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("unknown"))
}

func TestWriteSampleEnv(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", ".env")

	written, err := WriteSampleEnv(target, false)
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "GHMIND_LLM_PROVIDER")
	assert.Equal(t, SampleEnv(), data)

	written, err = WriteSampleEnv(target, false)
	require.NoError(t, err)
	assert.False(t, written)

	written, err = WriteSampleEnv(target, true)
	require.NoError(t, err)
	assert.True(t, written)

	matches, err := filepath.Glob(target + ".*.bak")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestGlobalConfig(t *testing.T) {
	Set(nil)
	_, err := Get()
	assert.Error(t, err)

	cfg := New()
	Set(cfg)
	got, err := Get()
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

// LoadFromEnv loads configuration from environment variables. An optional
// .env file is read first: ENV_FILE_PATH when set, otherwise envFile, otherwise
// ./.env. Variables already present in the environment are never overridden,
// so CI-provided values win over the file.
func LoadFromEnv(envFile string) (*Config, error) {
	cfg := New()

	if path := getEnvString("ENV_FILE_PATH", ""); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", path, err)
		}
	} else if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load() // a missing ./.env is fine
	}

	cfg.GitHub = GitHubConfig{
		Repository:     getEnvFirst("", "GHMIND_GITHUB_REPOSITORY", "GITHUB_REPOSITORY"),
		Token:          getEnvFirst("", "GHMIND_GITHUB_TOKEN", "GITHUB_TOKEN"),
		APIURL:         getEnvFirst("https://api.github.com", "GHMIND_GITHUB_API_URL", "GITHUB_API_URL"),
		RequestTimeout: getEnvDuration("GHMIND_GITHUB_REQUEST_TIMEOUT", 30*time.Second),
	}

	cfg.LLM = LLMConfig{
		Provider:          getEnvString("GHMIND_LLM_PROVIDER", "gemini"),
		RequestsPerMinute: getEnvInt("GHMIND_LLM_REQUESTS_PER_MINUTE", 0),
		BurstLimit:        getEnvInt("GHMIND_LLM_BURST_LIMIT", 1),
	}

	cfg.Gemini = GeminiConfig{
		APIKey:      getEnvFirst("", "GHMIND_GEMINI_API_KEY", "GEMINI_API_KEY"),
		BaseURL:     getEnvString("GHMIND_GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		APIVersion:  getEnvString("GHMIND_GEMINI_API_VERSION", "v1beta"),
		Model:       getEnvString("GHMIND_GEMINI_MODEL", "gemini-2.0-flash"),
		Timeout:     getEnvDuration("GHMIND_GEMINI_TIMEOUT", 120*time.Second),
		MaxTokens:   getEnvInt("GHMIND_GEMINI_MAX_TOKENS", 8192),
		Temperature: getEnvFloat("GHMIND_GEMINI_TEMPERATURE", 0.2),
		TopP:        getEnvFloat("GHMIND_GEMINI_TOP_P", 0.95),
		TopK:        getEnvInt("GHMIND_GEMINI_TOP_K", 40),
		JSONMode:    getEnvBool("GHMIND_GEMINI_JSON_MODE", true),
	}

	cfg.OpenAI = OpenAIConfig{
		APIKey:  getEnvFirst("", "GHMIND_OPENAI_API_KEY", "OPENAI_API_KEY"),
		BaseURL: getEnvString("GHMIND_OPENAI_BASE_URL", ""),
		Model:   getEnvString("GHMIND_OPENAI_MODEL", "gpt-4o-mini"),
		Timeout: getEnvDuration("GHMIND_OPENAI_TIMEOUT", 120*time.Second),
	}

	cfg.Retry = RetryConfig{
		MaxRetries:      getEnvInt("GHMIND_RETRY_MAX_RETRIES", 3),
		InitialInterval: getEnvDuration("GHMIND_RETRY_INITIAL_INTERVAL", 500*time.Millisecond),
		MaxInterval:     getEnvDuration("GHMIND_RETRY_MAX_INTERVAL", 10*time.Second),
		MaxElapsed:      getEnvDuration("GHMIND_RETRY_MAX_ELAPSED", 2*time.Minute),
	}

	cfg.Prompt = PromptConfig{
		ContextBudget: getEnvInt("GHMIND_CONTEXT_BUDGET", 12000),
		DocsBudget:    getEnvInt("GHMIND_DOCS_BUDGET", 24000),
		MaxDocFiles:   getEnvInt("GHMIND_MAX_DOC_FILES", 20),
	}

	cfg.Extractor = ExtractorConfig{
		Strategy: getEnvString("GHMIND_EXTRACTOR_STRATEGY", "balanced"),
	}

	cfg.Git = GitConfig{
		WorkDir:     getEnvFirst(".", "GHMIND_WORKDIR", "GITHUB_WORKSPACE"),
		AuthorName:  getEnvString("GHMIND_GIT_AUTHOR_NAME", "github-actions[bot]"),
		AuthorEmail: getEnvString("GHMIND_GIT_AUTHOR_EMAIL", "41898282+github-actions[bot]@users.noreply.github.com"),
		RemoteName:  getEnvString("GHMIND_GIT_REMOTE", "origin"),
		Push:        getEnvBool("GHMIND_GIT_PUSH", true),
	}

	cfg.Labeler = LabelerConfig{
		Allowed: getEnvList("GHMIND_LABELER_ALLOWED", DefaultAllowedLabels),
	}

	cfg.Logging = LoggingConfig{
		Level:      getEnvString("GHMIND_LOG_LEVEL", "info"),
		Format:     getEnvString("GHMIND_LOG_FORMAT", "text"),
		Output:     getEnvString("GHMIND_LOG_OUTPUT", "stdout"),
		AddSource:  getEnvBool("GHMIND_LOG_ADD_SOURCE", false),
		TimeFormat: getTimeFormat(getEnvString("GHMIND_LOG_TIME_FORMAT", "RFC3339")),
	}

	return cfg, cfg.Validate()
}

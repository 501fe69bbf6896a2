package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	globalConfig *Config
	configMutex  sync.RWMutex
)

// Get returns the global configuration instance
// If the configuration has not been initialized, it will return an error
func Get() (*Config, error) {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	return globalConfig, nil
}

// Set sets the global configuration instance
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()

	globalConfig = cfg
}

// Config represents the complete application configuration
type Config struct {
	GitHub    GitHubConfig
	LLM       LLMConfig
	Gemini    GeminiConfig
	OpenAI    OpenAIConfig
	Retry     RetryConfig
	Prompt    PromptConfig
	Extractor ExtractorConfig
	Git       GitConfig
	Labeler   LabelerConfig
	Logging   LoggingConfig
}

// GitHubConfig represents the hosting platform connection
type GitHubConfig struct {
	Repository     string        // owner/name, as in GITHUB_REPOSITORY
	Token          string        // access token
	APIURL         string        // REST API base URL
	RequestTimeout time.Duration // per-request timeout
}

// LLMConfig selects the generative provider and its client-side rate limit
type LLMConfig struct {
	Provider          string // gemini or openai
	RequestsPerMinute int
	BurstLimit        int
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	APIVersion  string // v1 or v1beta
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        int
	JSONMode    bool // request responseMimeType=application/json
}

// OpenAIConfig holds configuration for OpenAI or compatible endpoints
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// RetryConfig bounds retries around every external call
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// PromptConfig holds prompt context budgets, in characters
type PromptConfig struct {
	ContextBudget int // diff or issue body budget
	DocsBudget    int // total budget for documentation file contents
	MaxDocFiles   int
}

// ExtractorConfig selects how JSON is located in model answers
type ExtractorConfig struct {
	Strategy string // balanced or naive
}

// GitConfig holds the working tree location and commit identity
type GitConfig struct {
	WorkDir     string
	AuthorName  string
	AuthorEmail string
	RemoteName  string
	Push        bool
}

// LabelerConfig holds the smart labeler allow-list
type LabelerConfig struct {
	Allowed []string
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool
	TimeFormat string
}

// DefaultAllowedLabels is the smart labeler allow-list used when none is configured
var DefaultAllowedLabels = []string{
	"bug",
	"enhancement",
	"documentation",
	"question",
	"performance",
	"security",
	"refactor",
	"tests",
	"dependencies",
	"ci",
}

// New returns a new empty Config
func New() *Config {
	return &Config{}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateGitHub(); err != nil {
		return fmt.Errorf("GitHub config: %w", err)
	}

	if err := c.validateLLM(); err != nil {
		return fmt.Errorf("LLM config: %w", err)
	}

	if err := c.validatePrompt(); err != nil {
		return fmt.Errorf("prompt config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ParseLogLevel parses a log level string to a slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		return slog.Level(9999)
	default:
		return slog.LevelInfo
	}
}

// validateGitHub only checks shape; presence is checked by the commands that
// need the API, so `ghmind init` works without credentials.
func (c *Config) validateGitHub() error {
	if c.GitHub.Repository == "" {
		return nil
	}

	owner, repo, ok := strings.Cut(c.GitHub.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return fmt.Errorf("repository must be owner/name, got %q", c.GitHub.Repository)
	}

	if c.GitHub.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case "gemini":
		if c.Gemini.APIVersion != "v1" && c.Gemini.APIVersion != "v1beta" {
			return fmt.Errorf("invalid Gemini API version: %s (must be v1 or v1beta)", c.Gemini.APIVersion)
		}
		if c.Gemini.Model == "" {
			return fmt.Errorf("Gemini model cannot be empty")
		}
	case "openai":
		if c.OpenAI.Model == "" {
			return fmt.Errorf("OpenAI model cannot be empty")
		}
	default:
		return fmt.Errorf("unknown provider: %s (must be gemini or openai)", c.LLM.Provider)
	}

	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute cannot be negative")
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	return nil
}

func (c *Config) validatePrompt() error {
	if c.Prompt.ContextBudget <= 0 {
		return fmt.Errorf("context budget must be positive")
	}

	if c.Prompt.DocsBudget <= 0 {
		return fmt.Errorf("docs budget must be positive")
	}

	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	if level != "debug" && level != "info" && level != "warn" && level != "error" && level != "none" {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	format := strings.ToLower(c.Logging.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// APIKey returns the key of the configured provider
func (c *Config) APIKey() string {
	if c.LLM.Provider == "openai" {
		return c.OpenAI.APIKey
	}
	return c.Gemini.APIKey
}

// getEnvString returns a string from the environment variable
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first set variable among keys
func getEnvFirst(defaultValue string, keys ...string) string {
	for _, key := range keys {
		if value, exists := os.LookupEnv(key); exists && value != "" {
			return value
		}
	}
	return defaultValue
}

// getEnvInt returns an int from the environment variable
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool returns a bool from the environment variable
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration returns a time.Duration from the environment variable
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvFloat returns a float64 from the environment variable
func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated list, skipping blanks and # comments
func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return append([]string(nil), defaultValue...)
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" && !strings.HasPrefix(item, "#") {
			out = append(out, item)
		}
	}
	return out
}

// getTimeFormat converts a named time format to its actual format string
func getTimeFormat(name string) string {
	switch name {
	case "RFC3339":
		return time.RFC3339
	case "RFC3339Nano":
		return time.RFC3339Nano
	case "Kitchen":
		return time.Kitchen
	case "DateTime":
		return time.DateTime
	case "Time":
		return time.TimeOnly
	default:
		return name
	}
}

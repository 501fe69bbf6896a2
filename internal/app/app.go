// Package app provides the application initialization and lifecycle management
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/ghmind/internal/config"
	"github.com/tildaslashalef/ghmind/internal/extractor"
	"github.com/tildaslashalef/ghmind/internal/git"
	"github.com/tildaslashalef/ghmind/internal/github"
	"github.com/tildaslashalef/ghmind/internal/llm"
	"github.com/tildaslashalef/ghmind/internal/loggy"
	"github.com/tildaslashalef/ghmind/internal/retry"
	"github.com/tildaslashalef/ghmind/internal/workspace"
)

// App represents the application instance with its dependencies. Services
// that need credentials are built on first use so that a task only requires
// the configuration it actually touches.
type App struct {
	Config    *config.Config
	Logger    *loggy.Logger
	RunID     string
	Retry     retry.Policy
	Extractor *extractor.Extractor

	github    *github.Service
	model     llm.Client
	workspace *workspace.Service
	git       *git.Service
}

// New initializes a new application instance from the environment
func New(envFile string) (*App, error) {
	cfg, err := initConfig(envFile)
	if err != nil {
		return nil, err
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	return NewWithConfig(cfg)
}

// NewWithConfig initializes an application from an already loaded config
func NewWithConfig(cfg *config.Config) (*App, error) {
	runID := loggy.NewRunID()
	logger := loggy.GetGlobalLogger().With("run_id", runID)

	strategy, err := extractor.ParseStrategy(cfg.Extractor.Strategy)
	if err != nil {
		return nil, err
	}

	loggy.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"run_id", runID,
		"log_level", cfg.Logging.Level,
		"llm_provider", cfg.LLM.Provider,
		"extractor", string(strategy),
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		RunID:     runID,
		Retry:     retryPolicy(cfg.Retry),
		Extractor: extractor.New(strategy, logger.WithGroup("extractor")),
	}, nil
}

// initConfig loads and sets up the application configuration
func initConfig(envFile string) (*config.Config, error) {
	cfg, err := config.LoadFromEnv(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	config.Set(cfg)
	return cfg, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	err := loggy.Init(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	if cfg.MaxRetries <= 0 {
		return retry.NoRetry()
	}
	return retry.Policy{
		MaxRetries:      uint64(cfg.MaxRetries),
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		MaxElapsed:      cfg.MaxElapsed,
	}
}

// Context returns ctx carrying the run ID and a logger tagged with it
func (app *App) Context(ctx context.Context) context.Context {
	return loggy.WithRunID(ctx, app.RunID)
}

// GitHub returns the repository-scoped GitHub service. When no repository
// is configured it is derived from the checkout's remote.
func (app *App) GitHub() (*github.Service, error) {
	if app.github != nil {
		return app.github, nil
	}
	if app.Config.GitHub.Token == "" {
		return nil, fmt.Errorf("GitHub token not configured - set GITHUB_TOKEN")
	}

	repository := app.Config.GitHub.Repository
	if repository == "" {
		derived, err := app.repositoryFromRemote()
		if err != nil {
			return nil, fmt.Errorf("GitHub repository not configured - set GITHUB_REPOSITORY: %w", err)
		}
		app.Logger.Info("Derived repository from git remote", "repository", derived)
		repository = derived
	}

	client, err := github.NewClient(app.Config.GitHub, app.Retry, app.Logger.WithGroup("github"))
	if err != nil {
		return nil, err
	}
	svc, err := github.NewService(client, repository, app.Logger)
	if err != nil {
		return nil, err
	}

	app.github = svc
	return svc, nil
}

func (app *App) repositoryFromRemote() (string, error) {
	g, err := app.Git()
	if err != nil {
		return "", err
	}
	url, err := g.RemoteURL()
	if err != nil {
		return "", err
	}
	return github.RepositoryFromRemoteURL(url)
}

// LLM returns the rate-limited client of the configured provider
func (app *App) LLM() (llm.Client, error) {
	if app.model != nil {
		return app.model, nil
	}

	client, clientType, err := llm.NewFactory(app.Config, app.Retry, app.Logger.WithGroup("llm")).GetClient()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	app.Logger.Info("Initialized LLM client", "type", clientType)

	app.model = client
	return client, nil
}

// Workspace returns file access rooted at the configured checkout
func (app *App) Workspace() (*workspace.Service, error) {
	if app.workspace != nil {
		return app.workspace, nil
	}
	ws, err := workspace.NewService(app.Config.Git.WorkDir, app.Logger)
	if err != nil {
		return nil, err
	}
	app.workspace = ws
	return ws, nil
}

// Git returns the version control service for the checkout
func (app *App) Git() (*git.Service, error) {
	if app.git != nil {
		return app.git, nil
	}
	g := git.NewService(app.Config.Git, app.Config.GitHub.Token, app.Logger.WithGroup("git"))
	if err := g.Open(app.Config.Git.WorkDir); err != nil {
		return nil, err
	}
	app.git = g
	return g, nil
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application", "run_id", app.RunID)
	return nil
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	app, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return app, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/ghmind/internal/app"
	"github.com/tildaslashalef/ghmind/internal/commands"
)

// Version information - populated at build time
var (
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "unknown"
	Author     = "unknown"
	Email      = "unknown"
)

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "env-file",
		Usage:   "Path to a .env file with configuration",
		EnvVars: []string{"ENV_FILE_PATH"},
	},
}

func main() {
	cliApp := &cli.App{
		Name:  "ghmind",
		Usage: "LLM-powered GitHub repository automation",
		Description: "ghmind runs inside a CI job and uses a generative model to keep documentation\n" +
			"in sync with pull requests, improve issue reports and manage labels.",
		Version: fmt.Sprintf("%s (%s)", Version, CommitHash),
		Compiled: func() time.Time {
			t, err := time.Parse(time.RFC3339, BuildTime)
			if err != nil {
				return time.Now()
			}
			return t
		}(),
		Authors: []*cli.Author{
			{
				Name:  Author,
				Email: Email,
			},
		},
		Flags: globalFlags,
		Before: func(c *cli.Context) error {
			application, err := app.New(c.String("env-file"))
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			c.App.Metadata = map[string]interface{}{
				"app": application,
			}

			return nil
		},
		After: func(c *cli.Context) error {
			if app, ok := c.App.Metadata["app"].(*app.App); ok {
				return app.Shutdown()
			}
			return nil
		},
		Commands: []*cli.Command{
			commands.DriftCommand(),
			commands.ImproveIssueCommand(),
			commands.BeautifyLabelsCommand(),
			commands.LabelCommand(),
			commands.InitCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		stop()
		log.Fatal(err)
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/ghmind/internal/app"
	"github.com/tildaslashalef/ghmind/internal/drift"
	"github.com/tildaslashalef/ghmind/internal/utils"
)

// DriftCommand returns the CLI command for the documentation drift check
func DriftCommand() *cli.Command {
	return &cli.Command{
		Name:  "drift",
		Usage: "Update documentation made stale by a pull request",
		Description: "Fetches the pull request diff, asks the model which documentation files " +
			"no longer match the code, overwrites the ones that exist, commits and pushes " +
			"them and comments on the pull request.",
		Flags:  []cli.Flag{prNumberFlag, prTitleFlag, prAuthorFlag, dryRunFlag},
		Action: driftAction,
	}
}

func driftAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}
	number, err := requirePositive(c, "pr")
	if err != nil {
		return err
	}

	gh, err := application.GitHub()
	if err != nil {
		return err
	}
	model, err := application.LLM()
	if err != nil {
		return err
	}
	ws, err := application.Workspace()
	if err != nil {
		return err
	}

	dryRun := c.Bool("dry-run")
	cfg := application.Config

	// The checkout is only needed once something is committed
	var committer drift.Committer = noCommitter{}
	if !dryRun {
		g, err := application.Git()
		if err != nil {
			return err
		}
		committer = g
	}

	svc := drift.NewService(gh, ws, committer, model, application.Extractor, drift.Options{
		DryRun:        dryRun,
		Push:          cfg.Git.Push,
		ContextBudget: cfg.Prompt.ContextBudget,
		DocsBudget:    cfg.Prompt.DocsBudget,
		MaxDocFiles:   cfg.Prompt.MaxDocFiles,
	}, application.Logger.With("task", "drift"))

	utils.PrintHeading(fmt.Sprintf("Documentation drift check for %s#%d", gh.Repository(), number))
	printDryRun(dryRun)
	result, err := svc.Run(application.Context(c.Context), drift.Input{
		Number: number,
		Title:  c.String("title"),
		Author: c.String("author"),
	})
	if err != nil {
		return explain(err, gh.Repository())
	}

	printDriftResult(result)
	return nil
}

func printDriftResult(result *drift.Result) {
	if len(result.Proposed) > 0 {
		rows := make([][]string, 0, len(result.Proposed))
		for _, u := range result.Proposed {
			rows = append(rows, []string{u.FilePath, fmt.Sprintf("%d chars", len(u.UpdatedContent))})
		}
		utils.PrintTable([]string{"File", "Proposed content"}, rows, utils.TableOptions{Title: "Proposed updates", MaxColumnWidth: 60})
	}

	if len(result.Skipped) > 0 {
		utils.PrintDivider()
	}
	for _, sk := range result.Skipped {
		utils.PrintWarning(fmt.Sprintf("Skipped %s: %s", color.YellowString("%s", sk.Path), sk.Reason))
	}

	switch {
	case result.DryRun:
		utils.PrintInfo(fmt.Sprintf("Dry run: would update %s", utils.Pluralize(len(result.Applied), "file", "files")))
		utils.PrintList(result.Applied, "•")
	case len(result.Applied) == 0:
		utils.PrintSuccess("Documentation is up to date")
	default:
		utils.PrintSuccess(fmt.Sprintf("Updated %s", utils.Pluralize(len(result.Applied), "file", "files")))
		utils.PrintList(result.Applied, "•")
		if result.Commit != "" {
			utils.PrintKeyValue("Commit", color.CyanString("%s", result.Commit))
		}
	}
}

// noCommitter stands in for git during dry runs, which never commit
type noCommitter struct{}

func (noCommitter) CommitFiles(ctx context.Context, paths []string, message string) (string, error) {
	return "", fmt.Errorf("commit attempted during dry run")
}

func (noCommitter) Push(ctx context.Context) error {
	return fmt.Errorf("push attempted during dry run")
}

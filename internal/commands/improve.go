package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/ghmind/internal/app"
	"github.com/tildaslashalef/ghmind/internal/improve"
	"github.com/tildaslashalef/ghmind/internal/utils"
)

// ImproveIssueCommand returns the CLI command for the issue improver
func ImproveIssueCommand() *cli.Command {
	return &cli.Command{
		Name:  "improve-issue",
		Usage: "Rewrite an issue into a clearer report",
		Description: "Asks the model for a better title and body, updates the issue and " +
			"thanks the author. Title and body are fetched when not given.",
		Flags:  []cli.Flag{issueNumberFlag, issueTitleFlag, issueBodyFlag, issueAuthorFlag, dryRunFlag},
		Action: improveAction,
	}
}

func improveAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}
	number, err := requirePositive(c, "issue")
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

	svc := improve.NewService(gh, model, application.Extractor, improve.Options{
		DryRun:        c.Bool("dry-run"),
		ContextBudget: application.Config.Prompt.ContextBudget,
	}, application.Logger.With("task", "improve-issue"))

	utils.PrintHeading(fmt.Sprintf("Improving issue %s#%d", gh.Repository(), number))
	printDryRun(c.Bool("dry-run"))
	result, err := svc.Run(application.Context(c.Context), improve.Input{
		Number: number,
		Title:  c.String("title"),
		Body:   c.String("body"),
		Author: c.String("author"),
	})
	if err != nil {
		return explain(err, gh.Repository())
	}

	printImproveResult(result, c.Bool("dry-run"))
	return nil
}

func printImproveResult(result *improve.Result, dryRun bool) {
	if !result.Changed {
		utils.PrintInfo("No improvement proposed, issue left unchanged")
		return
	}

	utils.PrintKeyValue("Title", color.RedString("%s", result.Original.Title)+" → "+color.GreenString("%s", result.Proposed.Title))
	utils.PrintDivider()
	utils.PrintMarkdown("Proposed body", result.Proposed.Body)
	utils.PrintDivider()

	if dryRun {
		utils.PrintInfo("Dry run: issue not updated")
		return
	}
	utils.PrintSuccess("Issue updated and author notified")
}

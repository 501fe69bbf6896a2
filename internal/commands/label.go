package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/ghmind/internal/app"
	"github.com/tildaslashalef/ghmind/internal/labeler"
	"github.com/tildaslashalef/ghmind/internal/utils"
)

// LabelCommand returns the CLI command for the smart labeler
func LabelCommand() *cli.Command {
	return &cli.Command{
		Name:  "label",
		Usage: "Suggest and add labels to an issue or pull request",
		Description: "Classifies the issue text or pull request diff against the configured " +
			"allow-list and adds the matching labels.",
		Flags:  []cli.Flag{itemTypeFlag, numberFlag, itemTitleFlag, issueBodyFlag, dryRunFlag},
		Action: labelAction,
	}
}

func labelAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}
	itemType, err := labeler.ParseItemType(c.String("type"))
	if err != nil {
		return err
	}
	number, err := requirePositive(c, "number")
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

	svc := labeler.NewService(gh, model, application.Extractor, labeler.Options{
		DryRun:        c.Bool("dry-run"),
		ContextBudget: application.Config.Prompt.ContextBudget,
		Allowed:       application.Config.Labeler.Allowed,
	}, application.Logger.With("task", "label"))

	utils.PrintHeading(fmt.Sprintf("Labelling %s %s#%d", strings.ReplaceAll(string(itemType), "_", " "), gh.Repository(), number))
	printDryRun(c.Bool("dry-run"))
	result, err := svc.Run(application.Context(c.Context), labeler.Input{
		Type:   itemType,
		Number: number,
		Title:  c.String("title"),
		Body:   c.String("body"),
	})
	if err != nil {
		return explain(err, gh.Repository())
	}

	switch {
	case result.Skipped:
		utils.PrintInfo("Nothing to classify, no labels applied")
	case len(result.Applied) == 0:
		utils.PrintInfo("No labels suggested")
	case c.Bool("dry-run"):
		utils.PrintInfo("Dry run: would add " + color.CyanString("%s", strings.Join(result.Applied, ", ")))
	default:
		utils.PrintSuccess("Added " + color.CyanString("%s", strings.Join(result.Applied, ", ")))
	}
	return nil
}

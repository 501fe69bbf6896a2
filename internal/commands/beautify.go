package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/ghmind/internal/app"
	"github.com/tildaslashalef/ghmind/internal/beautify"
	"github.com/tildaslashalef/ghmind/internal/utils"
)

// BeautifyLabelsCommand returns the CLI command for the label beautifier
func BeautifyLabelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "beautify-labels",
		Usage: "Give repository labels consistent names, descriptions and colours",
		Description: "Lists every label, asks the model for a restyle plan, validates it and " +
			"applies it. Use --dry-run to only print the plan.",
		Flags:  []cli.Flag{dryRunFlag},
		Action: beautifyAction,
	}
}

func beautifyAction(c *cli.Context) error {
	application, err := app.FromContext(c)
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

	svc := beautify.NewService(gh, model, application.Extractor, c.Bool("dry-run"), application.Logger.With("task", "beautify-labels"))

	utils.PrintHeading(fmt.Sprintf("Beautifying labels of %s", gh.Repository()))
	printDryRun(c.Bool("dry-run"))
	result, err := svc.Run(application.Context(c.Context))
	if result != nil {
		printBeautifyResult(result)
	}
	return explain(err, gh.Repository())
}

func printBeautifyResult(result *beautify.Result) {
	if len(result.Plan) == 0 {
		utils.PrintInfo(fmt.Sprintf("No label changes proposed for %s", utils.Pluralize(len(result.Labels), "label", "labels")))
		return
	}

	rows := make([][]string, 0, len(result.Plan))
	for _, ch := range result.Plan {
		name := ch.Current.Name
		if ch.Renamed() {
			name = ch.Current.Name + " → " + ch.Target.Name
		}
		rows = append(rows, []string{
			name,
			colorCell(ch.Current.Color, ch.Target.Color),
			ch.Target.Description,
		})
	}
	utils.PrintTable([]string{"Label", "Color", "Description"}, rows, utils.TableOptions{Title: "Label plan", MaxColumnWidth: 50})

	for _, r := range result.Rejected {
		utils.PrintWarning(fmt.Sprintf("Ignored proposal for %q: %s", r.Proposal.OriginalName, r.Reason))
	}

	if result.DryRun {
		utils.PrintInfo(fmt.Sprintf("Dry run: %s planned, none applied", utils.Pluralize(len(result.Plan), "change", "changes")))
		return
	}
	utils.PrintSuccess(fmt.Sprintf("Updated %s", utils.Pluralize(result.Updated, "label", "labels")))
}

func colorCell(current, target string) string {
	if current == target {
		return "#" + target
	}
	return color.New(color.Faint).Sprintf("#%s", current) + " → #" + target
}

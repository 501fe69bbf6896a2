package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Flags shared by the task commands. Each is bound to the environment
// variable a CI workflow exports for it.
var (
	dryRunFlag = &cli.BoolFlag{
		Name:    "dry-run",
		Usage:   "Compute and print the plan without changing anything",
		EnvVars: []string{"DRY_RUN"},
	}
	prNumberFlag = &cli.IntFlag{
		Name:    "pr",
		Usage:   "Pull request number",
		EnvVars: []string{"PR_NUMBER"},
	}
	issueNumberFlag = &cli.IntFlag{
		Name:    "issue",
		Usage:   "Issue number",
		EnvVars: []string{"ISSUE_NUMBER"},
	}
	prTitleFlag = &cli.StringFlag{
		Name:    "title",
		Usage:   "Pull request title (fetched when title and author are empty)",
		EnvVars: []string{"PR_TITLE"},
	}
	prAuthorFlag = &cli.StringFlag{
		Name:    "author",
		Usage:   "Login of the pull request author",
		EnvVars: []string{"PR_AUTHOR"},
	}
	issueTitleFlag = &cli.StringFlag{
		Name:    "title",
		Usage:   "Issue title",
		EnvVars: []string{"ISSUE_TITLE"},
	}
	itemTitleFlag = &cli.StringFlag{
		Name:    "title",
		Usage:   "Issue or pull request title",
		EnvVars: []string{"ISSUE_TITLE", "PR_TITLE"},
	}
	issueBodyFlag = &cli.StringFlag{
		Name:    "body",
		Usage:   "Issue body",
		EnvVars: []string{"ISSUE_BODY"},
	}
	issueAuthorFlag = &cli.StringFlag{
		Name:    "author",
		Usage:   "Login of the issue author",
		EnvVars: []string{"ISSUE_AUTHOR"},
	}
	itemTypeFlag = &cli.StringFlag{
		Name:    "type",
		Usage:   "Item to label: issue or pull_request",
		EnvVars: []string{"ITEM_TYPE"},
		Value:   "issue",
	}
	numberFlag = &cli.IntFlag{
		Name:    "number",
		Usage:   "Issue or pull request number (defaults to ISSUE_NUMBER or PR_NUMBER)",
		EnvVars: []string{"ITEM_NUMBER", "ISSUE_NUMBER", "PR_NUMBER"},
	}
)

// requirePositive reads an int flag that must name an issue or pull request
func requirePositive(c *cli.Context, name string) (int, error) {
	n := c.Int(name)
	if n <= 0 {
		return 0, fmt.Errorf("--%s must be a positive number", name)
	}
	return n, nil
}

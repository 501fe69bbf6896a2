package commands

import (
	"fmt"
	"net/http"

	"github.com/tildaslashalef/ghmind/internal/github"
	"github.com/tildaslashalef/ghmind/internal/utils"
)

// explain adds a hint a CI user can act on to GitHub API errors
func explain(err error, repository string) error {
	if err == nil {
		return nil
	}
	switch code := github.StatusCode(err); {
	case github.IsNotFound(err):
		return fmt.Errorf("%w (not found in %s: check GITHUB_REPOSITORY and the issue or pull request number)", err, repository)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w (check that GITHUB_TOKEN is valid and can write to %s)", err, repository)
	}
	return err
}

// printDryRun marks the output of a run that changes nothing
func printDryRun(dryRun bool) {
	if dryRun {
		utils.PrintBadge("DRY RUN")
	}
}

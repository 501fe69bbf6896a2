package commands

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/ghmind/internal/config"
	"github.com/tildaslashalef/ghmind/internal/utils"
)

// InitCommand returns the CLI command that writes a sample configuration
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a commented sample .env",
		Description: "Writes every supported setting with its default to a .env file. An " +
			"existing file is kept unless --force is given, in which case a dated backup is made.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Where to write the file",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Replace an existing file after backing it up",
			},
		},
		Action: func(c *cli.Context) error {
			utils.PrintHeading("Initializing ghmind")

			target, err := filepath.Abs(c.String("path"))
			if err != nil {
				return fmt.Errorf("failed to resolve path: %w", err)
			}

			written, err := config.WriteSampleEnv(target, c.Bool("force"))
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to write configuration: %s", err))
				return fmt.Errorf("failed to write configuration: %w", err)
			}

			if !written {
				utils.PrintWarning("Configuration file already exists: " + color.YellowString("%s", target))
				utils.PrintInfo("Run with " + color.CyanString("--force") + " to replace it")
				return nil
			}

			utils.PrintSuccess("Configuration file: " + color.YellowString("%s", target))
			utils.PrintInfo("Fill in " + color.CyanString("GITHUB_TOKEN") + " and " + color.CyanString("GEMINI_API_KEY") + " before running a task.")
			return nil
		},
	}
}

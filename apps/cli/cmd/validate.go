package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/rqn/packages/collection"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Check collections without sending requests",
	Long: `Load and validate YAML collections without sending anything.

Examples:
  rqn validate requests.yaml
  rqn validate ./collections/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no .yaml or .yml collection files found"))
	}

	invalid := 0
	for _, file := range files {
		if _, err := collection.Load(file); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			invalid++
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if invalid > 0 {
		return withExitCode(ExitParseError, fmt.Errorf("validation failed for %d file(s)", invalid))
	}

	return nil
}

package cmd

import (
	"fmt"
	"slices"

	"github.com/abdul-hamid-achik/rqn/packages/collection"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List the requests in collections",
	Long: `List the requests defined in YAML collections, in run order.

Examples:
  rqn list requests.yaml
  rqn list ./collections/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no .yaml or .yml collection files found"))
	}

	for _, file := range files {
		f, err := collection.Load(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", file)
		for _, req := range f.Requests {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s  %s %s\n", req.Name, req.Method, req.URL)
			if len(req.Capture) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    captures: %v\n", sortedKeys(req.Capture))
			}
		}
	}

	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

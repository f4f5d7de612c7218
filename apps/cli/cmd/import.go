package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/rqn/packages/collection"
	"github.com/abdul-hamid-achik/rqn/packages/import/curl"
	"github.com/spf13/cobra"
)

var (
	importOutputFlag string
	importExpectFlag bool
)

var importCmd = &cobra.Command{
	Use:   "import <format> <source>",
	Short: "Convert requests from other tools into a collection",
	Long: `Convert requests written for other tools into a YAML collection.

Supported formats:
  curl - curl command lines

Examples:
  rqn import curl commands.sh
  rqn import curl commands.sh -o requests.yaml
  rqn import curl - < commands.sh`,
}

var importCurlCmd = &cobra.Command{
	Use:   "curl <file|->",
	Short: "Import curl command lines",
	Long: `Convert a file of curl commands, one per line with backslash line
continuations, into a YAML collection. Use - to read standard input.

Examples:
  rqn import curl commands.sh
  rqn import curl commands.sh -o requests.yaml --expect`,
	Args: cobra.ExactArgs(1),
	RunE: importCurlCommand,
}

func init() {
	importCurlCmd.Flags().StringVarP(&importOutputFlag, "output", "o", "", "Output file path (default: stdout)")
	importCurlCmd.Flags().BoolVar(&importExpectFlag, "expect", false, "Expect status 200 from every request")

	importCmd.AddCommand(importCurlCmd)
}

func importCurlCommand(cmd *cobra.Command, args []string) error {
	converter := curl.NewConverter(curl.WithExpectSuccess(importExpectFlag))

	var (
		file *collection.File
		err  error
	)
	if args[0] == "-" {
		file, err = converter.ConvertReader(cmd.InOrStdin())
	} else {
		file, err = converter.ConvertFile(args[0])
	}
	if err != nil {
		return withExitCode(ExitParseError, fmt.Errorf("failed to convert curl commands: %w", err))
	}

	logger.Debug().Str("requests", curlNames(file)).Msg("converted curl commands")

	content, err := file.Marshal()
	if err != nil {
		return err
	}

	if importOutputFlag == "" {
		_, err = cmd.OutOrStdout().Write(content)
		return err
	}

	if dir := filepath.Dir(importOutputFlag); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(importOutputFlag, content, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d request(s) to %s\n", len(file.Requests), importOutputFlag)
	return nil
}

// curlNames lists the request names, for log lines.
func curlNames(file *collection.File) string {
	names := make([]string, len(file.Requests))
	for i, r := range file.Requests {
		names[i] = r.Name
	}
	return strings.Join(names, ", ")
}

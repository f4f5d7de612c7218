package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/rqn/packages/collection"
	"github.com/abdul-hamid-achik/rqn/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sample config and request collection",
	Long: `Create a sample project in the current directory.

This creates:
  - .rqn.yaml      - Configuration file
  - requests.yaml  - Example collection for the fixture server

Examples:
  rqn init
  rqn init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, ".rqn.yaml")
	exampleFile := filepath.Join(cwd, "requests.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	if err := sampleConfig().SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	data, err := sampleCollection().Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(exampleFile, data, 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Next steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  rqn serve &")
	fmt.Fprintln(cmd.OutOrStdout(), "  rqn run requests.yaml")

	return nil
}

func sampleConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timeout = 30000
	cfg.Headers = map[string]string{"User-Agent": "rqn/" + version}
	cfg.History = "rqn-history.db"
	return cfg
}

func sampleCollection() *collection.File {
	return &collection.File{
		Variables: map[string]string{
			"baseUrl": "http://localhost:3000",
		},
		Requests: []*collection.Request{
			{
				Name:   "root",
				Method: "GET",
				URL:    "{{baseUrl}}/",
				Expect: &collection.Expect{Status: 200, Contains: "test: GET"},
			},
			{
				Name:    "create",
				Method:  "PUT",
				URL:     "{{baseUrl}}/json",
				JSON:    map[string]any{"name": "ada", "id": "{{uuid()}}"},
				Expect:  &collection.Expect{Status: 200},
				Capture: map[string]string{"userId": "body.id"},
			},
			{
				Name:   "lookup",
				Method: "GET",
				URL:    "{{baseUrl}}/qs",
				Query:  map[string]string{"id": "{{userId}}"},
				Expect: &collection.Expect{Status: 200, Contains: "id"},
			},
			{
				Name:   "chunked",
				Method: "GET",
				URL:    "{{baseUrl}}/chunked",
				Expect: &collection.Expect{Contains: "fizzbazz"},
			},
		},
	}
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/collection"
	"github.com/abdul-hamid-achik/rqn/packages/core/config"
	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/abdul-hamid-achik/rqn/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run YAML request collections",
	Long: `Run the requests of one or more YAML collections in order.

Values captured from a response can be used by later requests as {{name}}.
Directories are searched for .yaml and .yml files.

Examples:
  rqn run requests.yaml
  rqn run ./collections/ --bail
  rqn run requests.yaml --output junit --output-file report.xml
  rqn run requests.yaml --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	runBailFlag       bool
	runOutputFlag     string
	runOutputFileFlag string
	runWatchFlag      bool
	runTimeoutFlag    string
	runInsecureFlag   bool
)

func init() {
	runCmd.Flags().BoolVar(&runBailFlag, "bail", getEnvBool("RQN_BAIL", false), "Stop on first failure (env: RQN_BAIL)")
	runCmd.Flags().StringVarP(&runOutputFlag, "output", "o", getEnvString("RQN_OUTPUT", output.FormatConsole), "Output format: console, json, junit (env: RQN_OUTPUT)")
	runCmd.Flags().StringVar(&runOutputFileFlag, "output-file", getEnvString("RQN_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: RQN_OUTPUT_FILE)")
	runCmd.Flags().BoolVarP(&runWatchFlag, "watch", "w", false, "Watch files for changes and re-run")
	runCmd.Flags().StringVar(&runTimeoutFlag, "timeout", getEnvString("RQN_TIMEOUT", ""), "Timeout per request, e.g. 5s (env: RQN_TIMEOUT)")
	runCmd.Flags().BoolVarP(&runInsecureFlag, "insecure", "k", getEnvBool("RQN_INSECURE", false), "Skip TLS certificate validation (env: RQN_INSECURE)")
}

// runTotals sums the results of every file in one pass.
type runTotals struct {
	passed, failed, skipped int
	loadErrors              int
	duration                time.Duration
}

func runCommand(cmd *cobra.Command, args []string) error {
	var out io.Writer = cmd.OutOrStdout()
	if runOutputFileFlag != "" {
		f, err := os.Create(runOutputFileFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("cannot create output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	// fail fast on a bad --output before anything runs
	if _, err := output.NewFormatter(runOutputFlag, out, verboseFlag > 0, noColorFlag); err != nil {
		return withExitCode(ExitUsageError, err)
	}

	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no .yaml or .yml collection files found"))
	}

	clientOpts := currentConfig().ClientOptions()
	clientOpts = append(clientOpts, http.WithLogger(logger))
	if runInsecureFlag {
		clientOpts = append(clientOpts, http.WithValidateSSL(false))
	}
	if runTimeoutFlag != "" {
		d, err := time.ParseDuration(runTimeoutFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", runTimeoutFlag, err))
		}
		clientOpts = append(clientOpts, http.WithTimeout(d))
	}

	runnerOpts := []collection.RunnerOption{
		collection.WithClient(http.NewClient(clientOpts...)),
		collection.WithBail(runBailFlag),
		collection.WithLogger(logger),
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		runnerOpts = append(runnerOpts, collection.WithRecorder(store))
	}

	runner := collection.NewRunner(runnerOpts...)

	ctx, cancel := signalContext()
	defer cancel()

	runOnce := func() (runTotals, error) {
		formatter, _ := output.NewFormatter(runOutputFlag, out, verboseFlag > 0, noColorFlag)
		totals := runFiles(ctx, runner, formatter, files)
		return totals, formatter.Flush(totals.duration)
	}

	totals, err := runOnce()
	if err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}

	if !runWatchFlag {
		return totals.err()
	}

	return watchFiles(ctx, cmd, args, files, func() {
		if _, err := runOnce(); err != nil {
			logger.Error().Err(err).Msg("error writing output")
		}
	})
}

func (t runTotals) err() error {
	switch {
	case t.loadErrors > 0:
		return withExitCode(ExitParseError, fmt.Errorf("%d collection file(s) could not be loaded", t.loadErrors))
	case t.failed > 0:
		return withExitCode(ExitTestFailure, fmt.Errorf("%d request(s) failed", t.failed))
	}
	return nil
}

func runFiles(ctx context.Context, runner *collection.Runner, formatter output.Formatter, files []string) runTotals {
	var totals runTotals
	start := time.Now()

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}

		file, err := collection.Load(path)
		if err != nil {
			formatter.FormatError(err)
			totals.loadErrors++
			if runBailFlag {
				break
			}
			continue
		}

		result, err := runner.Run(ctx, file)
		if err != nil {
			// only cancellation stops a run early
			formatter.FormatError(err)
			break
		}

		formatter.FormatRun(result)
		totals.passed += result.Passed
		totals.failed += result.Failed
		totals.skipped += result.Skipped

		if runBailFlag && !result.Success() {
			break
		}
	}

	totals.duration = time.Since(start)
	return totals
}

// watchFiles re-runs rerun after a collection file is written, until ctx
// is cancelled.
func watchFiles(ctx context.Context, cmd *cobra.Command, args, files []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	watch := func(dir string) {
		if watchedDirs[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("failed to watch")
		}
		watchedDirs[dir] = true
	}

	for _, file := range files {
		watch(filepath.Dir(file))
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() {
					watch(path)
				}
				return nil
			})
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) || !isCollectionFile(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nFile changed: %s\nRe-running...\n\n", name)
				rerun()
				fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("watcher error")
		}
	}
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			// an explicit file is run whatever its extension
			files = append(files, arg)
			continue
		}

		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && isCollectionFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// isCollectionFile matches YAML files other than rqn's own config files.
func isCollectionFile(path string) bool {
	base := filepath.Base(path)
	if slices.Contains(config.ConfigFilenames, base) {
		return false
	}
	ext := filepath.Ext(base)
	return ext == ".yaml" || ext == ".yml"
}

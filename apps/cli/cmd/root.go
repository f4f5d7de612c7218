package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/core/config"
	"github.com/abdul-hamid-achik/rqn/packages/history"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	logLevelFlag string
	verboseFlag  int
	noColorFlag  bool
	historyFlag  string

	// loaded by PersistentPreRunE
	fileConfig *config.Config
	logger     = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "rqn",
	Short: "A tiny HTTP/1.1 client that speaks raw sockets.",
	Long: `rqn sends HTTP/1.1 requests over plain TCP or TLS sockets and parses
the responses itself. It can send one-off requests, run YAML request
collections, generate load and serve a local fixture server to test against.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("RQN_CONFIG", ""), "Path to config file (env: RQN_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("RQN_LOG_LEVEL", ""), "Log level: trace, debug, info, warn, error (env: RQN_LOG_LEVEL)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Verbose logging (-v debug, -vv trace)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("RQN_NO_COLOR", false), "Disable colored output (env: RQN_NO_COLOR)")
	rootCmd.PersistentFlags().StringVar(&historyFlag, "history", getEnvString("RQN_HISTORY", ""), "SQLite file to record exchanges in (env: RQN_HISTORY)")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads --config, or the first config file in the working directory,
// and builds the stderr logger every command shares.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	fileConfig, err = config.LoadConfig(configFlag)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	if fileConfig.GetNoColor() {
		noColorFlag = true
	}
	if noColorFlag {
		color.NoColor = true
	}

	level, err := resolveLogLevel(fileConfig.LogLevel)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		TimeFormat: time.TimeOnly,
		NoColor:    noColorFlag,
	}).Level(level).With().Timestamp().Logger()

	return nil
}

// resolveLogLevel picks the level from -v, then --log-level, then config.
func resolveLogLevel(configured string) (zerolog.Level, error) {
	switch {
	case verboseFlag >= 2:
		return zerolog.TraceLevel, nil
	case verboseFlag == 1:
		return zerolog.DebugLevel, nil
	}

	name := logLevelFlag
	if name == "" {
		name = configured
	}
	if name == "" {
		return zerolog.WarnLevel, nil
	}

	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// currentConfig is the loaded config, or the defaults before setup ran.
func currentConfig() *config.Config {
	if fileConfig == nil {
		return config.DefaultConfig()
	}
	return fileConfig
}

// openHistory opens the history store named by --history or the config.
// A nil store means history is disabled.
func openHistory() (*history.Store, error) {
	path := historyFlag
	if path == "" {
		path = currentConfig().History
	}
	if path == "" {
		return nil, nil
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return store, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

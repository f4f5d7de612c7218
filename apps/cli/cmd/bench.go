package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/bench"
	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/abdul-hamid-achik/rqn/packages/output"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench <url>",
	Short: "Send requests at a fixed rate and report latency",
	Long: `Send the same request at a steady rate for a while, then report latency
percentiles, throughput and status codes.

Examples:
  rqn bench http://localhost:3000/ --duration 30s --rate 100
  rqn bench http://localhost:3000/json -X PUT --json '{"a":1}' -c 20
  rqn bench http://localhost:3000/ -d 1m -r 100 --threshold "p95<200ms,errors<0.1%"
  rqn bench http://localhost:3000/ --output json`,
	Args: cobra.ExactArgs(1),
	RunE: benchCommand,
}

var (
	benchMethodFlag      string
	benchDurationFlag    string
	benchRateFlag        float64
	benchConcurrencyFlag int
	benchThresholdFlag   string
	benchOutputFlag      string
	benchHeaderFlags     []string
	benchJSONFlag        string
	benchDataFlag        string
	benchInsecureFlag    bool
)

func init() {
	benchCmd.Flags().StringVarP(&benchMethodFlag, "method", "X", http.MethodGet, "Request method")
	benchCmd.Flags().StringVarP(&benchDurationFlag, "duration", "d", getEnvString("RQN_BENCH_DURATION", "10s"), "Run duration, e.g. 30s, 5m (env: RQN_BENCH_DURATION)")
	benchCmd.Flags().Float64VarP(&benchRateFlag, "rate", "r", 10, "Target requests per second")
	benchCmd.Flags().IntVarP(&benchConcurrencyFlag, "concurrency", "c", getEnvInt("RQN_BENCH_CONCURRENCY", 50), "Maximum requests in flight (env: RQN_BENCH_CONCURRENCY)")
	benchCmd.Flags().StringVar(&benchThresholdFlag, "threshold", "", "Pass/fail thresholds (e.g., \"p95<200ms,errors<0.1%,rps>50\")")
	benchCmd.Flags().StringVarP(&benchOutputFlag, "output", "o", output.FormatConsole, "Output format: console, json")
	benchCmd.Flags().StringArrayVarP(&benchHeaderFlags, "header", "H", nil, `Request header as "Key: value" (repeatable)`)
	benchCmd.Flags().StringVar(&benchJSONFlag, "json", "", "JSON document to send as the body")
	benchCmd.Flags().StringVar(&benchDataFlag, "data", "", "Raw text body")
	benchCmd.Flags().BoolVarP(&benchInsecureFlag, "insecure", "k", getEnvBool("RQN_INSECURE", false), "Skip TLS certificate validation (env: RQN_INSECURE)")

	benchCmd.MarkFlagsMutuallyExclusive("json", "data")
}

func benchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := buildBenchConfig(args[0])
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	format := strings.ToLower(benchOutputFlag)
	if format != output.FormatConsole && format != output.FormatJSON {
		return withExitCode(ExitUsageError, fmt.Errorf("unknown output format %q (want console or json)", benchOutputFlag))
	}

	clientOpts := currentConfig().ClientOptions()
	if benchInsecureFlag {
		clientOpts = append(clientOpts, http.WithValidateSSL(false))
	}
	client := http.NewClient(clientOpts...)

	reporter := bench.NewReporter(
		bench.WithWriter(cmd.OutOrStdout()),
		bench.WithNoColor(noColorFlag),
	)
	if format == output.FormatConsole {
		reporter.Header(version, cfg)
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := bench.NewRunner(cfg,
		bench.WithClient(client),
		bench.WithLogger(logger),
	)
	result, err := runner.Run(ctx)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if format == output.FormatJSON {
		if err := reporter.JSONSummary(result); err != nil {
			return err
		}
	} else {
		reporter.Summary(result)
	}

	if !result.Passed {
		return withExitCode(ExitTestFailure, fmt.Errorf("thresholds not met"))
	}
	return nil
}

func buildBenchConfig(rawURL string) (*bench.Config, error) {
	cfg := bench.DefaultConfig()
	cfg.URL = rawURL
	cfg.Method = strings.ToUpper(benchMethodFlag)
	cfg.Rate = benchRateFlag
	cfg.MaxConcurrency = benchConcurrencyFlag

	d, err := time.ParseDuration(benchDurationFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", benchDurationFlag, err)
	}
	cfg.Duration = d

	if benchThresholdFlag != "" {
		cfg.Thresholds, err = bench.ParseThresholds(benchThresholdFlag)
		if err != nil {
			return nil, err
		}
	}

	body := &requestFlags{headers: benchHeaderFlags, jsonBody: benchJSONFlag, data: benchDataFlag}
	cfg.Options, err = body.requestOptions()
	if err != nil {
		return nil, err
	}

	if _, err := http.ParseURL(rawURL); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

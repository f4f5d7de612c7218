package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/assertions"
	"github.com/abdul-hamid-achik/rqn/packages/capture"
	"github.com/abdul-hamid-achik/rqn/packages/history"
	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/abdul-hamid-achik/rqn/packages/output"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	getCmd    = newRequestCmd(http.MethodGet)
	postCmd   = newRequestCmd(http.MethodPost)
	putCmd    = newRequestCmd(http.MethodPut)
	deleteCmd = newRequestCmd(http.MethodDelete)
)

// requestFlags are the flags shared by the verb commands.
type requestFlags struct {
	headers      []string
	query        []string
	form         []string
	jsonBody     string
	data         string
	insecure     bool
	validateSSL  bool
	noFollow     bool
	maxRedirects int
	timeout      string
	include      bool
	selectPath   string
	schema       string
	expectStatus int
	requestID    bool
	output       string
}

func newRequestCmd(method string) *cobra.Command {
	flags := &requestFlags{}
	name := strings.ToLower(method)

	cmd := &cobra.Command{
		Use:   name + " <url>",
		Short: fmt.Sprintf("Send a %s request", method),
		Long: fmt.Sprintf(`Send a %[1]s request and print the response body.

Examples:
  rqn %[2]s http://localhost:3000/
  rqn %[2]s https://example.com -H "Accept: application/json" --include
  rqn %[2]s http://localhost:3000/qs -q page=2 -q "sort=name asc"
  rqn %[2]s http://localhost:3000/json --json '{"name":"ada"}' --select name
  rqn %[2]s http://localhost:3000/status/404 --expect-status 200`, method, name),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.send(cmd, method, args[0])
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&flags.headers, "header", "H", nil, `Request header as "Key: value" (repeatable)`)
	f.StringArrayVarP(&flags.query, "query", "q", nil, "Query parameter as key=value, replaces the URL's query (repeatable)")
	f.StringArrayVarP(&flags.form, "form", "f", nil, "Form field as key=value, sent url-encoded (repeatable)")
	f.StringVar(&flags.jsonBody, "json", "", "JSON document to send as the body")
	f.StringVarP(&flags.data, "data", "d", "", "Raw text body")
	f.BoolVarP(&flags.insecure, "insecure", "k", getEnvBool("RQN_INSECURE", false), "Skip TLS certificate validation (env: RQN_INSECURE)")
	f.BoolVar(&flags.validateSSL, "validate-ssl", false, "Validate TLS certificates")
	f.BoolVar(&flags.noFollow, "no-follow", false, "Do not follow redirects")
	f.IntVar(&flags.maxRedirects, "max-redirects", 0, "Redirect hop limit, -1 for unlimited (default from config)")
	f.StringVar(&flags.timeout, "timeout", getEnvString("RQN_TIMEOUT", ""), "Timeout for the whole call, e.g. 5s (env: RQN_TIMEOUT)")
	f.BoolVarP(&flags.include, "include", "i", false, "Print the status line and headers")
	f.StringVar(&flags.selectPath, "select", "", "Print only the value at this gjson path")
	f.StringVar(&flags.schema, "schema", "", "Validate the JSON body against this JSON Schema file")
	f.IntVar(&flags.expectStatus, "expect-status", 0, "Fail unless the response has this status code")
	f.BoolVar(&flags.requestID, "request-id", false, "Add an X-Request-Id header with a random UUID")
	f.StringVarP(&flags.output, "output", "o", getEnvString("RQN_OUTPUT", output.FormatConsole), "Output format: console, json (env: RQN_OUTPUT)")

	cmd.MarkFlagsMutuallyExclusive("insecure", "validate-ssl")
	cmd.MarkFlagsMutuallyExclusive("json", "data", "form")
	cmd.MarkFlagsMutuallyExclusive("select", "include")

	return cmd
}

func (f *requestFlags) send(cmd *cobra.Command, method, rawURL string) error {
	opts, err := f.requestOptions()
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	clientOpts, err := f.clientOptions(cmd)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	formatter, err := output.NewResponseFormatter(f.output, cmd.OutOrStdout(), noColorFlag)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := http.NewClient(clientOpts...)
	start := time.Now()
	resp, err := client.Request(ctx, method, rawURL, opts)
	recordExchange(ctx, store, method, rawURL, resp, err, time.Since(start))
	if err != nil {
		return err
	}

	if f.selectPath != "" {
		value, ok := capture.Select(resp, f.selectPath)
		if !ok {
			return withExitCode(ExitTestFailure, fmt.Errorf("path %q not found in response", f.selectPath))
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
	} else if err := formatter.FormatResponse(resp, f.include); err != nil {
		return err
	}

	return f.check(cmd, resp)
}

// check runs --expect-status and --schema against resp.
func (f *requestFlags) check(cmd *cobra.Command, resp *http.Response) error {
	var results []*assertions.Result
	if f.expectStatus != 0 {
		results = append(results, assertions.CheckStatus(resp, f.expectStatus))
	}
	if f.schema != "" {
		results = append(results, assertions.ValidateSchema(resp, f.schema))
	}

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
			fmt.Fprintln(cmd.ErrOrStderr(), r)
		}
	}
	if failed > 0 {
		return withExitCode(ExitTestFailure, fmt.Errorf("%d expectation(s) failed", failed))
	}
	return nil
}

func (f *requestFlags) requestOptions() (*http.RequestOptions, error) {
	opts := &http.RequestOptions{
		Headers: http.NewHeaders(),
		Body:    f.data,
	}

	for _, h := range f.headers {
		key, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header %q (want \"Key: value\")", h)
		}
		opts.Headers.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	if f.requestID {
		if _, ok := opts.Headers.Lookup("X-Request-Id"); !ok {
			id := uuid.NewString()
			opts.Headers.Set("X-Request-Id", id)
			logger.Debug().Str("request_id", id).Msg("added request id")
		}
	}

	var err error
	if f.query != nil {
		if opts.Query, err = parsePairs(f.query); err != nil {
			return nil, err
		}
	}
	if f.form != nil {
		if opts.Form, err = parsePairs(f.form); err != nil {
			return nil, err
		}
	}
	if f.jsonBody != "" {
		var v any
		if err := json.Unmarshal([]byte(f.jsonBody), &v); err != nil {
			return nil, fmt.Errorf("invalid --json value: %w", err)
		}
		opts.JSON = v
	}

	return opts, nil
}

// clientOptions layers the command line over the config file.
func (f *requestFlags) clientOptions(cmd *cobra.Command) ([]http.ClientOption, error) {
	opts := currentConfig().ClientOptions()
	opts = append(opts, http.WithLogger(logger))

	if cmd.Flags().Changed("validate-ssl") {
		opts = append(opts, http.WithValidateSSL(f.validateSSL))
	}
	if f.insecure {
		opts = append(opts, http.WithValidateSSL(false))
	}
	if f.noFollow {
		opts = append(opts, http.WithFollowRedirects(false))
	}
	if cmd.Flags().Changed("max-redirects") {
		opts = append(opts, http.WithMaxRedirects(f.maxRedirects))
	}
	if f.timeout != "" {
		d, err := time.ParseDuration(f.timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", f.timeout, err)
		}
		opts = append(opts, http.WithTimeout(d))
	}

	return opts, nil
}

// parsePairs splits key=value arguments, keeping their order.
func parsePairs(pairs []string) (http.Params, error) {
	params := make(http.Params, 0, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q (want key=value)", p)
		}
		params = params.Add(key, value)
	}
	return params, nil
}

// recordExchange writes one history entry when a store is open. Failures
// to record are logged, never returned.
func recordExchange(ctx context.Context, store *history.Store, method, rawURL string, resp *http.Response, err error, d time.Duration) {
	if store == nil {
		return
	}
	entry := history.Entry{Method: method, URL: rawURL, Duration: d}
	if resp != nil {
		entry.Status = resp.StatusCode
		entry.Bytes = len(resp.Body)
		entry.URL = resp.URL
		entry.Duration = resp.Duration
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if _, rerr := store.Record(context.WithoutCancel(ctx), entry); rerr != nil {
		logger.Warn().Err(rerr).Msg("failed to record history")
	}
}

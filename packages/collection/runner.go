package collection

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/assertions"
	"github.com/abdul-hamid-achik/rqn/packages/capture"
	"github.com/abdul-hamid-achik/rqn/packages/history"
	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/rs/zerolog"
)

// Requester is the part of http.Client the runner needs.
type Requester interface {
	Request(ctx context.Context, method, rawURL string, opts *http.RequestOptions) (*http.Response, error)
}

// Recorder persists each exchange, typically a *history.Store.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

type Runner struct {
	client   Requester
	recorder Recorder
	bail     bool
	logger   zerolog.Logger
}

type RunnerOption func(*Runner)

func WithClient(client Requester) RunnerOption {
	return func(r *Runner) {
		r.client = client
	}
}

// WithRecorder records every exchange, failed ones included.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithBail stops the run at the first failed request.
func WithBail(bail bool) RunnerOption {
	return func(r *Runner) {
		r.bail = bail
	}
}

func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = http.NewClient()
	}
	return r
}

type RunResult struct {
	File     string
	Results  []*RequestResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
}

// Success reports whether no request failed.
func (r *RunResult) Success() bool {
	return r.Failed == 0
}

type RequestResult struct {
	Name       string
	Method     string
	URL        string
	Passed     bool
	Skipped    bool
	Duration   time.Duration
	Response   *http.Response
	Assertions []*assertions.Result
	Captures   map[string]any
	Error      error
}

// Run executes the requests of file in order. Captures of each request are
// visible to every later one.
func (r *Runner) Run(ctx context.Context, file *File) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{File: file.Path}

	resolver := NewResolver()
	resolver.SetWarnFunc(func(format string, args ...any) {
		r.logger.Warn().Msgf(format, args...)
	})
	for k, v := range file.Variables {
		resolver.SetVariable(k, v)
	}

	baseDir := ""
	if file.Path != "" {
		baseDir = filepath.Dir(file.Path)
	}

	for i, req := range file.Requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reqResult := r.runRequest(ctx, req, resolver, baseDir)
		result.Results = append(result.Results, reqResult)

		if reqResult.Passed {
			result.Passed++
			continue
		}
		result.Failed++
		if r.bail {
			for _, rest := range file.Requests[i+1:] {
				result.Results = append(result.Results, &RequestResult{
					Name:    rest.Name,
					Method:  rest.Method,
					URL:     rest.URL,
					Skipped: true,
				})
				result.Skipped++
			}
			break
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) runRequest(ctx context.Context, req *Request, resolver *Resolver, baseDir string) *RequestResult {
	result := &RequestResult{
		Name:   req.Name,
		Method: req.Method,
		URL:    resolver.Resolve(req.URL),
	}

	opts := buildOptions(req, resolver)

	start := time.Now()
	resp, err := r.client.Request(ctx, req.Method, result.URL, opts)
	result.Duration = time.Since(start)
	r.record(ctx, result, resp, err)

	if err != nil {
		result.Error = err
		r.logger.Debug().Err(err).Str("request", req.Name).Msg("request failed")
		return result
	}
	result.Response = resp

	result.Assertions = evaluate(resp, req.Expect, baseDir)
	result.Passed = assertions.AllPassed(result.Assertions)

	if len(req.Capture) > 0 {
		result.Captures = capture.ExtractAll(resp, req.Capture)
		for name, value := range result.Captures {
			resolver.SetCapture(req.Name, name, value)
		}
		for name := range req.Capture {
			if _, ok := result.Captures[name]; !ok {
				r.logger.Warn().Str("request", req.Name).Str("capture", name).Msg("capture did not resolve")
			}
		}
	}

	return result
}

func (r *Runner) record(ctx context.Context, result *RequestResult, resp *http.Response, err error) {
	if r.recorder == nil {
		return
	}
	entry := history.Entry{
		Method:   result.Method,
		URL:      result.URL,
		Duration: result.Duration,
	}
	if resp != nil {
		entry.Status = resp.StatusCode
		entry.Bytes = len(resp.Body)
		entry.URL = resp.URL
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if _, rerr := r.recorder.Record(ctx, entry); rerr != nil {
		r.logger.Warn().Err(rerr).Msg("failed to record history")
	}
}

func buildOptions(req *Request, resolver *Resolver) *http.RequestOptions {
	opts := &http.RequestOptions{
		Headers: http.HeadersFromMap(resolver.ResolveMap(req.Headers)),
		Body:    resolver.Resolve(req.Body),
	}
	if req.Query != nil {
		opts.Query = http.ParamsFromMap(resolver.ResolveMap(req.Query))
	}
	if req.Form != nil {
		opts.Form = http.ParamsFromMap(resolver.ResolveMap(req.Form))
	}
	if req.JSON != nil {
		opts.JSON = resolver.ResolveValue(req.JSON)
	}
	return opts
}

func evaluate(resp *http.Response, expect *Expect, baseDir string) []*assertions.Result {
	if expect == nil {
		if resp.IsSuccess() {
			return nil
		}
		return []*assertions.Result{{
			Subject: "status",
			Actual:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}}
	}

	var results []*assertions.Result
	if expect.Status != 0 {
		results = append(results, assertions.CheckStatus(resp, expect.Status))
	}
	if expect.Contains != "" {
		results = append(results, assertions.CheckContains(resp, expect.Contains))
	}
	if expect.Schema != "" {
		path := expect.Schema
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		results = append(results, assertions.ValidateSchema(resp, path))
	}
	return results
}

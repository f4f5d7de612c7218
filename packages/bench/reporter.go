package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Reporter prints bench results
type Reporter struct {
	writer  io.Writer
	noColor bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
	bold   *color.Color
}

// ReporterOption configures the reporter
type ReporterOption func(*Reporter)

// WithWriter sets the output writer
func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

// WithNoColor disables colored output
func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.green = r.newColor(color.FgGreen)
	r.red = r.newColor(color.FgRed)
	r.yellow = r.newColor(color.FgYellow)
	r.cyan = r.newColor(color.FgCyan)
	r.bold = r.newColor(color.Bold)

	return r
}

func (r *Reporter) newColor(attr color.Attribute) *color.Color {
	c := color.New(attr)
	if r.noColor {
		c.DisableColor()
	}
	return c
}

// Header prints the run target before it starts
func (r *Reporter) Header(version string, config *Config) {
	fmt.Fprintln(r.writer)
	r.bold.Fprintf(r.writer, "rqn bench %s\n", version)
	r.cyan.Fprintf(r.writer, "%s %s\n", config.Method, config.URL)
	fmt.Fprintf(r.writer, "Target: %.0f req/s | Duration: %s | Max in flight: %d\n",
		config.Rate, config.Duration, config.MaxConcurrency)
	fmt.Fprintln(r.writer)
}

// Summary prints the final summary
func (r *Reporter) Summary(result *Result) {
	s := result.Summary

	r.bold.Fprintln(r.writer, "BENCH SUMMARY")
	fmt.Fprintln(r.writer, strings.Repeat("─", 40))

	fmt.Fprintf(r.writer, "Duration:   %s\n", formatDuration(s.Duration))
	fmt.Fprintf(r.writer, "Total:      ")
	r.bold.Fprintf(r.writer, "%s", formatNumber(s.TotalRequests))
	fmt.Fprintf(r.writer, " requests (%.1f req/s)\n", s.RPS)

	fmt.Fprintf(r.writer, "Success:    ")
	r.green.Fprintf(r.writer, "%s", formatNumber(s.SuccessCount))
	fmt.Fprintf(r.writer, " (%.1f%%)\n", s.SuccessRate*100)

	fmt.Fprintf(r.writer, "Failed:     ")
	if s.ErrorCount > 0 {
		r.red.Fprintf(r.writer, "%s", formatNumber(s.ErrorCount))
	} else {
		fmt.Fprintf(r.writer, "%s", formatNumber(s.ErrorCount))
	}
	fmt.Fprintf(r.writer, " (%.1f%%)\n", s.ErrorRate*100)

	if s.TimeoutCount > 0 {
		fmt.Fprintf(r.writer, "Timeouts:   ")
		r.yellow.Fprintf(r.writer, "%s\n", formatNumber(s.TimeoutCount))
	}

	if len(s.StatusCodes) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "STATUS CODES")
		for _, code := range s.SortedStatusCodes() {
			c := r.green
			if code >= 400 {
				c = r.red
			} else if code >= 300 {
				c = r.yellow
			}
			c.Fprintf(r.writer, "  %d", code)
			fmt.Fprintf(r.writer, ": %s\n", formatNumber(s.StatusCodes[code]))
		}
	}

	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "LATENCY (ms)")
	fmt.Fprintf(r.writer, "  p50: %-6s | p95: %-6s | p99: %-6s | max: %s\n",
		formatLatencyMs(s.P50),
		formatLatencyMs(s.P95),
		formatLatencyMs(s.P99),
		formatLatencyMs(s.Max))
	fmt.Fprintf(r.writer, "  min: %-6s | mean: %-5s | stddev: %s\n",
		formatLatencyMs(s.Min),
		formatLatencyMs(s.Mean),
		formatLatencyMs(s.StdDev))

	if len(result.Thresholds) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "THRESHOLDS")
		for _, tr := range result.Thresholds {
			if tr.Passed {
				r.green.Fprintf(r.writer, "  ✓ ")
			} else {
				r.red.Fprintf(r.writer, "  ✗ ")
			}
			fmt.Fprintf(r.writer, "%s %s    (actual: %s)\n", tr.Name, tr.Expected, tr.Actual)
		}
	}

	fmt.Fprintln(r.writer)
}

// JSONSummary outputs the result as JSON
func (r *Reporter) JSONSummary(result *Result) error {
	s := result.Summary
	statuses := make(map[string]int64, len(s.StatusCodes))
	for code, n := range s.StatusCodes {
		statuses[fmt.Sprint(code)] = n
	}

	output := map[string]any{
		"runId":    result.RunID,
		"passed":   result.Passed,
		"duration": s.Duration.String(),
		"requests": map[string]any{
			"total":    s.TotalRequests,
			"success":  s.SuccessCount,
			"failed":   s.ErrorCount,
			"timeouts": s.TimeoutCount,
		},
		"rates": map[string]any{
			"rps":         s.RPS,
			"successRate": s.SuccessRate,
			"errorRate":   s.ErrorRate,
		},
		"latency": map[string]any{
			"p50":    s.P50.Milliseconds(),
			"p95":    s.P95.Milliseconds(),
			"p99":    s.P99.Milliseconds(),
			"min":    s.Min.Milliseconds(),
			"max":    s.Max.Milliseconds(),
			"mean":   s.Mean.Milliseconds(),
			"stddev": s.StdDev.Milliseconds(),
		},
		"statusCodes": statuses,
	}

	if len(result.Thresholds) > 0 {
		thresholds := make([]map[string]any, len(result.Thresholds))
		for i, tr := range result.Thresholds {
			thresholds[i] = map[string]any{
				"name":     tr.Name,
				"passed":   tr.Passed,
				"expected": tr.Expected,
				"actual":   tr.Actual,
			}
		}
		output["thresholds"] = thresholds
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm %02ds", minutes, seconds)
}

func formatLatencyMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000
	if ms < 1 {
		return fmt.Sprintf("%.2f", ms)
	}
	if ms < 10 {
		return fmt.Sprintf("%.1f", ms)
	}
	return fmt.Sprintf("%.0f", ms)
}

// formatNumber formats a number with commas
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 1000 {
		return s
	}

	start := len(s) % 3
	if start == 0 {
		start = 3
	}

	var b strings.Builder
	b.WriteString(s[:start])
	for i := start; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

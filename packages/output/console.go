package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/collection"
	"github.com/abdul-hamid-achik/rqn/packages/history"
	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/fatih/color"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) sprint(attrs ...color.Attribute) func(a ...any) string {
	c := color.New(attrs...)
	if f.noColor {
		c.DisableColor()
	}
	return c.SprintFunc()
}

func (f *ConsoleFormatter) statusColor(code int) func(a ...any) string {
	switch {
	case code >= 500:
		return f.sprint(color.FgRed, color.Bold)
	case code >= 400:
		return f.sprint(color.FgRed)
	case code >= 300:
		return f.sprint(color.FgYellow)
	default:
		return f.sprint(color.FgGreen)
	}
}

// FormatResponse prints the body. With include, the status line and headers
// come first, the way they arrived.
func (f *ConsoleFormatter) FormatResponse(resp *http.Response, include bool) error {
	if include {
		cyan := f.sprint(color.FgCyan)
		status := f.statusColor(resp.StatusCode)
		fmt.Fprintf(f.writer, "%s\n", status(fmt.Sprintf("HTTP/1.1 %d %s", resp.StatusCode, resp.Status)))
		for _, k := range resp.Headers.Keys() {
			fmt.Fprintf(f.writer, "%s: %s\n", cyan(k), resp.Headers.Get(k))
		}
		fmt.Fprintln(f.writer)
	}
	_, err := f.writer.Write(resp.Body)
	if err == nil && len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
		_, err = fmt.Fprintln(f.writer)
	}
	return err
}

func (f *ConsoleFormatter) FormatRun(result *collection.RunResult) {
	green := f.sprint(color.FgGreen)
	red := f.sprint(color.FgRed)
	yellow := f.sprint(color.FgYellow)
	cyan := f.sprint(color.FgCyan)
	bold := f.sprint(color.Bold)

	if result.File != "" {
		fmt.Fprintf(f.writer, "\n%s\n", bold("Running: "+result.File))
	}
	fmt.Fprintf(f.writer, "\n")

	for _, r := range result.Results {
		if r.Skipped {
			fmt.Fprintf(f.writer, "  %s %s\n", yellow("-"), r.Name)
			continue
		}

		if r.Error != nil {
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), r.Name, red(fmt.Sprintf("(%v)", r.Error)))
			continue
		}

		symbol := green("✓")
		if !r.Passed {
			symbol = red("✗")
		}

		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.Name, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

		if f.verbose && r.Response != nil {
			fmt.Fprintf(f.writer, "    %s %s -> %d\n", r.Method, r.Response.URL, r.Response.StatusCode)
		}

		if !r.Passed {
			for _, a := range r.Assertions {
				if a.Passed {
					continue
				}
				fmt.Fprintf(f.writer, "    %s %s\n", red("→"), a.Subject)
				if a.Expected != nil {
					fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(a.Expected, 100))
				}
				fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(a.Actual, 100))
				if a.Message != "" {
					fmt.Fprintf(f.writer, "      %s\n", a.Message)
				}
			}
		}

		if f.verbose && len(r.Captures) > 0 {
			fmt.Fprintf(f.writer, "    Captures:\n")
			for name, value := range r.Captures {
				fmt.Fprintf(f.writer, "      %s = %s\n", name, formatValue(value, 100))
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Requests: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	fmt.Fprintf(f.writer, "Time:     %dms\n", result.Duration.Milliseconds())
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := f.sprint(color.FgRed)
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

// Flush is a no-op; console output is written as it is formatted.
func (f *ConsoleFormatter) Flush(time.Duration) error {
	return nil
}

// FormatHistory prints recorded exchanges, newest first.
func (f *ConsoleFormatter) FormatHistory(entries []history.Entry) {
	dim := f.sprint(color.Faint)
	red := f.sprint(color.FgRed)

	if len(entries) == 0 {
		fmt.Fprintln(f.writer, "No recorded requests")
		return
	}

	for _, e := range entries {
		stamp := dim(e.CreatedAt.Format(time.DateTime))
		if e.Error != "" {
			fmt.Fprintf(f.writer, "%s  %-6s %s  %s\n", stamp, e.Method, e.URL, red(e.Error))
			continue
		}
		status := f.statusColor(e.Status)
		fmt.Fprintf(f.writer, "%s  %-6s %s  %s %s\n", stamp, e.Method, e.URL,
			status(e.Status), dim(fmt.Sprintf("%dB %dms", e.Bytes, e.Duration.Milliseconds())))
	}
}

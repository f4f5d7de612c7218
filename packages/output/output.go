package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/collection"
	"github.com/abdul-hamid-achik/rqn/packages/http"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatJUnit   = "junit"
)

// Formatter renders collection runs.
type Formatter interface {
	FormatRun(result *collection.RunResult)
	FormatError(err error)
	Flush(totalDuration time.Duration) error
}

// ResponseFormatter renders a single response.
type ResponseFormatter interface {
	FormatResponse(resp *http.Response, include bool) error
}

// NewFormatter returns the run formatter for format.
func NewFormatter(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch format {
	case "", FormatConsole:
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case FormatJSON:
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case FormatJUnit:
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want console, json or junit)", format)
	}
}

// NewResponseFormatter returns the single response formatter for format.
func NewResponseFormatter(format string, w io.Writer, noColor bool) (ResponseFormatter, error) {
	switch format {
	case "", FormatConsole:
		return NewConsoleFormatter(WithWriter(w), WithNoColor(noColor)), nil
	case FormatJSON:
		return NewJSONFormatter(JSONWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want console or json)", format)
	}
}

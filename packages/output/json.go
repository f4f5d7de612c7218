package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/collection"
	"github.com/abdul-hamid-achik/rqn/packages/http"
)

// JSONOutput represents the complete JSON output of a run
type JSONOutput struct {
	Summary  JSONSummary `json:"summary"`
	Tests    []JSONTest  `json:"tests"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type JSONTest struct {
	Name       string          `json:"name"`
	File       string          `json:"file,omitempty"`
	Passed     bool            `json:"passed"`
	Skipped    bool            `json:"skipped,omitempty"`
	Duration   float64         `json:"duration"`
	Error      string          `json:"error,omitempty"`
	Request    *JSONRequest    `json:"request,omitempty"`
	Response   *JSONResponse   `json:"response,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
	Captures   map[string]any  `json:"captures,omitempty"`
}

type JSONRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// JSONResponse is also what a single request prints with --output json.
type JSONResponse struct {
	URL        string            `json:"url"`
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
	Duration   float64           `json:"duration"`
}

type JSONAssertion struct {
	Subject  string `json:"subject"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// JSONFormatter formats results as JSON
type JSONFormatter struct {
	writer  io.Writer
	results []JSONTest
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONTest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func toJSONResponse(resp *http.Response, withBody bool) *JSONResponse {
	out := &JSONResponse{
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    resp.Headers.Map(),
		Duration:   float64(resp.Duration.Milliseconds()),
	}
	if withBody {
		out.Body = resp.BodyString()
	}
	return out
}

// FormatResponse writes resp as one JSON document. include adds headers.
func (f *JSONFormatter) FormatResponse(resp *http.Response, include bool) error {
	out := toJSONResponse(resp, true)
	if !include {
		out.Headers = nil
	}
	return f.encode(out)
}

func (f *JSONFormatter) FormatRun(result *collection.RunResult) {
	for _, r := range result.Results {
		test := JSONTest{
			Name:     r.Name,
			File:     result.File,
			Passed:   r.Passed,
			Skipped:  r.Skipped,
			Duration: float64(r.Duration.Milliseconds()),
			Request:  &JSONRequest{Method: r.Method, URL: r.URL},
		}

		if r.Error != nil {
			test.Error = r.Error.Error()
		}

		if r.Response != nil {
			test.Response = toJSONResponse(r.Response, false)
		}

		if len(r.Assertions) > 0 {
			test.Assertions = make([]JSONAssertion, len(r.Assertions))
			for i, a := range r.Assertions {
				test.Assertions[i] = JSONAssertion{
					Subject:  a.Subject,
					Expected: a.Expected,
					Actual:   a.Actual,
					Passed:   a.Passed,
					Message:  a.Message,
				}
			}
		}

		if len(r.Captures) > 0 {
			test.Captures = r.Captures
		}

		f.results = append(f.results, test)
	}
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var passed, failed, skipped int
	for _, t := range f.results {
		if t.Skipped {
			skipped++
		} else if t.Passed {
			passed++
		} else {
			failed++
		}
	}

	return f.encode(JSONOutput{
		Summary: JSONSummary{
			Total:   len(f.results),
			Passed:  passed,
			Failed:  failed,
			Skipped: skipped,
		},
		Tests:    f.results,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	})
}

func (f *JSONFormatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

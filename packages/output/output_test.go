package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/assertions"
	"github.com/abdul-hamid-achik/rqn/packages/collection"
	"github.com/abdul-hamid-achik/rqn/packages/history"
	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResponse() *http.Response {
	return &http.Response{
		StatusCode: 200,
		Status:     "OK",
		Headers:    http.NewHeaders("Content-Type", "application/json", "X-Id", "1"),
		Body:       []byte(`{"foo":"bar"}`),
		URL:        "http://localhost:3000/json",
		Duration:   12 * time.Millisecond,
	}
}

func sampleRun() *collection.RunResult {
	return &collection.RunResult{
		File:     "requests.yaml",
		Duration: 40 * time.Millisecond,
		Passed:   1,
		Failed:   2,
		Skipped:  1,
		Results: []*collection.RequestResult{
			{Name: "ok", Method: "GET", URL: "http://localhost/", Passed: true, Response: sampleResponse(), Captures: map[string]any{"foo": "bar"}},
			{Name: "wrong-status", Method: "GET", URL: "http://localhost/", Response: sampleResponse(),
				Assertions: []*assertions.Result{{Subject: "status", Expected: 201, Actual: 200, Message: "expected 201, got 200"}}},
			{Name: "broken", Method: "GET", URL: "ws://localhost/", Error: errors.New("unsupported protocol: ws:")},
			{Name: "after", Method: "GET", URL: "http://localhost/", Skipped: true},
		},
	}
}

func TestConsoleFormatter_FormatResponse(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	require.NoError(t, f.FormatResponse(sampleResponse(), false))
	assert.Equal(t, "{\"foo\":\"bar\"}\n", buf.String())

	buf.Reset()
	require.NoError(t, f.FormatResponse(sampleResponse(), true))
	assert.Equal(t, "HTTP/1.1 200 OK\nContent-Type: application/json\nX-Id: 1\n\n{\"foo\":\"bar\"}\n", buf.String())
}

func TestConsoleFormatter_FormatRun(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	f.FormatRun(sampleRun())
	require.NoError(t, f.Flush(0))

	out := buf.String()
	assert.Contains(t, out, "Running: requests.yaml")
	assert.Contains(t, out, "✓ ok (0ms)")
	assert.Contains(t, out, "foo = bar")
	assert.Contains(t, out, "✗ wrong-status")
	assert.Contains(t, out, "expected 201, got 200")
	assert.Contains(t, out, "x broken (unsupported protocol: ws:)")
	assert.Contains(t, out, "- after")
	assert.Contains(t, out, "1 passed, 2 failed, 1 skipped, 4 total")
}

func TestConsoleFormatter_FormatHistory(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatHistory(nil)
	assert.Equal(t, "No recorded requests\n", buf.String())

	buf.Reset()
	f.FormatHistory([]history.Entry{
		{Method: "GET", URL: "http://localhost/", Status: 200, Bytes: 9, Duration: 3 * time.Millisecond, CreatedAt: time.Now()},
		{Method: "GET", URL: "ws://x", Error: "unsupported protocol: ws:", CreatedAt: time.Now()},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "http://localhost/  200 9B 3ms")
	assert.Contains(t, lines[1], "unsupported protocol")
}

func TestJSONFormatter_FormatResponse(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	require.NoError(t, f.FormatResponse(sampleResponse(), true))

	var out JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 200, out.StatusCode)
	assert.Equal(t, `{"foo":"bar"}`, out.Body)
	assert.Equal(t, "1", out.Headers["X-Id"])
	assert.Equal(t, float64(12), out.Duration)
}

func TestJSONFormatter_FormatRun(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	f.FormatRun(sampleRun())
	require.NoError(t, f.Flush(time.Second))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, JSONSummary{Total: 4, Passed: 1, Failed: 2, Skipped: 1}, out.Summary)
	assert.Equal(t, float64(1000), out.Duration)
	require.Len(t, out.Tests, 4)
	assert.Equal(t, "unsupported protocol: ws:", out.Tests[2].Error)
	assert.Equal(t, "expected 201, got 200", out.Tests[1].Assertions[0].Message)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))

	f.FormatRun(sampleRun())
	require.NoError(t, f.Flush(time.Second))

	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))
	assert.Equal(t, "rqn", suites.Name)
	assert.Equal(t, 4, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	assert.Equal(t, 1, suites.Skipped)
	require.Len(t, suites.TestSuites, 1)
	assert.Contains(t, suites.TestSuites[0].TestCases[1].Failure.Content, "expected 201, got 200")
}

func TestNewFormatter(t *testing.T) {
	var buf bytes.Buffer

	for _, format := range []string{"", FormatConsole, FormatJSON, FormatJUnit} {
		f, err := NewFormatter(format, &buf, false, true)
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}
	_, err := NewFormatter("tap", &buf, false, true)
	assert.Error(t, err)

	_, err = NewResponseFormatter(FormatJUnit, &buf, true)
	assert.Error(t, err)
	rf, err := NewResponseFormatter(FormatJSON, &buf, true)
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, rf)
}

package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/abdul-hamid-achik/rqn/packages/testserver"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Run(t *testing.T) {
	server := httptest.NewServer(testserver.NewServer().Handler())
	defer server.Close()

	cfg := DefaultConfig()
	cfg.URL = server.URL + "/chunked"
	cfg.Rate = 100
	cfg.Duration = 300 * time.Millisecond
	cfg.MaxConcurrency = 4

	result, err := NewRunner(cfg).Run(context.Background())
	require.NoError(t, err)

	s := result.Summary
	assert.Greater(t, s.TotalRequests, int64(5))
	assert.Equal(t, s.TotalRequests, s.SuccessCount+s.ErrorCount)
	assert.Equal(t, s.SuccessCount, s.StatusCodes[200])
	assert.True(t, result.Passed)
	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err)
}

func TestRunner_CountsErrorStatuses(t *testing.T) {
	server := httptest.NewServer(testserver.NewServer().Handler())
	defer server.Close()

	cfg := DefaultConfig()
	cfg.URL = server.URL + "/status/503"
	cfg.Rate = 50
	cfg.Duration = 200 * time.Millisecond
	th, err := ParseThresholds("errors<10%")
	require.NoError(t, err)
	cfg.Thresholds = th

	result, err := NewRunner(cfg, WithClient(http.NewClient())).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.Summary.SuccessCount)
	assert.Greater(t, result.Summary.StatusCodes[503], int64(0))
	assert.False(t, result.Passed)
}

func TestRunner_InvalidConfig(t *testing.T) {
	_, err := NewRunner(&Config{}).Run(context.Background())
	assert.Error(t, err)
}

func TestReporter_Summary(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(WithWriter(&buf), WithNoColor(true))

	r.Summary(&Result{
		Summary: &Summary{
			Duration:      2 * time.Second,
			TotalRequests: 1500,
			SuccessCount:  1499,
			ErrorCount:    1,
			StatusCodes:   map[int]int64{200: 1499, 502: 1},
		},
		Thresholds: []ThresholdResult{{Name: "p95", Passed: true, Expected: "< 200ms", Actual: "12ms"}},
	})

	out := buf.String()
	assert.Contains(t, out, "BENCH SUMMARY")
	assert.Contains(t, out, "1,500 requests")
	assert.Contains(t, out, "  502: 1")
	assert.Contains(t, out, "✓ p95 < 200ms")
	assert.NotContains(t, out, "\x1b[")
}

func TestReporter_JSONSummary(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(WithWriter(&buf))

	err := r.JSONSummary(&Result{
		RunID:   "run-1",
		Passed:  true,
		Summary: &Summary{TotalRequests: 3, StatusCodes: map[int]int64{200: 3}},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["runId"])
	assert.Equal(t, map[string]any{"200": float64(3)}, decoded["statusCodes"])
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}

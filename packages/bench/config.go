// Package bench drives a single endpoint at a fixed request rate and reports
// latency percentiles, throughput and status code distribution.
package bench

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/http"
)

// Config holds all configuration for a bench run
type Config struct {
	Method         string
	URL            string
	Options        *http.RequestOptions
	Duration       time.Duration
	Rate           float64 // requests per second
	MaxConcurrency int     // max in-flight requests
	Thresholds     Thresholds
}

// Thresholds defines pass/fail criteria for a run. Zero values are unset.
type Thresholds struct {
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	Max       time.Duration
	ErrorRate float64 // 0.0 - 1.0
	MinRPS    float64
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Method:         http.MethodGet,
		Duration:       10 * time.Second,
		Rate:           10,
		MaxConcurrency: 50,
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.Method == "" {
		return fmt.Errorf("method is required")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1")
	}
	return nil
}

var thresholdPattern = regexp.MustCompile(`^(\w+)\s*([<>]=?)\s*(.+)$`)

// ParseThresholds parses a threshold string like "p95<200ms,errors<0.1%,rps>50"
func ParseThresholds(s string) (Thresholds, error) {
	var t Thresholds

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := parseThresholdPart(part, &t); err != nil {
			return t, err
		}
	}

	return t, nil
}

func parseThresholdPart(part string, t *Thresholds) error {
	matches := thresholdPattern.FindStringSubmatch(part)
	if len(matches) != 4 {
		return fmt.Errorf("invalid threshold format: %s", part)
	}

	metric := strings.ToLower(matches[1])
	op := matches[2]
	value := strings.TrimSpace(matches[3])
	upper := op == "<" || op == "<="

	var latency *time.Duration
	switch metric {
	case "p50":
		latency = &t.P50
	case "p95":
		latency = &t.P95
	case "p99":
		latency = &t.P99
	case "max":
		latency = &t.Max
	}
	if latency != nil {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %s", metric, value)
		}
		if !upper {
			return fmt.Errorf("%s threshold must use < or <=", metric)
		}
		*latency = d
		return nil
	}

	switch metric {
	case "errors", "errorrate":
		percent := strings.HasSuffix(value, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return fmt.Errorf("invalid error rate: %s", value)
		}
		if percent {
			f /= 100
		}
		if !upper {
			return fmt.Errorf("error rate threshold must use < or <=")
		}
		t.ErrorRate = f
	case "rps":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid RPS: %s", value)
		}
		if upper {
			return fmt.Errorf("RPS threshold must use > or >=")
		}
		t.MinRPS = f
	default:
		return fmt.Errorf("unknown threshold metric: %s", metric)
	}

	return nil
}

// IsSet returns true if any threshold is configured
func (t Thresholds) IsSet() bool {
	return t.P50 > 0 || t.P95 > 0 || t.P99 > 0 || t.Max > 0 || t.ErrorRate > 0 || t.MinRPS > 0
}

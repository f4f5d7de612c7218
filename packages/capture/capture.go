package capture

import (
	"strings"

	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/tidwall/gjson"
)

const (
	headerPrefix = "header."
	bodyPrefix   = "body."
)

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	if gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

// Extract resolves an expression against the response. "status" and
// "duration" read response metadata, "header.<Name>" reads a header and
// anything else is a gjson path into the body, optionally prefixed with
// "body.". The bare expression "body" yields the whole body.
func (e *Extractor) Extract(expr string) (any, bool) {
	switch {
	case expr == "status":
		return e.response.StatusCode, true
	case expr == "duration":
		return e.response.DurationMs(), true
	case strings.HasPrefix(expr, headerPrefix):
		return e.extractFromHeader(strings.TrimPrefix(expr, headerPrefix))
	case expr == "body":
		return e.extractFromBody("")
	default:
		return e.extractFromBody(strings.TrimPrefix(expr, bodyPrefix))
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	value, ok := e.response.Headers.Lookup(name)
	if !ok {
		return nil, false
	}
	return value, true
}

// Extract is a one-off shorthand for NewExtractor(resp).Extract(expr).
func Extract(resp *http.Response, expr string) (any, bool) {
	return NewExtractor(resp).Extract(expr)
}

// Select returns the raw JSON text at path, or the plain body when path is
// empty. It is what the CLI prints for --select.
func Select(resp *http.Response, path string) (string, bool) {
	if path == "" {
		return resp.BodyString(), true
	}
	result := gjson.GetBytes(resp.Body, path)
	if !result.Exists() {
		return "", false
	}
	if result.Type == gjson.String {
		return result.Str, true
	}
	return result.Raw, true
}

// ExtractAll evaluates every named expression and returns the ones that
// resolved.
func ExtractAll(resp *http.Response, captures map[string]string) map[string]any {
	extractor := NewExtractor(resp)
	results := make(map[string]any)

	for name, expr := range captures {
		if value, ok := extractor.Extract(expr); ok {
			results[name] = value
		}
	}

	return results
}

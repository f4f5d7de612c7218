package assertions

import (
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/xeipuuv/gojsonschema"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
}

func (r *Result) String() string {
	if r.Passed {
		return fmt.Sprintf("%s: ok", r.Subject)
	}
	return fmt.Sprintf("%s: %s", r.Subject, r.Message)
}

// CheckStatus passes when the response status equals expected.
func CheckStatus(resp *http.Response, expected int) *Result {
	result := &Result{
		Subject:  "status",
		Expected: expected,
		Actual:   resp.StatusCode,
		Passed:   resp.StatusCode == expected,
	}
	if !result.Passed {
		result.Message = fmt.Sprintf("expected %d, got %d", expected, resp.StatusCode)
	}
	return result
}

// CheckContains passes when the body contains substr.
func CheckContains(resp *http.Response, substr string) *Result {
	result := &Result{
		Subject:  "body",
		Expected: substr,
		Actual:   resp.BodyString(),
		Passed:   strings.Contains(resp.BodyString(), substr),
	}
	if !result.Passed {
		result.Message = fmt.Sprintf("body does not contain %q", substr)
	}
	return result
}

// ValidateSchema validates the response body against the JSON schema at
// schemaPath.
func ValidateSchema(resp *http.Response, schemaPath string) *Result {
	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return &Result{
			Subject:  "schema",
			Expected: schemaPath,
			Message:  fmt.Sprintf("failed to read schema file: %v", err),
		}
	}
	result := ValidateSchemaBytes(resp, schemaData)
	result.Expected = schemaPath
	return result
}

// ValidateSchemaBytes validates the response body against an in-memory
// schema document.
func ValidateSchemaBytes(resp *http.Response, schema []byte) *Result {
	result := &Result{
		Subject: "schema",
		Actual:  resp.BodyString(),
	}

	schemaLoader := gojsonschema.NewBytesLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(resp.Body)

	validation, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		result.Message = fmt.Sprintf("schema validation error: %v", err)
		return result
	}

	if validation.Valid() {
		result.Passed = true
		return result
	}

	var errors []string
	for _, desc := range validation.Errors() {
		errors = append(errors, desc.String())
	}
	result.Message = fmt.Sprintf("schema validation failed: %s", strings.Join(errors, "; "))
	return result
}

// AllPassed reports whether every result passed.
func AllPassed(results []*Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

package assertions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Headers:    http.NewHeaders("Content-Type", "application/json"),
		Body:       []byte(body),
		Duration:   100 * time.Millisecond,
	}
}

const userSchema = `{
	"type": "object",
	"required": ["id", "name"],
	"properties": {
		"id": {"type": "integer"},
		"name": {"type": "string"}
	}
}`

func TestCheckStatus(t *testing.T) {
	resp := createResponse(200, `{}`)

	result := CheckStatus(resp, 200)
	assert.True(t, result.Passed)
	assert.Equal(t, "status: ok", result.String())

	result = CheckStatus(resp, 201)
	assert.False(t, result.Passed)
	assert.Equal(t, "expected 201, got 200", result.Message)
}

func TestCheckContains(t *testing.T) {
	resp := createResponse(200, "test: GET")

	assert.True(t, CheckContains(resp, "GET").Passed)
	assert.False(t, CheckContains(resp, "POST").Passed)
}

func TestValidateSchemaBytes(t *testing.T) {
	result := ValidateSchemaBytes(createResponse(200, `{"id":1,"name":"ada"}`), []byte(userSchema))
	assert.True(t, result.Passed, result.Message)

	result = ValidateSchemaBytes(createResponse(200, `{"id":"x"}`), []byte(userSchema))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "schema validation failed")
	assert.Contains(t, result.Message, "name")
}

func TestValidateSchemaBytes_InvalidDocument(t *testing.T) {
	result := ValidateSchemaBytes(createResponse(200, `not json`), []byte(userSchema))

	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "schema validation error")
}

func TestValidateSchema_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(path, []byte(userSchema), 0644))

	result := ValidateSchema(createResponse(200, `{"id":2,"name":"bob"}`), path)
	assert.True(t, result.Passed)
	assert.Equal(t, path, result.Expected)

	result = ValidateSchema(createResponse(200, `{}`), filepath.Join(t.TempDir(), "missing.json"))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "failed to read schema file")
}

func TestAllPassed(t *testing.T) {
	assert.True(t, AllPassed(nil))
	assert.True(t, AllPassed([]*Result{{Passed: true}}))
	assert.False(t, AllPassed([]*Result{{Passed: true}, {Passed: false}}))
}

// Package capture extracts values from responses for use in subsequent requests.
//
// It supports capturing values from:
//   - Response body (gjson paths)
//   - Response headers
//   - Response status code and duration
//
// Captured values can be referenced by later requests in a collection via the
// {{name}} syntax.
package capture

// Package assertions checks responses against expectations.
//
// Supported checks:
//   - Status code equality
//   - Body substring
//   - JSON Schema validation of the body
package assertions

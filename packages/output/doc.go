// Package output renders responses and collection runs.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration (collection runs only)
//
// Run formatters accumulate results and write them on Flush.
package output

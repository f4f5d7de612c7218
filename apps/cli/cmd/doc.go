// Package cmd implements the rqn CLI commands using Cobra.
//
// Available commands:
//   - get, post, put, delete: Send one request and print the response
//   - run: Execute YAML request collections, optionally in watch mode
//   - validate, list: Check collections or list their requests without sending
//   - bench: Send a request at a fixed rate and report latency percentiles
//   - serve: Start the local fixture server
//   - history: List or clear recorded exchanges
//   - import: Convert curl command lines into a collection
//   - init: Create a sample config and collection
//   - version: Show rqn version information
//
// Flags default from RQN_* environment variables, then from the config
// file, and errors map to the exit codes in exitcodes.go.
package cmd

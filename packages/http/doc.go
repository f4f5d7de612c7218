// Package http implements a small HTTP/1.1 client directly on TCP and TLS
// sockets, without net/http's transport.
//
// It provides:
//   - Request serialization (query, form, JSON and raw bodies)
//   - An incremental response parser for Content-Length and chunked framing
//   - Scheme based dialing with default ports 80 and 443
//   - Redirect following through the Location header
//
// Every call opens a new connection and closes it once the response is
// complete; connections are never reused.
//
// Certificate validation for https is disabled unless WithValidateSSL(true)
// is given, so by default the client trusts any server certificate.
//
// The Host header carries the hostname only, never the port.
package http

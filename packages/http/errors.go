package http

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedProtocol is returned for schemes other than http and
	// https, before any connection is attempted.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")

	// ErrMalformedResponse reports an unparsable status line, Content-Length
	// or chunk framing.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrIncompleteResponse reports a connection that ended before the
	// response framing was satisfied.
	ErrIncompleteResponse = errors.New("connection closed before response was complete")

	// ErrTooManyRedirects is returned when the configured hop limit is hit.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// TransportErrorKind classifies socket level failures.
type TransportErrorKind int

const (
	DNSFailure TransportErrorKind = iota
	ConnectFailure
	TLSHandshakeFailure
	WriteFailure
	ReadFailure
)

func (k TransportErrorKind) String() string {
	switch k {
	case DNSFailure:
		return "DNS lookup failed"
	case ConnectFailure:
		return "connection failed"
	case TLSHandshakeFailure:
		return "TLS handshake failed"
	case WriteFailure:
		return "socket write failed"
	case ReadFailure:
		return "socket read failed"
	default:
		return fmt.Sprintf("unknown transport error %d", int(k))
	}
}

// TransportError wraps an error raised by the underlying connection.
type TransportError struct {
	Kind TransportErrorKind
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Addr, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultDialTimeout bounds connection setup when the context has no
// deadline of its own.
const DefaultDialTimeout = 30 * time.Second

// Dialer opens the stream a single exchange is written to and read from.
// Implementations must not keep connection state between calls.
type Dialer interface {
	Dial(ctx context.Context, u *URL) (net.Conn, error)
}

// SocketDialer connects over TCP for http and over TLS for https.
//
// Certificate validation is off unless ValidateSSL is set, so by default
// any certificate the server presents is accepted.
type SocketDialer struct {
	ValidateSSL bool
	// TLSConfig, when set, is cloned for each connection and takes
	// precedence over ValidateSSL.
	TLSConfig *tls.Config
	Timeout   time.Duration
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

// CheckScheme reports ErrUnsupportedProtocol for anything but http and https.
func CheckScheme(u *URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s:", ErrUnsupportedProtocol, u.Scheme)
	}
	return nil
}

func (d *SocketDialer) Dial(ctx context.Context, u *URL) (net.Conn, error) {
	if err := CheckScheme(u); err != nil {
		return nil, err
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	nd := &net.Dialer{Timeout: timeout}
	addr := u.Host()

	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classifyDialError(addr, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	if u.Scheme == "http" {
		return conn, nil
	}

	tlsConn := tls.Client(conn, d.tlsConfig(u.Hostname))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, &TransportError{Kind: TLSHandshakeFailure, Addr: addr, Err: err}
	}
	return tlsConn, nil
}

func (d *SocketDialer) tlsConfig(serverName string) *tls.Config {
	var cfg *tls.Config
	if d.TLSConfig != nil {
		cfg = d.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{InsecureSkipVerify: !d.ValidateSSL}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}
	return cfg
}

func classifyDialError(addr string, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{Kind: DNSFailure, Addr: addr, Err: err}
	}
	return &TransportError{Kind: ConnectFailure, Addr: addr, Err: err}
}

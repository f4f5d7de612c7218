package http

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckScheme(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"http://example.com", false},
		{"https://example.com", false},
		{"HTTPS://example.com", false},
		{"ws://example.com", true},
		{"ftp://example.com", true},
	}

	for _, tt := range tests {
		err := CheckScheme(mustParseURL(t, tt.raw))
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedProtocol, tt.raw)
		} else {
			assert.NoError(t, err, tt.raw)
		}
	}
}

func TestSocketDialer_RejectsUnsupportedScheme(t *testing.T) {
	_, err := (&SocketDialer{}).Dial(context.Background(), mustParseURL(t, "ws://127.0.0.1:1"))
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)
}

func TestSocketDialer_PlainTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		close(accepted)
	}()

	conn, err := (&SocketDialer{}).Dial(context.Background(), mustParseURL(t, "http://"+ln.Addr().String()))
	require.NoError(t, err)
	defer conn.Close()
	<-accepted

	_, isTLS := conn.(*tls.Conn)
	assert.False(t, isTLS)
}

func TestSocketDialer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&SocketDialer{}).Dial(ctx, mustParseURL(t, "http://127.0.0.1:1"))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ConnectFailure, te.Kind)
}

func TestSocketDialer_TLSConfig(t *testing.T) {
	d := &SocketDialer{}
	cfg := d.tlsConfig("example.com")
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, "example.com", cfg.ServerName)

	d = &SocketDialer{ValidateSSL: true}
	assert.False(t, d.tlsConfig("example.com").InsecureSkipVerify)

	custom := &tls.Config{ServerName: "pinned.local", MinVersion: tls.VersionTLS13}
	d = &SocketDialer{TLSConfig: custom}
	cfg = d.tlsConfig("example.com")
	assert.Equal(t, "pinned.local", cfg.ServerName)
	assert.NotSame(t, custom, cfg)
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &TransportError{Kind: ReadFailure, Addr: "example.com:80", Err: cause}

	assert.Contains(t, err.Error(), "example.com:80")
	assert.Contains(t, err.Error(), ReadFailure.String())
	assert.ErrorIs(t, err, cause)
}

func TestClassifyDialError(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}

	var te *TransportError
	require.ErrorAs(t, classifyDialError("nope.invalid:80", dnsErr), &te)
	assert.Equal(t, DNSFailure, te.Kind)

	require.ErrorAs(t, classifyDialError("127.0.0.1:1", errors.New("refused")), &te)
	assert.Equal(t, ConnectFailure, te.Kind)
}

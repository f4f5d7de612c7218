package http

import (
	"context"
	"errors"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/testserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedConn replays canned response fragments and records what the
// client wrote.
type scriptedConn struct {
	net.Conn

	mu        sync.Mutex
	fragments [][]byte
	written   []byte
	closes    int
	closed    chan struct{}
	hang      bool
}

func newScriptedConn(fragments ...string) *scriptedConn {
	c := &scriptedConn{closed: make(chan struct{})}
	for _, f := range fragments {
		c.fragments = append(c.fragments, []byte(f))
	}
	return c
}

func (c *scriptedConn) Read(b []byte) (int, error) {
	c.mu.Lock()
	if len(c.fragments) == 0 {
		hang := c.hang
		c.mu.Unlock()
		if hang {
			<-c.closed
			return 0, net.ErrClosed
		}
		return 0, io.EOF
	}
	f := c.fragments[0]
	n := copy(b, f)
	if n < len(f) {
		c.fragments[0] = f[n:]
	} else {
		c.fragments = c.fragments[1:]
	}
	c.mu.Unlock()
	return n, nil
}

func (c *scriptedConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, b...)
	return len(b), nil
}

func (c *scriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	if c.closes == 1 {
		close(c.closed)
	}
	return nil
}

// scriptedDialer hands out one scripted connection per dial, in order.
type scriptedDialer struct {
	mu     sync.Mutex
	conns  []*scriptedConn
	dialed []string
}

func (d *scriptedDialer) Dial(ctx context.Context, u *URL) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, u.String())
	if len(d.dialed) > len(d.conns) {
		return nil, &TransportError{Kind: ConnectFailure, Addr: u.Host(), Err: errors.New("no scripted connection")}
	}
	return d.conns[len(d.dialed)-1], nil
}

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(testserver.NewServer().Handler())
	t.Cleanup(server.Close)
	return server
}

func TestClient_Verbs(t *testing.T) {
	server := newFixtureServer(t)
	client := NewClient()
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (*Response, error)
		want string
	}{
		{"get", func() (*Response, error) { return client.Get(ctx, server.URL, nil) }, "test: GET"},
		{"post", func() (*Response, error) { return client.Post(ctx, server.URL, nil) }, "test: POST"},
		{"put", func() (*Response, error) { return client.Put(ctx, server.URL, nil) }, "test: PUT"},
		{"delete", func() (*Response, error) { return client.Delete(ctx, server.URL, nil) }, "test: DELETE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
			assert.Equal(t, tt.want, resp.BodyString())
			assert.NotZero(t, resp.Headers.Len())
		})
	}
}

func TestPackageLevelHelpers(t *testing.T) {
	server := newFixtureServer(t)
	ctx := context.Background()

	resp, err := Get(ctx, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "test: GET", resp.BodyString())

	resp, err = Post(ctx, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "test: POST", resp.BodyString())

	resp, err = Put(ctx, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "test: PUT", resp.BodyString())

	resp, err = Delete(ctx, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "test: DELETE", resp.BodyString())
}

func TestClient_Headers(t *testing.T) {
	server := newFixtureServer(t)

	resp, err := NewClient().Get(context.Background(), server.URL+"/headers", &RequestOptions{
		Headers: NewHeaders("foo", "bar"),
	})

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"host":"127.0.0.1","foo":"bar"}`, resp.BodyString())
	assert.True(t, resp.IsJSON())
}

func TestClient_Query(t *testing.T) {
	server := newFixtureServer(t)

	resp, err := NewClient().Get(context.Background(), server.URL+"/qs", &RequestOptions{
		Query: Params{}.Add("foo", "bar").Add("msg", "b c&d"),
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":"bar","msg":"b c&d"}`, resp.BodyString())
}

func TestClient_Body(t *testing.T) {
	server := newFixtureServer(t)

	resp, err := NewClient().Post(context.Background(), server.URL+"/body", &RequestOptions{
		Body: "fizzbazz ✓",
	})

	require.NoError(t, err)
	assert.Equal(t, "fizzbazz ✓", resp.BodyString())
}

func TestClient_Form(t *testing.T) {
	server := newFixtureServer(t)

	resp, err := NewClient().Post(context.Background(), server.URL+"/form", &RequestOptions{
		Form: Params{}.Add("foo", "bar"),
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":"bar"}`, resp.BodyString())
}

func TestClient_JSON(t *testing.T) {
	server := newFixtureServer(t)

	resp, err := NewClient().Put(context.Background(), server.URL+"/json", &RequestOptions{
		JSON: map[string]string{"foo": "bar"},
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":"bar"}`, resp.BodyString())
}

func TestClient_Redirect(t *testing.T) {
	server := newFixtureServer(t)

	resp, err := NewClient().Get(context.Background(), server.URL+"/redirect", nil)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "test: GET", resp.BodyString())
	assert.Equal(t, server.URL+"/", resp.URL)
}

func TestClient_NoFollowRedirects(t *testing.T) {
	server := newFixtureServer(t)

	resp, err := NewClient(WithFollowRedirects(false)).Get(context.Background(), server.URL+"/redirect", nil)

	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/", resp.Header("location"))
}

func TestClient_Chunked(t *testing.T) {
	server := newFixtureServer(t)

	resp, err := NewClient().Get(context.Background(), server.URL+"/chunked", nil)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "chunked", resp.Header("Transfer-Encoding"))
	assert.Equal(t, "fizzbazz", resp.BodyString())
}

func TestClient_NoContent(t *testing.T) {
	server := newFixtureServer(t)

	resp, err := NewClient().Get(context.Background(), server.URL+"/status/204", nil)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestClient_Head(t *testing.T) {
	server := newFixtureServer(t)

	resp, err := NewClient().Request(context.Background(), MethodHead, server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestClient_WithDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, "test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "override", r.Header.Get("User-Agent"))
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithDefaultHeaders(map[string]string{
		"Authorization": "test-token",
		"User-Agent":    "rqn",
	}))
	opts := &RequestOptions{Headers: NewHeaders("User-Agent", "override")}
	resp, err := client.Get(context.Background(), server.URL, opts)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []string{"User-Agent"}, opts.Headers.Keys())
}

func TestClient_UnsupportedProtocol(t *testing.T) {
	dialer := &scriptedDialer{}
	client := NewClient(WithDialer(dialer))

	_, err := client.Get(context.Background(), "ws://localhost:3000", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)
	assert.Contains(t, err.Error(), "ws")
	assert.Empty(t, dialer.dialed)
}

func TestClient_InvalidURL(t *testing.T) {
	_, err := NewClient().Get(context.Background(), "not a url", nil)
	assert.Error(t, err)
}

func TestClient_RedirectReissuesSameRequest(t *testing.T) {
	first := newScriptedConn("HTTP/1.1 302 Found\r\nLocation: http://host/other\r\nContent-Length: 5\r\n\r\nmoved")
	second := newScriptedConn("HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\n", "done")
	dialer := &scriptedDialer{conns: []*scriptedConn{first, second}}

	opts := &RequestOptions{
		Headers: NewHeaders("X-Token", "abc"),
		JSON:    map[string]int{"n": 1},
	}
	resp, err := NewClient(WithDialer(dialer)).Request(context.Background(), MethodPut, "http://host/start", opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"http://host/start", "http://host/other"}, dialer.dialed)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "done", resp.BodyString())
	assert.Equal(t, "http://host/other", resp.URL)

	firstReq := string(first.written)
	secondReq := string(second.written)
	assert.True(t, strings.HasPrefix(firstReq, "PUT /start HTTP/1.1\r\n"))
	assert.True(t, strings.HasPrefix(secondReq, "PUT /other HTTP/1.1\r\n"))
	assert.Equal(t,
		strings.TrimPrefix(firstReq, "PUT /start"),
		strings.TrimPrefix(secondReq, "PUT /other"))
	assert.Equal(t, 1, first.closes)
	assert.Equal(t, 1, second.closes)
}

func TestClient_TooManyRedirects(t *testing.T) {
	loop := "HTTP/1.1 302 Found\r\nLocation: /loop\r\nContent-Length: 0\r\n\r\n"
	dialer := &scriptedDialer{conns: []*scriptedConn{
		newScriptedConn(loop), newScriptedConn(loop), newScriptedConn(loop),
	}}

	_, err := NewClient(WithDialer(dialer), WithMaxRedirects(2)).Get(context.Background(), "http://host/loop", nil)

	assert.ErrorIs(t, err, ErrTooManyRedirects)
	assert.Len(t, dialer.dialed, 3)
}

func TestClient_UnlimitedRedirects(t *testing.T) {
	loop := "HTTP/1.1 301 Moved\r\nLocation: /next\r\nContent-Length: 0\r\n\r\n"
	var conns []*scriptedConn
	for i := 0; i < DefaultMaxRedirects+5; i++ {
		conns = append(conns, newScriptedConn(loop))
	}
	conns = append(conns, newScriptedConn("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"))
	dialer := &scriptedDialer{conns: conns}

	resp, err := NewClient(WithDialer(dialer), WithMaxRedirects(-1)).Get(context.Background(), "http://host/", nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.BodyString())
	assert.Len(t, dialer.dialed, DefaultMaxRedirects+6)
}

func TestClient_ClosesConnectionOnceAfterComplete(t *testing.T) {
	conn := newScriptedConn("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nab", "c", "de")
	dialer := &scriptedDialer{conns: []*scriptedConn{conn}}

	resp, err := NewClient(WithDialer(dialer)).Get(context.Background(), "http://host/", nil)

	require.NoError(t, err)
	assert.Equal(t, "abcde", resp.BodyString())
	assert.Equal(t, 1, conn.closes)
}

func TestClient_PrematureEOF(t *testing.T) {
	conn := newScriptedConn("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nshort")
	dialer := &scriptedDialer{conns: []*scriptedConn{conn}}

	resp, err := NewClient(WithDialer(dialer)).Get(context.Background(), "http://host/", nil)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrIncompleteResponse)
	assert.Equal(t, 1, conn.closes)
}

func TestClient_MalformedResponse(t *testing.T) {
	conn := newScriptedConn("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\nnope\r\n")
	dialer := &scriptedDialer{conns: []*scriptedConn{conn}}

	_, err := NewClient(WithDialer(dialer)).Get(context.Background(), "http://host/", nil)

	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_WithTimeout(t *testing.T) {
	conn := newScriptedConn(chunkedHead + "4\r\nfizz\r\n")
	conn.hang = true
	dialer := &scriptedDialer{conns: []*scriptedConn{conn}}

	start := time.Now()
	_, err := NewClient(WithDialer(dialer), WithTimeout(50*time.Millisecond)).Get(context.Background(), "http://host/", nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, conn.closes)
}

func TestClient_ContextCancel(t *testing.T) {
	conn := newScriptedConn()
	conn.hang = true
	dialer := &scriptedDialer{conns: []*scriptedConn{conn}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewClient(WithDialer(dialer)).Get(ctx, "http://host/", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = NewClient().Get(context.Background(), "http://"+addr+"/", nil)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ConnectFailure, te.Kind)
}

func TestClient_HTTPS(t *testing.T) {
	server := httptest.NewTLSServer(testserver.NewServer().Handler())
	defer server.Close()

	resp, err := NewClient().Get(context.Background(), server.URL+"/chunked", nil)
	require.NoError(t, err)
	assert.Equal(t, "fizzbazz", resp.BodyString())

	_, err = NewClient(WithValidateSSL(true)).Get(context.Background(), server.URL, nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, TLSHandshakeFailure, te.Kind)
}

func TestClient_ConcurrentCalls(t *testing.T) {
	server := newFixtureServer(t)
	client := NewClient()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(context.Background(), server.URL+"/chunked", nil)
			if err != nil {
				errs <- err
				return
			}
			if resp.BodyString() != "fizzbazz" {
				errs <- errors.New("unexpected body " + resp.BodyString())
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   bool
	}{
		{200, true},
		{201, true},
		{204, true},
		{299, true},
		{300, false},
		{400, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		resp := &Response{StatusCode: tt.statusCode}
		assert.Equal(t, tt.expected, resp.IsSuccess(), "StatusCode: %d", tt.statusCode)
	}
}

func TestResponse_IsJSON(t *testing.T) {
	tests := []struct {
		contentType string
		expected    bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"text/html", false},
		{"text/plain", false},
		{"", false},
	}

	for _, tt := range tests {
		resp := &Response{Headers: NewHeaders("content-type", tt.contentType)}
		assert.Equal(t, tt.expected, resp.IsJSON(), "Content-Type: %s", tt.contentType)
	}
}

package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// readBufferSize is the size of a single socket read
	readBufferSize = 16 * 1024
)

// Client issues requests over raw sockets. It holds configuration only, so
// one Client may serve any number of concurrent calls.
type Client struct {
	dialer         Dialer
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	defaultHeaders *Headers
	logger         zerolog.Logger
}

type ClientOption func(*Client)

// DefaultClient backs the package level Get, Post, Put and Delete.
var DefaultClient = NewClient()

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		defaultHeaders: NewHeaders(),
		logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		c.dialer = &SocketDialer{ValidateSSL: c.validateSSL}
	}

	return c
}

// WithTimeout bounds a whole call, redirects included. Zero means no limit.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

// WithMaxRedirects sets the hop limit. A negative value removes the limit.
func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders.Set(key, value)
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders.Merge(HeadersFromMap(headers))
	}
}

// WithValidateSSL enables certificate validation for https. It is disabled
// by default. Ignored when WithDialer supplies a dialer.
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithDialer replaces the socket dialer.
func WithDialer(d Dialer) ClientOption {
	return func(c *Client) {
		c.dialer = d
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Request sends method to rawURL and returns the final response. When the
// response carries a Location header the same method and options are sent
// to that target, and the last hop's response is returned.
func (c *Client) Request(ctx context.Context, method, rawURL string, opts *RequestOptions) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	opts = c.withDefaults(opts)

	start := time.Now()
	for hop := 0; ; hop++ {
		resp, err := c.exchange(ctx, method, u, opts)
		if err != nil {
			return nil, err
		}

		location, ok := resp.Headers.Lookup("Location")
		if !ok || location == "" || !c.followRedirect {
			resp.Duration = time.Since(start)
			return resp, nil
		}
		if c.maxRedirects >= 0 && hop >= c.maxRedirects {
			return nil, fmt.Errorf("%w: stopped after %d hops at %s", ErrTooManyRedirects, hop, u)
		}

		next, err := u.Resolve(location)
		if err != nil {
			return nil, err
		}
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("from", u.String()).
			Str("location", next.String()).
			Msg("following redirect")
		u = next
	}
}

// withDefaults layers the caller's headers over the client defaults without
// touching the caller's options.
func (c *Client) withDefaults(opts *RequestOptions) *RequestOptions {
	if opts == nil {
		opts = &RequestOptions{}
	}
	if c.defaultHeaders.Len() == 0 {
		return opts
	}
	merged := *opts
	merged.Headers = NewHeaders()
	merged.Headers.Merge(c.defaultHeaders)
	merged.Headers.Merge(opts.Headers)
	return &merged
}

// exchange performs one request/response round trip on a fresh connection.
func (c *Client) exchange(ctx context.Context, method string, u *URL, opts *RequestOptions) (*Response, error) {
	if err := CheckScheme(u); err != nil {
		return nil, err
	}

	msg, err := BuildMessage(method, u, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	conn, err := c.dialer.Dial(ctx, u)
	if err != nil {
		return nil, err
	}

	closeConn := sync.OnceFunc(func() { _ = conn.Close() })
	defer closeConn()
	stop := context.AfterFunc(ctx, closeConn)
	defer stop()

	if _, err := conn.Write(msg); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Kind: WriteFailure, Addr: u.Host(), Err: err}
	}

	var popts []ParserOption
	if method == MethodHead {
		popts = append(popts, WithoutBody())
	}
	parser := NewParser(popts...)

	buf := make([]byte, readBufferSize)
	for {
		n, rerr := conn.Read(buf)
		if n > 0 {
			resp, err := parser.Feed(buf[:n])
			if err != nil {
				return nil, err
			}
			if resp != nil {
				resp.URL = u.String()
				c.logger.Debug().
					Str("method", method).
					Str("url", resp.URL).
					Int("status", resp.StatusCode).
					Int("bytes", len(resp.Body)).
					Dur("duration", time.Since(start)).
					Msg("exchange complete")
				return resp, nil
			}
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(rerr, io.EOF) {
				return nil, parser.Finish()
			}
			return nil, &TransportError{Kind: ReadFailure, Addr: u.Host(), Err: rerr}
		}
	}
}

func (c *Client) Get(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, MethodGet, url, opts)
}

func (c *Client) Post(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, MethodPost, url, opts)
}

func (c *Client) Put(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, MethodPut, url, opts)
}

func (c *Client) Delete(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, MethodDelete, url, opts)
}

func Get(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return DefaultClient.Get(ctx, url, opts)
}

func Post(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return DefaultClient.Post(ctx, url, opts)
}

func Put(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return DefaultClient.Put(ctx, url, opts)
}

func Delete(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return DefaultClient.Delete(ctx, url, opts)
}

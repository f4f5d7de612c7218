package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	neturl "net/url"
	"sort"
	"strconv"
	"strings"
)

const httpVersion = "HTTP/1.1"

// Common methods. Any token is accepted by Client.Request.
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodOptions = "OPTIONS"
)

// URL is the parsed request target.
type URL struct {
	Scheme   string
	Hostname string
	Port     string
	// Path always starts with "/".
	Path string
	// Search is "?" followed by the raw query, or empty when there is none.
	Search string
}

// ParseURL parses an absolute http or https URL. The scheme is not
// validated here; the dialer rejects unknown schemes.
func ParseURL(raw string) (*URL, error) {
	u, err := neturl.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	return fromNetURL(u)
}

func fromNetURL(u *neturl.URL) (*URL, error) {
	if u.Scheme == "" {
		return nil, fmt.Errorf("invalid URL %q: missing scheme", u.String())
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", u.String())
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	search := ""
	if u.RawQuery != "" {
		search = "?" + u.RawQuery
	}
	return &URL{
		Scheme:   strings.ToLower(u.Scheme),
		Hostname: u.Hostname(),
		Port:     u.Port(),
		Path:     path,
		Search:   search,
	}, nil
}

// Resolve parses ref relative to u, so both absolute and relative Location
// values are usable as redirect targets.
func (u *URL) Resolve(ref string) (*URL, error) {
	base, err := neturl.Parse(u.String())
	if err != nil {
		return nil, err
	}
	target, err := neturl.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect location %q: %w", ref, err)
	}
	return fromNetURL(base.ResolveReference(target))
}

// Host returns hostname:port with the scheme's default port filled in.
func (u *URL) Host() string {
	port := u.Port
	if port == "" {
		port = defaultPort(u.Scheme)
	}
	if strings.Contains(u.Hostname, ":") {
		return "[" + u.Hostname + "]:" + port
	}
	return u.Hostname + ":" + port
}

func (u *URL) String() string {
	host := u.Hostname
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if u.Port != "" {
		host += ":" + u.Port
	}
	return u.Scheme + "://" + host + u.Path + u.Search
}

// Param is one key/value pair of a query string or form body.
type Param struct {
	Key   string
	Value string
}

// Params keeps pairs in the order they were added.
type Params []Param

// Add appends a pair and returns the extended Params.
func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// ParamsFromMap converts m into Params sorted by key.
func ParamsFromMap(m map[string]string) Params {
	p := make(Params, 0, len(m))
	for _, k := range sortedKeys(m) {
		p = p.Add(k, m[k])
	}
	return p
}

// RequestOptions describes everything beyond method and URL. At most one of
// Body, Form and JSON becomes the request body, checked in that order.
type RequestOptions struct {
	// Headers are applied last and override generated headers.
	Headers *Headers
	// Body is sent as text/plain when non-empty.
	Body string
	// Query replaces the URL's own query when non-nil.
	Query Params
	// Form is sent url-encoded when non-nil.
	Form Params
	// JSON is serialized when non-nil.
	JSON any
}

// EncodeParams encodes each key and value with EncodeComponent and joins the
// pairs with "&".
func EncodeParams(p Params) string {
	parts := make([]string, len(p))
	for i, kv := range p {
		parts[i] = EncodeComponent(kv.Key) + "=" + EncodeComponent(kv.Value)
	}
	return strings.Join(parts, "&")
}

// EncodeComponent percent-encodes every byte except the unreserved set
// A-Z a-z 0-9 - _ . ! ~ * ' ( ). Spaces become %20.
func EncodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// BuildMessage serializes a request: start line, header block, an empty
// line and the body, joined by CRLF. Host carries the hostname only.
func BuildMessage(method string, u *URL, opts *RequestOptions) ([]byte, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	query := u.Search
	if opts.Query != nil {
		query = "?" + EncodeParams(opts.Query)
	}

	headers := NewHeaders("Host", u.Hostname)
	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
		headers.Set("Content-Length", strconv.Itoa(len(body)))
	}
	headers.Merge(opts.Headers)

	var buf bytes.Buffer
	buf.WriteString(method + " " + u.Path + query + " " + httpVersion)
	buf.WriteString(crlf)
	buf.WriteString(SerializeHeaders(headers))
	buf.WriteString(crlf)
	buf.WriteString(crlf)
	buf.Write(body)
	return buf.Bytes(), nil
}

func encodeBody(opts *RequestOptions) ([]byte, string, error) {
	switch {
	case opts.Body != "":
		return []byte(opts.Body), "text/plain", nil
	case opts.Form != nil:
		return []byte(EncodeParams(opts.Form)), "application/x-www-form-urlencoded", nil
	case opts.JSON != nil:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(opts.JSON); err != nil {
			return nil, "", fmt.Errorf("encoding JSON body: %w", err)
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), "application/json", nil
	}
	return nil, "", nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

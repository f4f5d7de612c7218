package http

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const (
	// maxHeaderBytes bounds the status line plus header block.
	maxHeaderBytes = 64 * 1024
	// maxChunkLineBytes bounds a chunk-size line including extensions.
	maxChunkLineBytes = 4 * 1024
)

var (
	crlfBytes       = []byte(crlf)
	headerSeparator = []byte(crlf + crlf)
)

// Phase is the parser's position in a response.
type Phase int

const (
	AwaitingInitialLine Phase = iota
	FramingByContentLength
	FramingByChunked
	Complete
)

func (p Phase) String() string {
	switch p {
	case AwaitingInitialLine:
		return "awaiting-initial-line"
	case FramingByContentLength:
		return "content-length"
	case FramingByChunked:
		return "chunked"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of the parser. Remaining counts the body bytes still
// expected under Content-Length framing, or the bytes left in the current
// chunk under chunked framing.
type State struct {
	Phase     Phase
	Remaining int
}

type ParserOption func(*Parser)

// WithoutBody makes every response complete right after its headers, as
// needed for replies to HEAD requests.
func WithoutBody() ParserOption {
	return func(p *Parser) {
		p.noBody = true
	}
}

// Parser rebuilds one response from fragments of any size. It belongs to a
// single exchange and must not be reused.
type Parser struct {
	state  State
	noBody bool
	resp   *Response

	// pending holds bytes that cannot be interpreted yet: an incomplete
	// header block, chunk-size line or chunk terminator.
	pending []byte
	// chunkDone is set once a chunk's data is read and its CRLF is due.
	chunkDone bool
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) State() State {
	return p.state
}

// Feed consumes the next fragment. It returns the response exactly once,
// from the call that completes it; every other call returns nil. Data fed
// after completion is ignored.
func (p *Parser) Feed(data []byte) (*Response, error) {
	if p.state.Phase == Complete {
		return nil, nil
	}

	if p.state.Phase == AwaitingInitialLine {
		p.pending = append(p.pending, data...)
		idx := bytes.Index(p.pending, headerSeparator)
		if idx < 0 {
			if len(p.pending) > maxHeaderBytes {
				return nil, malformed("header block exceeds %d bytes", maxHeaderBytes)
			}
			return nil, nil
		}
		head := string(p.pending[:idx])
		data = p.pending[idx+len(headerSeparator):]
		p.pending = nil
		if err := p.readHead(head); err != nil {
			return nil, err
		}
	}

	switch p.state.Phase {
	case FramingByContentLength:
		p.feedContentLength(data)
	case FramingByChunked:
		if err := p.feedChunked(data); err != nil {
			return nil, err
		}
	}

	if p.state.Phase == Complete {
		return p.resp, nil
	}
	return nil, nil
}

// Finish is called when the connection reaches EOF.
func (p *Parser) Finish() error {
	if p.state.Phase == Complete {
		return nil
	}
	return fmt.Errorf("%w (state %s, %d bytes remaining)", ErrIncompleteResponse, p.state.Phase, p.state.Remaining)
}

func (p *Parser) readHead(head string) error {
	statusLine, block, _ := strings.Cut(head, crlf)
	code, message, err := parseStatusLine(statusLine)
	if err != nil {
		return err
	}

	headers := ParseHeaders(block)
	p.resp = &Response{
		StatusCode: code,
		Status:     message,
		Headers:    headers,
	}

	if p.noBody || bodylessStatus(code) {
		p.state = State{Phase: Complete}
		return nil
	}

	if cl, ok := headers.Lookup("Content-Length"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || n < 0 {
			return malformed("invalid Content-Length %q", cl)
		}
		p.state = State{Phase: FramingByContentLength, Remaining: n}
		if n == 0 {
			p.state.Phase = Complete
		}
		return nil
	}

	if te, ok := headers.Lookup("Transfer-Encoding"); ok && isChunked(te) {
		p.state = State{Phase: FramingByChunked}
		return nil
	}

	p.state = State{Phase: Complete}
	return nil
}

func (p *Parser) feedContentLength(data []byte) {
	n := min(len(data), p.state.Remaining)
	p.resp.Body = append(p.resp.Body, data[:n]...)
	p.state.Remaining -= n
	if p.state.Remaining == 0 {
		p.state.Phase = Complete
	}
}

func (p *Parser) feedChunked(data []byte) error {
	if len(p.pending) > 0 {
		data = append(p.pending, data...)
		p.pending = nil
	}

	for len(data) > 0 {
		if p.chunkDone {
			if len(data) < 2 {
				if data[0] != '\r' {
					return malformed("missing CRLF after chunk data")
				}
				p.pending = append([]byte(nil), data...)
				return nil
			}
			if !bytes.HasPrefix(data, crlfBytes) {
				return malformed("missing CRLF after chunk data")
			}
			data = data[len(crlfBytes):]
			p.chunkDone = false
			continue
		}

		if p.state.Remaining == 0 {
			idx := bytes.Index(data, crlfBytes)
			if idx < 0 {
				if len(data) > maxChunkLineBytes {
					return malformed("chunk-size line exceeds %d bytes", maxChunkLineBytes)
				}
				p.pending = append([]byte(nil), data...)
				return nil
			}
			size, err := parseChunkSize(string(data[:idx]))
			if err != nil {
				return err
			}
			data = data[idx+len(crlfBytes):]
			if size == 0 {
				// Trailers are not read; the connection is closed instead.
				p.state = State{Phase: Complete}
				return nil
			}
			p.state.Remaining = size
			continue
		}

		n := min(len(data), p.state.Remaining)
		p.resp.Body = append(p.resp.Body, data[:n]...)
		p.state.Remaining -= n
		data = data[n:]
		if p.state.Remaining == 0 {
			p.chunkDone = true
		}
	}
	return nil
}

// parseStatusLine takes the first all-digit field as the status code and
// everything after it as the reason phrase.
func parseStatusLine(line string) (int, string, error) {
	fields := strings.Fields(line)
	for i, f := range fields {
		if !isDigits(f) {
			continue
		}
		code, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		return code, strings.Join(fields[i+1:], " "), nil
	}
	return 0, "", malformed("invalid status line %q", line)
}

func parseChunkSize(line string) (int, error) {
	sizeStr, _, _ := strings.Cut(line, ";")
	sizeStr = strings.TrimSpace(sizeStr)
	size, err := strconv.ParseInt(sizeStr, 16, 64)
	if err != nil || size < 0 {
		return 0, malformed("invalid chunk size %q", line)
	}
	return int(size), nil
}

func isChunked(te string) bool {
	codings := strings.Split(te, ",")
	last := strings.TrimSpace(codings[len(codings)-1])
	return strings.EqualFold(last, "chunked")
}

func bodylessStatus(code int) bool {
	return (code >= 100 && code < 200) || code == 204 || code == 304
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

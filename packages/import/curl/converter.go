// Package curl turns curl command lines into rqn collection requests.
package curl

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/rqn/packages/collection"
	"github.com/abdul-hamid-achik/rqn/packages/http"
)

// Converter converts curl commands to collection requests.
type Converter struct {
	expectSuccess bool
}

// Option is a functional option for Converter.
type Option func(*Converter)

// WithExpectSuccess adds an expect block requiring status 200 to every
// converted request.
func WithExpectSuccess(expect bool) Option {
	return func(c *Converter) {
		c.expectSuccess = expect
	}
}

func NewConverter(opts ...Option) *Converter {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParsedCurl is what a curl command line asks for.
type ParsedCurl struct {
	Method    string
	URL       string
	Headers   map[string]string
	Body      string
	BasicAuth string
	Head      bool
}

// ConvertCommand converts a single curl command.
func (c *Converter) ConvertCommand(curlCmd string) (*collection.Request, error) {
	parsed, err := c.Parse(curlCmd)
	if err != nil {
		return nil, err
	}
	return c.ToRequest(parsed), nil
}

// ConvertFile converts a file of curl commands, one per line with
// backslash continuations, into a collection.
func (c *Converter) ConvertFile(path string) (*collection.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return c.ConvertReader(f)
}

// ConvertReader is ConvertFile over any reader.
func (c *Converter) ConvertReader(r io.Reader) (*collection.File, error) {
	commands, err := splitCommands(r)
	if err != nil {
		return nil, err
	}

	file := &collection.File{}
	for i, cmd := range commands {
		req, err := c.ConvertCommand(cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to convert command %d: %w", i+1, err)
		}
		file.Requests = append(file.Requests, req)
	}
	dedupeNames(file.Requests)

	if err := file.Validate(); err != nil {
		return nil, err
	}
	return file, nil
}

func splitCommands(r io.Reader) ([]string, error) {
	var commands []string
	var current strings.Builder
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, "\\") {
			current.WriteString(strings.TrimSuffix(line, "\\"))
			current.WriteString(" ")
			continue
		}

		current.WriteString(line)
		commands = append(commands, current.String())
		current.Reset()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}
	if current.Len() > 0 {
		commands = append(commands, current.String())
	}
	return commands, nil
}

// Parse reads the flags rqn can express. Unknown flags are skipped along
// with their value.
func (c *Converter) Parse(curlCmd string) (*ParsedCurl, error) {
	parsed := &ParsedCurl{
		Headers: make(map[string]string),
	}

	tokens := tokenize(strings.TrimSpace(curlCmd))
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}

	value := func(i int) (string, error) {
		if i+1 >= len(tokens) {
			return "", fmt.Errorf("missing value for %s", tokens[i])
		}
		return tokens[i+1], nil
	}

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		switch token {
		case "-X", "--request":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Method = strings.ToUpper(v)
			i++

		case "-H", "--header":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			if key, val, ok := strings.Cut(v, ":"); ok {
				parsed.Headers[strings.TrimSpace(key)] = strings.TrimSpace(val)
			}
			i++

		case "-d", "--data", "--data-raw", "--data-binary":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Body = v
			i++

		case "-u", "--user":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.BasicAuth = v
			i++

		case "-A", "--user-agent", "-e", "--referer", "-b", "--cookie":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Headers[headerFor[token]] = v
			i++

		case "-I", "--head":
			parsed.Head = true

		case "-k", "--insecure", "-L", "--location", "-s", "--silent", "-v", "--verbose", "-i", "--include":
			// client level behaviour, not part of a request

		default:
			switch {
			case strings.HasPrefix(token, "-"):
				if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !isURL(tokens[i+1]) {
					i++
				}
			case parsed.URL == "" && isURL(token):
				parsed.URL = token
			}
		}
	}

	if parsed.URL == "" {
		return nil, fmt.Errorf("no URL found in curl command")
	}

	switch {
	case parsed.Method != "":
	case parsed.Head:
		parsed.Method = http.MethodHead
	case parsed.Body != "":
		parsed.Method = http.MethodPost
	default:
		parsed.Method = http.MethodGet
	}

	return parsed, nil
}

var headerFor = map[string]string{
	"-A": "User-Agent", "--user-agent": "User-Agent",
	"-e": "Referer", "--referer": "Referer",
	"-b": "Cookie", "--cookie": "Cookie",
}

// ToRequest builds the collection request. A JSON body sent with a JSON
// content type becomes a json: document so it stays editable.
func (c *Converter) ToRequest(parsed *ParsedCurl) *collection.Request {
	req := &collection.Request{
		Name:   generateName(parsed.URL, parsed.Method),
		Method: parsed.Method,
		URL:    parsed.URL,
	}

	headers := make(map[string]string, len(parsed.Headers)+1)
	for k, v := range parsed.Headers {
		headers[k] = v
	}
	if parsed.BasicAuth != "" {
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(parsed.BasicAuth))
	}

	if parsed.Body != "" {
		var doc any
		if isJSONContentType(headers) && json.Unmarshal([]byte(parsed.Body), &doc) == nil {
			req.JSON = doc
			deleteHeader(headers, "Content-Type")
		} else {
			req.Body = parsed.Body
		}
	}

	if len(headers) > 0 {
		req.Headers = headers
	}
	if c.expectSuccess {
		req.Expect = &collection.Expect{Status: 200}
	}
	return req
}

func isJSONContentType(headers map[string]string) bool {
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			return strings.Contains(strings.ToLower(v), "json")
		}
	}
	return false
}

func deleteHeader(headers map[string]string, name string) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			delete(headers, k)
		}
	}
}

// dedupeNames suffixes repeated names with -2, -3 and so on.
func dedupeNames(reqs []*collection.Request) {
	seen := make(map[string]int)
	for _, r := range reqs {
		seen[r.Name]++
		if n := seen[r.Name]; n > 1 {
			r.Name = fmt.Sprintf("%s-%d", r.Name, n)
		}
	}
}

// tokenize splits a command line into words, honoring quotes and
// backslash escapes.
func tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingle, inDouble, escaped := false, false, false

	for _, r := range cmd {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch {
		case r == '\\' && !inSingle:
			escaped = true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case (r == ' ' || r == '\t') && !inSingle && !inDouble:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "{{")
}

var (
	pathPattern    = regexp.MustCompile(`https?://[^/]+(/[^?#]*)?`)
	nonWordPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// generateName derives a name like "post-users-42" from method and path.
func generateName(url, method string) string {
	path := ""
	if m := pathPattern.FindStringSubmatch(url); len(m) > 1 {
		path = m[1]
	}

	path = strings.Trim(nonWordPattern.ReplaceAllString(strings.ToLower(path), "-"), "-")
	if path == "" {
		path = "root"
	}
	return strings.ToLower(method) + "-" + path
}

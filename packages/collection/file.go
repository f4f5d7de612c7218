package collection

import (
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/rqn/packages/http"
	"gopkg.in/yaml.v3"
)

// File is a parsed collection
type File struct {
	Path      string            `yaml:"-"`
	Variables map[string]string `yaml:"variables,omitempty"`
	Requests  []*Request        `yaml:"requests"`
}

type Request struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Query   map[string]string `yaml:"query,omitempty"`
	Form    map[string]string `yaml:"form,omitempty"`
	JSON    any               `yaml:"json,omitempty"`
	Body    string            `yaml:"body,omitempty"`
	Expect  *Expect           `yaml:"expect,omitempty"`
	Capture map[string]string `yaml:"capture,omitempty"`
}

type Expect struct {
	Status   int    `yaml:"status,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Schema   string `yaml:"schema,omitempty"`
}

var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodHead:   true,
}

// Load reads and validates the collection at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	file.Path = path
	return file, nil
}

// Parse decodes and validates a collection document.
func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid collection: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks every request and upper-cases methods in place.
func (f *File) Validate() error {
	if len(f.Requests) == 0 {
		return fmt.Errorf("collection has no requests")
	}

	seen := make(map[string]bool)
	for i, req := range f.Requests {
		if req == nil {
			return fmt.Errorf("request %d is empty", i+1)
		}
		if req.Name == "" {
			req.Name = fmt.Sprintf("request-%d", i+1)
		}
		if seen[req.Name] {
			return fmt.Errorf("duplicate request name %q", req.Name)
		}
		seen[req.Name] = true

		req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
		if req.Method == "" {
			req.Method = http.MethodGet
		}
		if !supportedMethods[req.Method] {
			return fmt.Errorf("request %q: unsupported method %s", req.Name, req.Method)
		}
		if req.URL == "" {
			return fmt.Errorf("request %q: url is required", req.Name)
		}
	}
	return nil
}

// Marshal renders f as YAML.
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

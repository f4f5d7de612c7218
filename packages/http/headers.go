package http

import (
	"strings"
)

const crlf = "\r\n"

// Headers maps header names to a single value and remembers the order in
// which names were first set, which is the order they are serialized in.
// Names are stored exactly as given.
type Headers struct {
	keys   []string
	values map[string]string
}

// NewHeaders builds Headers from alternating key/value pairs. A trailing key
// without a value is ignored.
func NewHeaders(pairs ...string) *Headers {
	h := &Headers{values: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Set(pairs[i], pairs[i+1])
	}
	return h
}

// HeadersFromMap copies m into Headers with keys sorted for a stable order.
func HeadersFromMap(m map[string]string) *Headers {
	h := NewHeaders()
	for _, k := range sortedKeys(m) {
		h.Set(k, m[k])
	}
	return h
}

// Set stores value under key. An existing key keeps its original position.
func (h *Headers) Set(key, value string) {
	if h.values == nil {
		h.values = make(map[string]string)
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Get returns the value stored under exactly key.
func (h *Headers) Get(key string) string {
	if h == nil {
		return ""
	}
	return h.values[key]
}

// Lookup finds a header by case-insensitive name. Exact matches win over
// case-folded ones.
func (h *Headers) Lookup(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	if v, ok := h.values[name]; ok {
		return v, true
	}
	for _, k := range h.keys {
		if strings.EqualFold(k, name) {
			return h.values[k], true
		}
	}
	return "", false
}

// Del removes key, exact match only.
func (h *Headers) Del(key string) {
	if h == nil {
		return
	}
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	for i, k := range h.keys {
		if k == key {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the header names in insertion order.
func (h *Headers) Keys() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.keys)
}

// Map returns a copy of the headers as a plain map.
func (h *Headers) Map() map[string]string {
	out := make(map[string]string, h.Len())
	for _, k := range h.Keys() {
		out[k] = h.values[k]
	}
	return out
}

// Merge sets every header of other on h, other winning on equal keys.
func (h *Headers) Merge(other *Headers) {
	for _, k := range other.Keys() {
		h.Set(k, other.values[k])
	}
}

// SerializeHeaders renders "<key>: <value>" lines joined by CRLF, in
// insertion order. There is no trailing CRLF.
func SerializeHeaders(h *Headers) string {
	var sb strings.Builder
	for i, k := range h.Keys() {
		if i > 0 {
			sb.WriteString(crlf)
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(h.values[k])
	}
	return sb.String()
}

// ParseHeaders parses a CRLF separated header block. Each line is split at
// its first colon so values may contain colons themselves. Exactly one
// leading space is removed from the value and the key is kept as is. When a
// name repeats, the last value wins. Lines without a colon are skipped.
func ParseHeaders(block string) *Headers {
	h := NewHeaders()
	for _, line := range strings.Split(block, crlf) {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h.Set(key, strings.TrimPrefix(value, " "))
	}
	return h
}

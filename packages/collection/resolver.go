package collection

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

var builtins = map[string]func() string{
	"uuid":      func() string { return uuid.New().String() },
	"timestamp": func() string { return fmt.Sprint(time.Now().Unix()) },
}

// WarnFunc is called for placeholders that cannot be resolved
type WarnFunc func(format string, args ...any)

// Resolver substitutes {{...}} placeholders from variables and captures.
// Captures shadow variables of the same name.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	captures  map[string]any
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		captures:  make(map[string]any),
	}
}

func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// SetCapture stores value under both "request.name" and "name".
func (r *Resolver) SetCapture(requestName, captureName string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures[requestName+"."+captureName] = value
	r.captures[captureName] = value
}

func (r *Resolver) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.captures[name]; ok {
		return v, true
	}
	v, ok := r.variables[name]
	return v, ok
}

// Resolve replaces every placeholder in input. Unresolvable placeholders
// are left as written.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		if envVar, ok := strings.CutPrefix(expr, "$"); ok {
			if val, ok := os.LookupEnv(envVar); ok {
				return val
			}
			r.warn("unresolved environment variable: $%s", envVar)
			return match
		}

		if name, ok := strings.CutSuffix(expr, "()"); ok {
			if fn, ok := builtins[name]; ok {
				return fn()
			}
			r.warn("unknown function: %s", expr)
			return match
		}

		if val, ok := r.Lookup(expr); ok {
			return fmt.Sprintf("%v", val)
		}

		r.warn("unresolved variable: %s", expr)
		return match
	})
}

func (r *Resolver) ResolveMap(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[r.Resolve(k)] = r.Resolve(v)
	}
	return result
}

// ResolveValue walks decoded JSON/YAML and resolves every string in it.
func (r *Resolver) ResolveValue(v any) any {
	switch val := v.(type) {
	case string:
		return r.Resolve(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.ResolveValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.ResolveValue(item)
		}
		return out
	default:
		return v
	}
}

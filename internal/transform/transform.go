package transform

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Transformer parses a file format into a generic document.
type Transformer interface {
	// Name is the configuration name of the transformer ("json", "yaml").
	Name() string
	// Supports reports whether files with the extension ext (lowercase,
	// without leading dot) are handled.
	Supports(ext string) bool
	// Parse decodes data. Errors wrap ErrParse.
	Parse(data []byte) (any, error)
}

// Registry is an ordered set of transformers.
// It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	transformers []Transformer
}

// NewRegistry creates a registry holding ts in order.
func NewRegistry(ts ...Transformer) *Registry {
	r := &Registry{}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

// Register appends t. Transformers registered earlier take precedence.
func (r *Registry) Register(t Transformer) {
	if t == nil {
		panic("transform: Register transformer is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers = append(r.transformers, t)
}

// Resolve returns the first transformer supporting ext.
// ext may carry a leading dot and is matched case-insensitively.
func (r *Registry) Resolve(ext string) (Transformer, bool) {
	ext = NormalizeExt(ext)
	if ext == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.transformers {
		if t.Supports(ext) {
			return t, true
		}
	}
	return nil, false
}

// Names returns the transformer names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.transformers))
	for _, t := range r.transformers {
		names = append(names, t.Name())
	}
	return names
}

// Len returns the number of registered transformers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transformers)
}

// NormalizeExt lowercases ext and strips leading dots.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimLeft(ext, "."))
}

var builtins = map[string]func() Transformer{
	"json":  func() Transformer { return JSON{} },
	"yaml":  func() Transformer { return YAML{} },
	"toml":  func() Transformer { return TOML{} },
	"jsonc": func() Transformer { return JSONC{} },
}

// Builtin returns the built-in transformer called name.
func Builtin(name string) (Transformer, error) {
	ctor, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownTransformer, name, strings.Join(BuiltinNames(), ", "))
	}
	return ctor(), nil
}

// BuiltinNames lists the names accepted by Builtin, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName builds a registry from built-in transformer names, in order.
func ByName(names ...string) (*Registry, error) {
	r := NewRegistry()
	for _, name := range names {
		t, err := Builtin(name)
		if err != nil {
			return nil, err
		}
		r.Register(t)
	}
	return r, nil
}

// Default returns a registry with every built-in transformer.
func Default() *Registry {
	r, _ := ByName("json", "yaml", "toml", "jsonc")
	return r
}

func hasExt(ext string, exts ...string) bool {
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

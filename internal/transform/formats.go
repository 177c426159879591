package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// JSON parses .json files.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Supports(ext string) bool { return ext == "json" }

func (JSON) Parse(data []byte) (any, error) {
	doc, err := decodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrParse, err)
	}
	return doc, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return doc, nil
}

// JSONC parses JSON with comments and trailing commas (.jsonc, .hujson).
type JSONC struct{}

func (JSONC) Name() string { return "jsonc" }

func (JSONC) Supports(ext string) bool { return hasExt(ext, "jsonc", "hujson") }

func (JSONC) Parse(data []byte) (any, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: jsonc: %v", ErrParse, err)
	}
	doc, err := decodeJSON(std)
	if err != nil {
		return nil, fmt.Errorf("%w: jsonc: %v", ErrParse, err)
	}
	return doc, nil
}

// YAML parses .yaml and .yml files.
// A document holding only comments parses to nil.
type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) Supports(ext string) bool { return hasExt(ext, "yaml", "yml") }

func (YAML) Parse(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrParse, err)
	}
	return normalize(doc), nil
}

// TOML parses .toml files.
type TOML struct{}

func (TOML) Name() string { return "toml" }

func (TOML) Supports(ext string) bool { return ext == "toml" }

func (TOML) Parse(data []byte) (any, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: toml: %v", ErrParse, err)
	}
	return normalize(doc), nil
}

// normalize converts decoder-specific shapes to the encoding/json ones:
// map[string]any objects, []any arrays, float64 or int64 numbers.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case int:
		return int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return float64(t)
		}
		return int64(t)
	default:
		return v
	}
}

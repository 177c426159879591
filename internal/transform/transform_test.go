package transform

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry_ResolveOrder(t *testing.T) {
	first := stubTransformer{name: "first", exts: []string{"json"}}
	second := stubTransformer{name: "second", exts: []string{"json", "txt"}}
	r := NewRegistry(first, second)

	tests := []struct {
		ext    string
		want   string
		wantOK bool
	}{
		{"json", "first", true},
		{".JSON", "first", true},
		{"txt", "second", true},
		{"..txt", "second", true},
		{"yaml", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, ok := r.Resolve(tt.ext)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.ext, ok, tt.wantOK)
			}
			if ok && got.Name() != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.ext, got.Name(), tt.want)
			}
		})
	}
}

func TestRegistry_Independent(t *testing.T) {
	a, err := ByName("json")
	if err != nil {
		t.Fatalf("ByName failed: %v", err)
	}
	b, err := ByName("yaml")
	if err != nil {
		t.Fatalf("ByName failed: %v", err)
	}

	if _, ok := a.Resolve("yaml"); ok {
		t.Error("json-only registry resolved yaml")
	}
	if _, ok := b.Resolve("json"); ok {
		t.Error("yaml-only registry resolved json")
	}
	if diff := cmp.Diff([]string{"json"}, a.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestByName_Unknown(t *testing.T) {
	_, err := ByName("json", "xml")
	if !errors.Is(err, ErrUnknownTransformer) {
		t.Errorf("expected ErrUnknownTransformer, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	r := Default()
	for _, ext := range []string{"json", "yaml", "yml", "toml", "jsonc", "hujson"} {
		if _, ok := r.Resolve(ext); !ok {
			t.Errorf("default registry does not resolve %s", ext)
		}
	}
	if r.Len() != len(BuiltinNames()) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(BuiltinNames()))
	}
}

func TestRegister_NilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewRegistry().Register(nil)
}

func TestParse_Formats(t *testing.T) {
	want := map[string]any{"greeting": "Hi", "count": int64(2)}

	tests := []struct {
		name  string
		tr    Transformer
		input string
		want  any
	}{
		{"json", JSON{}, `{"greeting": "Hi", "count": 2}`, map[string]any{"greeting": "Hi", "count": float64(2)}},
		{"jsonc", JSONC{}, "{\n  // comment\n  \"greeting\": \"Hi\",\n  \"count\": 2,\n}", map[string]any{"greeting": "Hi", "count": float64(2)}},
		{"yaml", YAML{}, "greeting: Hi\ncount: 2\n", want},
		{"toml", TOML{}, "greeting = \"Hi\"\ncount = 2\n", want},
		{"json array", JSON{}, `[{"id": "a"}]`, []any{map[string]any{"id": "a"}}},
		{"yaml comments only", YAML{}, "# nothing here\n", nil},
		{"yaml nested", YAML{}, "a:\n  b: c\n", map[string]any{"a": map[string]any{"b": "c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.tr.Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("document mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		tr    Transformer
		input string
	}{
		{"json truncated", JSON{}, `{"greeting": `},
		{"json trailing data", JSON{}, `{} {}`},
		{"jsonc unterminated", JSONC{}, `{"a": "b"`},
		{"yaml bad indent", YAML{}, "a: b\n  c: d\n"},
		{"toml bad", TOML{}, "greeting = \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.tr.Parse([]byte(tt.input))
			if !errors.Is(err, ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})
	}
}

type stubTransformer struct {
	name string
	exts []string
}

func (s stubTransformer) Name() string { return s.name }

func (s stubTransformer) Supports(ext string) bool { return hasExt(ext, s.exts...) }

func (s stubTransformer) Parse(data []byte) (any, error) { return string(data), nil }

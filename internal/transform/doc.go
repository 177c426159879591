// Package transform turns raw file bytes into generic documents.
//
// A Transformer declares the file extensions it handles and parses bytes
// into the values produced by encoding/json: map[string]any, []any,
// string, float64 or int64, bool and nil. A Registry holds an ordered list of
// transformers; Resolve returns the first one that supports an extension.
//
// Registries are explicit values. Each reconciler owns its own, so sources
// configured with different transformer lists never affect each other:
//
//	reg, err := transform.ByName("json", "yaml")
//	if err != nil {
//	    return err
//	}
//	t, ok := reg.Resolve(".yml")
package transform

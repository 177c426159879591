package record

import (
	"fmt"
	"math"
	"sort"
)

// Outcome is the result of validating one candidate.
// Record is nil whenever Errors is non-empty.
type Outcome struct {
	Record *Record
	Errors []string
}

// Valid reports whether the candidate passed every rule.
func (o Outcome) Valid() bool {
	return len(o.Errors) == 0
}

func invalid(errs []string) Outcome {
	return Outcome{Errors: errs}
}

// ValidateMessage checks a message descriptor candidate.
//
// Required: id (non-empty string), defaultMessage (string), file (string).
// Optional: description (string), start and end (objects with numeric line
// and column). Unknown fields are ignored. Every violated rule is reported.
func ValidateMessage(candidate any) Outcome {
	obj, ok := asObject(candidate)
	if !ok {
		return invalid([]string{fmt.Sprintf("message descriptor must be an object (got %s)", typeName(candidate))})
	}

	var errs []string
	msg := &Record{}

	id, err := requiredString(obj, "id", true)
	if err != "" {
		errs = append(errs, err)
	}
	msg.Key = id

	value, err := requiredString(obj, "defaultMessage", false)
	if err != "" {
		errs = append(errs, err)
	}
	msg.Value = value

	file, err := requiredString(obj, "file", false)
	if err != "" {
		errs = append(errs, err)
	}
	msg.File = file

	if raw, present := obj["description"]; present && raw != nil {
		s, ok := raw.(string)
		if !ok {
			errs = append(errs, fmt.Sprintf("description must be a string (got %s)", typeName(raw)))
		}
		msg.Description = s
	}

	for _, field := range []string{"start", "end"} {
		raw, present := obj[field]
		if !present || raw == nil {
			continue
		}
		loc, locErrs := validateLocation(field, raw)
		errs = append(errs, locErrs...)
		if field == "start" {
			msg.Start = loc
		} else {
			msg.End = loc
		}
	}

	if len(errs) > 0 {
		return invalid(errs)
	}
	return Outcome{Record: msg}
}

// ValidateTranslation checks one translation entry.
// The key must be non-empty and the value must already be a string.
func ValidateTranslation(key string, value any) Outcome {
	var errs []string
	if key == "" {
		errs = append(errs, "key must not be empty")
	}
	s, ok := value.(string)
	if !ok {
		errs = append(errs, fmt.Sprintf("%q must be a string (got %s)", key, typeName(value)))
	}
	if len(errs) > 0 {
		return invalid(errs)
	}
	return Outcome{Record: &Record{Key: key, Value: s}}
}

// ExtractMessages turns a message descriptor document into records.
func ExtractMessages(doc any, src Source) ([]*Record, []string) {
	if doc == nil {
		return nil, []string{"document is empty"}
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, []string{fmt.Sprintf("must be an array of message descriptors (got %s)", typeName(doc))}
	}

	var (
		records    []*Record
		violations []string
		seen       = make(map[string]int, len(items))
	)
	for i, item := range items {
		outcome := ValidateMessage(item)
		if !outcome.Valid() {
			for _, e := range outcome.Errors {
				violations = append(violations, fmt.Sprintf("[%d] %s", i, e))
			}
			continue
		}
		if first, dup := seen[outcome.Record.Key]; dup {
			violations = append(violations, fmt.Sprintf("[%d] duplicate id %q (first at [%d])", i, outcome.Record.Key, first))
			continue
		}
		seen[outcome.Record.Key] = i
		outcome.Record.finalize(KindMessage, src)
		records = append(records, outcome.Record)
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return records, nil
}

// ExtractTranslations turns a translation document into records.
// Records are returned sorted by key.
func ExtractTranslations(doc any, src Source) ([]*Record, []string) {
	if doc == nil {
		return nil, []string{"document is empty"}
	}
	obj, ok := asObject(doc)
	if !ok {
		return nil, []string{fmt.Sprintf("must be an object of translations (got %s)", typeName(doc))}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lang := src.Language()
	var (
		records    []*Record
		violations []string
	)
	for _, key := range keys {
		outcome := ValidateTranslation(key, obj[key])
		if !outcome.Valid() {
			violations = append(violations, outcome.Errors...)
			continue
		}
		outcome.Record.Language = lang
		outcome.Record.Priority = src.Priority
		outcome.Record.finalize(KindTranslation, src)
		records = append(records, outcome.Record)
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return records, nil
}

func requiredString(obj map[string]any, field string, nonEmpty bool) (string, string) {
	raw, present := obj[field]
	if !present || raw == nil {
		return "", field + " is required"
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Sprintf("%s must be a string (got %s)", field, typeName(raw))
	}
	if nonEmpty && s == "" {
		return "", field + " must not be empty"
	}
	return s, ""
}

func validateLocation(field string, raw any) (*Location, []string) {
	obj, ok := asObject(raw)
	if !ok {
		return nil, []string{fmt.Sprintf("%s must be an object (got %s)", field, typeName(raw))}
	}

	var errs []string
	loc := &Location{}
	for _, part := range []string{"line", "column"} {
		v, present := obj[part]
		if !present || v == nil {
			errs = append(errs, fmt.Sprintf("%s.%s is required", field, part))
			continue
		}
		n, ok := asInt(v)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s.%s must be an integer (got %s)", field, part, typeName(v)))
			continue
		}
		if part == "line" {
			loc.Line = n
		} else {
			loc.Column = n
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return loc, nil
}

// asObject accepts the object shapes produced by the JSON, YAML and TOML
// decoders. Maps with non-string keys are rejected.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any, map[any]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

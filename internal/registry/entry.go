package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one metadata document: a per-hash file, a registry value or an
// explicit config. Values keep the types their decoder produced.
type Entry map[string]any

// Has reports whether key is present.
func (e Entry) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// String returns a string value.
func (e Entry) String(key string) (string, bool) {
	s, ok := e[key].(string)
	return s, ok
}

// Int returns an integral number. JSON floats with no fraction are accepted.
func (e Entry) Int(key string) (int, bool) {
	return toInt(e[key])
}

// Float returns any numeric value as float64.
func (e Entry) Float(key string) (float64, bool) {
	switch v := e[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// Bool returns a boolean value. Numbers are truthy when non-zero.
func (e Entry) Bool(key string) (bool, bool) {
	switch v := e[key].(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case int:
		return v != 0, true
	}
	return false, false
}

// Map returns a nested document.
func (e Entry) Map(key string) (Entry, bool) {
	switch v := e[key].(type) {
	case map[string]any:
		return Entry(v), true
	case Entry:
		return v, true
	}
	return nil, false
}

// Strings returns a list of strings, skipping non-string items.
func (e Entry) Strings(key string) ([]string, bool) {
	raw, ok := e[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

// ReadDocument loads a JSON or YAML document into an Entry. YAML is chosen by
// extension; everything else is parsed as JSON.
func ReadDocument(path string) (Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	default:
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("parse %s: empty document", filepath.Base(path))
	}
	return Entry(doc), nil
}

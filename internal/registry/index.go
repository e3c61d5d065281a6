package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// IndexFile is the registry file name inside a metadata directory.
const IndexFile = "model_data.json"

// Index maps model hashes to metadata entries. It is loaded once and then
// read-only, so it is safe for concurrent lookups.
type Index struct {
	entries map[string]Entry
	keys    []string
}

// LoadIndex reads a hash→entry table. A missing file yields an empty index;
// the registry tier is then simply skipped.
func LoadIndex(path string) (*Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewIndex(nil), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	m := make(map[string]Entry, len(raw))
	for k, v := range raw {
		if v != nil {
			m[k] = Entry(v)
		}
	}
	return NewIndex(m), nil
}

// NewIndex builds an index from an in-memory table.
func NewIndex(entries map[string]Entry) *Index {
	if entries == nil {
		entries = map[string]Entry{}
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Index{entries: entries, keys: keys}
}

// Lookup finds the entry for hash. An exact key wins; otherwise the first key
// (in sorted order) containing hash is used, since some catalogs key entries
// by hash plus a suffix.
func (x *Index) Lookup(hash string) (Entry, bool) {
	if x == nil || hash == "" {
		return nil, false
	}
	if e, ok := x.entries[hash]; ok {
		return e, true
	}
	for _, k := range x.keys {
		if strings.Contains(k, hash) {
			return x.entries[k], true
		}
	}
	return nil, false
}

// Len reports the number of entries.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

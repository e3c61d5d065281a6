package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MDXCConfigDir is the preset directory for MDX-C documents, relative to a
// metadata directory.
const MDXCConfigDir = "mdx_c_configs"

// LoadMDXCPreset reads a named YAML preset from dir. The name may omit the
// .yaml extension.
func LoadMDXCPreset(dir, name string) (Entry, error) {
	if name == "" {
		return nil, fmt.Errorf("empty preset name")
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != ".yaml" && ext != ".yml" {
		name += ".yaml"
	}
	b, err := os.ReadFile(filepath.Join(dir, filepath.Base(name)))
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", name, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parse preset %s: empty document", name)
	}
	return Entry(doc), nil
}

// VRPreset is the subset of a VR band-split parameter file the resolver needs.
type VRPreset struct {
	Name       string
	SampleRate int                        `json:"sr"`
	Bins       int                        `json:"bins"`
	Band       map[string]json.RawMessage `json:"band"`
}

// Bands reports how many frequency bands the preset splits into.
func (p VRPreset) Bands() int { return len(p.Band) }

// LoadVRPreset reads {dir}/{name}.json.
func LoadVRPreset(dir, name string) (VRPreset, error) {
	if name == "" {
		return VRPreset{}, fmt.Errorf("empty preset name")
	}
	b, err := os.ReadFile(filepath.Join(dir, filepath.Base(name)+".json"))
	if err != nil {
		return VRPreset{}, err
	}
	var p VRPreset
	if err := json.Unmarshal(b, &p); err != nil {
		return VRPreset{}, fmt.Errorf("parse preset %s: %w", name, err)
	}
	if p.SampleRate <= 0 {
		return VRPreset{}, fmt.Errorf("preset %s: missing sr", name)
	}
	p.Name = name
	return p, nil
}

package modelcfg

import (
	"maps"
	"slices"
)

// ModelConfig is the fully resolved configuration for one model artifact.
// PrimaryStem and SecondaryStem are always non-empty and complementary.
type ModelConfig struct {
	Params        Params
	PrimaryStem   string
	SecondaryStem string
	Source        Source
	// Hash is empty when resolution stopped before fingerprinting.
	Hash string
}

// New builds a ModelConfig, deriving the secondary stem from primary.
// Slices and maps inside params are copied one level deep.
func New(p Params, primary string, source Source, hash string) ModelConfig {
	primary = NormalizeStem(primary)
	if primary == "" {
		primary = StemVocals
	}
	return ModelConfig{
		Params:        cloneParams(p),
		PrimaryStem:   primary,
		SecondaryStem: SecondaryStem(primary),
		Source:        source,
		Hash:          hash,
	}
}

// Arch reports the architecture of the underlying params.
func (c ModelConfig) Arch() Arch {
	if c.Params == nil {
		return ""
	}
	return c.Params.Arch()
}

// MDX returns the MDX params when the config is of that kind.
func (c ModelConfig) MDX() (MDXParams, bool) {
	p, ok := c.Params.(MDXParams)
	return p, ok
}

// MDXC returns the MDX-C params when the config is of that kind.
func (c ModelConfig) MDXC() (MDXCParams, bool) {
	p, ok := c.Params.(MDXCParams)
	return p, ok
}

// VR returns the VR params when the config is of that kind.
func (c ModelConfig) VR() (VRParams, bool) {
	p, ok := c.Params.(VRParams)
	return p, ok
}

// Demucs returns the Demucs params when the config is of that kind.
func (c ModelConfig) Demucs() (DemucsParams, bool) {
	p, ok := c.Params.(DemucsParams)
	return p, ok
}

func cloneParams(p Params) Params {
	switch v := p.(type) {
	case MDXCParams:
		v.Stems = slices.Clone(v.Stems)
		v.Document = maps.Clone(v.Document)
		return v
	case DemucsParams:
		v.Sources = slices.Clone(v.Sources)
		return v
	default:
		return p
	}
}

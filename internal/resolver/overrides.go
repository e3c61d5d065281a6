package resolver

import (
	"stemd/internal/modelcfg"
	"stemd/internal/registry"
)

// Overrides holds caller-supplied field values. They win at every tier except
// an explicit config document, which is taken verbatim.
type Overrides struct {
	DimF          *int
	DimTExponent  *int
	NFFT          *int
	Compensate    *float64
	PrimaryStem   *string
	VRParamPreset *string
	Nout          *int
	NoutLSTM      *int
}

// Empty reports whether no field is set.
func (o Overrides) Empty() bool {
	return o.DimF == nil && o.DimTExponent == nil && o.NFFT == nil && o.Compensate == nil &&
		o.PrimaryStem == nil && o.VRParamPreset == nil && o.Nout == nil && o.NoutLSTM == nil
}

func (r *Resolver) applyOverrides(cfg modelcfg.ModelConfig, o Overrides) modelcfg.ModelConfig {
	if o.Empty() {
		return cfg
	}
	params := cfg.Params
	switch p := params.(type) {
	case modelcfg.MDXParams:
		if o.DimF != nil {
			p.DimF = *o.DimF
		}
		if o.DimTExponent != nil {
			p.DimTExponent = *o.DimTExponent
		}
		if o.NFFT != nil {
			p.NFFT = *o.NFFT
		}
		if o.Compensate != nil {
			p.Compensate = *o.Compensate
		}
		params = p
	case modelcfg.VRParams:
		if o.VRParamPreset != nil && *o.VRParamPreset != "" {
			if preset, err := registry.LoadVRPreset(r.paramsDir(), *o.VRParamPreset); err == nil {
				p.ParamPreset = preset.Name
				p.SampleRate = preset.SampleRate
				p.Bands = preset.Bands()
			} else {
				r.log.Warn().Err(err).Str("preset", *o.VRParamPreset).Msg("vr param override ignored")
			}
		}
		if o.Nout != nil && o.NoutLSTM != nil {
			p.Capacity = [2]int{*o.Nout, *o.NoutLSTM}
			p.IsVR51 = true
		}
		params = p
	}
	primary := cfg.PrimaryStem
	if o.PrimaryStem != nil && *o.PrimaryStem != "" {
		primary = *o.PrimaryStem
	}
	return modelcfg.New(params, primary, cfg.Source, cfg.Hash)
}

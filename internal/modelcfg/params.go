package modelcfg

// Params is the architecture-specific part of a ModelConfig. The set of
// implementations is closed: MDXParams, MDXCParams, VRParams, DemucsParams.
type Params interface {
	Arch() Arch
	params()
}

// MDX defaults used when no tier supplies a value.
const (
	DefaultMDXDimF         = 3072
	DefaultMDXDimTExponent = 8
	DefaultMDXNFFT         = 6144
	DefaultMDXCompensate   = 1.035
)

// MDXParams describes an MDX-Net spectrogram model.
// DimTExponent stores the time dimension as a power of two.
type MDXParams struct {
	DimF         int     `json:"mdx_dim_f_set"`
	DimTExponent int     `json:"mdx_dim_t_set"`
	NFFT         int     `json:"mdx_n_fft_scale_set"`
	Compensate   float64 `json:"compensate"`
	IsKaraoke    bool    `json:"is_karaoke,omitempty"`
}

func (MDXParams) Arch() Arch { return ArchMDX }
func (MDXParams) params()    {}

// DimT re-expands the stored exponent.
func (p MDXParams) DimT() int {
	if p.DimTExponent <= 0 {
		return 1
	}
	return 1 << p.DimTExponent
}

// DefaultMDXParams returns the fixed fallback values.
func DefaultMDXParams() MDXParams {
	return MDXParams{
		DimF:         DefaultMDXDimF,
		DimTExponent: DefaultMDXDimTExponent,
		NFFT:         DefaultMDXNFFT,
		Compensate:   DefaultMDXCompensate,
	}
}

// MDXCParams describes MDX23C, Roformer and SCNet models which carry a YAML
// document naming their instrument set.
type MDXCParams struct {
	Preset           string         `json:"config_yaml,omitempty"`
	Stems            []string       `json:"instruments,omitempty"`
	TargetInstrument string         `json:"target_instrument,omitempty"`
	IsRoformer       bool           `json:"is_roformer,omitempty"`
	ModelType        string         `json:"model_type,omitempty"`
	Document         map[string]any `json:"-"`
}

func (MDXCParams) Arch() Arch { return ArchMDXC }
func (MDXCParams) params()    {}

// DefaultVRParamPreset is used for VR models with no metadata.
const DefaultVRParamPreset = "4band_v3"

// VRParams describes a VR-architecture (band-split UNet) model.
type VRParams struct {
	ParamPreset string  `json:"vr_model_param"`
	SampleRate  int     `json:"sample_rate,omitempty"`
	Bands       int     `json:"bands,omitempty"`
	Capacity    [2]int  `json:"capacity,omitempty"`
	IsVR51      bool    `json:"is_vr_51_model,omitempty"`
	IsKaraoke   bool    `json:"is_karaoke,omitempty"`
	IsBVModel   bool    `json:"is_bv_model,omitempty"`
	BVRebalance float64 `json:"is_bv_model_rebalanced,omitempty"`
}

func (VRParams) Arch() Arch { return ArchVR }
func (VRParams) params()    {}

// DemucsParams describes a Demucs waveform model.
type DemucsParams struct {
	Version string   `json:"version"`
	Sources []string `json:"sources"`
}

func (DemucsParams) Arch() Arch { return ArchDemucs }
func (DemucsParams) params()    {}

var (
	DemucsTwoStem  = []string{StemInstrumental, StemVocals}
	DemucsFourStem = []string{StemDrums, StemBass, StemOther, StemVocals}
	DemucsSixStem  = []string{StemDrums, StemBass, StemOther, StemVocals, StemGuitar, StemPiano}
)

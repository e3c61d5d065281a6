package types

// Model represents a separation model artifact discovered on disk.
type Model struct {
	// Stable identifier: the file name without extension.
	ID string `json:"id"`
	// File name including extension.
	Name string `json:"name"`
	// Absolute path to the artifact.
	Path string `json:"path"`
	// Architecture family guessed from location and extension (mdx, mdxc, vr, demucs).
	Arch string `json:"arch"`
}

// Overrides carries caller-supplied field values that win over every
// resolution tier except an explicit config file. Nil means "not set".
type Overrides struct {
	DimF          *int     `json:"mdx_dim_f_set,omitempty"`
	DimTExponent  *int     `json:"mdx_dim_t_set,omitempty"`
	NFFT          *int     `json:"mdx_n_fft_scale_set,omitempty"`
	Compensate    *float64 `json:"compensate,omitempty"`
	PrimaryStem   *string  `json:"primary_stem,omitempty"`
	VRParamPreset *string  `json:"vr_model_param,omitempty"`
	Nout          *int     `json:"nout,omitempty"`
	NoutLSTM      *int     `json:"nout_lstm,omitempty"`
}

// ProcessingOptions tunes the separator. Zero values take the per-architecture defaults.
type ProcessingOptions struct {
	Segment        string  `json:"segment,omitempty"`
	Overlap        float64 `json:"overlap,omitempty"`
	OverlapMDXC    int     `json:"overlap_mdxc,omitempty"`
	BatchSize      int     `json:"batch_size,omitempty"`
	WindowSize     int     `json:"window_size,omitempty"`
	// Aggression is a pointer so that 0 can be requested explicitly.
	Aggression     *int    `json:"aggression,omitempty"`
	TTA            bool    `json:"tta,omitempty"`
	PostProcess    bool    `json:"post_process,omitempty"`
	PostThreshold  float64 `json:"post_process_threshold,omitempty"`
	HighEndProcess bool    `json:"high_end_process,omitempty"`
	Shifts         int     `json:"shifts,omitempty"`
	WavType        string  `json:"wav_type,omitempty"`
	// Output container, e.g. "wav" or "flac".
	OutputFormat string `json:"output_format,omitempty"`
}

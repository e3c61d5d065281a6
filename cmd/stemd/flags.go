package main

import (
	"github.com/spf13/cobra"

	"stemd/pkg/types"
)

// overrideFlags fill the override tier; only flags the user set are applied.
type overrideFlags struct {
	dimF, dimT, nfft int
	compensate       float64
	primaryStem      string
	param            string
	nout, noutLSTM   int
}

func (f *overrideFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.dimF, "dim-f", 0, "MDX override: mdx_dim_f_set")
	fs.IntVar(&f.dimT, "dim-t", 0, "MDX override: mdx_dim_t_set (exponent)")
	fs.IntVar(&f.nfft, "n-fft", 0, "MDX override: mdx_n_fft_scale_set")
	fs.Float64Var(&f.compensate, "compensate", 0, "MDX override: volume compensation")
	fs.StringVar(&f.primaryStem, "primary-stem", "", "Primary stem name, e.g. Vocals or Instrumental")
	fs.StringVar(&f.param, "param", "", "VR model param preset, e.g. 4band_v3 or 1band_sr44100_hl512")
	fs.IntVar(&f.nout, "nout", 0, "VR 5.1 nout parameter")
	fs.IntVar(&f.noutLSTM, "nout-lstm", 0, "VR 5.1 nout_lstm parameter")
}

func (f *overrideFlags) overrides(cmd *cobra.Command) types.Overrides {
	fs := cmd.Flags()
	var o types.Overrides
	if fs.Changed("dim-f") {
		o.DimF = ptr(f.dimF)
	}
	if fs.Changed("dim-t") {
		o.DimTExponent = ptr(f.dimT)
	}
	if fs.Changed("n-fft") {
		o.NFFT = ptr(f.nfft)
	}
	if fs.Changed("compensate") {
		o.Compensate = ptr(f.compensate)
	}
	if fs.Changed("primary-stem") {
		o.PrimaryStem = ptr(f.primaryStem)
	}
	if fs.Changed("param") {
		o.VRParamPreset = ptr(f.param)
	}
	if fs.Changed("nout") {
		o.Nout = ptr(f.nout)
	}
	if fs.Changed("nout-lstm") {
		o.NoutLSTM = ptr(f.noutLSTM)
	}
	return o
}

// optionFlags map onto ProcessingOptions. Zero values keep the
// per-architecture defaults, except aggression which is applied when set.
type optionFlags struct {
	opts       types.ProcessingOptions
	aggression int
}

func (f *optionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.opts.Segment, "segment", "", "Segment size (MDX default 256, Demucs default Default)")
	fs.Float64Var(&f.opts.Overlap, "overlap", 0, "Overlap (MDX and Demucs default 0.25)")
	fs.IntVar(&f.opts.OverlapMDXC, "overlap-mdxc", 0, "MDX-C/Roformer overlap (default 2)")
	fs.IntVar(&f.opts.BatchSize, "batch-size", 0, "Batch size (default 1)")
	fs.IntVar(&f.opts.WindowSize, "window-size", 0, "VR window size (default 512)")
	fs.IntVar(&f.aggression, "aggression", 0, "VR aggression (default 5)")
	fs.BoolVar(&f.opts.TTA, "tta", false, "VR test-time augmentation")
	fs.BoolVar(&f.opts.PostProcess, "post-process", false, "VR post-processing")
	fs.Float64Var(&f.opts.PostThreshold, "post-process-threshold", 0, "VR post-process threshold (default 0.2)")
	fs.BoolVar(&f.opts.HighEndProcess, "high-end-process", false, "VR high-end processing")
	fs.IntVar(&f.opts.Shifts, "shifts", 0, "Demucs time shifts (default 2)")
	fs.StringVar(&f.opts.WavType, "wav-type", "", "PCM_U8, PCM_16, PCM_24, PCM_32, FLOAT or DOUBLE (VR default PCM_16, others PCM_24)")
	fs.StringVar(&f.opts.OutputFormat, "format", "", "Output format, e.g. wav or flac")
}

func (f *optionFlags) options(cmd *cobra.Command) types.ProcessingOptions {
	o := f.opts
	if cmd.Flags().Changed("aggression") {
		o.Aggression = ptr(f.aggression)
	}
	return o
}

func ptr[T any](v T) *T { return &v }

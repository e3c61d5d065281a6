package orchestrator

import (
	"context"

	"stemd/internal/modelcfg"
	"stemd/internal/resolver"
	"stemd/pkg/types"
)

// Architecture is the per-family capability set the run loop is generic over.
type Architecture interface {
	Kind() modelcfg.Arch
	// ResolveConfig runs the configuration cascade for the artifact.
	ResolveConfig(ctx context.Context, a resolver.Artifact, explicitPath string, o types.Overrides) (modelcfg.ModelConfig, error)
	// BuildRequest turns a resolved config into a separator job for device.
	BuildRequest(spec JobSpec, cfg modelcfg.ModelConfig, device Device) (Job, error)
	// InvokeSeparator executes one attempt.
	InvokeSeparator(ctx context.Context, job Job) error
}

// JobSpec is the device-independent part of a job, fixed before the first
// attempt.
type JobSpec struct {
	ID        string
	ModelPath string
	Request   types.SeparateRequest
}

// base holds what every architecture shares.
type base struct {
	kind      modelcfg.Arch
	resolver  *resolver.Resolver
	separator func(context.Context, Job) error
}

func (b *base) Kind() modelcfg.Arch { return b.kind }

func (b *base) ResolveConfig(_ context.Context, a resolver.Artifact, explicitPath string, o types.Overrides) (modelcfg.ModelConfig, error) {
	return b.resolver.Resolve(a, explicitPath, resolver.Overrides(o))
}

func (b *base) InvokeSeparator(ctx context.Context, job Job) error {
	return b.separator(ctx, job)
}

func (b *base) job(spec JobSpec, cfg modelcfg.ModelConfig, device Device, opts types.ProcessingOptions, sel stemSelection) Job {
	req := spec.Request
	return Job{
		ID:            spec.ID,
		Arch:          cfg.Arch(),
		ModelPath:     spec.ModelPath,
		Input:         req.Input,
		OutputDir:     req.OutputDir,
		Device:        device,
		PrimaryStem:   sel.Primary,
		SecondaryStem: sel.Secondary,
		Params:        cfg.Params,
		Options:       opts,
		Outputs:       outputPaths(req.Input, req.OutputDir, opts.OutputFormat, sel.Stems),
		Stems:         sel.Stems,
	}
}

// mdxArchitecture serves both MDX-Net and MDX-C models.
type mdxArchitecture struct{ base }

func (m *mdxArchitecture) BuildRequest(spec JobSpec, cfg modelcfg.ModelConfig, device Device) (Job, error) {
	sel, err := mdxStems(cfg, spec.Request)
	if err != nil {
		return Job{}, err
	}
	return m.job(spec, cfg, device, mdxOptions(spec.Request.Options), sel), nil
}

type vrArchitecture struct{ base }

func (v *vrArchitecture) BuildRequest(spec JobSpec, cfg modelcfg.ModelConfig, device Device) (Job, error) {
	sel, err := pairedStems(cfg, spec.Request)
	if err != nil {
		return Job{}, err
	}
	return v.job(spec, cfg, device, vrOptions(spec.Request.Options), sel), nil
}

type demucsArchitecture struct{ base }

func (d *demucsArchitecture) BuildRequest(spec JobSpec, cfg modelcfg.ModelConfig, device Device) (Job, error) {
	sel, err := demucsStems(cfg, spec.Request)
	if err != nil {
		return Job{}, err
	}
	return d.job(spec, cfg, device, demucsOptions(spec.Request.Options), sel), nil
}

// Per-architecture processing defaults.
const (
	defaultMDXSegment      = "256"
	defaultMDXOverlap      = 0.25
	defaultMDXCOverlap     = 2
	defaultBatchSize       = 1
	defaultVRWindow        = 512
	defaultVRAggression    = 5
	defaultVRPostThreshold = 0.2
	defaultDemucsSegment   = "Default"
	defaultDemucsShifts    = 2
	defaultDemucsOverlap   = 0.25
	defaultWavType         = "PCM_24"
	defaultVRWavType       = "PCM_16"
	defaultOutputFormat    = "wav"
)

func commonOptions(o types.ProcessingOptions) types.ProcessingOptions {
	if o.WavType == "" {
		o.WavType = defaultWavType
	}
	if o.OutputFormat == "" {
		o.OutputFormat = defaultOutputFormat
	}
	return o
}

func mdxOptions(o types.ProcessingOptions) types.ProcessingOptions {
	o = commonOptions(o)
	if o.Segment == "" {
		o.Segment = defaultMDXSegment
	}
	if o.Overlap <= 0 {
		o.Overlap = defaultMDXOverlap
	}
	if o.OverlapMDXC <= 0 {
		o.OverlapMDXC = defaultMDXCOverlap
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	return o
}

func vrOptions(o types.ProcessingOptions) types.ProcessingOptions {
	if o.WavType == "" {
		o.WavType = defaultVRWavType
	}
	o = commonOptions(o)
	if o.WindowSize <= 0 {
		o.WindowSize = defaultVRWindow
	}
	if o.Aggression == nil {
		a := defaultVRAggression
		o.Aggression = &a
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.PostThreshold <= 0 {
		o.PostThreshold = defaultVRPostThreshold
	}
	return o
}

func demucsOptions(o types.ProcessingOptions) types.ProcessingOptions {
	o = commonOptions(o)
	if o.Segment == "" {
		o.Segment = defaultDemucsSegment
	}
	if o.Shifts <= 0 {
		o.Shifts = defaultDemucsShifts
	}
	if o.Overlap <= 0 {
		o.Overlap = defaultDemucsOverlap
	}
	return o
}

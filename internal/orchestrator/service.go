package orchestrator

import (
	"context"
	"fmt"

	"stemd/internal/modelcfg"
	"stemd/internal/resolver"
	"stemd/pkg/types"
)

// Resolve reports the configuration a model would run with, without running it.
func (o *Orchestrator) Resolve(ctx context.Context, req types.ResolveRequest) (types.ResolveResponse, error) {
	if err := validate.Struct(req); err != nil {
		return types.ResolveResponse{}, invalidRequestError{err}
	}
	kind, err := modelcfg.ParseArch(req.Arch)
	if err != nil {
		return types.ResolveResponse{}, invalidRequestError{err}
	}
	arch, ok := o.architecture(kind)
	if !ok {
		return types.ResolveResponse{}, invalidRequestError{fmt.Errorf("no runner for architecture %s", kind)}
	}
	mdl, err := o.locateModel(ctx, req.Model, kind)
	if err != nil {
		return types.ResolveResponse{}, err
	}
	cfg, err := arch.ResolveConfig(ctx, resolver.Artifact{Path: mdl.Path, Arch: kind}, req.ConfigPath, req.Overrides)
	if err != nil {
		return types.ResolveResponse{}, err
	}
	return resolveResponse(mdl, cfg), nil
}

// Separate runs a job and maps the result for the HTTP layer.
func (o *Orchestrator) Separate(ctx context.Context, req types.SeparateRequest) (types.SeparateResponse, error) {
	res, err := o.Run(ctx, req)
	if err != nil {
		return types.SeparateResponse{JobID: res.JobID}, err
	}
	return SeparateResponse(res), nil
}

// SeparateResponse converts a Result to its wire form.
func SeparateResponse(res Result) types.SeparateResponse {
	out := types.SeparateResponse{
		JobID:            res.JobID,
		Outputs:          res.Outputs,
		DeviceUsed:       string(res.DeviceUsed),
		FallbackOccurred: res.FallbackOccurred,
		Config:           resolveResponse(res.Model, res.Config),
		DurationMS:       res.Duration.Milliseconds(),
	}
	if out.Outputs == nil {
		out.Outputs = []string{}
	}
	for _, a := range res.Attempts {
		wa := types.Attempt{Device: string(a.Device), Fallback: a.Fallback, Outcome: "succeeded"}
		if a.Err != nil {
			wa.Outcome = "failed"
			wa.Error = a.Err.Error()
		}
		out.Attempts = append(out.Attempts, wa)
	}
	return out
}

func resolveResponse(mdl types.Model, cfg modelcfg.ModelConfig) types.ResolveResponse {
	return types.ResolveResponse{
		Model:         mdl.ID,
		Path:          mdl.Path,
		Arch:          string(cfg.Arch()),
		Source:        string(cfg.Source),
		Hash:          cfg.Hash,
		PrimaryStem:   cfg.PrimaryStem,
		SecondaryStem: cfg.SecondaryStem,
		Params:        cfg.Params,
	}
}

// IsArtifactNotFound reports whether err names a missing model.
func IsArtifactNotFound(err error) bool { return modelcfg.IsArtifactNotFound(err) }

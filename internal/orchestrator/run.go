package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stemd/internal/classify"
	"stemd/internal/common/fsutil"
	"stemd/internal/modelcfg"
	"stemd/internal/registry"
	"stemd/internal/resolver"
	"stemd/pkg/types"
)

// Run executes one separation job: resolve the model config, pick a device,
// invoke the separator and, on a recoverable GPU failure, retry once on CPU.
//
// Errors are too-busy, invalid-request, artifact-not-found, dependency
// unavailable or a *classify.ClassifiedError.
func (o *Orchestrator) Run(ctx context.Context, req types.SeparateRequest) (Result, error) {
	jobID := uuid.NewString()
	lg := o.logger().With().Str("job_id", jobID).Str("arch", req.Arch).Str("model", req.Model).Logger()

	if err := validateRequest(req); err != nil {
		return Result{JobID: jobID}, err
	}
	kind, err := modelcfg.ParseArch(req.Arch)
	if err != nil {
		return Result{JobID: jobID}, invalidRequestError{err}
	}
	arch, ok := o.architecture(kind)
	if !ok {
		return Result{JobID: jobID}, invalidRequestError{fmt.Errorf("no runner for architecture %s", kind)}
	}
	if req.PrimaryOnly && req.SecondaryOnly {
		lg.Warn().Msg("primary_only and secondary_only both set; keeping primary only")
		req.SecondaryOnly = false
	}

	release, err := o.admit(ctx, jobID)
	if err != nil {
		lg.Info().Err(err).Msg("job not admitted")
		return Result{JobID: jobID}, err
	}
	defer release()

	start := time.Now()
	o.begin(jobID)
	res, err := o.run(ctx, lg, jobID, arch, req)
	res.JobID = jobID
	res.Duration = time.Since(start)
	o.finish(kind, res, err)
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, lg zerolog.Logger, jobID string, arch Architecture, req types.SeparateRequest) (Result, error) {
	var res Result
	if err := preflight(req); err != nil {
		lg.Warn().Err(err).Msg("preflight failed")
		return res, err
	}

	o.enter(StateResolvingConfig)
	o.publish(Event{Name: EventResolveStart, JobID: jobID, Fields: map[string]any{"model": req.Model}})
	mdl, err := o.locateModel(ctx, req.Model, arch.Kind())
	if err != nil {
		return res, o.fail(lg, jobID, "locate", err)
	}
	cfg, err := arch.ResolveConfig(ctx, resolver.Artifact{Path: mdl.Path, Arch: arch.Kind()}, req.ConfigPath, req.Overrides)
	if err != nil {
		return res, o.fail(lg, jobID, "resolve", err)
	}
	res.Model, res.Config = mdl, cfg
	lg = lg.With().Str("source", string(cfg.Source)).Logger()
	lg.Info().Str("event", EventResolveDone).Str("primary", cfg.PrimaryStem).Str("secondary", cfg.SecondaryStem).Msg("config resolved")
	o.publish(Event{Name: EventResolveDone, JobID: jobID, Fields: map[string]any{
		"source": string(cfg.Source), "hash": cfg.Hash, "primary_stem": cfg.PrimaryStem,
	}})

	pref := parseDevice(req.Device)
	if req.Device == "" {
		pref = o.defaultDevice
	}
	spec := JobSpec{ID: jobID, ModelPath: mdl.Path, Request: req}
	fallback := false
	for {
		o.enter(StateAcquiringDevice)
		device := o.selectDevice(pref, fallback)
		lg.Debug().Str("event", EventDeviceSelected).Str("device", string(device)).Msg("device selected")
		o.publish(Event{Name: EventDeviceSelected, JobID: jobID, Fields: map[string]any{"device": string(device), "fallback": fallback}})

		job, err := arch.BuildRequest(spec, cfg, device)
		if err != nil {
			return res, o.fail(lg, jobID, "build", err)
		}
		o.enter(StateRunning)
		o.publish(Event{Name: EventRunStart, JobID: jobID, Fields: map[string]any{"device": string(device)}})
		err = arch.InvokeSeparator(ctx, job)
		res.Attempts = append(res.Attempts, Attempt{Device: device, Fallback: fallback, Err: err})
		if err == nil {
			o.enter(StateSucceeded)
			res.Outputs = collectOutputs(job)
			res.DeviceUsed = device
			res.FallbackOccurred = fallback
			lg.Info().Str("event", EventRunDone).Str("device", string(device)).Int("outputs", len(res.Outputs)).Msg("separation done")
			o.publish(Event{Name: EventRunDone, JobID: jobID, Fields: map[string]any{"device": string(device), "outputs": len(res.Outputs)}})
			return res, nil
		}
		if IsDependencyUnavailable(err) {
			o.enter(StateFailedFatal)
			return res, err
		}

		c := classify.Classify(err)
		lg.Warn().Str("event", EventRunFailed).Str("device", string(device)).Str("category", string(c.Category)).Bool("recoverable", c.Recoverable).Err(err).Msg("separation failed")
		o.publish(Event{Name: EventRunFailed, JobID: jobID, Fields: map[string]any{
			"device": string(device), "category": string(c.Category), "recoverable": c.Recoverable,
		}})
		if canFallback(c, fallback, pref, device) {
			fallback = true
			o.recordFallback(arch.Kind())
			o.reclaim(ctx, lg)
			lg.Info().Str("event", EventFallback).Msg("retrying on cpu")
			o.publish(Event{Name: EventFallback, JobID: jobID, Fields: map[string]any{"from": string(device), "to": string(DeviceCPU)}})
			o.progress.Message("GPU failed; retrying on CPU")
			continue
		}
		o.enter(StateFailedFatal)
		o.publish(Event{Name: EventRunFatal, JobID: jobID, Fields: map[string]any{"category": string(c.Category)}})
		return res, &classify.ClassifiedError{Classification: c}
	}
}

// fail ends a job that broke before the separator ran. The returned error is
// classified but still matches IsArtifactNotFound and IsInvalidRequest.
func (o *Orchestrator) fail(lg zerolog.Logger, jobID, step string, err error) error {
	o.enter(StateFailedFatal)
	err = classify.Wrap(err)
	var ce *classify.ClassifiedError
	category := string(classify.CategoryUnknown)
	if errors.As(err, &ce) {
		category = string(ce.Category)
	}
	lg.Warn().Str("event", EventRunFatal).Str("step", step).Str("category", category).Err(err).Msg("job failed")
	o.publish(Event{Name: EventRunFatal, JobID: jobID, Fields: map[string]any{"category": category, "step": step}})
	return err
}

// canFallback allows exactly one CPU retry after a recoverable device failure
// on the GPU, unless the caller asked for CPU in the first place.
func canFallback(c classify.Classification, attempted bool, pref, used Device) bool {
	return c.Category == classify.CategoryDevice && c.Recoverable && !attempted &&
		pref != DeviceCPU && used == DeviceGPU
}

// selectDevice honours an explicit GPU request, probes for auto and forces
// CPU once a fallback has happened.
func (o *Orchestrator) selectDevice(pref Device, forcedCPU bool) Device {
	switch {
	case forcedCPU, pref == DeviceCPU:
		return DeviceCPU
	case pref == DeviceGPU:
		return DeviceGPU
	case o.probe.GPUAvailable():
		return DeviceGPU
	default:
		return DeviceCPU
	}
}

func (o *Orchestrator) reclaim(ctx context.Context, lg zerolog.Logger) {
	rctx, cancel := context.WithTimeout(ctx, o.reclaimWait)
	defer cancel()
	if err := o.probe.Reclaim(rctx); err != nil {
		lg.Warn().Err(err).Msg("device memory reclaim failed")
	}
}

// locateModel maps a request's model to an artifact: an existing file path,
// an entry of the scanned model directory, or a download.
func (o *Orchestrator) locateModel(ctx context.Context, id string, kind modelcfg.Arch) (types.Model, error) {
	if fsutil.IsFile(id) {
		return modelFromPath(id, kind), nil
	}
	if filepath.IsAbs(id) || strings.ContainsRune(id, os.PathSeparator) {
		return types.Model{}, modelcfg.ErrArtifactNotFound(id)
	}
	o.mu.RLock()
	models := o.models
	o.mu.RUnlock()
	if m, ok := registry.Find(models, id, kind); ok {
		return m, nil
	}
	if o.downloader != nil {
		o.progress.Stage("downloading")
		p, err := o.downloader.EnsureModel(ctx, id, kind)
		if err != nil {
			return types.Model{}, classify.Wrap(fmt.Errorf("download %s: %w", id, err))
		}
		return modelFromPath(p, kind), nil
	}
	return types.Model{}, modelcfg.ErrArtifactNotFound(id)
}

func modelFromPath(p string, kind modelcfg.Arch) types.Model {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	name := filepath.Base(p)
	return types.Model{ID: strings.TrimSuffix(name, filepath.Ext(name)), Name: name, Path: p, Arch: string(kind)}
}

func (o *Orchestrator) enter(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.progress.Stage(string(s))
}

func (o *Orchestrator) begin(jobID string) {
	o.mu.Lock()
	o.currentJob = jobID
	o.started++
	o.mu.Unlock()
}

func (o *Orchestrator) recordFallback(kind modelcfg.Arch) {
	o.mu.Lock()
	o.fallbacks++
	o.mu.Unlock()
	fallbacksTotal.WithLabelValues(string(kind)).Inc()
}

func (o *Orchestrator) finish(kind modelcfg.Arch, res Result, err error) {
	outcome := "succeeded"
	o.mu.Lock()
	o.state = StateIdle
	o.currentJob = ""
	if err != nil {
		outcome = "failed"
		o.failed++
		o.lastErr = err.Error()
	} else {
		o.succeeded++
	}
	o.mu.Unlock()
	jobsTotal.WithLabelValues(string(kind), outcome).Inc()
	jobDuration.WithLabelValues(string(kind)).Observe(res.Duration.Seconds())
}

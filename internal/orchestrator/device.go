package orchestrator

import (
	"context"
	"fmt"
	"os/exec"
)

// DeviceProbe reports GPU availability and frees device memory between a
// failed GPU attempt and its CPU retry.
type DeviceProbe interface {
	GPUAvailable() bool
	// Reclaim is best effort; callers log and ignore its error.
	Reclaim(ctx context.Context) error
}

// gpuTools are looked up on PATH to detect a usable GPU runtime.
var gpuTools = []string{"nvidia-smi", "rocm-smi"}

// SystemProbe detects vendor tooling on PATH and runs an optional reclaim
// command.
type SystemProbe struct {
	reclaimCmd []string
	lookPath   func(string) (string, error)
}

// NewSystemProbe returns a probe that runs reclaimCmd on Reclaim. An empty
// command makes Reclaim a no-op.
func NewSystemProbe(reclaimCmd []string) *SystemProbe {
	return &SystemProbe{reclaimCmd: append([]string(nil), reclaimCmd...), lookPath: exec.LookPath}
}

func (p *SystemProbe) GPUAvailable() bool {
	for _, t := range gpuTools {
		if _, err := p.lookPath(t); err == nil {
			return true
		}
	}
	return false
}

func (p *SystemProbe) Reclaim(ctx context.Context) error {
	if len(p.reclaimCmd) == 0 {
		return nil
	}
	out, err := exec.CommandContext(ctx, p.reclaimCmd[0], p.reclaimCmd[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("reclaim %s: %w: %s", p.reclaimCmd[0], err, tail(out, 512))
	}
	return nil
}

// StaticProbe reports a fixed GPU availability and never reclaims anything.
type StaticProbe bool

func (p StaticProbe) GPUAvailable() bool { return bool(p) }
func (StaticProbe) Reclaim(context.Context) error { return nil }

package orchestrator

import (
	"time"

	"stemd/internal/modelcfg"
	"stemd/pkg/types"
)

// State is the orchestrator's position in the job lifecycle.
type State string

const (
	StateIdle            State = "idle"
	StateResolvingConfig State = "resolving_config"
	StateAcquiringDevice State = "acquiring_device"
	StateRunning         State = "running"
	StateSucceeded       State = "succeeded"
	StateFailedFatal     State = "failed_fatal"
)

// Device is a compute device preference or the device actually used.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceGPU  Device = "gpu"
	DeviceCPU  Device = "cpu"
)

func parseDevice(s string) Device {
	switch Device(s) {
	case DeviceGPU, DeviceCPU:
		return Device(s)
	default:
		return DeviceAuto
	}
}

// Job is everything the separator needs for one attempt. It is serialised
// as JSON for subprocess separators.
type Job struct {
	ID            string                  `json:"id"`
	Arch          modelcfg.Arch           `json:"arch"`
	ModelPath     string                  `json:"model_path"`
	Input         string                  `json:"input"`
	OutputDir     string                  `json:"output_dir"`
	Device        Device                  `json:"device"`
	PrimaryStem   string                  `json:"primary_stem"`
	SecondaryStem string                  `json:"secondary_stem"`
	Params        modelcfg.Params         `json:"params"`
	Options       types.ProcessingOptions `json:"options"`
	// Outputs maps each requested stem to the file the separator must write.
	Outputs map[string]string `json:"outputs"`
	// Stems lists the keys of Outputs in a stable order.
	Stems []string `json:"stems"`
}

// Attempt records one execution try. A job has at most two.
type Attempt struct {
	Device   Device
	Fallback bool
	Err      error
}

// Result describes a successful job.
type Result struct {
	JobID            string
	Model            types.Model
	Config           modelcfg.ModelConfig
	Outputs          []string
	DeviceUsed       Device
	FallbackOccurred bool
	Attempts         []Attempt
	Duration         time.Duration
}

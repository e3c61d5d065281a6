// Package orchestrator drives separation jobs through configuration
// resolution, device selection and execution, with a single CPU retry when a
// run fails on the GPU for a recoverable reason. It is structured into small
// files by concern:
//
//   - orchestrator.go: core Orchestrator type, constructor, simple getters.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: job states, devices, Job, Attempt and Result.
//   - errors.go: error types and helpers (IsTooBusy, IsInvalidRequest).
//   - admission.go: single in-flight job with a bounded wait queue.
//   - architecture.go: the per-architecture capability set and its mdx, vr
//     and demucs implementations.
//   - preflight.go: request validation and input/output checks.
//   - outputs.go: stem selection and expected output file names.
//   - run.go: the resolve, acquire, run and fallback state machine.
//   - device.go: GPU detection and best-effort memory reclaim.
//   - separator.go, separator_subprocess.go: the external separator and a
//     subprocess-backed adapter.
//   - service.go: request/response mapping used by the HTTP layer.
//
// External packages should use the public methods only (New, Run, Resolve,
// Separate, Status, Ready, ListModels).
package orchestrator
